package output

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/leapsparql/internal/sparql"
)

// ErrReported marks a failure whose message was already shown to the user.
var ErrReported = errors.New("failure already reported")

// Sink receives the terminal outcome of a query job.
type Sink interface {
	Deliver(o sparql.Outcome) error
}

// Deliver writes a successful outcome's text to the main writer, ending it
// with a newline if needed. A failed outcome is written as one error line and
// returned wrapped in ErrReported.
func (r *Renderer) Deliver(o sparql.Outcome) error {
	if !o.Succeeded() {
		r.Error(o.Message())
		return errors.Join(ErrReported, o.Err)
	}

	r.Printf("%s", o.Text)
	if o.Text != "" && !strings.HasSuffix(o.Text, "\n") {
		r.Println()
	}
	return nil
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(o sparql.Outcome) error

// Deliver calls f(o).
func (f SinkFunc) Deliver(o sparql.Outcome) error { return f(o) }
