package sparql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle position of an Executor.
type State int

// Executor states. Succeeded and Failed are terminal.
const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Outcome is the terminal result of a job: the success text, or the error that failed it.
type Outcome struct {
	Text     string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the outcome carries result text.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Message returns the human-readable failure message, or "" on success.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// ExecutorConfig holds the collaborators of an Executor.
type ExecutorConfig struct {
	// Client performs the request. Defaults to http.DefaultClient, which has no timeout.
	Client Doer
	// Formatter renders JSON results. Defaults to TextFormatter.
	Formatter Formatter
	Logger    *slog.Logger
}

// Executor runs a single QueryJob in the background.
//
// An Executor moves from Idle to Running when Start is called and reaches
// exactly one terminal state. It cannot be reused for another job.
type Executor struct {
	client    Doer
	formatter Formatter
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	outcome Outcome
	done    chan struct{}
}

// NewExecutor creates an idle executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	e := &Executor{
		client:    cfg.Client,
		formatter: cfg.Formatter,
		logger:    cfg.Logger,
		done:      make(chan struct{}),
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	if e.formatter == nil {
		e.formatter = TextFormatter{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Start dispatches job on a new goroutine and returns immediately.
// Cancelling ctx does not abort the request once started; only its values are used.
func (e *Executor) Start(ctx context.Context, job QueryJob) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return ErrAlreadyStarted
	}
	e.state = StateRunning

	go e.run(context.WithoutCancel(ctx), job)
	return nil
}

// State returns the current state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done returns a channel that is closed once the executor reaches a terminal state.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

// Outcome returns the terminal outcome. The boolean is false while the job
// has not finished.
func (e *Executor) Outcome() (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Terminal() {
		return Outcome{}, false
	}
	return e.outcome, true
}

// Wait blocks until the job finishes or ctx is done. Giving up on ctx leaves
// the request running.
func (e *Executor) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-e.done:
		o, _ := e.Outcome()
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run starts job and waits for its outcome.
func (e *Executor) Run(ctx context.Context, job QueryJob) (Outcome, error) {
	if err := e.Start(ctx, job); err != nil {
		return Outcome{}, err
	}
	return e.Wait(ctx)
}

func (e *Executor) run(ctx context.Context, job QueryJob) {
	start := time.Now()
	var text string
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query execution panicked: %v", r)
			text = ""
		}
		e.finish(Outcome{Text: text, Err: err, Duration: time.Since(start)}, job)
	}()

	text, err = e.execute(ctx, job)
}

func (e *Executor) finish(o Outcome, job QueryJob) {
	e.mu.Lock()
	e.outcome = o
	if o.Err != nil {
		e.state = StateFailed
	} else {
		e.state = StateSucceeded
	}
	state := e.state
	e.mu.Unlock()

	e.logger.Debug("query finished",
		slog.String("endpoint", job.Name),
		slog.String("state", state.String()),
		slog.Duration("duration", o.Duration))
	close(e.done)
}

func (e *Executor) execute(ctx context.Context, job QueryJob) (string, error) {
	req, err := BuildRequest(ctx, job)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	e.logger.Debug("dispatching query",
		slog.String("endpoint", job.Name),
		slog.String("url", job.Endpoint.URL),
		slog.Bool("auth", job.Endpoint.HasCredentials()))

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if strings.TrimSpace(resp.Header.Get("Content-Length")) == "0" {
		return "", ErrEmptyResponse
	}

	// The body is read once; every branch below works on these bytes.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	switch ct := mediaType(resp.Header.Get("Content-Type")); ct {
	case "text/plain":
		return string(body), nil
	case "application/json":
		res, err := DecodeResults(body)
		if err != nil {
			return "", err
		}
		return e.formatter.Format(NewTable(res, job.Prefixes)), nil
	default:
		return "", &UnsupportedContentTypeError{ContentType: ct}
	}
}

// mediaType strips parameters such as charset from a Content-Type value.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
