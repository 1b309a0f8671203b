package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// spinnerFrames cycle every spinnerInterval while a query runs.
const (
	spinnerFrames   = `-\|/`
	spinnerInterval = 100 * time.Millisecond
)

// Spinner shows progress on a single status line until stopped.
type Spinner struct {
	w       io.Writer
	msg     string
	styles  *Styles
	animate bool

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner writing to the error writer. It only animates
// on a terminal; otherwise Start is silent and Success/Fail print one line.
func (r *Renderer) NewSpinner(msg string) *Spinner {
	return &Spinner{
		w:       r.errW,
		msg:     msg,
		styles:  r.styles,
		animate: r.isTTY,
	}
}

// Start begins animating. Calling Start on a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil || !s.animate {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.loop(s.stop, s.stopped)
}

func (s *Spinner) loop(stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := spinnerFrames[i%len(spinnerFrames)]
		_, _ = fmt.Fprintf(s.w, "\r%c %s", frame, s.msg)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
	_, _ = fmt.Fprint(s.w, "\r\033[K")
}

// Success stops the spinner and prints msg with a success mark.
func (s *Spinner) Success(msg string) {
	s.Stop()
	_, _ = fmt.Fprintln(s.w, s.styles.StatusSuccess.String()+" "+msg)
}

// Fail stops the spinner and prints msg with a failure mark.
func (s *Spinner) Fail(msg string) {
	s.Stop()
	_, _ = fmt.Fprintln(s.w, s.styles.StatusFailed.String()+" "+msg)
}
