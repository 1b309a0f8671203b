package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// Response is the canned reply of a stub endpoint.
type Response struct {
	Status      int
	ContentType string
	Body        string
}

// Endpoint is a stub query endpoint that replays one Response and records
// the requests it receives.
type Endpoint struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	resp     Response
}

// RecordedRequest is the part of an incoming request tests assert on.
type RecordedRequest struct {
	Method        string
	Query         url.Values
	Authorization string
}

// NewEndpoint starts a stub endpoint closed at test cleanup.
func NewEndpoint(t testing.TB, resp Response) *Endpoint {
	t.Helper()
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}

	e := &Endpoint{resp: resp}
	e.Server = httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(e.Close)
	return e
}

// SetResponse replaces the canned reply.
func (e *Endpoint) SetResponse(resp Response) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	e.resp = resp
}

// Requests returns a copy of the requests received so far.
func (e *Endpoint) Requests() []RecordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]RecordedRequest(nil), e.requests...)
}

func (e *Endpoint) serve(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	e.requests = append(e.requests, RecordedRequest{
		Method:        r.Method,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
	})
	resp := e.resp
	e.mu.Unlock()

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write([]byte(resp.Body))
}
