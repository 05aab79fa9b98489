package netfetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const testURL = "https://api.example.com/data"

var errNetwork = errors.New("network error")

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSleeper returns immediately and remembers every requested delay.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// countingTransport counts calls and delegates to fn.
type countingTransport struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req Request, call int) (*Response, error)
}

func (t *countingTransport) Send(ctx context.Context, req Request) (*Response, error) {
	n := int(t.calls.Add(1))
	return t.fn(ctx, req, n)
}

func (t *countingTransport) Calls() int {
	return int(t.calls.Load())
}

func jsonResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func okTransport(body string) *countingTransport {
	return &countingTransport{fn: func(context.Context, Request, int) (*Response, error) {
		return jsonResponse(body), nil
	}}
}

func failingTransport(err error) *countingTransport {
	return &countingTransport{fn: func(context.Context, Request, int) (*Response, error) {
		return nil, err
	}}
}

// blockingTransport holds every call until release is closed.
func blockingTransport(release <-chan struct{}, body string) *countingTransport {
	return &countingTransport{fn: func(ctx context.Context, _ Request, _ int) (*Response, error) {
		select {
		case <-release:
			return jsonResponse(body), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
}

func newTestFetcher(transport Transport, clock Clock, options ...Option) *Fetcher {
	base := []Option{
		WithTransport(transport),
		WithClock(clock),
		WithSleeper(&recordingSleeper{}),
	}
	return New(append(base, options...)...)
}
