package netfetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimitDeniesBeyondDeadline(t *testing.T) {
	transport := okTransport(`{}`)
	fetcher := newTestFetcher(transport, newFakeClock(), WithRateLimit(rate.Every(time.Hour), 1))

	_, err := fetcher.RetryingFetch(context.Background(), Request{URL: testURL}, WithRetryCount(0))
	require.NoError(t, err, "the burst token is available")

	_, err = fetcher.RetryingFetch(context.Background(), Request{URL: testURL},
		WithRetryCount(0),
		WithAttemptTimeout(10*time.Millisecond),
	)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 1, transport.Calls(), "a denied call never reaches the transport")
}

// captureLogger records messages for assertions.
type captureLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *captureLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record(msg) }

func (l *captureLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func TestDebugLogging(t *testing.T) {
	logger := &captureLogger{}
	fetcher := newTestFetcher(okTransport(`{}`), newFakeClock(), WithDebug(), WithLogger(logger))
	require.True(t, fetcher.IsValid(), "%v", fetcher.ValidationError())

	_, err := fetcher.CachedFetch(context.Background(), Request{URL: testURL})
	require.NoError(t, err)
	_, err = fetcher.CachedFetch(context.Background(), Request{URL: testURL})
	require.NoError(t, err)

	messages := logger.Messages()
	assert.Contains(t, messages, "Cache miss")
	assert.Contains(t, messages, "Sending request")
	assert.Contains(t, messages, "Response cached")
	assert.Contains(t, messages, "Cache hit")
}

func TestDebugCategoriesFilter(t *testing.T) {
	logger := &captureLogger{}
	config := DefaultDebugConfig()
	config.Enabled = true
	config.LogCache = false
	config.LogRequests = false

	fetcher := newTestFetcher(failingTransport(errNetwork), newFakeClock(), WithDebugConfig(config), WithLogger(logger))

	_, err := fetcher.RetryingFetch(context.Background(), Request{URL: testURL}, WithRetryCount(1))
	require.Error(t, err)

	assert.Equal(t, []string{"Scheduling retry", "Retries exhausted"}, logger.Messages())
}

func TestDebugDisabledIsSilent(t *testing.T) {
	logger := &captureLogger{}
	fetcher := newTestFetcher(okTransport(`{}`), newFakeClock(), WithLogger(logger))

	_, err := fetcher.CachedFetch(context.Background(), Request{URL: testURL})
	require.NoError(t, err)

	assert.Empty(t, logger.Messages())
}

func TestTransportPanicBecomesError(t *testing.T) {
	transport := TransportFunc(func(context.Context, Request) (*Response, error) {
		panic("boom")
	})
	fetcher := newTestFetcher(transport, newFakeClock())

	_, err := fetcher.CachedFetch(context.Background(), Request{URL: testURL})

	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, fetcher.Store().PendingLen())
}
