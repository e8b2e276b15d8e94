package adapters

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

func testLogger() *logger.Logger { return logger.NewLogger() }

func TestAdapterDisabledByDefaultWithoutCredential(t *testing.T) {
	cfg := config.AdapterConfig{Name: "test", Enabled: false, WindowRequests: 10, Window: time.Minute, CircuitThreshold: 3, CircuitReset: time.Minute}
	a := New(cfg, testLogger(), func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		t.Fatal("fetch should never be called when disabled")
		return nil, nil
	}, nil)
	got := a.Fetch(context.Background(), "")
	assert.Empty(t, got)
}

func TestAdapterRateLimitSkipsNetworkCall(t *testing.T) {
	cfg := config.AdapterConfig{Name: "test", Enabled: true, WindowRequests: 1, Window: time.Minute, CircuitThreshold: 3, CircuitReset: time.Minute}
	calls := 0
	a := New(cfg, testLogger(), func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		calls++
		return []model.Article{{Title: "x"}}, nil
	}, nil)
	first := a.Fetch(context.Background(), "q")
	require.Len(t, first, 1)
	second := a.Fetch(context.Background(), "q")
	assert.Empty(t, second)
	assert.Equal(t, 1, calls)
}

func TestAdapterAuthFailureDisablesSticky(t *testing.T) {
	cfg := config.AdapterConfig{Name: "test", Enabled: true, WindowRequests: 10, Window: time.Minute, CircuitThreshold: 3, CircuitReset: time.Minute}
	a := New(cfg, testLogger(), func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		return nil, ErrAuthFailed
	}, nil)
	got := a.Fetch(context.Background(), "q")
	assert.Empty(t, got)
	assert.True(t, a.disabled.Load())
}

type stubQuota struct {
	allow bool
	err   error
	calls int
}

func (q *stubQuota) Allow(ctx context.Context, adapterName string, limit int) (bool, error) {
	q.calls++
	return q.allow, q.err
}

func TestAdapterQuotaExhaustedSkipsNetworkCall(t *testing.T) {
	cfg := config.AdapterConfig{Name: "test", Enabled: true, WindowRequests: 10, Window: time.Minute, CircuitThreshold: 3, CircuitReset: time.Minute}
	q := &stubQuota{allow: false}
	calls := 0
	a := New(cfg, testLogger(), func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		calls++
		return []model.Article{{Title: "x"}}, nil
	}, q)
	got := a.Fetch(context.Background(), "q")
	assert.Empty(t, got)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, q.calls)
}

func TestAdapterQuotaErrorProceedsOnLocalLimiter(t *testing.T) {
	cfg := config.AdapterConfig{Name: "test", Enabled: true, WindowRequests: 10, Window: time.Minute, CircuitThreshold: 3, CircuitReset: time.Minute}
	q := &stubQuota{err: errors.New("redis unavailable")}
	calls := 0
	a := New(cfg, testLogger(), func(ctx context.Context, client *http.Client, query string) ([]model.Article, error) {
		calls++
		return []model.Article{{Title: "x"}}, nil
	}, q)
	got := a.Fetch(context.Background(), "q")
	assert.Len(t, got, 1)
	assert.Equal(t, 1, calls)
}

func TestCanonicalizeURLStripsTracking(t *testing.T) {
	got := CanonicalizeURL("HTTPS://Example.com/Article?utm_source=twitter&id=5&fbclid=abc#frag")
	assert.Equal(t, "https://example.com/Article?id=5", got)
}

func TestParsePublishedAtFallsBackOnFailure(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := ParsePublishedAt("not-a-date", fallback)
	assert.Equal(t, fallback, got)
}

func TestIsSymbol(t *testing.T) {
	assert.True(t, IsSymbol("AAPL"))
	assert.True(t, IsSymbol("X"))
	assert.False(t, IsSymbol("aapl"))
	assert.False(t, IsSymbol("TOOLONG"))
	assert.False(t, IsSymbol("Alpha financial performance"))
}
