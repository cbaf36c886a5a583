package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/statement-engine/internal/config"
)

func newTestClient(t *testing.T, maxRetries int) *Client {
	t.Helper()
	c := NewClient(config.FetchConfig{
		MaxCallsPerSecond: 0, // no limiting in unit tests
		MaxRetries:        maxRetries,
		Timeout:           5 * time.Second,
	})
	// Do not actually sleep between attempts
	c.backoff = func(attempt int) time.Duration { return 0 }
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestGetJSONSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"1","message":"OK"}`))
	}))
	defer server.Close()

	client := newTestClient(t, 3)

	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := client.GetJSON(context.Background(), server.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Status != "1" || out.Message != "OK" {
		t.Errorf("decoded = %+v, want status=1 message=OK", out)
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, 3)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), server.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if !out.OK {
		t.Error("expected success after retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGetJSONExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, 2)

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), server.URL, nil, &out)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("error = %v, want ErrRetriesExhausted", err)
	}
	// Initial attempt plus two retries
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, 3)

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), server.URL, nil, &out)
	if err == nil || errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("error = %v, want immediate non-retryable failure", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestPostJSONSendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		_, _ = w.Write([]byte(`{"result":"pong"}`))
	}))
	defer server.Close()

	client := newTestClient(t, 0)

	var out struct {
		Result string `json:"result"`
	}
	body := map[string]interface{}{"jsonrpc": "2.0", "method": "ping"}
	if err := client.PostJSON(context.Background(), server.URL, nil, body, &out); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if out.Result != "pong" {
		t.Errorf("result = %s, want pong", out.Result)
	}
}

func TestWindowLimiterAllowsUpToCap(t *testing.T) {
	limiter := NewWindowLimiter(5)
	base := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return base }

	slept := 0
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		base = base.Add(d)
		return nil
	}

	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if slept != 0 {
		t.Errorf("slept %d times within cap, want 0", slept)
	}

	// Sixth call must wait for the window to roll over
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if slept == 0 {
		t.Error("expected limiter to sleep once cap is reached")
	}
}

func TestWindowLimiterWindowRollsOver(t *testing.T) {
	limiter := NewWindowLimiter(2)
	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatal("should not sleep after window rolled over")
		return nil
	}

	for i := 0; i < 2; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// Advance past the window; old calls age out and the next call is free
	now = now.Add(1100 * time.Millisecond)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestWindowLimiterRespectsContext(t *testing.T) {
	limiter := NewWindowLimiter(1)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}
