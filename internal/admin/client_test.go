package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient creates a client against a test server with pacing disabled.
func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewClient(endpoint, &http.Client{}, StaticToken("test-token"), logger)
	c.sleepFunc = func(context.Context, time.Duration) error { return nil }

	return c
}

func TestDo_SendsAuthAndContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"ok":true}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var out struct {
		OK bool `json:"ok"`
	}

	err := client.Do(context.Background(), "query { ok }", nil, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestDo_SendsQueryAndVariables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}

		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "query products { id }", req.Query)
		assert.Equal(t, float64(3), req.Variables["first"])

		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	err := client.Do(context.Background(), "query products { id }", map[string]any{"first": 3}, nil)
	require.NoError(t, err)
}

func TestDo_GraphQLErrorsNotRetried(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"errors":[{"message":"field does not exist"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	err := client.Do(context.Background(), "query { nope }", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGraphQL)

	var gqlErrs *GraphQLErrors
	require.ErrorAs(t, err, &gqlErrs)
	assert.Contains(t, gqlErrs.Error(), "field does not exist")

	assert.Equal(t, int64(1), calls.Load())
}

func TestDo_RetriesThrottledWithRetryAfter(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var slept []time.Duration

	client.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	err := client.Do(context.Background(), "query { ok }", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())

	require.Len(t, slept, 1)
	assert.Equal(t, time.Second, slept[0])
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	err := client.Do(context.Background(), "query { ok }", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestDo_UnauthorizedNotRetried(t *testing.T) {
	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-Request-Id", "req-123")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":"invalid token"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	err := client.Do(context.Background(), "query { ok }", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "req-123", apiErr.RequestID)

	assert.Equal(t, int64(1), calls.Load())
}

func TestDo_TokenSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewClient(srv.URL, &http.Client{}, failingToken{}, logger)
	client.sleepFunc = func(context.Context, time.Duration) error { return nil }

	err := client.Do(context.Background(), "query { ok }", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
}

type failingToken struct{}

func (failingToken) Token() (string, error) {
	return "", errors.New("no token on disk")
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	client.sleepFunc = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := client.Do(ctx, "query { ok }", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalcBackoff_Bounded(t *testing.T) {
	client := newTestClient(t, "http://unused")

	for attempt := range 10 {
		backoff := client.calcBackoff(attempt)
		assert.Greater(t, backoff, time.Duration(0))
		assert.LessOrEqual(t, backoff, maxBackoff+maxBackoff/4)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrThrottled},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusOK, nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.code), "status %d", tt.code)
	}
}
