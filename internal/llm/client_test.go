package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-converter/internal/logging"
)

func testClient(url string) *Client {
	cfg := DefaultConfig()
	cfg.Endpoint = url + "/"
	cfg.Timeout = 5 * time.Second
	cfg.Retry = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	return NewClient(cfg, logging.Discard())
}

func TestClient_ModelsAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"llama3","size":4661224676,"modified_at":"2026-05-01T10:00:00Z"},{"name":"qwen2"}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	assert.Equal(t, srv.URL, c.Endpoint())
	assert.True(t, c.Available(context.Background()))

	models, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3", models[0].Name)
	assert.Equal(t, int64(4661224676), models[0].Size)

	st := c.Status(context.Background())
	assert.True(t, st.Available)
	assert.Equal(t, "llama3", st.Model)
	assert.Len(t, st.Models, 2)
	assert.Empty(t, st.Error)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := testClient(url)
	assert.False(t, c.Available(context.Background()))

	st := c.Status(context.Background())
	assert.False(t, st.Available)
	assert.Nil(t, st.Models)
}

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.Equal(t, "Summarise: hello", req.Prompt)
		assert.False(t, req.Stream)
		assert.Equal(t, 4000, req.Options.NumPredict)

		w.Write([]byte(`{"response":"A greeting.","done":true}`))
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).Generate(context.Background(), "Summarise: hello")
	require.NoError(t, err)
	assert.Equal(t, "A greeting.", out)
}

func TestClient_GenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "again", req.Prompt)

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	defer srv.Close()

	out, err := testClient(srv.URL).Generate(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GenerateGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryPolicy_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.cfg.Retry = RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 10 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.backoff(0))
	assert.Equal(t, 20*time.Millisecond, p.backoff(1))
	assert.Equal(t, 80*time.Millisecond, p.backoff(3))
}
