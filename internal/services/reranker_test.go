package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankerSendsRawScoreRequest(t *testing.T) {
	var got rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"index":0,"score":-1.25}]`))
	}))
	defer srv.Close()

	r := NewReranker(srv.URL+"/", "cross-encoder/ms-marco-MiniLM-L-6-v2", time.Second, nil)
	logit, err := r.Rerank(context.Background(), "data scientist", "python sql")
	require.NoError(t, err)

	assert.Equal(t, -1.25, logit)
	assert.Equal(t, "data scientist", got.Query)
	assert.Equal(t, []string{"python sql"}, got.Texts)
	assert.True(t, got.RawScores)
}

func TestRerankerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "server error", status: http.StatusInternalServerError, payload: `{"error":"overloaded"}`},
		{name: "empty result", status: http.StatusOK, payload: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			_, err := NewReranker(srv.URL, "", time.Second, nil).Rerank(context.Background(), "q", "t")
			assert.Error(t, err)
		})
	}
}

func TestRerankerHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReranker("http://127.0.0.1:1", "", time.Second, nil).Rerank(ctx, "q", "t")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRerankerReportsCancellationDuringCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"index":0,"score":2.0}]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := NewReranker(srv.URL, "", 5*time.Second, nil).Rerank(ctx, "q", "t")
	assert.ErrorIs(t, err, context.Canceled)
}
