package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalysisServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalysisService_Unconfigured(t *testing.T) {
	var hits int32
	srv := newAnalysisServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})
	svc := NewAnalysisService(&AnalysisConfig{BaseURL: srv.URL, Model: "m"})

	res := svc.Analyze(context.Background(), AnalyzeRequest{CIDR: "23.0.0.0/12", OrgName: "Acme"})
	assert.False(t, svc.IsConfigured())
	assert.Equal(t, UnconfiguredMessage, res.Error)
	assert.Empty(t, res.Text)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAnalysisService_RelaysAnswer(t *testing.T) {
	srv := newAnalysisServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "https://deals.example", r.Header.Get("HTTP-Referer"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req chatRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Contains(t, req.Messages[1].Content, "23.0.0.0/12")
		assert.Contains(t, req.Messages[1].Content, "Acme Corp")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Likely dormant legacy block."}}]}`))
	})
	svc := NewAnalysisService(&AnalysisConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/",
		Model:   "test-model",
		Referer: "https://deals.example",
		Timeout: 5 * time.Second,
	})

	res := svc.Analyze(context.Background(), AnalyzeRequest{CIDR: "23.0.0.0/12", OrgName: "Acme Corp"})
	assert.Empty(t, res.Error)
	assert.Equal(t, "Likely dormant legacy block.", res.Text)
}

func TestAnalysisService_NoChoices(t *testing.T) {
	srv := newAnalysisServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})
	svc := NewAnalysisService(&AnalysisConfig{APIKey: "k", BaseURL: srv.URL})

	res := svc.Analyze(context.Background(), AnalyzeRequest{CIDR: "1.2.3.0/24"})
	assert.Equal(t, MalformedMessage, res.Error)
	details, ok := res.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "error")
}

func TestAnalysisService_NonJSONBody(t *testing.T) {
	srv := newAnalysisServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	svc := NewAnalysisService(&AnalysisConfig{APIKey: "k", BaseURL: srv.URL})

	res := svc.Analyze(context.Background(), AnalyzeRequest{CIDR: "1.2.3.0/24"})
	assert.Contains(t, res.Error, "HTTP 502")
	assert.Empty(t, res.Text)
}

func TestAnalysisService_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	svc := NewAnalysisService(&AnalysisConfig{APIKey: "k", BaseURL: url, Timeout: time.Second})
	res := svc.Analyze(context.Background(), AnalyzeRequest{CIDR: "1.2.3.0/24"})
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Text)
}
