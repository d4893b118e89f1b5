package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaClient(Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestOllama_Streaming(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.InDelta(t, 0.3, req.Options.Temperature, 1e-9)

		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":"lo!"},"done":false}`)
		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"model":"llama3","message":{"role":"assistant","content":"ignored"},"done":false}`)
	})

	comp, err := c.CreateCompletion(context.Background(), CompletionRequest{Model: "llama3", Temperature: 0.3, Stream: true})
	require.NoError(t, err)

	fragments, err := collect(t, comp.Stream)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo!"}, fragments)
}

func TestOllama_NonStreaming(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":"whole reply"},"done":true}`)
	})

	comp, err := c.CreateCompletion(context.Background(), CompletionRequest{Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "whole reply", comp.Text)
}

func TestOllama_ErrorStatus(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'nope' not found"}`)
	})

	_, err := c.CreateCompletion(context.Background(), CompletionRequest{Model: "nope"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "model 'nope' not found", apiErr.Message)
}

func TestOllama_StreamErrorLine(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"a"},"done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	})

	comp, err := c.CreateCompletion(context.Background(), CompletionRequest{Model: "m", Stream: true})
	require.NoError(t, err)

	fragments, err := collect(t, comp.Stream)
	assert.Equal(t, []string{"a"}, fragments)
	assert.ErrorContains(t, err, "out of memory")
}

func TestOllama_ListModelsAndHealth(t *testing.T) {
	c := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[{"name":"llama3:8b"},{"name":"qwen2:7b"}]}`)
	})

	require.NoError(t, c.HealthCheck(context.Background()))

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:8b", "qwen2:7b"}, models)
}
