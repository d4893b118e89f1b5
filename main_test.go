package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatterm/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.LogLevel = "error"
	return cfg
}

func TestRun_OfflineSession(t *testing.T) {
	cfg := testConfig(t)
	in := strings.NewReader("안녕\n\n/history\nasdfgh\n/reset\n/history\n/exit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, false, in, &out))

	got := out.String()
	assert.Contains(t, got, "demo")
	assert.Contains(t, got, "안녕하세요! 저는 데모 챗봇이에요.")
	assert.Contains(t, got, "[")
	assert.Contains(t, got, "“asdfgh”")
	assert.Contains(t, got, "Conversation cleared")
	assert.Contains(t, got, "No conversation history yet")
	assert.Contains(t, got, "Goodbye!")
	assert.NotContains(t, got, "never read")
}

func TestRun_EndOfInputExits(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, false, strings.NewReader("help"), &out))
	assert.Contains(t, out.String(), "파이썬 리스트 정렬")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestRun_RemoteStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo!\"}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
		case "/models":
			fmt.Fprint(w, `{"data":[{"id":"test-model"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL

	var out bytes.Buffer
	in := strings.NewReader("hi\n/models\n/exit\n")
	require.NoError(t, run(context.Background(), cfg, false, in, &out))

	got := out.String()
	assert.Contains(t, got, "remote · gpt-4o-mini")
	assert.Contains(t, got, "Hello!")
	assert.Contains(t, got, "test-model")
}

func TestRun_RemoteFailureIsShown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.APIKey = "sk-test"
	cfg.BaseURL = srv.URL
	cfg.Stream = false

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, false, strings.NewReader("hi\n"), &out))
	assert.Contains(t, out.String(), "An error occurred: openai returned status 429: rate limited")
}

func TestRun_UnknownProviderStillAnswers(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKey = "sk-test"
	cfg.Provider = "palm"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, false, strings.NewReader("hi\n"), &out))

	got := out.String()
	assert.Contains(t, got, "Remote backend unavailable")
	assert.Contains(t, got, "An error occurred: remote completion backend is not available")
}

func TestRun_SettingCommandsApplyToNextMessage(t *testing.T) {
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)
		assert.Equal(t, "Bearer sk-late", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"remote answer"}}]}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.BaseURL = srv.URL

	in := strings.NewReader(strings.Join([]string{
		"안녕",
		"/key sk-late",
		"/model gpt-4o",
		"/stream off",
		"/temperature 2",
		"/temperature 0.1",
		"/system Answer in English.",
		"hi",
		"/model",
		"/key",
		"hey",
		"/exit",
	}, "\n"))
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, false, in, &out))

	got := out.String()
	assert.Contains(t, got, "Replies now come from the remote model")
	assert.Contains(t, got, "Setting not changed: temperature must be between 0.0 and 1.0")
	assert.Contains(t, got, "remote answer")
	assert.Contains(t, got, "model: gpt-4o")
	assert.Contains(t, got, "Replies now come from the offline demo")
	assert.Equal(t, 2, strings.Count(got, "안녕하세요! 저는 데모 챗봇이에요."), "greeting before and after the remote turn")

	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "gpt-4o", req["model"])
	assert.Equal(t, false, req["stream"])
	assert.InDelta(t, 0.1, req["temperature"], 1e-9)

	messages, ok := req["messages"].([]any)
	require.True(t, ok)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "Answer in English.", first["content"])
}

func TestRun_ResetRedrawsBanner(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), cfg, false, strings.NewReader("안녕\n/reset\n"), &out))

	got := out.String()
	assert.Contains(t, got, "\033[2J\033[H")
	assert.Equal(t, 2, strings.Count(got, "chatterm · terminal chatbot"))
	assert.Contains(t, got, "Conversation cleared")
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--model", "gpt-4o", "--temperature", "0", "--no-stream", "--api-key", "sk-flag", "--proxy", "http://proxy:3128"}))

	cfg := config.NewConfig()
	cfg.SystemPrompt = "from config"

	var fv flagValues
	fv.model, _ = cmd.Flags().GetString("model")
	fv.temperature, _ = cmd.Flags().GetFloat64("temperature")
	fv.noStream, _ = cmd.Flags().GetBool("no-stream")
	fv.apiKey, _ = cmd.Flags().GetString("api-key")
	fv.proxy, _ = cmd.Flags().GetString("proxy")
	applyFlags(cmd, cfg, &fv)

	assert.Equal(t, "gpt-4o", cfg.ModelName)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.False(t, cfg.Stream)
	assert.Equal(t, "sk-flag", cfg.APIKey)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy)
	assert.Empty(t, cfg.NoProxy)
	assert.Equal(t, "from config", cfg.SystemPrompt, "unset flags keep config values")
}
