package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
)

func TestUserPromptCarriesInputAndKind(t *testing.T) {
	t.Parallel()

	prompt := userPrompt("  cute dog 🐶 ", domain.MediaKindVideo)
	require.Contains(t, prompt, "Media type: video.")
	require.True(t, strings.HasSuffix(prompt, "--- Input ---\ncute dog 🐶\n--- Output ---\n"))
}

func TestChatGPTRewrite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		var body struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != "gpt-test" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected payload: %+v", body)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  Good boy! #dog #cute #viral \n"}}]}`)
	}))
	t.Cleanup(srv.Close)

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "key"}, 0)
	out, err := client.Rewrite(context.Background(), "cute dog", domain.MediaKindVideo)
	require.NoError(t, err)
	require.Equal(t, "Good boy! #dog #cute #viral", out)
}

func TestChatGPTRewriteErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
		case "/empty":
			_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`)
		default:
			_, _ = io.WriteString(w, `{"choices":[]}`)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL + "/fail", Model: "m", APIKey: "k"}, 0)
	_, err := client.Rewrite(context.Background(), "x", domain.MediaKindPhoto)
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota")

	client = NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL + "/empty", Model: "m", APIKey: "k"}, 0)
	_, err = client.Rewrite(context.Background(), "x", domain.MediaKindPhoto)
	require.True(t, errors.Is(err, domain.ErrEmptyRewrite))

	client = NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"}, 0)
	_, err = client.Rewrite(context.Background(), "x", domain.MediaKindPhoto)
	require.ErrorIs(t, err, domain.ErrEmptyRewrite)

	client = NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL}, 0)
	_, err = client.Rewrite(context.Background(), "x", domain.MediaKindPhoto)
	require.Error(t, err)
}

func TestGeminiRewrite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":" Sunset vibes 🌅 #sunset #nature #photo "}]}}]}`)
	}))
	t.Cleanup(srv.Close)

	rw, err := NewGeminiRewriter(context.Background(), config.GeminiConfig{
		APIKey:  "key",
		Model:   "gemini-test",
		BaseURL: srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	out, err := rw.Rewrite(context.Background(), "sunset", domain.MediaKindPhoto)
	require.NoError(t, err)
	require.Equal(t, "Sunset vibes 🌅 #sunset #nature #photo", out)
}

func TestGeminiRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := NewGeminiRewriter(context.Background(), config.GeminiConfig{}, nil)
	require.Error(t, err)
}
