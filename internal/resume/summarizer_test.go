package resume

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	}
}

func TestSummarizeUsesModelOutput(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
			Temperature float32 `json:"temperature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 {
			t.Fatalf("messages = %d, want 1", len(req.Messages))
		}
		prompt = req.Messages[0].Content
		if req.Temperature != 0 {
			t.Errorf("temperature = %v, want 0", req.Temperature)
		}
		json.NewEncoder(w).Encode(chatResponse("Technical Skills:\nGo, Redis"))
	}))
	defer srv.Close()

	s := NewSummarizer(SummarizerConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	got := s.Summarize(context.Background(), "Resume body here", "Profile narrative here")

	if got != "Technical Skills:\nGo, Redis" {
		t.Errorf("summary = %q", got)
	}
	if !strings.Contains(prompt, "Resume body here") || !strings.Contains(prompt, "Profile narrative here") {
		t.Error("prompt does not carry both documents")
	}
}

func TestSummarizeFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSummarizer(SummarizerConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	got := s.Summarize(context.Background(), "doc one", "doc two")

	if got != "doc one\n\ndoc two" {
		t.Errorf("fallback = %q, want joined raw documents", got)
	}
}

func TestSummarizeFallsBackOnEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse(""))
	}))
	defer srv.Close()

	s := NewSummarizer(SummarizerConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})
	if got := s.Summarize(context.Background(), "only doc"); got != "only doc" {
		t.Errorf("fallback = %q", got)
	}
}
