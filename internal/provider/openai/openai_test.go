package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"confluencekb/internal/provider"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.MaxTokens == nil || *req.MaxTokens != 256 {
			t.Errorf("MaxTokens = %v", req.MaxTokens)
		}

		json.NewEncoder(w).Encode(apiResponse{
			Model: "gpt-4o-mini",
			Choices: []apiChoice{{
				Message:      apiMessage{Role: "assistant", Content: "the answer"},
				FinishReason: "stop",
			}},
			Usage: apiUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "sk-test", BaseURL: srv.URL})
	resp, err := p.Complete(context.Background(), &provider.CompletionRequest{
		Model:     "gpt-4o-mini",
		MaxTokens: 256,
		Messages:  []provider.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Content != "the answer" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{})
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL})
	_, err := p.Complete(context.Background(), &provider.CompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error when response has no choices")
	}
}

func TestName(t *testing.T) {
	if got := New(Config{}).Name(); got != "openai" {
		t.Errorf("Name() = %q", got)
	}
}
