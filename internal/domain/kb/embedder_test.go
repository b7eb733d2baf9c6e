package kb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func embeddingServer(t *testing.T, dims int, shuffle bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		resp := embeddingResponse{}
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(i)
			resp.Data = append(resp.Data, embeddingData{Index: i, Embedding: vec})
		}
		if shuffle && len(resp.Data) > 1 {
			resp.Data[0], resp.Data[1] = resp.Data[1], resp.Data[0]
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPEmbedderEmbed(t *testing.T) {
	srv := embeddingServer(t, 4, false)
	defer srv.Close()

	e := NewHTTPEmbedder(HTTPEmbedderConfig{BaseURL: srv.URL, Dims: 4})
	vectors, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	if len(vectors[0]) != 4 {
		t.Errorf("vector dims = %d, want 4", len(vectors[0]))
	}
}

func TestHTTPEmbedderReordersByIndex(t *testing.T) {
	srv := embeddingServer(t, 2, true)
	defer srv.Close()

	e := NewHTTPEmbedder(HTTPEmbedderConfig{BaseURL: srv.URL, Dims: 2})
	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if vectors[0][0] != 0 || vectors[1][0] != 1 {
		t.Errorf("vectors not reordered by index: %v", vectors)
	}
}

func TestHTTPEmbedderDimsMismatch(t *testing.T) {
	srv := embeddingServer(t, 3, false)
	defer srv.Close()

	e := NewHTTPEmbedder(HTTPEmbedderConfig{BaseURL: srv.URL, Dims: 384})
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestHTTPEmbedderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(HTTPEmbedderConfig{BaseURL: srv.URL, Dims: 2})
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestHTTPEmbedderEmptyInput(t *testing.T) {
	e := NewHTTPEmbedder(HTTPEmbedderConfig{Dims: 2})
	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil) error = %v", err)
	}
	if vectors != nil {
		t.Errorf("Embed(nil) = %v, want nil", vectors)
	}
}
