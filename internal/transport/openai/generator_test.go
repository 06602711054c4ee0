package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/domain"
	"github.com/kailas-cloud/courserec/internal/domain/generation"
	"github.com/kailas-cloud/courserec/internal/domain/prompt"
)

func testGenerator(url string) *Generator {
	return NewGenerator(&Config{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "chat-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func chatResponse(content string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "chat-model",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGenerator_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse(`[{"title":"Go"}]`)))
	}))
	defer srv.Close()

	ctx, usage := domain.NewContextWithUsage(context.Background())
	p := prompt.Prompt{System: "sys", User: "usr"}

	out, err := testGenerator(srv.URL).Generate(ctx, p, generation.Options{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != `[{"title":"Go"}]` {
		t.Errorf("unexpected content: %q", out)
	}
	if usage.GenerationTokens != 20 {
		t.Errorf("expected 20 generation tokens, got %d", usage.GenerationTokens)
	}

	if _, ok := body["temperature"]; !ok {
		t.Error("temperature must be sent even when zero")
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	first, _ := msgs[0].(map[string]any)
	second, _ := msgs[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "sys" {
		t.Errorf("unexpected system message: %v", first)
	}
	if second["role"] != "user" || second["content"] != "usr" {
		t.Errorf("unexpected user message: %v", second)
	}
}

func TestGenerator_Temperature(t *testing.T) {
	var got float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Temperature float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		got = body.Temperature
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse("[]")))
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), prompt.Prompt{User: "q"},
		generation.Options{Temperature: 0.7})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got < 0.69 || got > 0.71 {
		t.Errorf("expected temperature 0.7, got %f", got)
	}
}

func TestGenerator_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).Generate(context.Background(), prompt.Prompt{User: "q"}, generation.Options{})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		want      error
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited, true},
		{"unavailable", http.StatusServiceUnavailable, domain.ErrGenerationFailed, true},
		{"unauthorized", http.StatusUnauthorized, domain.ErrGenerationFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
			}))
			defer srv.Close()

			_, err := testGenerator(srv.URL).Generate(context.Background(), prompt.Prompt{User: "q"},
				generation.Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var pe *domain.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *domain.ProviderError, got %T", err)
			}
			if pe.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", pe.Retryable(), tt.retryable)
			}
		})
	}
}

func TestRequestTemperature(t *testing.T) {
	if requestTemperature(0) == 0 {
		t.Error("zero temperature must be replaced")
	}
	if requestTemperature(0.5) != 0.5 {
		t.Error("non-zero temperature must pass through")
	}
}
