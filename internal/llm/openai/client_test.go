package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-resume-backend/internal/llm"
)

func withServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	oldURL := apiURL
	apiURL = server.URL
	t.Cleanup(func() { apiURL = oldURL })
}

func TestGenerateSendsPromptWithoutResponseFormat(t *testing.T) {
	var lastBody map[string]any
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&lastBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" [\"Python\"] "}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	})

	client, err := NewClient("test-key", "gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := client.Generate(context.Background(), "Extract skills")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `["Python"]` {
		t.Fatalf("unexpected content %q", got)
	}
	if _, ok := lastBody["response_format"]; ok {
		t.Fatalf("response_format must not be sent")
	}
	if lastBody["temperature"] != float64(0) {
		t.Fatalf("expected temperature 0, got %v", lastBody["temperature"])
	}
	msgs, _ := lastBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
}

func TestGenerateOmitsTemperatureForGPT5(t *testing.T) {
	var lastBody map[string]any
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&lastBody)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	})

	client, _ := NewClient("k", "gpt-5-mini", time.Second)
	if _, err := client.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := lastBody["temperature"]; ok {
		t.Fatalf("expected temperature omitted")
	}
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	client, _ := NewClient("k", "gpt-4o-mini", time.Second)
	if _, err := client.Generate(context.Background(), "p"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  "}}]}`))
	})

	client, _ := NewClient("k", "gpt-4o-mini", time.Second)
	_, err := client.Generate(context.Background(), "p")
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
