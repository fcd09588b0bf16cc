package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domainerrors "github.com/jbctechsolutions/spendgate/internal/domain/errors"
)

func TestNewClient(t *testing.T) {
	config := DefaultConfig("test-api-key")

	client := NewClient(config)

	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.config.APIKey != "test-api-key" {
		t.Errorf("expected API key 'test-api-key', got %q", client.config.APIKey)
	}
	if client.config.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %q", client.config.BaseURL)
	}
}

func TestNewClientWithOptions(t *testing.T) {
	config := DefaultConfig("test-api-key")

	customHTTPClient := &http.Client{Timeout: 5 * time.Minute}
	client := NewClient(config,
		WithHTTPClient(customHTTPClient),
		WithTimeout(1*time.Minute),
		WithMaxRetries(5),
		WithBaseURL("https://custom.api.com/v1/"),
		WithOrganization("org-123"),
	)

	if client.httpClient.Timeout != 1*time.Minute {
		t.Errorf("expected timeout 1m, got %v", client.httpClient.Timeout)
	}
	if client.config.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", client.config.MaxRetries)
	}
	if client.config.BaseURL != "https://custom.api.com/v1" {
		t.Errorf("expected base URL without trailing slash, got %q", client.config.BaseURL)
	}
	if client.config.Organization != "org-123" {
		t.Errorf("expected organization 'org-123', got %q", client.config.Organization)
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig("test-api-key")
	cfg.BaseURL = server.URL
	cfg.MaxRetries = 2
	cfg.RetryBaseDelay = time.Millisecond
	return NewClient(cfg)
}

func TestClient_Chat(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-api-key" {
			t.Errorf("expected Bearer token, got %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}

		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != ModelGPT4oMini {
			t.Errorf("expected model %s, got %s", ModelGPT4oMini, req.Model)
		}

		w.Header().Set("x-ratelimit-remaining-requests", "99")
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: ModelGPT4oMini,
			Choices: []Choice{
				{Message: Message{Role: RoleAssistant, Content: "hi there"}, FinishReason: FinishReasonStop},
			},
			Usage: Usage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
		})
	})

	resp, rl, err := client.Chat(context.Background(), &ChatCompletionRequest{
		Model:    ModelGPT4oMini,
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Choices[0].Message.Content != "hi there" {
		t.Errorf("unexpected content %q", resp.Choices[0].Message.Content)
	}
	if resp.Usage.PromptTokens != 12 {
		t.Errorf("expected 12 prompt tokens, got %d", resp.Usage.PromptTokens)
	}
	if rl.RemainingRequests != 99 {
		t.Errorf("expected remaining requests 99, got %d", rl.RemainingRequests)
	}
}

func TestClient_ChatRetriesOnServerError(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Content: "recovered"}}},
		})
	})

	resp, _, err := client.Chat(context.Background(), &ChatCompletionRequest{Model: ModelGPT4oMini})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Choices[0].Message.Content != "recovered" {
		t.Errorf("unexpected content %q", resp.Choices[0].Message.Content)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestClient_ChatExhaustsRetries(t *testing.T) {
	var calls int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, _, err := client.Chat(context.Background(), &ChatCompletionRequest{Model: ModelGPT4oMini})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestClient_ChatAuthError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: ErrorInfo{Message: "invalid api key", Type: "invalid_request_error"},
		})
	})

	_, _, err := client.Chat(context.Background(), &ChatCompletionRequest{Model: ModelGPT4oMini})
	if err == nil {
		t.Fatal("expected error")
	}

	var sgErr *domainerrors.SpendgateError
	if !domainerrors.As(err, &sgErr) {
		t.Fatalf("expected SpendgateError, got %T", err)
	}
	if sgErr.Code != domainerrors.CodeConfiguration {
		t.Errorf("expected configuration error code for 401, got %s", sgErr.Code)
	}
}

func TestClient_Transcribe(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("expected /audio/transcriptions, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if model := r.FormValue("model"); model != ModelWhisper1 {
			t.Errorf("expected model %s, got %s", ModelWhisper1, model)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.ogg" {
			t.Errorf("expected filename audio.ogg, got %s", header.Filename)
		}

		json.NewEncoder(w).Encode(TranscriptionResponse{Text: "hello from voice"})
	})

	resp, err := client.Transcribe(context.Background(), ModelWhisper1, "audio.ogg", []byte("fake audio"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if resp.Text != "hello from voice" {
		t.Errorf("unexpected transcript %q", resp.Text)
	}
}

func TestClient_Moderate(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("expected /moderations, got %s", r.URL.Path)
		}

		var req ModerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Input) != 1 || req.Input[0].Type != "image_url" {
			t.Errorf("expected single image_url input, got %+v", req.Input)
		}

		json.NewEncoder(w).Encode(ModerationResponse{
			Results: []ModerationResult{
				{
					Flagged:    true,
					Categories: map[string]bool{"violence": true, "self-harm": false},
				},
			},
		})
	})

	resp, err := client.Moderate(context.Background(), &ModerationRequest{
		Model: ModelOmniModerationLatest,
		Input: []ModerationPart{{Type: "image_url", ImageURL: &ModerationImageURL{URL: "data:image/jpeg;base64,AAAA"}}},
	})
	if err != nil {
		t.Fatalf("Moderate failed: %v", err)
	}
	if !resp.Results[0].Flagged {
		t.Error("expected flagged result")
	}
}
