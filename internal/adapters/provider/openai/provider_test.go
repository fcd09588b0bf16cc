package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
)

func testProvider(t *testing.T, handler http.HandlerFunc, opts ...ProviderOption) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig("test-api-key")
	cfg.BaseURL = server.URL
	cfg.MaxRetries = 0
	cfg.RetryBaseDelay = time.Millisecond
	return NewProvider(cfg, opts...)
}

func TestProvider_GenerateText(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		if len(req.Messages) != 3 {
			t.Fatalf("expected 3 messages (system + 2 turns), got %d", len(req.Messages))
		}
		if req.Messages[0].Role != RoleSystem || req.Messages[0].Content != "be brief" {
			t.Errorf("expected system prompt first, got %+v", req.Messages[0])
		}
		if req.MaxTokens == nil || *req.MaxTokens != 50 {
			t.Errorf("expected max tokens 50, got %v", req.MaxTokens)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", req.Temperature)
		}

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Model: ModelGPT4oMini,
			Choices: []Choice{
				{Message: Message{Role: RoleAssistant, Content: "hello!"}, FinishReason: FinishReasonStop},
			},
			Usage: Usage{PromptTokens: 20, CompletionTokens: 3},
		})
	})

	resp, err := provider.GenerateText(context.Background(), ports.TextRequest{
		SystemPrompt: "be brief",
		Messages: []ports.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
		MaxTokens:   50,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if resp.Content != "hello!" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.PromptTokens != 20 || resp.CompletionTokens != 3 {
		t.Errorf("unexpected usage %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
	if resp.Model != ModelGPT4oMini {
		t.Errorf("unexpected model %q", resp.Model)
	}
}

func TestProvider_Transcribe(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TranscriptionResponse{Text: "transcribed words"})
	})

	tr, err := provider.Transcribe(context.Background(), []byte("audio bytes"), 42.0)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if tr.Text != "transcribed words" {
		t.Errorf("unexpected transcript %q", tr.Text)
	}
}

func TestProvider_ModerateImage_Clean(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req ModerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if !strings.HasPrefix(req.Input[0].ImageURL.URL, "data:image/jpeg;base64,") {
			t.Errorf("expected data URI, got %q", req.Input[0].ImageURL.URL)
		}

		json.NewEncoder(w).Encode(ModerationResponse{
			Results: []ModerationResult{{Flagged: false}},
		})
	})

	verdict, err := provider.ModerateImage(context.Background(), []byte("image bytes"))
	if err != nil {
		t.Fatalf("ModerateImage failed: %v", err)
	}
	if !verdict.Appropriate {
		t.Error("expected clean verdict")
	}
	if len(verdict.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", verdict.Reasons)
	}
}

func TestProvider_ModerateImage_Flagged(t *testing.T) {
	provider := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ModerationResponse{
			Results: []ModerationResult{
				{
					Flagged: true,
					Categories: map[string]bool{
						"violence": true,
						"sexual":   true,
						"hate":     false,
					},
				},
			},
		})
	})

	verdict, err := provider.ModerateImage(context.Background(), []byte("image bytes"))
	if err != nil {
		t.Fatalf("ModerateImage failed: %v", err)
	}
	if verdict.Appropriate {
		t.Error("expected flagged verdict")
	}
	// Reasons are sorted for stable output.
	want := []string{"sexual", "violence"}
	if len(verdict.Reasons) != len(want) {
		t.Fatalf("expected reasons %v, got %v", want, verdict.Reasons)
	}
	for i, r := range want {
		if verdict.Reasons[i] != r {
			t.Errorf("expected reason %q at %d, got %q", r, i, verdict.Reasons[i])
		}
	}
}

func TestProvider_ModelOverrides(t *testing.T) {
	cfg := DefaultConfig("key")
	p := NewProvider(cfg,
		WithTextModel(ModelGPT4o),
		WithTranscriptionModel("whisper-large"),
		WithModerationModel("text-moderation-stable"),
	)

	if p.textModel != ModelGPT4o {
		t.Errorf("expected text model override, got %s", p.textModel)
	}
	if p.transcriptionModel != "whisper-large" {
		t.Errorf("expected transcription model override, got %s", p.transcriptionModel)
	}
	if p.moderationModel != "text-moderation-stable" {
		t.Errorf("expected moderation model override, got %s", p.moderationModel)
	}
}
