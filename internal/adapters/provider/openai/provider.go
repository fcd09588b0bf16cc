package openai

import (
	"context"
	"encoding/base64"
	"net/http"
	"sort"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
)

// Provider implements the text, transcription and moderation ports for OpenAI.
type Provider struct {
	client             *Client
	config             Config
	textModel          string
	transcriptionModel string
	moderationModel    string
}

// Compile-time port checks.
var (
	_ ports.TextGenerator  = (*Provider)(nil)
	_ ports.Transcriber    = (*Provider)(nil)
	_ ports.ImageModerator = (*Provider)(nil)
)

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithTextModel overrides the chat completion model.
func WithTextModel(model string) ProviderOption {
	return func(p *Provider) {
		p.textModel = model
	}
}

// WithTranscriptionModel overrides the speech-to-text model.
func WithTranscriptionModel(model string) ProviderOption {
	return func(p *Provider) {
		p.transcriptionModel = model
	}
}

// WithModerationModel overrides the moderation model.
func WithModerationModel(model string) ProviderOption {
	return func(p *Provider) {
		p.moderationModel = model
	}
}

// WithProviderHTTPClient sets a custom HTTP client on the underlying Client.
func WithProviderHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = NewClient(p.config, WithHTTPClient(httpClient))
	}
}

// NewProvider creates a new OpenAI provider with the given configuration.
func NewProvider(config Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:             NewClient(config),
		config:             config,
		textModel:          ModelGPT4oMini,
		transcriptionModel: ModelWhisper1,
		moderationModel:    ModelOmniModerationLatest,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewProviderWithAPIKey creates a new OpenAI provider with default configuration.
func NewProviderWithAPIKey(apiKey string) *Provider {
	return NewProvider(DefaultConfig(apiKey))
}

// GenerateText sends a chat completion request and returns the response.
func (p *Provider) GenerateText(ctx context.Context, req ports.TextRequest) (*ports.TextResponse, error) {
	openaiReq := p.buildChatRequest(req)

	resp, _, err := p.client.Chat(ctx, openaiReq)
	if err != nil {
		return nil, err
	}

	out := &ports.TextResponse{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Model:            resp.Model,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	return out, nil
}

// buildChatRequest converts a port-level request to the wire format.
func (p *Provider) buildChatRequest(req ports.TextRequest) *ChatCompletionRequest {
	messages := make([]Message, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, Message{
			Role:    RoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, Message{
			Role:    MessageRole(m.Role),
			Content: m.Content,
		})
	}

	openaiReq := &ChatCompletionRequest{
		Model:    p.textModel,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		openaiReq.MaxTokens = &maxTokens
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		openaiReq.Temperature = &temp
	}

	return openaiReq
}

// Transcribe converts audio bytes to text via the transcriptions endpoint.
// The duration is already validated and priced by the caller.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, durationSeconds float64) (*ports.Transcription, error) {
	resp, err := p.client.Transcribe(ctx, p.transcriptionModel, "audio.ogg", audio)
	if err != nil {
		return nil, err
	}
	return &ports.Transcription{Text: resp.Text}, nil
}

// ModerateImage checks an image for inappropriate content via the
// moderations endpoint. The image is sent inline as a data URI.
func (p *Provider) ModerateImage(ctx context.Context, image []byte) (*ports.ModerationResult, error) {
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Moderate(ctx, &ModerationRequest{
		Model: p.moderationModel,
		Input: []ModerationPart{
			{
				Type:     "image_url",
				ImageURL: &ModerationImageURL{URL: dataURI},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	verdict := &ports.ModerationResult{Appropriate: true}
	if len(resp.Results) == 0 {
		return verdict, nil
	}

	result := resp.Results[0]
	if !result.Flagged {
		return verdict, nil
	}

	verdict.Appropriate = false
	for category, hit := range result.Categories {
		if hit {
			verdict.Reasons = append(verdict.Reasons, category)
		}
	}
	sort.Strings(verdict.Reasons)

	return verdict, nil
}
