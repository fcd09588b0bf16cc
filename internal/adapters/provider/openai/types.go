// Package openai provides an adapter for the OpenAI chat, transcription and
// moderation APIs.
package openai

import "time"

// MessageRole represents the role of a message participant.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Message represents a single message in the chat conversation.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`
	Name    string      `json:"name,omitempty"`
}

// ChatCompletionRequest is the request body for the OpenAI Chat Completions API.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	TopP        *float32  `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	User        string    `json:"user,omitempty"`
	Seed        *int      `json:"seed,omitempty"`
}

// ChatCompletionResponse is the response body from the OpenAI Chat Completions API.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Usage contains token usage information from the response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TranscriptionResponse is the response from the audio transcriptions endpoint.
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// ModerationRequest is the request body for the moderations endpoint.
// Input entries can be text or image parts.
type ModerationRequest struct {
	Model string           `json:"model"`
	Input []ModerationPart `json:"input"`
}

// ModerationPart is a single input item for moderation.
type ModerationPart struct {
	Type     string              `json:"type"` // "text" or "image_url"
	Text     string              `json:"text,omitempty"`
	ImageURL *ModerationImageURL `json:"image_url,omitempty"`
}

// ModerationImageURL carries an image as a URL or data URI.
type ModerationImageURL struct {
	URL string `json:"url"`
}

// ModerationResponse is the response from the moderations endpoint.
type ModerationResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Results []ModerationResult `json:"results"`
}

// ModerationResult holds the verdict for one input item.
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// ErrorResponse represents an error from the OpenAI API.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo contains detailed error information.
type ErrorInfo struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param,omitempty"`
	Code    *string `json:"code,omitempty"`
}

// Config contains configuration for the OpenAI client.
type Config struct {
	APIKey         string
	BaseURL        string
	Organization   string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:         apiKey,
		BaseURL:        "https://api.openai.com/v1",
		Organization:   "",
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Second,
		RetryMaxDelay:  30 * time.Second,
	}
}

// Models used by the adapter.
const (
	ModelGPT4oMini           = "gpt-4o-mini"
	ModelGPT4o               = "gpt-4o"
	ModelWhisper1            = "whisper-1"
	ModelOmniModerationLatest = "omni-moderation-latest"
)

// RateLimitInfo contains rate limit information from response headers.
type RateLimitInfo struct {
	LimitRequests     int       // x-ratelimit-limit-requests
	LimitTokens       int       // x-ratelimit-limit-tokens
	RemainingRequests int       // x-ratelimit-remaining-requests
	RemainingTokens   int       // x-ratelimit-remaining-tokens
	ResetRequests     time.Time // x-ratelimit-reset-requests
	ResetTokens       time.Time // x-ratelimit-reset-tokens
}
