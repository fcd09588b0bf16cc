// Package ports defines the interfaces between the application layer and
// its adapters: AI providers and caches.
package ports

import "context"

// Message is a single chat message sent to the text provider.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// TextRequest is the input for a text generation call.
type TextRequest struct {
	Messages     []Message
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// TextResponse is the output of a text generation call.
type TextResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Model            string
}

// Transcription is the output of a speech-to-text call.
type Transcription struct {
	Text string
}

// ModerationResult is the verdict of an image moderation call.
type ModerationResult struct {
	Appropriate bool
	Reasons     []string
}

// TextGenerator produces chat completions.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, durationSeconds float64) (*Transcription, error)
}

// ImageModerator checks an image for inappropriate content.
type ImageModerator interface {
	ModerateImage(ctx context.Context, image []byte) (*ModerationResult, error)
}
