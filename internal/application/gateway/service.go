// Package gateway orchestrates the request path that sits between the bot
// front-end and the paid AI providers: classification, caching, budget
// enforcement and provider calls.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jbctechsolutions/spendgate/internal/application/ports"
	"github.com/jbctechsolutions/spendgate/internal/domain/budget"
	"github.com/jbctechsolutions/spendgate/internal/domain/conversation"
	domainerrors "github.com/jbctechsolutions/spendgate/internal/domain/errors"
	"github.com/jbctechsolutions/spendgate/internal/domain/request"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/logging"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/tracing"
)

// BlockMarker is the prefix the model is instructed to emit when it refuses
// a request. Responses carrying it are never cached or stored in history.
const BlockMarker = "[BLOCK]"

// DefaultSystemPrompt instructs the model to keep replies short and to mark
// refusals with the block marker so the gateway can intercept them.
const DefaultSystemPrompt = "You are a helpful assistant for a chat bot. " +
	"Keep answers concise. If a request asks for harmful, illegal or " +
	"inappropriate content, reply with exactly " + BlockMarker + " and nothing else."

// Default input limits.
const (
	DefaultMaxVoiceSeconds    = 300.0
	DefaultVisionHighMaxBytes = 1 << 20
)

// historyLimit bounds the turns sent to the provider: the system prompt plus
// the most recent turns, leaving room for the new user message.
const historyLimit = 9

// TextResult is the outcome of a text request.
type TextResult struct {
	Reply     string
	Category  request.Category
	FromCache bool
	Blocked   bool
	CostUSD   float64
}

// VoiceResult is the outcome of a voice request: the transcript plus the
// text pipeline's result for it.
type VoiceResult struct {
	Transcript          string
	TranscriptFromCache bool
	TranscriptionCost   float64
	Text                *TextResult
}

// ImageResult is the outcome of an image moderation request.
type ImageResult struct {
	Appropriate bool
	Reasons     []string
	FromCache   bool
	Quality     budget.VisionQuality
	CostUSD     float64
}

// Service wires the domain pieces into the three request pipelines.
type Service struct {
	text       ports.TextGenerator
	transcribe ports.Transcriber
	moderate   ports.ImageModerator

	responses ports.ResponseCachePort
	images    ports.ImageCachePort
	estimator ports.TokenEstimator

	governor *budget.Governor
	prices   budget.PriceTable
	window   *conversation.Window

	logger *logging.Logger
	tracer *tracing.Tracer

	group singleflight.Group

	systemPrompt       string
	maxVoiceSeconds    float64
	visionHighMaxBytes int64
}

// Option configures a Service.
type Option func(*Service)

// WithSystemPrompt overrides the system prompt sent to the text provider.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		s.systemPrompt = prompt
	}
}

// WithMaxVoiceSeconds overrides the voice duration limit.
func WithMaxVoiceSeconds(seconds float64) Option {
	return func(s *Service) {
		s.maxVoiceSeconds = seconds
	}
}

// WithVisionHighMaxBytes overrides the payload size above which images are
// moderated at low detail.
func WithVisionHighMaxBytes(bytes int64) Option {
	return func(s *Service) {
		s.visionHighMaxBytes = bytes
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer sets the service tracer.
func WithTracer(tracer *tracing.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// Deps bundles the collaborators a Service needs.
type Deps struct {
	Text       ports.TextGenerator
	Transcribe ports.Transcriber
	Moderate   ports.ImageModerator
	Responses  ports.ResponseCachePort
	Images     ports.ImageCachePort
	Estimator  ports.TokenEstimator
	Governor   *budget.Governor
	Prices     budget.PriceTable
	Window     *conversation.Window
}

// NewService creates the request gateway.
func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		text:               deps.Text,
		transcribe:         deps.Transcribe,
		moderate:           deps.Moderate,
		responses:          deps.Responses,
		images:             deps.Images,
		estimator:          deps.Estimator,
		governor:           deps.Governor,
		prices:             deps.Prices,
		window:             deps.Window,
		logger:             logging.Default(),
		tracer:             tracing.Default(),
		systemPrompt:       DefaultSystemPrompt,
		maxVoiceSeconds:    DefaultMaxVoiceSeconds,
		visionHighMaxBytes: DefaultVisionHighMaxBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HandleText runs one text message through the pipeline: classify,
// consult the cache, charge the budget, call the provider, store the
// response and record the conversation turns.
func (s *Service) HandleText(ctx context.Context, userID, message string) (*TextResult, error) {
	if userID == "" {
		return nil, domainerrors.ErrUserIDRequired
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domainerrors.ErrEmptyMessage
	}

	ctx = logging.WithUserID(ctx, userID)
	ctx, span := s.tracer.StartRequestSpan(ctx, userID, string(request.ProviderText))

	category := request.Classify(message)
	span.SetCategory(string(category))
	ctx = logging.WithCategory(ctx, string(category))

	fingerprint := request.Fingerprint(message, category)

	// Identical recent questions are answered from cache without touching
	// the budget. Conversation-category messages depend on per-user history
	// and are never shared.
	if category.Cacheable() {
		if entry, ok := s.responses.Get(ctx, fingerprint, request.ProviderText); ok {
			logging.LogCacheHit(ctx, s.logger, fingerprint, entry.HitCount, entry.CostEstimate)
			span.SetCacheHit(true)
			if isBlocked(entry.Value) {
				if err := s.window.Append(userID, conversation.NewUserTurn(message)); err != nil {
					s.logger.Warn("failed to record user turn", "error", err)
				}
				span.End()
				return &TextResult{
					Category:  category,
					FromCache: true,
					Blocked:   true,
				}, nil
			}
			s.recordTurns(userID, message, entry.Value)
			span.End()
			return &TextResult{
				Reply:     entry.Value,
				Category:  category,
				FromCache: true,
			}, nil
		}
		logging.LogCacheMiss(ctx, s.logger, fingerprint)
	}
	span.SetCacheHit(false)

	req := s.buildTextRequest(userID, message, category)

	inputTokens := s.countRequestTokens(req)
	estimated := s.prices.TextCost(inputTokens, category.MaxTokens())
	span.SetTokens(inputTokens, category.MaxTokens())

	if err := s.governor.CheckAndCharge(userID, estimated, request.ProviderText); err != nil {
		s.rejectBudget(ctx, span, userID, estimated, err)
		return nil, err
	}

	resp, err := s.callTextProvider(ctx, fingerprint, category, req)
	if err != nil {
		s.governor.Settle(userID, estimated, 0)
		span.EndWithError(err)
		return nil, err
	}

	actual := s.prices.TextCost(resp.PromptTokens, resp.CompletionTokens)
	s.governor.Settle(userID, estimated, actual)
	logging.LogCostIncurred(ctx, s.logger, userID, actual, s.governor.GetDailyStats(userID).TotalCost)
	span.SetCost(actual)

	if isBlocked(resp.Content) {
		s.logger.WarnContext(ctx, "response blocked by content policy")
		if err := s.window.Append(userID, conversation.NewUserTurn(message)); err != nil {
			s.logger.Warn("failed to record user turn", "error", err)
		}
		span.End()
		return &TextResult{
			Category: category,
			Blocked:  true,
			CostUSD:  actual,
		}, nil
	}

	s.recordTurns(userID, message, resp.Content)
	span.End()

	return &TextResult{
		Reply:    resp.Content,
		Category: category,
		CostUSD:  actual,
	}, nil
}

// callTextProvider invokes the text provider, collapsing concurrent
// identical cacheable requests into a single upstream call. The winning
// call also populates the response cache.
func (s *Service) callTextProvider(ctx context.Context, fingerprint string, category request.Category, req ports.TextRequest) (*ports.TextResponse, error) {
	start := time.Now()
	logging.LogProviderRequest(ctx, s.logger, "openai", "chat.completions")

	call := func() (*ports.TextResponse, error) {
		resp, err := s.text.GenerateText(ctx, req)
		if err != nil {
			return nil, domainerrors.NewError(domainerrors.CodeProvider, "text generation failed", err)
		}
		// Blocked responses are cached too: repeating a refused request
		// must not spend again.
		if category.Cacheable() {
			cost := s.prices.TextCost(resp.PromptTokens, resp.CompletionTokens)
			tokens := resp.PromptTokens + resp.CompletionTokens
			if _, err := s.responses.Put(ctx, fingerprint, request.ProviderText, resp.Content, tokens, cost); err != nil {
				s.logger.WarnContext(ctx, "failed to cache response", "error", err)
			}
		}
		return resp, nil
	}

	var resp *ports.TextResponse
	var err error
	if category.Cacheable() {
		var v any
		v, err, _ = s.group.Do(fingerprint, func() (any, error) {
			return call()
		})
		if err == nil {
			resp = v.(*ports.TextResponse)
		}
	} else {
		resp, err = call()
	}

	logging.LogProviderResponse(ctx, s.logger, "openai", "chat.completions", time.Since(start), err)
	return resp, err
}

// buildTextRequest assembles the provider request: system prompt, recent
// history bounded to historyLimit turns, then the new message.
func (s *Service) buildTextRequest(userID, message string, category request.Category) ports.TextRequest {
	history := s.window.Get(userID)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	messages := make([]ports.Message, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, ports.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, ports.Message{Role: "user", Content: message})

	return ports.TextRequest{
		Messages:     messages,
		SystemPrompt: s.systemPrompt,
		MaxTokens:    category.MaxTokens(),
		Temperature:  category.Temperature(),
	}
}

// isBlocked reports whether a response carries the refusal marker.
func isBlocked(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), BlockMarker)
}

// countRequestTokens estimates the prompt token count for a request.
func (s *Service) countRequestTokens(req ports.TextRequest) int {
	total := s.estimator.CountTokens(req.SystemPrompt)
	for _, m := range req.Messages {
		total += s.estimator.CountTokens(m.Content)
	}
	return total
}

// recordTurns appends the user message and the reply to the user's history.
func (s *Service) recordTurns(userID, message, reply string) {
	if err := s.window.Append(userID, conversation.NewUserTurn(message)); err != nil {
		s.logger.Warn("failed to record user turn", "error", err)
		return
	}
	if err := s.window.Append(userID, conversation.NewAssistantTurn(reply)); err != nil {
		s.logger.Warn("failed to record assistant turn", "error", err)
	}
}

// HandleVoice transcribes an audio message and feeds the transcript through
// the text pipeline. Transcripts are cached by the audio content digest so
// a re-sent voice note is never transcribed twice.
func (s *Service) HandleVoice(ctx context.Context, userID string, audio []byte, durationSeconds float64) (*VoiceResult, error) {
	if userID == "" {
		return nil, domainerrors.ErrUserIDRequired
	}
	if len(audio) == 0 {
		return nil, domainerrors.NewError(domainerrors.CodeValidation, "audio payload is empty", nil)
	}
	if durationSeconds > s.maxVoiceSeconds {
		return nil, domainerrors.WithContext(
			domainerrors.NewError(domainerrors.CodeValidation, "voice message too long", domainerrors.ErrVoiceTooLong),
			"duration_seconds", durationSeconds)
	}

	ctx = logging.WithUserID(ctx, userID)
	ctx, span := s.tracer.StartRequestSpan(ctx, userID, string(request.ProviderTranscription))

	digest := sha256.Sum256(audio)
	key := hex.EncodeToString(digest[:])

	result := &VoiceResult{}

	if entry, ok := s.responses.Get(ctx, key, request.ProviderTranscription); ok {
		logging.LogCacheHit(ctx, s.logger, key, entry.HitCount, entry.CostEstimate)
		span.SetCacheHit(true)
		result.Transcript = entry.Value
		result.TranscriptFromCache = true
	} else {
		logging.LogCacheMiss(ctx, s.logger, key)
		span.SetCacheHit(false)

		cost := s.prices.TranscriptionCost(durationSeconds)
		if err := s.governor.CheckAndCharge(userID, cost, request.ProviderTranscription); err != nil {
			s.rejectBudget(ctx, span, userID, cost, err)
			return nil, err
		}

		start := time.Now()
		logging.LogProviderRequest(ctx, s.logger, "openai", "audio.transcriptions")
		tr, err := s.transcribe.Transcribe(ctx, audio, durationSeconds)
		logging.LogProviderResponse(ctx, s.logger, "openai", "audio.transcriptions", time.Since(start), err)
		if err != nil {
			s.governor.Settle(userID, cost, 0)
			span.EndWithError(err)
			return nil, domainerrors.NewError(domainerrors.CodeProvider, "transcription failed", err)
		}

		logging.LogCostIncurred(ctx, s.logger, userID, cost, s.governor.GetDailyStats(userID).TotalCost)
		span.SetCost(cost)
		result.Transcript = tr.Text
		result.TranscriptionCost = cost

		if _, err := s.responses.Put(ctx, key, request.ProviderTranscription, tr.Text, 0, cost); err != nil {
			s.logger.WarnContext(ctx, "failed to cache transcript", "error", err)
		}
	}
	span.End()

	if strings.TrimSpace(result.Transcript) == "" {
		return nil, domainerrors.NewError(domainerrors.CodeProvider, "empty transcript", nil)
	}

	text, err := s.HandleText(ctx, userID, result.Transcript)
	if err != nil {
		return nil, err
	}
	result.Text = text

	return result, nil
}

// HandleImage moderates an image, serving repeated images from the
// content-addressed verdict cache. Oversized payloads are moderated at low
// detail to keep the per-image price down.
func (s *Service) HandleImage(ctx context.Context, userID string, image []byte) (*ImageResult, error) {
	if userID == "" {
		return nil, domainerrors.ErrUserIDRequired
	}
	if len(image) == 0 {
		return nil, domainerrors.NewError(domainerrors.CodeValidation, "image payload is empty", nil)
	}

	ctx = logging.WithUserID(ctx, userID)
	ctx, span := s.tracer.StartRequestSpan(ctx, userID, string(request.ProviderVision))

	hash := s.images.Hash(image)
	if entry, ok := s.images.Get(hash); ok {
		logging.LogCacheHit(ctx, s.logger, hash, entry.AccessCount, 0)
		span.SetCacheHit(true)
		span.End()
		return &ImageResult{
			Appropriate: entry.Verdict.Appropriate,
			Reasons:     entry.Verdict.Reasons,
			FromCache:   true,
		}, nil
	}
	logging.LogCacheMiss(ctx, s.logger, hash)
	span.SetCacheHit(false)

	quality := budget.VisionQualityHigh
	if int64(len(image)) > s.visionHighMaxBytes {
		quality = budget.VisionQualityLow
	}

	cost := s.prices.VisionCost(quality, 1)
	if err := s.governor.CheckAndCharge(userID, cost, request.ProviderVision); err != nil {
		s.rejectBudget(ctx, span, userID, cost, err)
		return nil, err
	}

	start := time.Now()
	logging.LogProviderRequest(ctx, s.logger, "openai", "moderations")
	verdict, err := s.moderate.ModerateImage(ctx, image)
	logging.LogProviderResponse(ctx, s.logger, "openai", "moderations", time.Since(start), err)
	if err != nil {
		s.governor.Settle(userID, cost, 0)
		span.EndWithError(err)
		return nil, domainerrors.NewError(domainerrors.CodeProvider, "image moderation failed", err)
	}

	logging.LogCostIncurred(ctx, s.logger, userID, cost, s.governor.GetDailyStats(userID).TotalCost)
	span.SetCost(cost)

	if _, err := s.images.Put(image, *verdict); err != nil {
		s.logger.WarnContext(ctx, "failed to cache moderation verdict", "error", err)
	}

	span.End()
	return &ImageResult{
		Appropriate: verdict.Appropriate,
		Reasons:     verdict.Reasons,
		Quality:     quality,
		CostUSD:     cost,
	}, nil
}

// rejectBudget logs and traces a budget rejection.
func (s *Service) rejectBudget(ctx context.Context, span *tracing.RequestSpan, userID string, attempted float64, err error) {
	stats := s.governor.GetDailyStats(userID)
	logging.LogBudgetRejected(ctx, s.logger, userID, attempted, stats.TotalCost, s.governor.DailyCap())
	span.SetBudgetRejected(stats.TotalCost, s.governor.DailyCap())
	span.EndWithError(err)
}

// DailyStats exposes the user's spend for operator tooling.
func (s *Service) DailyStats(userID string) budget.DailyStats {
	return s.governor.GetDailyStats(userID)
}

// CacheStats exposes response cache statistics for operator tooling.
func (s *Service) CacheStats(ctx context.Context) (*ports.CacheStats, error) {
	return s.responses.Stats(ctx)
}

// ImageCacheStats exposes image cache occupancy for operator tooling.
func (s *Service) ImageCacheStats() ports.ImageCacheStats {
	return s.images.Stats()
}

// ClearCaches empties both caches.
func (s *Service) ClearCaches(ctx context.Context) error {
	s.images.Clear()
	return s.responses.Clear(ctx)
}

// ClearHistory drops a user's conversation window.
func (s *Service) ClearHistory(userID string) {
	s.window.Clear(userID)
}
