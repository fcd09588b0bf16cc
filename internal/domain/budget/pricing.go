// Package budget provides the per-user daily cost ledger and the pricing
// model for paid provider calls.
package budget

// VisionQuality selects the detail level for an image moderation call.
type VisionQuality string

const (
	VisionQualityHigh VisionQuality = "high"
	VisionQualityLow  VisionQuality = "low"
)

// PriceTable holds the per-unit rates for each provider type. All rates are
// in USD. Text rates are per token, transcription per minute, vision per
// image.
type PriceTable struct {
	TextInputPerToken      float64
	TextOutputPerToken     float64
	TranscriptionPerMinute float64
	VisionHighPerImage     float64
	VisionLowPerImage      float64
}

// DefaultPriceTable returns the published provider rates.
// Text: $0.150/MTok input, $0.600/MTok output (gpt-4o-mini).
// Transcription: $0.006 per minute (whisper-1).
// Vision: per-image flat rates by detail level.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		TextInputPerToken:      0.150 / 1_000_000,
		TextOutputPerToken:     0.600 / 1_000_000,
		TranscriptionPerMinute: 0.006,
		VisionHighPerImage:     0.019125,
		VisionLowPerImage:      0.002125,
	}
}

// TextCost returns the cost of a text generation call.
func (p PriceTable) TextCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*p.TextInputPerToken + float64(completionTokens)*p.TextOutputPerToken
}

// TranscriptionCost returns the cost of transcribing audio of the given
// duration. Durations are charged as fractional minutes with no rounding.
func (p PriceTable) TranscriptionCost(durationSeconds float64) float64 {
	return durationSeconds / 60 * p.TranscriptionPerMinute
}

// VisionCost returns the cost of moderating count images at the given
// quality level.
func (p PriceTable) VisionCost(quality VisionQuality, count int) float64 {
	rate := p.VisionLowPerImage
	if quality == VisionQualityHigh {
		rate = p.VisionHighPerImage
	}
	return rate * float64(count)
}
