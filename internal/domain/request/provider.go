package request

// ProviderType identifies which paid provider capability served a request.
// It partitions the response cache key space and the governor's request
// counters.
type ProviderType string

const (
	ProviderText          ProviderType = "text"
	ProviderTranscription ProviderType = "transcription"
	ProviderVision        ProviderType = "vision"
)

// Valid reports whether t is one of the known provider types.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderText, ProviderTranscription, ProviderVision:
		return true
	}
	return false
}
