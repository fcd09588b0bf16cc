// Package request provides domain types for classifying and fingerprinting
// inbound AI requests.
package request

import "regexp"

// Category classifies an inbound text request. The category decides caching
// eligibility and generation parameters: greetings, questions, and farewells
// produce reusable answers, while free-form conversation depends on the
// surrounding context and is never served from cache.
type Category string

const (
	CategoryGreeting     Category = "greeting"
	CategoryQuestion     Category = "question"
	CategoryFarewell     Category = "farewell"
	CategoryConversation Category = "conversation"
)

// Cacheable reports whether responses for this category may be cached.
func (c Category) Cacheable() bool {
	return c != CategoryConversation
}

// Classification patterns. Matching covers both Arabic and English phrasing
// since the bot serves a bilingual audience.
var (
	greetingPattern = regexp.MustCompile(`(?i)^(السلام|سلام|مرحبا|هلا|صباح|مساء|hello|hi\b|hey\b|good (morning|evening|afternoon))`)
	farewellPattern = regexp.MustCompile(`(?i)^(مع السلامة|الى اللقاء|باي|وداعا|bye|goodbye|see you)`)
	questionPattern = regexp.MustCompile(`(?i)\?|؟|كيف|ما |متى|أين|لماذا|هل|^(how|what|when|where|why|who|can|does|is|are)\b`)
)

// Classify determines the category of a message. Greetings and farewells are
// matched at the start of the message; question markers may appear anywhere.
// Anything unmatched is treated as free-form conversation.
func Classify(text string) Category {
	switch {
	case greetingPattern.MatchString(text):
		return CategoryGreeting
	case farewellPattern.MatchString(text):
		return CategoryFarewell
	case questionPattern.MatchString(text):
		return CategoryQuestion
	default:
		return CategoryConversation
	}
}

// MaxTokens returns the completion token budget for the category.
func (c Category) MaxTokens() int {
	switch c {
	case CategoryGreeting:
		return 50
	case CategoryQuestion:
		return 200
	case CategoryConversation:
		return 150
	default:
		return 100
	}
}

// Temperature returns the sampling temperature for the category.
func (c Category) Temperature() float32 {
	switch c {
	case CategoryGreeting:
		return 0.7
	case CategoryQuestion:
		return 0.5
	case CategoryConversation:
		return 0.8
	default:
		return 0.6
	}
}
