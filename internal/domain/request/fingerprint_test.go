package request

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("What is the capital of France?", CategoryQuestion)
	b := Fingerprint("What is the capital of France?", CategoryQuestion)
	if a != b {
		t.Errorf("Fingerprint() not deterministic: %q != %q", a, b)
	}
}

func TestFingerprint_Normalization(t *testing.T) {
	base := Fingerprint("hello there", CategoryGreeting)

	variants := []string{
		"Hello There",
		"  hello there  ",
		"hello\t there",
		"HELLO   THERE",
	}
	for _, v := range variants {
		if got := Fingerprint(v, CategoryGreeting); got != base {
			t.Errorf("Fingerprint(%q) = %q, want %q", v, got, base)
		}
	}
}

func TestFingerprint_CategoryDistinguishes(t *testing.T) {
	q := Fingerprint("hello", CategoryQuestion)
	g := Fingerprint("hello", CategoryGreeting)
	if q == g {
		t.Error("identical text under different categories must produce different keys")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello   World  ", "hello world"},
		{"A\tB\nC", "a b c"},
		{"already normal", "already normal"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"hello friend", CategoryGreeting},
		{"مرحبا", CategoryGreeting},
		{"What time is it?", CategoryQuestion},
		{"كيف حالك", CategoryQuestion},
		{"bye for now", CategoryFarewell},
		{"مع السلامة", CategoryFarewell},
		{"I went to the market today and bought apples", CategoryConversation},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCategory_Cacheable(t *testing.T) {
	if CategoryConversation.Cacheable() {
		t.Error("conversation responses must not be cacheable")
	}
	for _, c := range []Category{CategoryGreeting, CategoryQuestion, CategoryFarewell} {
		if !c.Cacheable() {
			t.Errorf("%v should be cacheable", c)
		}
	}
}

func TestCategory_GenerationParams(t *testing.T) {
	if got := CategoryGreeting.MaxTokens(); got != 50 {
		t.Errorf("greeting MaxTokens() = %d, want 50", got)
	}
	if got := CategoryQuestion.MaxTokens(); got != 200 {
		t.Errorf("question MaxTokens() = %d, want 200", got)
	}
	if got := CategoryConversation.Temperature(); got != 0.8 {
		t.Errorf("conversation Temperature() = %v, want 0.8", got)
	}
}
