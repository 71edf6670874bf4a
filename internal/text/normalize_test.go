package text

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeGreeting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "plain", input: "Hello! Welcome to the channel.", expected: "Hello! Welcome to the channel."},
		{name: "inner spaces collapse", input: "Hello    there\tfriend", expected: "Hello there friend"},
		{name: "surrounding space trimmed", input: "  \n Hi \n  ", expected: "Hi"},
		{name: "line breaks kept", input: "Welcome!\nRead the rules.", expected: "Welcome!\nRead the rules."},
		{name: "crlf", input: "Welcome!\r\nRead the rules.", expected: "Welcome!\nRead the rules."},
		{name: "blank lines capped", input: "Welcome!\n\n\n\nBye", expected: "Welcome!\n\nBye"},
		{name: "invisible characters", input: "Wel\u200Bcome\uFEFF\u00AD!", expected: "Wel come!"},
		{name: "control characters", input: "Hi\x00there\x07", expected: "Hi there"},
		{name: "markdown left alone", input: "*Welcome* to _the_ [club](https://t.me/x)", expected: "*Welcome* to _the_ [club](https://t.me/x)"},
		{name: "emoji", input: "👋  Hi", expected: "👋 Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeGreeting(tt.input); got != tt.expected {
				t.Errorf("NormalizeGreeting(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeGreetingCapsLength(t *testing.T) {
	t.Parallel()

	got := NormalizeGreeting(strings.Repeat("é", MaxGreetingLength+100))
	if n := utf8.RuneCountInString(got); n != MaxGreetingLength {
		t.Errorf("normalized greeting has %d runes, want %d", n, MaxGreetingLength)
	}
}
