// Package text normalizes operator-supplied text before it is stored.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	controlCharsRegex     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	multipleNewlinesRegex = regexp.MustCompile(`\n{3,}`)

	unicodeReplacer = strings.NewReplacer(
		"\u2060", "", "\u180E", "",
		"\u2028", "\n", "\u2029", "\n\n",
		"\u200B", " ", "\u200C", " ",
		"\u200D", "", "\uFEFF", "",
		"\u00AD", "", "\u205F", " ",
		"\u202A", "", "\u202B", "",
		"\u202C", "", "\u202D", "", "\u202E", "",
	)
)

// MaxGreetingLength is the Telegram limit for a single text message, in runes.
const MaxGreetingLength = 4096

// NormalizeGreeting cleans a greeting typed by the operator: invisible and control
// characters are dropped, runs of whitespace inside a line collapse to one space,
// and at most one blank line separates paragraphs. The result is capped at
// MaxGreetingLength runes.
func NormalizeGreeting(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = normalizeLineWhitespace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if runes := []rune(s); len(runes) > MaxGreetingLength {
		s = strings.TrimSpace(string(runes[:MaxGreetingLength]))
	}
	return s
}

func normalizeLineWhitespace(line string) string {
	var b strings.Builder
	var space bool

	for _, r := range line {
		switch {
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune(' ')
				space = true
			}
		default:
			b.WriteRune(r)
			space = false
		}
	}

	return strings.TrimSpace(b.String())
}
