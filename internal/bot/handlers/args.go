package handlers

import (
	"sort"
	"strings"
	"unicode"

	"github.com/go-telegram/bot/models"
)

// commandArgs returns the text after the leading "/command" (or "/command@bot"), trimmed.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	idx := strings.IndexFunc(text, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx:])
}

// splitFirst splits s into its first whitespace-separated word and the trimmed rest.
func splitFirst(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

func sortCommands(cmds []models.BotCommand) {
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Command < cmds[j].Command })
}
