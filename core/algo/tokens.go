package algo

import (
	"slices"
	"strings"
	"unicode"
)

// SplitIdentifier breaks an identifier into lower-case word tokens.
// It understands camelCase, PascalCase, snake_case, kebab-case and acronyms,
// so "saveUserDTO", "HTTPClient" and "load_and_render" split into whole words.
func SplitIdentifier(name string) []string {
	var tokens []string
	runes := []rune(name)
	start := -1

	flush := func(end int) {
		if start >= 0 && end > start {
			tokens = append(tokens, strings.ToLower(string(runes[start:end])))
		}
		start = -1
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			// fooBar
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// HTTPClient
			flush(i)
			start = i
		case unicode.IsDigit(r) != unicode.IsDigit(prev):
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return tokens
}

// MatchTokens returns the keywords that appear as whole tokens in text.
// Matching is case-insensitive; each keyword is reported once, in keyword order.
func MatchTokens(text string, keywords []string) []string {
	tokens := SplitIdentifier(text)
	var hits []string
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw != "" && slices.Contains(tokens, kw) && !slices.Contains(hits, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// IsCompoundName reports whether an identifier joins two actions with a connective,
// as in "validateAndSave" or "load_and_render". The connective must sit between two tokens.
func IsCompoundName(name string, connectives []string) bool {
	tokens := SplitIdentifier(name)
	for i := 1; i < len(tokens)-1; i++ {
		if slices.Contains(connectives, tokens[i]) {
			return true
		}
	}
	return false
}
