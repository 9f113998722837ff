package state

import (
	"regexp"
	"strings"
	"unicode"
)

// Extractor pulls a structured value out of a free-text reply.
type Extractor func(reply string) (string, bool)

var nameRe = regexp.MustCompile(`(?i)(?:me chamo|meu nome é|meu nome e|nome é|meu nome|sou)\s+([\p{L}\s]+)`)

// ExtractName finds a self-introduction such as "me chamo Ana Souza". Only
// the leading capitalized words are kept (at most three); a lower-case first
// word is returned alone.
func ExtractName(reply string) (string, bool) {
	m := nameRe.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	words := strings.Fields(m[1])
	for len(words) > 1 && len([]rune(words[0])) <= 2 && !startsUpper(words[0]) {
		words = words[1:] // "sou a Maria"
	}
	if len(words) == 0 {
		return "", false
	}

	if !startsUpper(words[0]) {
		return words[0], true
	}

	kept := make([]string, 0, 3)
	for _, w := range words {
		if !startsUpper(w) || len(kept) == 3 {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " "), true
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func defaultExtractors() map[string]Extractor {
	return map[string]Extractor{
		"nome": ExtractName,
	}
}
