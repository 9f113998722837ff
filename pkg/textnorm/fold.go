package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics ("Avaliação" -> "avaliacao").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// StripPunctuation drops every rune that is not a letter, digit, underscore
// or whitespace. Nothing is inserted in its place.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// Phrase folds s, drops punctuation and collapses whitespace, so "Onde
// estou?" becomes "onde estou".
func Phrase(s string) string {
	return strings.Join(strings.Fields(StripPunctuation(Fold(s))), " ")
}

// MatchAnchored reports whether text, as a phrase, equals one of exact or
// starts with one of prefix followed by a word break.
func MatchAnchored(text string, exact, prefix []string) (string, bool) {
	norm := Phrase(text)
	if norm == "" {
		return "", false
	}
	for _, e := range exact {
		if norm == Phrase(e) {
			return e, true
		}
	}
	for _, p := range prefix {
		pn := Phrase(p)
		if pn != "" && (norm == pn || strings.HasPrefix(norm, pn+" ")) {
			return p, true
		}
	}
	return "", false
}

// ContainsAny reports whether text contains any of the needles, comparing
// both the raw lower-cased form and the folded form.
func ContainsAny(text string, needles []string) (string, bool) {
	lower := strings.ToLower(text)
	folded := Fold(text)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) || strings.Contains(folded, Fold(n)) {
			return n, true
		}
	}
	return "", false
}

// ContainsWord is like ContainsAny but only matches whole words, so "puta"
// does not match "computador". Punctuation counts as a word break.
func ContainsWord(text string, phrases []string) (string, bool) {
	padded := " " + words(text) + " "
	for _, p := range phrases {
		w := words(p)
		if w == "" {
			continue
		}
		if strings.Contains(padded, " "+w+" ") {
			return p, true
		}
	}
	return "", false
}

func words(s string) string {
	return strings.Join(strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
