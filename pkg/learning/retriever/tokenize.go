package retriever

import (
	"strings"
	"unicode/utf8"

	"noa-assistant-be/pkg/textnorm"

	"github.com/samber/lo"
)

var stopwords = map[string]bool{
	"o": true, "a": true, "de": true, "da": true, "do": true,
	"em": true, "para": true, "com": true, "por": true, "que": true,
	"é": true, "um": true, "uma": true,
}

// Words that always make it into a record keyword regardless of length.
var medicalKeywords = map[string]bool{
	"dor": true, "sintoma": true, "medicamento": true, "tratamento": true,
	"consulta": true, "medico": true, "saude": true, "doenca": true,
	"cannabis": true, "neurologia": true, "nefrologia": true, "avaliacao": true,
	"clinica": true, "ricardo": true, "valenca": true, "noa": true, "esperanza": true,
}

// Tokenize folds text to lower-case ASCII-ish form, removes punctuation and
// returns the unique tokens longer than two runes that are not stop words.
func Tokenize(text string) []string {
	words := strings.Fields(textnorm.StripPunctuation(textnorm.Fold(text)))
	seen := make(map[string]bool, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// Keyword condenses a message into the lookup key stored with a learned
// record: medical terms plus any token longer than four runes.
func Keyword(text string) string {
	kept := lo.Filter(Tokenize(text), func(w string, _ int) bool {
		return medicalKeywords[w] || utf8.RuneCountInString(w) > 4
	})
	if len(kept) == 0 {
		kept = Tokenize(text)
	}
	return strings.Join(kept, " ")
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b, and 0 when
// both are empty.
func Jaccard(a, b string) float64 {
	return jaccardTokens(Tokenize(a), Tokenize(b))
}

func jaccardTokens(a, b []string) float64 {
	union := lo.Union(a, b)
	if len(union) == 0 {
		return 0
	}
	return float64(len(lo.Intersect(a, b))) / float64(len(union))
}
