package stage

import (
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)
	identifierRe  = regexp.MustCompile(`^\w+$`)

	braceSanitizer = strings.NewReplacer("{{", "{", "}}", "}")
)

// Resolver looks up the most specific value among a list of variable names.
type Resolver interface {
	Resolve(names ...string) (string, bool)
}

// Render substitutes every {{name}} placeholder in template. A placeholder is
// resolved through the name itself and then its aliases; anything left falls
// back to the table's fallback token. The returned slice lists the
// placeholders that needed the fallback.
func (t *Table) Render(template string, r Resolver) (string, []string) {
	var unresolved []string

	out := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if identifierRe.MatchString(name) && r != nil {
			if v, ok := r.Resolve(t.candidates(name)...); ok {
				return Sanitize(v)
			}
		}
		unresolved = append(unresolved, name)
		return t.fallback
	})

	// A captured value can sit next to template braces and form a new token.
	for i := 0; i < 4 && placeholderRe.MatchString(out); i++ {
		out = placeholderRe.ReplaceAllStringFunc(out, func(match string) string {
			unresolved = append(unresolved, strings.TrimSpace(match[2:len(match)-2]))
			return t.fallback
		})
	}
	if placeholderRe.MatchString(out) {
		out = Sanitize(out)
	}

	return out, unresolved
}

// Sanitize breaks up any "{{" or "}}" so the text can never be read as a placeholder.
func Sanitize(v string) string {
	for strings.Contains(v, "{{") || strings.Contains(v, "}}") {
		v = braceSanitizer.Replace(v)
	}
	return v
}

func (t *Table) candidates(name string) []string {
	aliases := t.aliases[name]
	names := make([]string, 0, len(aliases)+1)
	names = append(names, name)
	return append(names, aliases...)
}
