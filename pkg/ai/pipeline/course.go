package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"unicode/utf8"

	"noa-assistant-be/pkg/learning/retriever"
	"noa-assistant-be/pkg/store"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"
)

//go:embed course.yaml
var defaultCourse []byte

const courseContentFormat = "📚 **Conteúdo Educacional**\n\n%s\n\nQuer que eu explique mais detalhadamente ou tem alguma dúvida específica?"

// Course answer sources.
const (
	SourceCourseLearned = "course_learned"
	SourceCourseTopic   = "course_topic"
	SourceCourseMenu    = "course_menu"
)

type Topic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Text     string   `yaml:"text"`
}

type CourseContent struct {
	Menu   string  `yaml:"menu"`
	Topics []Topic `yaml:"topics"`
}

func DefaultCourse() (*CourseContent, error) {
	var c CourseContent
	if err := yaml.Unmarshal(defaultCourse, &c); err != nil {
		return nil, fmt.Errorf("parse course content: %w", err)
	}
	return &c, nil
}

// CourseAnswer is what the course handler produced for one message.
type CourseAnswer struct {
	Text   string
	Body   string
	Source string
	Score  float64
}

// CourseHandler answers while the session is in course mode: stored course
// content first, then the built-in topics, then the menu.
type CourseHandler struct {
	content   *CourseContent
	retriever *retriever.Retriever
}

func NewCourseHandler(content *CourseContent, ret *retriever.Retriever) *CourseHandler {
	return &CourseHandler{content: content, retriever: ret}
}

func (h *CourseHandler) Respond(ctx context.Context, message string) CourseAnswer {
	if h.retriever != nil {
		if m, ok := h.retriever.Lookup(ctx, message, store.CategoryCourse); ok {
			h.retriever.MarkUsed(ctx, m)
			return CourseAnswer{
				Text:   fmt.Sprintf(courseContentFormat, m.Record.AIResponse),
				Body:   m.Record.AIResponse,
				Source: SourceCourseLearned,
				Score:  m.Score,
			}
		}
	}

	if t, hits := h.topic(message); hits > 0 {
		return CourseAnswer{
			Text:   fmt.Sprintf(courseContentFormat, t.Text),
			Body:   t.Text,
			Source: SourceCourseTopic,
		}
	}

	return CourseAnswer{Text: h.content.Menu, Source: SourceCourseMenu}
}

// topic picks the topic with the most keyword hits. Small typos and plural
// forms still count as hits.
func (h *CourseHandler) topic(message string) (Topic, int) {
	tokens := retriever.Tokenize(message)
	var (
		best     Topic
		bestHits int
	)
	for _, t := range h.content.Topics {
		hits := 0
		for _, k := range t.Keywords {
			for _, tok := range tokens {
				if keywordHit(k, tok) {
					hits++
					break
				}
			}
		}
		if hits > bestHits {
			best, bestHits = t, hits
		}
	}
	return best, bestHits
}

func keywordHit(keyword, token string) bool {
	if keyword == token {
		return true
	}
	kl, tl := utf8.RuneCountInString(keyword), utf8.RuneCountInString(token)
	if kl >= 4 && tl-kl <= 2 && tl >= kl && fuzzy.MatchFold(keyword, token) {
		return true
	}
	return kl >= 5 && fuzzy.LevenshteinDistance(keyword, token) <= 1
}
