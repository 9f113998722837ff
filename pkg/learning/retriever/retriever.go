package retriever

import (
	"context"
	"sort"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/store"

	"github.com/samber/lo"
)

// Thresholds gate how far a similarity score can be trusted.
type Thresholds struct {
	Recall     float64 // keep the candidate at all
	Autonomous float64 // answer without falling back further
	Usage      float64 // count the record as used
	Intent     float64 // adopt a learned intent example's mode
}

func DefaultThresholds() Thresholds {
	return Thresholds{Recall: 0.3, Autonomous: 0.5, Usage: 0.7, Intent: 0.8}
}

func (t Thresholds) Recalls(score float64) bool {
	return score > t.Recall
}

func (t Thresholds) AnswersAlone(score float64) bool {
	return score >= t.Autonomous
}

func (t Thresholds) CountsAsUse(score float64) bool {
	return score >= t.Usage
}

func (t Thresholds) AdoptsIntent(score float64) bool {
	return score > t.Intent
}

type Match struct {
	Record store.LearnedRecord
	Score  float64
}

// FindSimilar scores every record against query and returns the topK best,
// ordered by score, then stored confidence, then usage. topK <= 0 returns
// every candidate.
func FindSimilar(query string, corpus []store.LearnedRecord, topK int) []Match {
	if len(corpus) == 0 {
		return []Match{}
	}

	q := Tokenize(query)
	matches := lo.Map(corpus, func(r store.LearnedRecord, _ int) Match {
		return Match{Record: r, Score: jaccardTokens(q, Tokenize(r.UserMessage))}
	})

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Record.ConfidenceScore != b.Record.ConfidenceScore {
			return a.Record.ConfidenceScore > b.Record.ConfidenceScore
		}
		return a.Record.UsageCount > b.Record.UsageCount
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Best returns the top match when its score passes the recall threshold.
func Best(query string, corpus []store.LearnedRecord, t Thresholds) (Match, bool) {
	top := FindSimilar(query, corpus, 1)
	if len(top) == 0 || !t.Recalls(top[0].Score) {
		return Match{}, false
	}
	return top[0], true
}

// Retriever pulls the corpus through the persistence adapter and ranks it.
type Retriever struct {
	adapter    persistence.Adapter
	thresholds Thresholds
	logger     logger.ILogger
}

func New(adapter persistence.Adapter, thresholds Thresholds, log logger.ILogger) *Retriever {
	return &Retriever{adapter: adapter, thresholds: thresholds, logger: log}
}

func (r *Retriever) Thresholds() Thresholds {
	return r.thresholds
}

// Lookup returns the best recalled record among the given categories.
func (r *Retriever) Lookup(ctx context.Context, query string, categories ...string) (Match, bool) {
	corpus := r.adapter.LoadCorpus(ctx, categories...)
	match, ok := Best(query, corpus, r.thresholds)

	details := map[string]interface{}{
		"categories":  categories,
		"corpus_size": len(corpus),
		"recalled":    ok,
	}
	if ok {
		details["score"] = match.Score
		details["record_id"] = match.Record.ID
	}
	r.logger.Debug("RETRIEVER", "Similarity lookup", details)

	return match, ok
}

// MarkUsed increments the usage counter when the score is high enough.
func (r *Retriever) MarkUsed(ctx context.Context, m Match) bool {
	if !r.thresholds.CountsAsUse(m.Score) || m.Record.ID == "" {
		return false
	}
	r.adapter.IncrementUsage(ctx, m.Record.ID)
	return true
}
