package persistence

import (
	"context"
	"fmt"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/store"
)

const logModule = "PERSISTENCE"

// BestEffort calls a Store synchronously, bounding every call with a timeout
// and turning failures (and panics) into log lines.
type BestEffort struct {
	store        Store
	logger       logger.ILogger
	writeTimeout time.Duration
	readTimeout  time.Duration
}

var _ Adapter = (*BestEffort)(nil)

func NewBestEffort(s Store, log logger.ILogger, writeTimeout, readTimeout time.Duration) *BestEffort {
	if writeTimeout <= 0 {
		writeTimeout = 250 * time.Millisecond
	}
	if readTimeout <= 0 {
		readTimeout = 2 * time.Second
	}
	return &BestEffort{store: s, logger: log, writeTimeout: writeTimeout, readTimeout: readTimeout}
}

func (b *BestEffort) UpsertSessionSnapshot(ctx context.Context, session *store.Session) {
	b.guard(ctx, "upsert_session_snapshot", func(ctx context.Context) error {
		return b.store.UpsertSessionSnapshot(ctx, session)
	})
}

func (b *BestEffort) AppendLearnedRecord(ctx context.Context, record store.LearnedRecord) {
	b.guard(ctx, "append_learned_record", func(ctx context.Context) error {
		return b.store.AppendLearnedRecord(ctx, record)
	})
}

func (b *BestEffort) IncrementUsage(ctx context.Context, recordID string) {
	b.guard(ctx, "increment_usage", func(ctx context.Context) error {
		return b.store.IncrementUsage(ctx, recordID)
	})
}

func (b *BestEffort) AppendModeTransition(ctx context.Context, transition store.ModeTransition) {
	b.guard(ctx, "append_mode_transition", func(ctx context.Context) error {
		return b.store.AppendModeTransition(ctx, transition)
	})
}

func (b *BestEffort) SaveReport(ctx context.Context, report store.AssessmentReport) {
	b.guard(ctx, "save_report", func(ctx context.Context) error {
		return b.store.SaveReport(ctx, report)
	})
}

func (b *BestEffort) LoadCorpus(ctx context.Context, categories ...string) []store.LearnedRecord {
	return loadCorpus(ctx, b.store, b.logger, b.readTimeout, categories)
}

func (b *BestEffort) guard(ctx context.Context, op string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, b.writeTimeout)
	defer cancel()

	if err := safeCall(ctx, fn); err != nil {
		b.logger.Error(logModule, "Write failed", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}
}

func loadCorpus(ctx context.Context, s Store, log logger.ILogger, timeout time.Duration, categories []string) []store.LearnedRecord {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var records []store.LearnedRecord
	err := safeCall(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.LoadCorpus(ctx, categories...)
		return err
	})
	if err != nil {
		log.Warn(logModule, "Corpus read failed, using empty corpus", map[string]interface{}{
			"categories": categories,
			"error":      err.Error(),
		})
		return nil
	}
	return records
}

func safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrUnavailable, r)
		}
	}()
	return fn(ctx)
}
