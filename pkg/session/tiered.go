package session

import (
	"context"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/store"
)

// Tiered reads from the fast tier first and falls back to the durable one,
// warming the fast tier on a hit. Writes go to both; a durable tier failure
// is logged and does not fail the write.
type Tiered struct {
	fast    Repository
	durable Repository
	logger  logger.ILogger
}

var _ Repository = (*Tiered)(nil)

func NewTiered(fast, durable Repository, log logger.ILogger) *Tiered {
	return &Tiered{fast: fast, durable: durable, logger: log}
}

func (t *Tiered) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, err := t.fast.Get(ctx, sessionID)
	if err == nil && sess != nil {
		return sess, nil
	}

	sess, err = t.durable.Get(ctx, sessionID)
	if err != nil {
		t.logger.Warn(logModule, "Durable session tier unavailable", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil, nil
	}
	if sess != nil {
		_ = t.fast.Save(ctx, sess)
	}
	return sess, nil
}

func (t *Tiered) Save(ctx context.Context, sess *store.Session) error {
	if err := t.fast.Save(ctx, sess); err != nil {
		return err
	}
	if err := t.durable.Save(ctx, sess); err != nil {
		t.logger.Warn(logModule, "Durable session write failed", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
	return nil
}

func (t *Tiered) Delete(ctx context.Context, sessionID string) error {
	if err := t.fast.Delete(ctx, sessionID); err != nil {
		return err
	}
	return t.durable.Delete(ctx, sessionID)
}
