package persistence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/patrickmn/go-cache"
)

type AsyncConfig struct {
	Topic          string
	EnqueueTimeout time.Duration
	ReadTimeout    time.Duration
	CorpusTTL      time.Duration
	QueueSize      int
}

// Async turns every write into a job published on a watermill topic. A
// consumer applies the jobs to the real Store. Reads go straight to the Store
// and are cached for CorpusTTL.
//
// Jobs wait in a bounded queue drained by a single publisher goroutine, so
// they reach the topic in the order they were enqueued. A job that cannot
// enter the queue within EnqueueTimeout is dropped and never published.
type Async struct {
	publisher message.Publisher
	reader    Store
	logger    logger.ILogger
	cfg       AsyncConfig
	corpus    *cache.Cache

	mu      sync.RWMutex
	closed  bool
	queue   chan *message.Message
	stopped chan struct{}
}

var _ Adapter = (*Async)(nil)

func NewAsync(publisher message.Publisher, reader Store, log logger.ILogger, cfg AsyncConfig) *Async {
	if cfg.Topic == "" {
		cfg.Topic = "dialogue.persistence"
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 250 * time.Millisecond
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.CorpusTTL <= 0 {
		cfg.CorpusTTL = 30 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	a := &Async{
		publisher: publisher,
		reader:    reader,
		logger:    log,
		cfg:       cfg,
		corpus:    cache.New(cfg.CorpusTTL, 2*cfg.CorpusTTL),
		queue:     make(chan *message.Message, cfg.QueueSize),
		stopped:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Close stops accepting jobs and returns once the queued ones are published.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.stopped
}

func (a *Async) run() {
	defer close(a.stopped)
	for msg := range a.queue {
		if err := a.publish(msg); err != nil {
			a.logger.Error(logModule, "Failed to publish job", map[string]interface{}{
				"message_id": msg.UUID,
				"error":      err.Error(),
			})
		}
	}
}

func (a *Async) publish(msg *message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrUnavailable
		}
	}()
	return a.publisher.Publish(a.cfg.Topic, msg)
}

func (a *Async) UpsertSessionSnapshot(ctx context.Context, session *store.Session) {
	if session == nil {
		return
	}
	a.enqueue(ctx, Job{Kind: JobSessionSnapshot, Session: session})
}

func (a *Async) AppendLearnedRecord(ctx context.Context, record store.LearnedRecord) {
	a.enqueue(ctx, Job{Kind: JobLearnedRecord, Record: &record})
	a.corpus.Flush()
}

func (a *Async) IncrementUsage(ctx context.Context, recordID string) {
	a.enqueue(ctx, Job{Kind: JobIncrementUsage, RecordID: recordID})
}

func (a *Async) AppendModeTransition(ctx context.Context, transition store.ModeTransition) {
	a.enqueue(ctx, Job{Kind: JobModeTransition, Transition: &transition})
}

func (a *Async) SaveReport(ctx context.Context, report store.AssessmentReport) {
	a.enqueue(ctx, Job{Kind: JobAssessmentReport, Report: &report})
}

func (a *Async) LoadCorpus(ctx context.Context, categories ...string) []store.LearnedRecord {
	key := corpusKey(categories)
	if cached, found := a.corpus.Get(key); found {
		return append([]store.LearnedRecord(nil), cached.([]store.LearnedRecord)...)
	}

	records := loadCorpus(ctx, a.reader, a.logger, a.cfg.ReadTimeout, categories)
	if records != nil {
		a.corpus.Set(key, records, cache.DefaultExpiration)
	}
	return append([]store.LearnedRecord(nil), records...)
}

// enqueue serializes the job immediately, so later mutations of the session
// by the caller do not leak into the queued write.
func (a *Async) enqueue(ctx context.Context, job Job) {
	job.EnqueuedAt = time.Now()
	payload, err := job.Encode()
	if err != nil {
		a.logger.Error(logModule, "Failed to encode job", map[string]interface{}{
			"kind":  job.Kind,
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(context.WithoutCancel(ctx))

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn(logModule, "Persistence closed, job dropped", map[string]interface{}{"kind": job.Kind})
		return
	}

	timer := time.NewTimer(a.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case a.queue <- msg:
	case <-timer.C:
		a.logger.Warn(logModule, "Enqueue timed out, job dropped", map[string]interface{}{
			"kind":    job.Kind,
			"timeout": a.cfg.EnqueueTimeout.String(),
		})
	}
}

func corpusKey(categories []string) string {
	if len(categories) == 0 {
		return "*"
	}
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
