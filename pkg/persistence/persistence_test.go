package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	panics bool
}

func (b brokenStore) fail() error {
	if b.panics {
		panic("connection reset")
	}
	return errors.New("connection refused")
}

func (b brokenStore) UpsertSessionSnapshot(context.Context, *store.Session) error { return b.fail() }
func (b brokenStore) AppendLearnedRecord(context.Context, store.LearnedRecord) error {
	return b.fail()
}
func (b brokenStore) IncrementUsage(context.Context, string) error { return b.fail() }
func (b brokenStore) AppendModeTransition(context.Context, store.ModeTransition) error {
	return b.fail()
}
func (b brokenStore) SaveReport(context.Context, store.AssessmentReport) error { return b.fail() }
func (b brokenStore) LoadCorpus(context.Context, ...string) ([]store.LearnedRecord, error) {
	return nil, b.fail()
}
func (b brokenStore) ListTransitions(context.Context, string, int) ([]store.ModeTransition, error) {
	return nil, b.fail()
}

func TestMemoryStore_CorpusByCategory(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(
		store.LearnedRecord{UserMessage: "quero aprender", Category: store.CategoryStartCourse},
		store.LearnedRecord{UserMessage: "dor de cabeça", Category: store.CategoryGeneral},
	)

	all, err := m.LoadCorpus(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	course, err := m.LoadCorpus(ctx, store.CategoryStartCourse, store.CategoryBackToChat)
	require.NoError(t, err)
	require.Len(t, course, 1)
	assert.Equal(t, "quero aprender", course[0].UserMessage)
	assert.NotEmpty(t, course[0].ID)
}

func TestMemoryStore_IncrementUsage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(store.LearnedRecord{ID: "r-1", UserMessage: "oi"})

	require.NoError(t, m.IncrementUsage(ctx, "r-1"))
	require.NoError(t, m.IncrementUsage(ctx, "r-1"))
	assert.Equal(t, 2, m.Records()[0].UsageCount)
	assert.NotNil(t, m.Records()[0].LastUsedAt)

	assert.ErrorIs(t, m.IncrementUsage(ctx, "missing"), ErrRecordNotFound)
}

func TestMemoryStore_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	s := store.NewSession("s-1", "u-1", time.Now())
	s.Variables.Set("queixaPrincipal", "dor")

	require.NoError(t, m.UpsertSessionSnapshot(ctx, s))
	s.Variables.Set("queixaPrincipal", "febre")

	snap, ok := m.Snapshot("s-1")
	require.True(t, ok)
	v, _ := snap.Variables.Get("queixaPrincipal")
	assert.Equal(t, "dor", v)
}

func TestMemoryStore_ListTransitionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for i, to := range []store.Mode{store.ModeClinicalInterview, store.ModeExplanatory, store.ModeCourse} {
		require.NoError(t, m.AppendModeTransition(ctx, store.ModeTransition{
			SessionID: "s-1",
			To:        to,
			Timestamp: time.Unix(int64(i), 0),
		}))
	}
	require.NoError(t, m.AppendModeTransition(ctx, store.ModeTransition{SessionID: "s-2", To: store.ModeCourse}))

	got, err := m.ListTransitions(ctx, "s-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, store.ModeCourse, got[0].To)
	assert.Equal(t, store.ModeExplanatory, got[1].To)

	all, err := m.ListTransitions(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestBestEffort_SwallowsFailures(t *testing.T) {
	for _, panics := range []bool{false, true} {
		a := NewBestEffort(brokenStore{panics: panics}, logger.NewNopLogger(), time.Second, time.Second)
		ctx := context.Background()

		assert.NotPanics(t, func() {
			a.UpsertSessionSnapshot(ctx, store.NewSession("s-1", "u-1", time.Now()))
			a.AppendLearnedRecord(ctx, store.LearnedRecord{UserMessage: "oi"})
			a.IncrementUsage(ctx, "r-1")
			a.AppendModeTransition(ctx, store.ModeTransition{SessionID: "s-1"})
			a.SaveReport(ctx, store.AssessmentReport{SessionID: "s-1"})
		})
		assert.Empty(t, a.LoadCorpus(ctx, store.CategoryGeneral))
	}
}

func TestBestEffort_WritesThrough(t *testing.T) {
	m := NewMemoryStore()
	a := NewBestEffort(m, logger.NewNopLogger(), 0, 0)

	a.AppendLearnedRecord(context.Background(), store.LearnedRecord{UserMessage: "oi", Category: store.CategoryGeneral})

	assert.Len(t, a.LoadCorpus(context.Background(), store.CategoryGeneral), 1)
}

func TestAsync_PublishesJobsForConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "test.persistence")
	require.NoError(t, err)

	sink := NewMemoryStore()
	a := NewAsync(pubSub, sink, logger.NewNopLogger(), AsyncConfig{Topic: "test.persistence"})

	a.AppendLearnedRecord(ctx, store.LearnedRecord{ID: "r-1", UserMessage: "estou com dor", Category: store.CategoryGeneral})

	select {
	case msg := <-messages:
		job, err := DecodeJob(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, JobLearnedRecord, job.Kind)
		require.NoError(t, job.Apply(ctx, sink))
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("job was not published")
	}

	assert.Len(t, sink.Records(), 1)
}

// gatedPublisher holds every Publish call until release is closed.
type gatedPublisher struct {
	entered chan struct{}
	release chan struct{}

	mu        sync.Mutex
	published []string
}

func newGatedPublisher() *gatedPublisher {
	return &gatedPublisher{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (p *gatedPublisher) Publish(_ string, msgs ...*message.Message) error {
	p.entered <- struct{}{}
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		job, err := DecodeJob(m.Payload)
		if err != nil {
			return err
		}
		p.published = append(p.published, job.RecordID)
	}
	return nil
}

func (p *gatedPublisher) Close() error { return nil }

func (p *gatedPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func TestAsync_TimedOutJobIsNeverPublished(t *testing.T) {
	ctx := context.Background()
	pub := newGatedPublisher()
	a := NewAsync(pub, NewMemoryStore(), logger.NewNopLogger(), AsyncConfig{
		EnqueueTimeout: 20 * time.Millisecond,
		QueueSize:      1,
	})

	a.IncrementUsage(ctx, "r-1")
	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first job was not picked up")
	}

	a.IncrementUsage(ctx, "r-2") // waits in the queue
	a.IncrementUsage(ctx, "r-3") // queue full, dropped after the timeout

	close(pub.release)
	a.Close()

	assert.Equal(t, []string{"r-1", "r-2"}, pub.ids())
}

func TestAsync_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	pub := newGatedPublisher()
	close(pub.release)
	a := NewAsync(pub, NewMemoryStore(), logger.NewNopLogger(), AsyncConfig{QueueSize: 16})

	want := []string{"r-1", "r-2", "r-3", "r-4", "r-5"}
	for _, id := range want {
		a.IncrementUsage(ctx, id)
	}
	a.Close()

	assert.Equal(t, want, pub.ids())
	a.IncrementUsage(ctx, "late")
	assert.Equal(t, want, pub.ids())
}

func TestAsync_CachesCorpus(t *testing.T) {
	ctx := context.Background()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	reader := NewMemoryStore(store.LearnedRecord{UserMessage: "oi", Category: store.CategoryGeneral})
	a := NewAsync(pubSub, reader, logger.NewNopLogger(), AsyncConfig{CorpusTTL: time.Minute})

	require.Len(t, a.LoadCorpus(ctx, store.CategoryGeneral), 1)

	require.NoError(t, reader.AppendLearnedRecord(ctx, store.LearnedRecord{UserMessage: "olá", Category: store.CategoryGeneral}))
	assert.Len(t, a.LoadCorpus(ctx, store.CategoryGeneral), 1, "served from cache")

	a.AppendLearnedRecord(ctx, store.LearnedRecord{UserMessage: "bom dia", Category: store.CategoryGeneral})
	assert.Len(t, a.LoadCorpus(ctx, store.CategoryGeneral), 2, "cache flushed on append")
}

func TestJob_ApplyRejectsMissingPayload(t *testing.T) {
	m := NewMemoryStore()
	for _, kind := range []JobKind{JobSessionSnapshot, JobLearnedRecord, JobIncrementUsage, JobModeTransition, JobAssessmentReport, "bogus"} {
		t.Run(string(kind), func(t *testing.T) {
			assert.Error(t, Job{Kind: kind}.Apply(context.Background(), m))
		})
	}
}
