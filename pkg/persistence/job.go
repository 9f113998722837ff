package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"noa-assistant-be/pkg/store"
)

type JobKind string

const (
	JobSessionSnapshot  JobKind = "session_snapshot"
	JobLearnedRecord    JobKind = "learned_record"
	JobIncrementUsage   JobKind = "increment_usage"
	JobModeTransition   JobKind = "mode_transition"
	JobAssessmentReport JobKind = "assessment_report"
)

// Job is one queued write. Exactly one payload field is set, matching Kind.
type Job struct {
	Kind       JobKind                 `json:"kind"`
	Session    *store.Session          `json:"session,omitempty"`
	Record     *store.LearnedRecord    `json:"record,omitempty"`
	RecordID   string                  `json:"record_id,omitempty"`
	Transition *store.ModeTransition   `json:"transition,omitempty"`
	Report     *store.AssessmentReport `json:"report,omitempty"`
	EnqueuedAt time.Time               `json:"enqueued_at"`
}

func (j Job) Encode() ([]byte, error) {
	return json.Marshal(j)
}

func DecodeJob(payload []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(payload, &j); err != nil {
		return Job{}, fmt.Errorf("decode persistence job: %w", err)
	}
	return j, nil
}

// Apply performs the write described by the job against s.
func (j Job) Apply(ctx context.Context, s Store) error {
	switch j.Kind {
	case JobSessionSnapshot:
		if j.Session == nil {
			return fmt.Errorf("job %s: missing session", j.Kind)
		}
		return s.UpsertSessionSnapshot(ctx, j.Session)
	case JobLearnedRecord:
		if j.Record == nil {
			return fmt.Errorf("job %s: missing record", j.Kind)
		}
		return s.AppendLearnedRecord(ctx, *j.Record)
	case JobIncrementUsage:
		if j.RecordID == "" {
			return fmt.Errorf("job %s: missing record id", j.Kind)
		}
		return s.IncrementUsage(ctx, j.RecordID)
	case JobModeTransition:
		if j.Transition == nil {
			return fmt.Errorf("job %s: missing transition", j.Kind)
		}
		return s.AppendModeTransition(ctx, *j.Transition)
	case JobAssessmentReport:
		if j.Report == nil {
			return fmt.Errorf("job %s: missing report", j.Kind)
		}
		return s.SaveReport(ctx, *j.Report)
	default:
		return fmt.Errorf("unknown persistence job kind %q", j.Kind)
	}
}
