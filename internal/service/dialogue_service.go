package service

import (
	"context"
	"strings"
	"time"

	"noa-assistant-be/internal/dto"
	"noa-assistant-be/internal/pkg/logger"
	"noa-assistant-be/pkg/ai/events"
	"noa-assistant-be/pkg/ai/pipeline"
	"noa-assistant-be/pkg/ai/router"
	"noa-assistant-be/pkg/interview/report"
	"noa-assistant-be/pkg/interview/state"
	"noa-assistant-be/pkg/persistence"
	"noa-assistant-be/pkg/session"
	"noa-assistant-be/pkg/store"

	"github.com/google/uuid"
)

const dialogueModule = "DIALOGUE"

// Reply sources added by the service on top of the composer's.
const (
	SourceTransition = "transition"
	SourceCommand    = "command"
)

type IDialogueService interface {
	HandleTurn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
	Snapshot(ctx context.Context, sessionID string) (*dto.SessionSnapshotResponse, error)
	Reset(ctx context.Context, sessionID string) (*dto.TurnResponse, error)
	Clear(ctx context.Context, sessionID string) error
	Report(ctx context.Context, sessionID string) (*dto.ReportResponse, error)
	ForceMode(ctx context.Context, sessionID string, req *dto.ForceModeRequest) (*dto.TransitionResponse, error)
	Transitions(ctx context.Context, sessionID string, limit int) ([]dto.TransitionResponse, error)
}

type DialogueDeps struct {
	Sessions  *session.Manager
	Router    *router.Router
	Composer  *pipeline.Composer
	Machine   *state.Machine
	Recorder  persistence.Adapter
	Reader    persistence.Store // optional; backs the transition listing
	Publisher events.Publisher
	Logger    logger.ILogger

	HistoryWindow int
}

type dialogueService struct {
	sessions      *session.Manager
	router        *router.Router
	composer      *pipeline.Composer
	machine       *state.Machine
	recorder      persistence.Adapter
	reader        persistence.Store
	publisher     events.Publisher
	logger        logger.ILogger
	historyWindow int
	now           func() time.Time
}

func NewDialogueService(deps DialogueDeps) IDialogueService {
	s := &dialogueService{
		sessions:      deps.Sessions,
		router:        deps.Router,
		composer:      deps.Composer,
		machine:       deps.Machine,
		recorder:      deps.Recorder,
		reader:        deps.Reader,
		publisher:     deps.Publisher,
		logger:        deps.Logger,
		historyWindow: deps.HistoryWindow,
		now:           time.Now,
	}
	if s.recorder == nil {
		s.recorder = persistence.Noop{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.historyWindow <= 0 {
		s.historyWindow = 8
	}
	return s
}

// HandleTurn never fails because of a collaborator. The worst reply is the
// fixed apology.
func (s *dialogueService) HandleTurn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	sessionID := strings.TrimSpace(req.SessionId)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var res *dto.TurnResponse
	_ = s.sessions.WithLock(sessionID, func() error {
		res = s.turn(ctx, sessionID, req.UserId, req.Message)
		return nil
	})
	return res, nil
}

func (s *dialogueService) turn(ctx context.Context, sessionID, userID, message string) (res *dto.TurnResponse) {
	sess, created := s.sessions.LoadOrCreate(ctx, userID, sessionID)
	if created {
		s.logger.Info(dialogueModule, "New session", map[string]interface{}{
			"session_id": sess.ID,
			"user_id":    userID,
		})
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(dialogueModule, "Turn panicked, replying with apology", map[string]interface{}{
				"session_id": sess.ID,
				"panic":      r,
			})
			res = toTurnResponse(sess, pipeline.Reply{Text: pipeline.Apology, Source: pipeline.SourceApology})
		}
	}()

	reply := s.respond(ctx, message, sess)

	if strings.TrimSpace(message) != "" {
		sess.Remember("user", message, s.historyWindow)
	}
	sess.Remember("assistant", reply.Text, s.historyWindow)
	sess.UpdatedAt = s.now()

	_ = s.sessions.Save(ctx, sess)
	s.recorder.UpsertSessionSnapshot(ctx, sess)

	s.publisher.PublishTurnHandled(ctx, sess.ID, sess.UserID, sess.Mode, reply.Source, sess.StageIndex)
	if reply.Outcome != nil && reply.Outcome.Completed && reply.Outcome.Advanced {
		s.publisher.PublishInterviewCompleted(ctx, sess)
	}

	s.logger.Debug(dialogueModule, "Turn handled", map[string]interface{}{
		"session_id":  sess.ID,
		"mode":        sess.Mode,
		"stage_index": sess.StageIndex,
		"source":      reply.Source,
	})
	return toTurnResponse(sess, reply)
}

func (s *dialogueService) respond(ctx context.Context, message string, sess *store.Session) pipeline.Reply {
	if r, ok := s.composer.Screen(message, sess.Mode); ok {
		return r
	}

	d := s.router.Route(ctx, message, sess)
	if _, switched := s.router.Apply(ctx, sess, d, message); switched {
		if sess.Mode == store.ModeClinicalInterview {
			out := s.machine.Begin(ctx, sess)
			return pipeline.Reply{Text: out.Prompt, Source: SourceTransition, Options: out.Options, Score: d.Confidence, Outcome: &out}
		}
		if d.Banner != "" {
			return pipeline.Reply{Text: d.Banner, Source: SourceTransition, Score: d.Confidence}
		}
		return s.composer.Respond(ctx, message, sess)
	}

	if sess.Mode == store.ModeClinicalInterview && d.Source == router.SourceTrigger {
		switch d.Action {
		case router.ActionRestart:
			out := s.machine.Restart(ctx, sess)
			return pipeline.Reply{Text: out.Prompt, Source: SourceCommand, Options: out.Options, Score: 1, Outcome: &out}
		case router.ActionStatus:
			return pipeline.Reply{Text: s.machine.Status(sess), Source: SourceCommand, Score: 1}
		default:
			// Asked to start the interview while already in it.
			out := s.machine.Begin(ctx, sess)
			return pipeline.Reply{Text: out.Prompt, Source: SourceCommand, Options: out.Options, Score: 1, Outcome: &out}
		}
	}

	return s.composer.Respond(ctx, message, sess)
}

func (s *dialogueService) Snapshot(ctx context.Context, sessionID string) (*dto.SessionSnapshotResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toSnapshotResponse(sess), nil
}

// Reset starts the interview over, entering clinical mode first if needed.
func (s *dialogueService) Reset(ctx context.Context, sessionID string) (*dto.TurnResponse, error) {
	var res *dto.TurnResponse
	err := s.sessions.WithLock(sessionID, func() error {
		sess, e := s.sessions.Get(ctx, sessionID)
		if e != nil {
			return e
		}

		var out state.Outcome
		if sess.Mode != store.ModeClinicalInterview {
			if _, e := s.router.Force(ctx, sess, store.ModeClinicalInterview, "reset"); e != nil {
				return e
			}
			out = s.machine.Begin(ctx, sess)
		} else {
			out = s.machine.Restart(ctx, sess)
		}
		sess.Remember("assistant", out.Prompt, s.historyWindow)

		if e := s.sessions.Save(ctx, sess); e != nil {
			return e
		}
		s.recorder.UpsertSessionSnapshot(ctx, sess)
		res = toTurnResponse(sess, pipeline.Reply{Text: out.Prompt, Source: SourceCommand, Options: out.Options, Outcome: &out})
		return nil
	})
	return res, err
}

func (s *dialogueService) Clear(ctx context.Context, sessionID string) error {
	return s.sessions.WithLock(sessionID, func() error {
		if _, err := s.sessions.Get(ctx, sessionID); err != nil {
			return err
		}
		s.logger.Info(dialogueModule, "Session cleared", map[string]interface{}{"session_id": sessionID})
		return s.sessions.Delete(ctx, sessionID)
	})
}

// Report builds the assessment from the live session and stores it.
func (s *dialogueService) Report(ctx context.Context, sessionID string) (*dto.ReportResponse, error) {
	var res *dto.ReportResponse
	err := s.sessions.WithLock(sessionID, func() error {
		sess, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		r := report.Build(sess, s.machine.Table(), s.now())
		s.recorder.SaveReport(ctx, r)
		res = &dto.ReportResponse{Report: r, Narrative: r.Narrative()}
		return nil
	})
	return res, err
}

func (s *dialogueService) ForceMode(ctx context.Context, sessionID string, req *dto.ForceModeRequest) (*dto.TransitionResponse, error) {
	var res *dto.TransitionResponse
	err := s.sessions.WithLock(sessionID, func() error {
		sess, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		t, err := s.router.Force(ctx, sess, store.Mode(req.Mode), req.Reason)
		if err != nil {
			return err
		}
		if sess.Mode == store.ModeClinicalInterview {
			s.machine.Begin(ctx, sess)
		}
		if err := s.sessions.Save(ctx, sess); err != nil {
			return err
		}
		s.recorder.UpsertSessionSnapshot(ctx, sess)
		out := toTransitionResponse(t)
		res = &out
		return nil
	})
	return res, err
}

func (s *dialogueService) Transitions(ctx context.Context, sessionID string, limit int) ([]dto.TransitionResponse, error) {
	if s.reader == nil {
		return []dto.TransitionResponse{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	transitions, err := s.reader.ListTransitions(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransitionResponse, len(transitions))
	for i, t := range transitions {
		out[i] = toTransitionResponse(t)
	}
	return out, nil
}

func (s *dialogueService) toSnapshotResponse(sess *store.Session) *dto.SessionSnapshotResponse {
	res := &dto.SessionSnapshotResponse{
		SessionId:           sess.ID,
		UserId:              sess.UserID,
		Mode:                string(sess.Mode),
		StageIndex:          sess.StageIndex,
		Status:              string(sess.Status),
		Variables:           sess.Variables.Snapshot(),
		TurnLog:             make([]dto.TurnEntryResponse, len(sess.TurnLog)),
		CreatedAt:           sess.CreatedAt,
		UpdatedAt:           sess.UpdatedAt,
		InterviewStartedAt:  sess.InterviewStartedAt,
		InterviewFinishedAt: sess.InterviewFinishedAt,
	}
	if st, ok := s.machine.Table().At(sess.StageIndex); ok {
		res.StageId = st.ID
	}
	for i, e := range sess.TurnLog {
		res.TurnLog[i] = dto.TurnEntryResponse{
			StageId:     e.StageID,
			PromptShown: e.PromptShown,
			RawReply:    e.RawReply,
			Timestamp:   e.Timestamp,
		}
	}
	return res
}

func toTurnResponse(sess *store.Session, reply pipeline.Reply) *dto.TurnResponse {
	options := reply.Options
	if options == nil {
		options = []string{}
	}
	return &dto.TurnResponse{
		SessionId:  sess.ID,
		Text:       reply.Text,
		Mode:       string(sess.Mode),
		StageIndex: sess.StageIndex,
		Options:    options,
		Source:     reply.Source,
		Completed:  sess.Status == store.StatusCompleted && sess.Mode == store.ModeClinicalInterview,
	}
}

func toTransitionResponse(t store.ModeTransition) dto.TransitionResponse {
	return dto.TransitionResponse{
		SessionId:  t.SessionID,
		FromMode:   string(t.From),
		ToMode:     string(t.To),
		Trigger:    t.Trigger,
		Confidence: t.Confidence,
		Timestamp:  t.Timestamp,
	}
}
