package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/mockdy/internal/domain"
	"github.com/ashureev/mockdy/internal/notion"
	"github.com/ashureev/mockdy/internal/shared"
	"github.com/ashureev/mockdy/internal/store"
)

var (
	// ErrBusy is returned while a model reply is still streaming.
	ErrBusy = errors.New("a model response is still streaming")
	// ErrModelUnavailable is returned when no model is configured.
	ErrModelUnavailable = errors.New("AI model not configured. Set GEMINI_API_KEY")
	// ErrSessionNotFound is returned when reviewing an unknown stored session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAbandoned is returned when the interview was reset while a call was in flight.
	ErrAbandoned = errors.New("interview was reset")
)

// endBudget bounds grading plus the local save once End has begun.
const endBudget = 2 * time.Minute

// DeltaFunc receives streamed reply text. Returning an error abandons the stream.
type DeltaFunc func(delta string) error

// Reporter mirrors a saved session to the external workspace.
type Reporter interface {
	WriteAsync(ctx context.Context, profileID string, session domain.StoredSession, done func(notion.Result))
}

// StartOptions configures a new interview.
type StartOptions struct {
	Type       domain.InterviewType
	Difficulty domain.Difficulty
}

// Snapshot is the client-facing view of a profile's interview.
type Snapshot struct {
	State       State                 `json:"state"`
	Type        domain.InterviewType  `json:"type,omitempty"`
	Interviewer string                `json:"interviewer,omitempty"`
	Messages    []domain.Message      `json:"messages"`
	CodeOrNotes string                `json:"codeOrNotes"`
	ProblemInfo *domain.ProblemInfo   `json:"problemInfo,omitempty"`
	Feedback    *domain.FeedbackData  `json:"feedback,omitempty"`
	Session     *domain.StoredSession `json:"session,omitempty"`
	Streaming   bool                  `json:"streaming"`
}

// session is the per-profile interview. generation increments on every reset
// so in-flight calls can tell their results are stale.
type session struct {
	mu          sync.Mutex
	machine     Machine
	generation  uint64
	streaming   bool
	kind        domain.InterviewType
	interviewer string
	instruction string
	opening     string
	messages    []domain.Message
	codeOrNotes string
	problem     *domain.ProblemInfo
	feedback    *domain.FeedbackData
	stored      *domain.StoredSession

	lastUsed time.Time // guarded by Service.mu
}

func (s *session) clear() {
	s.generation++
	s.machine = NewMachine()
	s.streaming = false
	s.kind = ""
	s.interviewer = ""
	s.instruction = ""
	s.opening = ""
	s.messages = nil
	s.codeOrNotes = ""
	s.problem = nil
	s.feedback = nil
	s.stored = nil
}

func (s *session) history() []Turn {
	turns := make([]Turn, 0, len(s.messages)+1)
	turns = append(turns, Turn{Role: domain.RoleUser, Text: s.opening})
	for _, m := range s.messages {
		turns = append(turns, Turn{Role: m.Role, Text: m.Text})
	}
	return turns
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		State:       s.machine.State(),
		Type:        s.kind,
		Interviewer: s.interviewer,
		Messages:    append([]domain.Message{}, s.messages...),
		CodeOrNotes: s.codeOrNotes,
		ProblemInfo: s.problem,
		Streaming:   s.streaming,
	}
	if s.feedback != nil {
		fb := *s.feedback
		snap.Feedback = &fb
	}
	if s.stored != nil {
		st := *s.stored
		snap.Session = &st
	}
	return snap
}

// Service runs one interview per profile.
type Service struct {
	model    Model
	grader   *Grader
	sessions *store.SessionStore
	conns    store.ConnectionRepository
	reporter Reporter

	mu     sync.Mutex
	active map[string]*session
}

// NewService creates a Service. model may be nil, in which case interviews
// cannot start. reporter may be nil to disable report mirroring.
func NewService(model Model, sessions *store.SessionStore, conns store.ConnectionRepository, reporter Reporter) *Service {
	return &Service{
		model:    model,
		grader:   NewGrader(model),
		sessions: sessions,
		conns:    conns,
		reporter: reporter,
		active:   make(map[string]*session),
	}
}

func (s *Service) session(profileID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[profileID]
	if !ok {
		sess = &session{machine: NewMachine()}
		s.active[profileID] = sess
	}
	sess.lastUsed = time.Now()
	return sess
}

// lookup returns the profile's interview without creating one.
func (s *Service) lookup(profileID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.active[profileID]
	if !ok {
		return nil
	}
	sess.lastUsed = time.Now()
	return sess
}

// Snapshot returns the current interview view for a profile. Profiles that
// never started an interview see an idle view.
func (s *Service) Snapshot(profileID string) Snapshot {
	sess := s.lookup(profileID)
	if sess == nil {
		return (&session{machine: NewMachine()}).snapshot()
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot()
}

// Forget drops a profile's interview. An in-flight call sees its result as abandoned.
func (s *Service) Forget(profileID string) {
	s.mu.Lock()
	sess, ok := s.active[profileID]
	delete(s.active, profileID)
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	sess.generation++
	sess.mu.Unlock()
}

// Sweep drops interviews untouched for longer than idle. Interviews that are
// streaming or being graded are kept. It returns the number dropped.
func (s *Service) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.active {
		if sess.lastUsed.After(cutoff) {
			continue
		}
		if !sess.mu.TryLock() {
			continue
		}
		busy := sess.streaming || sess.machine.State() == StateLoading
		if !busy {
			sess.generation++
			delete(s.active, id)
			removed++
		}
		sess.mu.Unlock()
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done. A non-positive
// idle disables it.
func (s *Service) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	if idle <= 0 || interval <= 0 {
		slog.Info("Interview sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(idle); n > 0 {
					slog.Info("Idle interviews dropped", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Start opens a new interview and streams the interviewer's greeting through onDelta.
// A finished interview in Feedback or Reviewing is discarded first.
func (s *Service) Start(ctx context.Context, profileID string, opts StartOptions, onDelta DeltaFunc) (Snapshot, error) {
	if s.model == nil {
		return Snapshot{}, ErrModelUnavailable
	}
	if _, ok := Personas[opts.Type]; !ok {
		return Snapshot{}, &shared.InputError{Message: fmt.Sprintf("unknown interview type %q", opts.Type)}
	}

	sess := s.session(profileID)
	sess.mu.Lock()
	if sess.streaming {
		sess.mu.Unlock()
		return Snapshot{}, ErrBusy
	}
	if st := sess.machine.State(); st == StateFeedback || st == StateReviewing {
		sess.clear()
	}
	if err := sess.machine.Transition(StateLoading); err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}

	sess.kind = opts.Type
	sess.interviewer = randomInterviewer()
	sess.instruction = systemInstruction(opts.Type, sess.interviewer)
	if opts.Type == domain.InterviewTechnical {
		p := domain.RandomProblem(opts.Difficulty)
		sess.problem = &p
	}
	sess.opening = openingPrompt(opts.Type, sess.interviewer, sess.problem)
	sess.streaming = true
	gen := sess.generation
	req := ChatRequest{SystemInstruction: sess.instruction, Message: sess.opening}
	interviewer, problem := sess.interviewer, sess.problem
	sess.mu.Unlock()

	attrs := []any{"profile_id", profileID, "type", opts.Type, "interviewer", interviewer}
	if problem != nil {
		attrs = append(attrs, "problem_id", problem.ID)
	}
	slog.Info("Interview starting", attrs...)

	greeting, err := s.stream(ctx, req, onDelta)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.generation != gen {
		return Snapshot{}, ErrAbandoned
	}
	sess.streaming = false
	if err != nil {
		slog.Error("Failed to start interview", "profile_id", profileID, "error", err)
		sess.clear()
		return Snapshot{}, fmt.Errorf("start interview: %w", err)
	}

	sess.messages = []domain.Message{domain.NewMessage(domain.RoleModel, greeting)}
	if err := sess.machine.Transition(StateActive); err != nil {
		return Snapshot{}, err
	}
	return sess.snapshot(), nil
}

// Send appends a user message and streams the interviewer's reply through onDelta.
func (s *Service) Send(ctx context.Context, profileID, text string, onDelta DeltaFunc) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, &shared.InputError{Message: "text is required"}
	}

	sess := s.lookup(profileID)
	if sess == nil {
		return domain.Message{}, fmt.Errorf("%w: cannot send in %s", ErrInvalidTransition, StateIdle)
	}
	sess.mu.Lock()
	if sess.streaming {
		sess.mu.Unlock()
		return domain.Message{}, ErrBusy
	}
	if st := sess.machine.State(); st != StateActive {
		sess.mu.Unlock()
		return domain.Message{}, fmt.Errorf("%w: cannot send in %s", ErrInvalidTransition, st)
	}

	req := ChatRequest{SystemInstruction: sess.instruction, History: sess.history(), Message: text}
	sess.messages = append(sess.messages, domain.NewMessage(domain.RoleUser, text))
	sess.streaming = true
	gen := sess.generation
	sess.mu.Unlock()

	reply, err := s.stream(ctx, req, onDelta)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.generation != gen {
		return domain.Message{}, ErrAbandoned
	}
	sess.streaming = false

	// A partial reply is kept so the transcript reflects what the candidate saw.
	if reply == "" && err != nil {
		slog.Error("Interview reply failed", "profile_id", profileID, "error", err)
		return domain.Message{}, fmt.Errorf("stream reply: %w", err)
	}
	msg := domain.NewMessage(domain.RoleModel, reply)
	sess.messages = append(sess.messages, msg)
	if err != nil {
		slog.Warn("Interview reply interrupted", "profile_id", profileID, "received", len(reply), "error", err)
		return msg, fmt.Errorf("stream reply: %w", err)
	}
	return msg, nil
}

// UpdateNotes replaces the candidate's code or design notes.
func (s *Service) UpdateNotes(profileID, codeOrNotes string) error {
	sess := s.lookup(profileID)
	if sess == nil {
		return fmt.Errorf("%w: cannot edit notes in %s", ErrInvalidTransition, StateIdle)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if st := sess.machine.State(); st != StateActive {
		return fmt.Errorf("%w: cannot edit notes in %s", ErrInvalidTransition, st)
	}
	sess.codeOrNotes = codeOrNotes
	return nil
}

// End grades the interview, saves it to the profile's history, and mirrors it
// to Notion in the background when a usable connection exists. The local save
// never depends on the mirror.
func (s *Service) End(ctx context.Context, profileID string) (domain.StoredSession, error) {
	sess := s.lookup(profileID)
	if sess == nil {
		return domain.StoredSession{}, fmt.Errorf("%w: cannot end in %s", ErrInvalidTransition, StateIdle)
	}
	sess.mu.Lock()
	if sess.streaming {
		sess.mu.Unlock()
		return domain.StoredSession{}, ErrBusy
	}
	if sess.machine.State() != StateActive {
		st := sess.machine.State()
		sess.mu.Unlock()
		return domain.StoredSession{}, fmt.Errorf("%w: cannot end in %s", ErrInvalidTransition, st)
	}
	if err := sess.machine.Transition(StateLoading); err != nil {
		sess.mu.Unlock()
		return domain.StoredSession{}, err
	}
	kind := sess.kind
	messages := append([]domain.Message{}, sess.messages...)
	notes := sess.codeOrNotes
	problem := sess.problem
	gen := sess.generation
	sess.mu.Unlock()

	// Grading and the local save outlive the caller's connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endBudget)
	defer cancel()

	feedback := s.grader.Grade(ctx, kind, messages, notes)

	stored := domain.StoredSession{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UnixMilli(),
		Type:        kind,
		Messages:    messages,
		CodeOrNotes: notes,
		Feedback:    feedback,
		ProblemInfo: problem,
	}
	s.sessions.Save(ctx, profileID, stored)
	slog.Info("Interview saved", "profile_id", profileID, "session_id", stored.ID, "score", feedback.Score)

	if s.reporter != nil && s.conns.Get(ctx, profileID).Configured() {
		s.reporter.WriteAsync(ctx, profileID, stored, func(res notion.Result) {
			if res.Success {
				slog.Info("Session synced to Notion", "profile_id", profileID, "page_id", res.PageID)
			}
		})
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.generation != gen {
		return stored, nil
	}
	sess.feedback = &feedback
	sess.stored = &stored
	if err := sess.machine.Transition(StateFeedback); err != nil {
		return stored, err
	}
	return stored, nil
}

// Review opens a stored session read-only.
func (s *Service) Review(ctx context.Context, profileID, sessionID string) (domain.StoredSession, error) {
	stored, ok := s.sessions.Get(ctx, profileID, sessionID)
	if !ok {
		return domain.StoredSession{}, ErrSessionNotFound
	}

	sess := s.session(profileID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if from := sess.machine.State(); !CanTransition(from, StateReviewing) {
		return domain.StoredSession{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StateReviewing)
	}
	sess.clear()
	if err := sess.machine.Transition(StateReviewing); err != nil {
		return domain.StoredSession{}, err
	}
	sess.kind = stored.Type
	sess.messages = stored.Messages
	sess.codeOrNotes = stored.CodeOrNotes
	sess.problem = stored.ProblemInfo
	fb := stored.Feedback
	sess.feedback = &fb
	sess.stored = &stored
	return stored, nil
}

// Reset abandons whatever the profile was doing and returns to Idle.
func (s *Service) Reset(profileID string) Snapshot {
	sess := s.lookup(profileID)
	if sess == nil {
		return (&session{machine: NewMachine()}).snapshot()
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.clear()
	return sess.snapshot()
}

// stream consumes the model iterator, forwarding and accumulating deltas.
func (s *Service) stream(ctx context.Context, req ChatRequest, onDelta DeltaFunc) (string, error) {
	var full strings.Builder
	for delta, err := range s.model.Stream(ctx, req) {
		if err != nil {
			return full.String(), err
		}
		full.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return full.String(), fmt.Errorf("deliver delta: %w", err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return full.String(), err
	}
	return full.String(), nil
}
