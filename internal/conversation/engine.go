package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/pkg/logging"
)

var (
	ErrEmptyMessage   = errors.New("conversation: message is empty")
	ErrMessageTooLong = errors.New("conversation: message is too long")
	ErrNothingToUndo  = errors.New("conversation: nothing to undo")
	ErrNothingToRedo  = errors.New("conversation: nothing to redo")
)

const maxMessageRunes = 2000

// Recommender ranks clinics for a completed triage.
type Recommender interface {
	Recommend(ctx context.Context, service, location string) (clinic.Result, error)
}

// TurnObserver receives per-turn telemetry. Implemented by the metrics package.
type TurnObserver interface {
	ObserveTurn(stage string, duration time.Duration)
	ObserveCompletion(treatment string)
}

// CompletionHook runs once per session, after the first recommendation
// reply has been recorded and saved.
type CompletionHook func(ctx context.Context, state *State)

// Turn is the engine's answer to one patient message.
type Turn struct {
	SessionID          string                  `json:"session_id"`
	Reply              Message                 `json:"reply"`
	Source             ReplySource             `json:"source"`
	Stage              Stage                   `json:"stage"`
	Slots              Slots                   `json:"slots"`
	SuggestedTreatment *TreatmentType          `json:"suggested_treatment,omitempty"`
	Recommendations    []clinic.Recommendation `json:"recommendations,omitempty"`
}

// Engine runs the triage conversation: extraction, stage selection, reply
// generation and persistence. Turns for one session are serialized.
type Engine struct {
	store       StateStore
	extractor   *SlotExtractor
	responder   *ResponseGenerator
	recommender Recommender
	logger      *logging.Logger
	observer    TurnObserver
	onComplete  CompletionHook
	now         func() time.Time
	locks       *sessionLocks
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

func WithTurnObserver(o TurnObserver) EngineOption {
	return func(e *Engine) { e.observer = o }
}

func WithCompletionHook(h CompletionHook) EngineOption {
	return func(e *Engine) { e.onComplete = h }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(store StateStore, extractor *SlotExtractor, responder *ResponseGenerator, recommender Recommender, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil {
		panic("conversation: state store cannot be nil")
	}
	if extractor == nil {
		extractor = NewSlotExtractor(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if responder == nil {
		responder = NewResponseGenerator(nil, logger)
	}
	e := &Engine{
		store:       store,
		extractor:   extractor,
		responder:   responder,
		recommender: recommender,
		logger:      logger,
		now:         time.Now,
		locks:       newSessionLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession creates a new session and greets the patient.
func (e *Engine) StartSession(ctx context.Context) (*Turn, error) {
	state := NewState("", e.now())
	return e.greet(ctx, state)
}

// ResetSession discards a session's state and starts over under the same id.
func (e *Engine) ResetSession(ctx context.Context, id string) (*Turn, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	if err := e.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	e.logger.Info("conversation reset", "session_id", id)
	return e.greet(ctx, NewState(id, e.now()))
}

func (e *Engine) greet(ctx context.Context, state *State) (*Turn, error) {
	reply := e.responder.Generate(ctx, state)
	msg := e.recordReply(state, reply)
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	return newTurn(state, msg, reply.Source), nil
}

// Session returns the stored state for id.
func (e *Engine) Session(ctx context.Context, id string) (*State, error) {
	return e.store.Load(ctx, id)
}

// ProcessMessage runs one turn. Unknown session ids start a new session
// under that id.
func (e *Engine) ProcessMessage(ctx context.Context, id, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return nil, ErrMessageTooLong
	}

	unlock := e.locks.lock(id)
	defer unlock()
	start := e.now()

	state, err := e.store.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		state = NewState(id, start)
	} else if err != nil {
		return nil, err
	}

	state.checkpoint()
	state.appendMessage(newMessage(SenderUser, text, start))

	ext := e.extractor.Extract(ctx, text, state)
	e.apply(state, ext)

	prevStage := state.Stage
	state.Stage = NextStage(state.Slots)

	var reply Reply
	firstCompletion := false
	if state.Stage == StageComplete && (prevStage != StageComplete || len(state.Recommendations) == 0) {
		reply = e.recommend(ctx, state)
		if state.CompletedAt == nil {
			completedAt := start.UTC()
			state.CompletedAt = &completedAt
			firstCompletion = true
		}
	} else {
		reply = e.responder.Generate(ctx, state)
	}
	msg := e.recordReply(state, reply)

	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	if firstCompletion {
		e.complete(ctx, state)
	}

	e.logger.Debug("conversation turn processed",
		"session_id", state.ID,
		"stage", state.Stage,
		"source", reply.Source,
		"missing", len(state.Slots.Missing()),
	)
	if e.observer != nil {
		e.observer.ObserveTurn(string(state.Stage), e.now().Sub(start))
	}
	return newTurn(state, msg, reply.Source), nil
}

func (e *Engine) apply(state *State, ext Extraction) {
	if ext.RejectedSuggestion {
		state.SuggestedTreatment = nil
	}
	if ext.Suggested != nil && state.Slots.TreatmentType == nil {
		state.SuggestedTreatment = treatmentPtr(*ext.Suggested)
	}
	state.Slots = state.Slots.Merge(ext.Slots)
	if state.Slots.TreatmentType != nil {
		state.SuggestedTreatment = nil
	}
}

func (e *Engine) recommend(ctx context.Context, state *State) Reply {
	treatment := string(state.Slots.treatment())
	location := state.Slots.location()

	var recs []clinic.Recommendation
	if e.recommender != nil {
		res, err := e.recommender.Recommend(ctx, treatment, location)
		if err != nil {
			e.logger.Warn("clinic recommendation failed", "session_id", state.ID, "error", err)
		}
		recs = res.Clinics
	}
	if len(recs) == 0 {
		recs = clinic.Rank(clinic.FallbackClinics(treatment), treatment, clinic.OriginFor(location), clinic.RankByRating)
	}
	state.Recommendations = recs

	e.logger.Info("clinics recommended",
		"session_id", state.ID,
		"treatment_type", treatment,
		"location", location,
		"clinics", len(recs),
	)
	return Reply{Text: RecommendationMessage(state, recs), Source: ReplyRecommendation}
}

// complete reports a triage once its recommendation reply is stored.
func (e *Engine) complete(ctx context.Context, state *State) {
	treatment := string(state.Slots.treatment())
	e.logger.Info("triage completed", "session_id", state.ID, "treatment_type", treatment)
	if e.observer != nil {
		e.observer.ObserveCompletion(treatment)
	}
	if e.onComplete != nil {
		e.onComplete(ctx, state)
	}
}

func (e *Engine) recordReply(state *State, reply Reply) Message {
	state.Asked[questionKey(state)]++
	msg := newMessage(SenderAI, reply.Text, e.now())
	state.appendMessage(msg)
	state.rememberResponse(reply.Text)
	return msg
}

// Undo reverts the last turn of a session.
func (e *Engine) Undo(ctx context.Context, id string) (*State, error) {
	return e.step(ctx, id, (*State).UndoTurn, ErrNothingToUndo)
}

// Redo re-applies a turn reverted by Undo.
func (e *Engine) Redo(ctx context.Context, id string) (*State, error) {
	return e.step(ctx, id, (*State).RedoTurn, ErrNothingToRedo)
}

func (e *Engine) step(ctx context.Context, id string, move func(*State) bool, empty error) (*State, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	state, err := e.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !move(state) {
		return nil, empty
	}
	state.UpdatedAt = e.now().UTC()
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("conversation: save after history step: %w", err)
	}
	return state, nil
}

func newTurn(state *State, reply Message, source ReplySource) *Turn {
	turn := &Turn{
		SessionID:       state.ID,
		Reply:           reply,
		Source:          source,
		Stage:           state.Stage,
		Slots:           state.Slots.clone(),
		Recommendations: state.Recommendations,
	}
	if state.SuggestedTreatment != nil {
		turn.SuggestedTreatment = treatmentPtr(*state.SuggestedTreatment)
	}
	return turn
}

// sessionLocks hands out one mutex per session id and frees it once no
// goroutine holds or waits on it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
