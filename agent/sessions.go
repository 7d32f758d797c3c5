package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/tbxark/estimagent/extract"
	"github.com/tbxark/estimagent/types"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionNamespace = "estimagent:session"

// Turn is the outcome of one call into Sessions.
type Turn struct {
	State   *types.ConversationState
	Replies []*schema.Message
}

// LastReply returns the newest assistant message of the turn.
func (t *Turn) LastReply() string {
	if t == nil || len(t.Replies) == 0 {
		return ""
	}
	return t.Replies[len(t.Replies)-1].Content
}

// Sessions owns conversation states keyed by session id and serializes the
// turns of each session.
type Sessions struct {
	engine *Engine
	store  Store[*types.ConversationState]

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock lives in Sessions.locks only while some call holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessions(engine *Engine, core Cache[*types.ConversationState]) *Sessions {
	if core == nil {
		core = NewMemoryCache[*types.ConversationState]()
	}
	return &Sessions{
		engine: engine,
		store:  NewStore(core, sessionNamespace, SessionIDFromContext),
		locks:  map[string]*sessionLock{},
	}
}

func (s *Sessions) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Create starts a session for service; an empty service uses the default.
func (s *Sessions) Create(ctx context.Context, service string) (*Turn, error) {
	return s.CreateWithID(ctx, uuid.NewString(), service)
}

// CreateWithID starts a session under id, replacing any session stored there.
func (s *Sessions) CreateWithID(ctx context.Context, id, service string) (*Turn, error) {
	unlock := s.lock(id)
	defer unlock()
	return s.create(WithSessionID(ctx, id), id, service)
}

// GetOrCreate returns the stored session for id, starting it first when it
// does not exist. Created reports whether this call started it.
func (s *Sessions) GetOrCreate(ctx context.Context, id, service string) (*Turn, bool, error) {
	unlock := s.lock(id)
	defer unlock()

	ctx = WithSessionID(ctx, id)
	state, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return &Turn{State: state}, false, nil
	case !errors.Is(err, ErrSessionNotFound):
		return nil, false, err
	}
	started, err := s.create(ctx, id, service)
	if err != nil {
		return nil, false, err
	}
	return started, true, nil
}

func (s *Sessions) create(ctx context.Context, id, service string) (*Turn, error) {
	state := s.engine.StartSession(ctx, id, service)
	if err := s.store.Set(ctx, state); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	return &Turn{State: state, Replies: state.History}, nil
}

func (s *Sessions) Get(ctx context.Context, id string) (*types.ConversationState, error) {
	state, ok, err := s.store.Get(WithSessionID(ctx, id))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !ok || state == nil {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.store.Del(WithSessionID(ctx, id))
}

// Message runs one customer message through the engine.
func (s *Sessions) Message(ctx context.Context, id, text string) (*Turn, error) {
	return s.apply(ctx, id, func(ctx context.Context, state *types.ConversationState) *types.ConversationState {
		return s.engine.HandleMessage(ctx, state, text)
	})
}

// Image records an uploaded image. Nil imageFacts lets the engine analyze it.
func (s *Sessions) Image(ctx context.Context, id string, img extract.ImageInput, imageFacts types.Facts) (*Turn, error) {
	return s.apply(ctx, id, func(ctx context.Context, state *types.ConversationState) *types.ConversationState {
		return s.engine.HandleImage(ctx, state, img, imageFacts)
	})
}

func (s *Sessions) apply(ctx context.Context, id string, fn func(context.Context, *types.ConversationState) *types.ConversationState) (*Turn, error) {
	unlock := s.lock(id)
	defer unlock()

	ctx = WithSessionID(ctx, id)
	state, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := fn(ctx, state)
	if err := s.store.Set(ctx, next); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	return &Turn{State: next, Replies: newAssistantMessages(state, next)}, nil
}

func newAssistantMessages(before, after *types.ConversationState) []*schema.Message {
	start := 0
	if before != nil && len(before.History) <= len(after.History) {
		start = len(before.History)
	}
	var out []*schema.Message
	for _, m := range after.History[start:] {
		if m != nil && m.Role == schema.Assistant {
			out = append(out, m)
		}
	}
	return out
}
