package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/estimagent/dialogue"
	"github.com/tbxark/estimagent/extract"
	"github.com/tbxark/estimagent/facts"
	"github.com/tbxark/estimagent/intent"
	"github.com/tbxark/estimagent/pricing"
	"github.com/tbxark/estimagent/types"
)

type stepFunc func(ctx context.Context, t *turn) (Step, error)

// turn is the scratch space of one pass through the state machine.
type turn struct {
	state      *types.ConversationState
	input      string
	image      *extract.ImageInput
	imageFacts types.Facts
	retried    bool
	outcome    string
	err        error
}

// Engine is the dialogue state machine. It holds no session state: every
// entry point takes a ConversationState and returns the next one.
type Engine struct {
	profiles          ProfileSource
	defaultService    string
	extractor         extract.Extractor
	imageAnalyzer     extract.ImageAnalyzer
	selector          dialogue.Selector
	trimmer           Trimmer
	extractionTimeout time.Duration
	recorder          Recorder
	logger            *slog.Logger
	maxSteps          int

	steps map[Step]stepFunc
}

func NewEngine(opts ...Option) *Engine {
	e := defaultEngine()
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.trimmer == nil {
		e.trimmer = LastNTrimmer{N: DefaultHistoryWindow}
	}
	e.steps = map[Step]stepFunc{
		StepStart:           e.start,
		StepClassifyInput:   e.classifyInput,
		StepAnalyzeImage:    e.analyzeImage,
		StepExtractInfo:     e.extractInfo,
		StepRoute:           e.route,
		StepAskQuestion:     e.askQuestion,
		StepComputeEstimate: e.computeEstimate,
		StepRespond:         e.respond,
	}
	return e
}

// StartSession creates the state of a new session: it attaches the service
// profile, greets the customer and asks the first question.
func (e *Engine) StartSession(ctx context.Context, sessionID, service string) *types.ConversationState {
	state := types.NewConversationState(sessionID)
	state.Service = service
	return e.runTurn(ctx, &turn{state: state}, StepStart)
}

// HandleMessage runs one turn for a customer message.
func (e *Engine) HandleMessage(ctx context.Context, state *types.ConversationState, text string) *types.ConversationState {
	next := cloneOrNew(state)
	next.TurnInput = text
	return e.runTurn(ctx, &turn{state: next, input: text}, StepClassifyInput)
}

// HandleImage records an uploaded image. When imageFacts is nil the image is
// sent to the configured analyzer; either way text extraction is skipped.
func (e *Engine) HandleImage(ctx context.Context, state *types.ConversationState, img extract.ImageInput, imageFacts types.Facts) *types.ConversationState {
	next := cloneOrNew(state)
	next.TurnInput = ""
	return e.runTurn(ctx, &turn{state: next, image: &img, imageFacts: imageFacts}, StepClassifyInput)
}

func cloneOrNew(state *types.ConversationState) *types.ConversationState {
	if state == nil {
		return types.NewConversationState("")
	}
	return state.Clone()
}

func (e *Engine) runTurn(ctx context.Context, t *turn, first Step) *types.ConversationState {
	ctx = callbacks.EnsureRunInfo(ctx, "EstimationEngine", "Agent")
	ctx = callbacks.OnStart(ctx, map[string]any{
		"session_id": t.state.SessionID,
		"input":      t.input,
		"first_step": string(first),
	})
	started := time.Now()

	e.run(ctx, t, first)

	e.recorder.ObserveTurn(t.outcome, time.Since(started))
	if t.err != nil {
		callbacks.OnError(ctx, t.err)
	} else {
		callbacks.OnEnd(ctx, map[string]any{
			"session_id": t.state.SessionID,
			"outcome":    t.outcome,
			"missing":    facts.Missing(t.state.RequiredFields, t.state.Facts),
			"estimated":  t.state.Estimate != nil,
		})
	}
	return t.state
}

func (e *Engine) run(ctx context.Context, t *turn, step Step) {
	defer func() {
		t.state.Route = ""
	}()
	initial := t.state.Clone()
	for i := 0; step != StepHalt; i++ {
		if i >= e.maxSteps {
			e.fail(t, initial, step, fmt.Errorf("turn exceeded %d steps", e.maxSteps))
			return
		}
		fn, ok := e.steps[step]
		if !ok {
			e.fail(t, initial, step, fmt.Errorf("unknown step %q", step))
			return
		}
		snapshot := t.state.Clone()
		t.state.Route = string(step)
		e.logger.Debug("Running step", "step", step, "session_id", t.state.SessionID)
		next, err := e.runStep(ctx, fn, t)
		if err != nil {
			e.fail(t, snapshot, step, err)
			return
		}
		step = next
	}
}

func (e *Engine) runStep(ctx context.Context, fn stepFunc, t *turn) (next Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, t)
}

// fail restores the state from before the failing step, appends one apology
// and halts the turn.
func (e *Engine) fail(t *turn, snapshot *types.ConversationState, step Step, err error) {
	e.logger.Error("Turn failed", "step", step, "session_id", snapshot.SessionID, "error", err)
	snapshot.TurnInput = ""
	snapshot.AddMessage(schema.Assistant, dialogue.ApologyMessage)
	t.state = snapshot
	t.outcome = OutcomeError
	t.err = fmt.Errorf("step %s: %w", step, err)
}

func (e *Engine) profile(name string) (types.ServiceProfile, string) {
	if name != "" {
		if p, ok := e.profiles.Profile(name); ok {
			return p, name
		}
	}
	if p, ok := e.profiles.Profile(e.defaultService); ok {
		return p, e.defaultService
	}
	return types.DefaultProfile(), e.defaultService
}

func (e *Engine) start(ctx context.Context, t *turn) (Step, error) {
	profile, name := e.profile(t.state.Service)
	if t.state.Service != "" && t.state.Service != name {
		e.logger.Warn("Unknown service, using default", "service", t.state.Service, "default", name)
	}
	t.state.Service = name
	t.state.RequiredFields = pricing.RequiredFields(profile)
	t.state.AddMessage(schema.Assistant, dialogue.WelcomeMessage)
	return StepAskQuestion, nil
}

func (e *Engine) classifyInput(ctx context.Context, t *turn) (Step, error) {
	if t.image != nil || intent.HasImageReference(t.input) {
		return StepAnalyzeImage, nil
	}
	return StepExtractInfo, nil
}

func (e *Engine) analyzeImage(ctx context.Context, t *turn) (Step, error) {
	img := extract.ImageInput{Description: t.input}
	if t.image != nil {
		img = *t.image
	}
	if img.ID == "" {
		img.ID = fmt.Sprintf("image_%d", len(t.state.ImageNotes)+1)
	}

	found := t.imageFacts
	if found == nil {
		ctx, cancel := context.WithTimeout(ctx, e.extractionTimeout)
		defer cancel()
		var err error
		found, err = e.imageAnalyzer.AnalyzeImage(ctx, &img)
		if err != nil {
			e.logger.Warn("Image analysis failed", "image_id", img.ID, "session_id", t.state.SessionID, "error", err)
			e.recorder.IncCollaboratorFailure("image")
			found = nil
		}
	}
	if err := e.commit(t, found); err != nil {
		return "", fmt.Errorf("commit image facts: %w", err)
	}

	if t.state.ImageNotes == nil {
		t.state.ImageNotes = map[string]string{}
	}
	t.state.ImageNotes[img.ID] = imageNote(img, found)
	t.state.AddMessage(schema.Assistant, dialogue.ImageAcknowledgement)
	return StepExtractInfo, nil
}

func imageNote(img extract.ImageInput, found types.Facts) string {
	if len(found) == 0 {
		return strings.TrimSpace(img.Description)
	}
	parts := make([]string, 0, len(found))
	for _, k := range slices.Sorted(maps.Keys(found)) {
		parts = append(parts, k+"="+found[k])
	}
	return strings.Join(parts, ", ")
}

func (e *Engine) extractInfo(ctx context.Context, t *turn) (Step, error) {
	if strings.TrimSpace(t.state.TurnInput) == "" {
		return StepRoute, nil
	}
	req := &types.TurnRequest{
		Service: t.state.Service,
		Facts:   t.state.Facts.Clone(),
		MessagePair: types.MessagePair{
			Question: t.state.PendingQuestion,
			Answer:   t.state.TurnInput,
		},
		RecentHistory: e.trimmer.Trim(t.state.History),
		MissingFields: types.DescribeFields(facts.Missing(t.state.RequiredFields, t.state.Facts), true),
		HasEstimate:   t.state.Estimate != nil,
	}

	ctx, cancel := context.WithTimeout(ctx, e.extractionTimeout)
	defer cancel()
	found, err := e.extractor.Extract(ctx, req)
	if err != nil {
		e.logger.Warn("Extraction failed", "session_id", t.state.SessionID, "error", err)
		e.recorder.IncCollaboratorFailure("extract")
		found = nil
	}
	if err := e.commit(t, found); err != nil {
		return "", fmt.Errorf("commit extracted facts: %w", err)
	}
	return StepRoute, nil
}

// commit merges partial facts and switches the service profile when the
// customer names another catalogued service before any estimate exists.
func (e *Engine) commit(t *turn, partial types.Facts) error {
	if len(partial) == 0 {
		return nil
	}
	next, changed, err := facts.Commit(t.state.Facts, partial)
	if err != nil {
		return err
	}
	t.state.Facts = next
	if len(changed) > 0 {
		e.logger.Debug("Committed facts", "session_id", t.state.SessionID, "changed", changed)
	}

	service := strings.TrimSpace(next.Get(types.FieldService))
	if service == "" || service == t.state.Service || t.state.Estimate != nil {
		return nil
	}
	if profile, ok := e.profiles.Profile(service); ok {
		e.logger.Debug("Switching service profile", "session_id", t.state.SessionID, "from", t.state.Service, "to", service)
		t.state.Service = service
		t.state.RequiredFields = pricing.RequiredFields(profile)
	}
	return nil
}

func (e *Engine) route(ctx context.Context, t *turn) (Step, error) {
	if strings.TrimSpace(t.state.TurnInput) != "" {
		t.state.AddMessage(schema.User, t.state.TurnInput)
	}
	t.state.TurnInput = ""

	missing := facts.Missing(t.state.RequiredFields, t.state.Facts)
	switch {
	case len(missing) > 0:
		return StepAskQuestion, nil
	case t.state.Estimate == nil:
		return StepComputeEstimate, nil
	case intent.WantsRecompute(t.input):
		e.logger.Debug("Recompute requested", "session_id", t.state.SessionID)
		t.state.Estimate = nil
		return StepComputeEstimate, nil
	default:
		return StepAskQuestion, nil
	}
}

func (e *Engine) askQuestion(ctx context.Context, t *turn) (Step, error) {
	question, err := e.selector.NextQuestion(ctx, &dialogue.Request{
		Service:       t.state.Service,
		Missing:       facts.Missing(t.state.RequiredFields, t.state.Facts),
		Facts:         t.state.Facts.Clone(),
		HasEstimate:   t.state.Estimate != nil,
		LastUserText:  t.input,
		RecentHistory: e.trimmer.Trim(t.state.History),
	})
	if err != nil {
		e.recorder.IncCollaboratorFailure("dialogue")
		return "", fmt.Errorf("select next question: %w", err)
	}
	if dialogue.IsReady(question) {
		t.state.PendingQuestion = ""
		return StepComputeEstimate, nil
	}
	t.state.AddMessage(schema.Assistant, question)
	t.state.PendingQuestion = question
	t.outcome = string(StepAskQuestion)
	return StepHalt, nil
}

func (e *Engine) computeEstimate(ctx context.Context, t *turn) (Step, error) {
	profile, _ := e.profile(t.state.Service)
	est, err := pricing.Price(profile, t.state.Facts)
	var incomplete *pricing.IncompleteError
	switch {
	case err == nil:
		est.Images = t.state.ImageIDs()
		t.state.Estimate = est
		e.recorder.IncEstimate(est.Service)
		return StepRespond, nil
	case errors.As(err, &incomplete):
		// values that are present but unusable are dropped so they get asked again
		for _, field := range incomplete.Missing {
			delete(t.state.Facts, field)
		}
		e.logger.Debug("Estimate incomplete", "session_id", t.state.SessionID, "missing", incomplete.Missing)
		if facts.Complete(t.state.RequiredFields, t.state.Facts) {
			// nothing left to ask for
			return StepRespond, nil
		}
		return StepAskQuestion, nil
	default:
		e.logger.Warn("Pricing failed", "session_id", t.state.SessionID, "error", err)
		return StepRespond, nil
	}
}

func (e *Engine) respond(ctx context.Context, t *turn) (Step, error) {
	if t.state.Estimate == nil {
		if !t.retried {
			t.retried = true
			return StepComputeEstimate, nil
		}
		t.state.AddMessage(schema.Assistant, dialogue.EstimateApology)
		t.outcome = string(StepRespond)
		return StepHalt, nil
	}
	t.state.AddMessage(schema.Assistant, pricing.Summary(t.state.Estimate))
	t.state.AddMessage(schema.Assistant, pricing.ClosingMessage)
	t.state.PendingQuestion = pricing.ClosingMessage
	t.outcome = string(StepRespond)
	return StepHalt, nil
}
