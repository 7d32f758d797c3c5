package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/estimagent/dialogue"
	"github.com/tbxark/estimagent/extract"
	"github.com/tbxark/estimagent/intent"
	"github.com/tbxark/estimagent/pricing"
	"github.com/tbxark/estimagent/types"
)

type extractorFunc func(ctx context.Context, req *types.TurnRequest) (types.Facts, error)

func (f extractorFunc) Extract(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
	return f(ctx, req)
}

type selectorFunc func(ctx context.Context, req *dialogue.Request) (string, error)

func (f selectorFunc) NextQuestion(ctx context.Context, req *dialogue.Request) (string, error) {
	return f(ctx, req)
}

type countingRecorder struct {
	mu        sync.Mutex
	outcomes  []string
	estimates int
	failures  map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{failures: map[string]int{}}
}

func (r *countingRecorder) ObserveTurn(outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) IncEstimate(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.estimates++
}

func (r *countingRecorder) IncCollaboratorFailure(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[kind]++
}

func (r *countingRecorder) lastOutcome() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return ""
	}
	return r.outcomes[len(r.outcomes)-1]
}

func scenarioProfile() types.ServiceProfile {
	return types.ServiceProfile{
		Name:                "roofing",
		RequiredFields:      []string{types.FieldArea, types.FieldRegion, types.FieldMaterial, types.FieldTimeline},
		BaseRate:            5.0,
		MaterialMultipliers: map[string]float64{"asphalt": 1.0, "metal": 1.8},
		RegionMultipliers:   map[string]float64{"northeast": 1.2},
		TimelineMultipliers: map[string]float64{"standard": 1.0},
		FixedFee:            250,
		RangeFraction:       0.1,
	}
}

func newTestEngine(rec Recorder, opts ...Option) *Engine {
	base := []Option{
		WithProfiles(StaticProfiles{"roofing": scenarioProfile()}),
		WithRecorder(rec),
	}
	return NewEngine(append(base, opts...)...)
}

func lastContent(state *types.ConversationState) string {
	if len(state.History) == 0 {
		return ""
	}
	return state.History[len(state.History)-1].Content
}

func TestStartSession(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec)

	state := e.StartSession(context.Background(), "s1", "")
	assert.Equal(t, "s1", state.SessionID)
	assert.Equal(t, "roofing", state.Service)
	assert.Equal(t, scenarioProfile().RequiredFields, state.RequiredFields)
	require.Len(t, state.History, 2)
	assert.Equal(t, dialogue.WelcomeMessage, state.History[0].Content)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), state.History[1].Content)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), state.PendingQuestion)
	assert.Empty(t, state.Facts)
	assert.Nil(t, state.Estimate)
	assert.Empty(t, state.Route)
	assert.Equal(t, string(StepAskQuestion), rec.lastOutcome())
}

func TestStartSessionUnknownServiceUsesDefault(t *testing.T) {
	e := newTestEngine(nil)
	state := e.StartSession(context.Background(), "s1", "plumbing")
	assert.Equal(t, "roofing", state.Service)
}

func TestFullSentenceProducesEstimate(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec)
	ctx := context.Background()

	state := e.StartSession(ctx, "s1", "roofing")
	state = e.HandleMessage(ctx, state, "2000 sq ft house in the northeast with asphalt shingles, standard timeline")

	assert.Equal(t, types.Facts{
		types.FieldArea:     "2000",
		types.FieldRegion:   "northeast",
		types.FieldMaterial: "asphalt",
		types.FieldTimeline: "standard",
	}, state.Facts)
	require.NotNil(t, state.Estimate)
	assert.InDelta(t, 10000, state.Estimate.BaseCost, 1e-9)
	assert.InDelta(t, 0, state.Estimate.MaterialCost, 1e-9)
	assert.InDelta(t, 2000, state.Estimate.RegionAdjustment, 1e-9)
	assert.InDelta(t, 0, state.Estimate.TimelineAdjustment, 1e-9)
	assert.InDelta(t, 12250, state.Estimate.Total, 1e-9)
	assert.InDelta(t, 11025, state.Estimate.Low, 1e-9)
	assert.InDelta(t, 13475, state.Estimate.High, 1e-9)

	require.Len(t, state.History, 5)
	assert.Equal(t, schema.User, state.History[2].Role)
	assert.Contains(t, state.History[3].Content, "$12,250.00")
	assert.Equal(t, pricing.ClosingMessage, state.History[4].Content)
	assert.Empty(t, state.TurnInput)
	assert.Equal(t, 1, rec.estimates)
	assert.Equal(t, string(StepRespond), rec.lastOutcome())
}

func TestMissingRegionAsksForRegion(t *testing.T) {
	e := newTestEngine(nil)
	state := types.NewConversationState("s2")
	state.Service = "roofing"
	state.RequiredFields = scenarioProfile().RequiredFields
	state.Facts = types.Facts{
		types.FieldArea:     "1000",
		types.FieldRegion:   "",
		types.FieldMaterial: "metal",
		types.FieldTimeline: "standard",
	}

	next := e.HandleMessage(context.Background(), state, "")
	assert.Equal(t, dialogue.Prompt(types.FieldRegion), lastContent(next))
	assert.Equal(t, dialogue.Prompt(types.FieldRegion), next.PendingQuestion)
	assert.Nil(t, next.Estimate)
	assert.Len(t, next.History, 1)
	assert.Empty(t, state.History, "input state must not be mutated")
}

func TestTargetedAnswers(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()

	state := e.StartSession(ctx, "s1", "")
	state = e.HandleMessage(ctx, state, "2,400")
	assert.Equal(t, "2400", state.Facts[types.FieldArea])
	assert.Equal(t, dialogue.Prompt(types.FieldRegion), state.PendingQuestion)

	state = e.HandleMessage(ctx, state, "NE")
	assert.Equal(t, "northeast", state.Facts[types.FieldRegion])
	state = e.HandleMessage(ctx, state, "shingles")
	assert.Equal(t, "asphalt", state.Facts[types.FieldMaterial])
	state = e.HandleMessage(ctx, state, "normal")
	assert.Equal(t, "standard", state.Facts[types.FieldTimeline])
	require.NotNil(t, state.Estimate)
	assert.InDelta(t, 14650, state.Estimate.Total, 1e-9)
}

func estimatedState(t *testing.T, e *Engine) *types.ConversationState {
	t.Helper()
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")
	state = e.HandleMessage(ctx, state, "2000 sq ft house in the northeast with asphalt shingles, standard timeline")
	require.NotNil(t, state.Estimate)
	return state
}

func TestFollowUpKeepsEstimate(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec)
	state := estimatedState(t, e)
	before := *state.Estimate

	next := e.HandleMessage(context.Background(), state, "Thanks!")
	assert.Equal(t, dialogue.FollowUp(intent.Gratitude), lastContent(next))
	require.NotNil(t, next.Estimate)
	assert.Equal(t, before.Total, next.Estimate.Total)
	assert.Equal(t, 1, rec.estimates, "no recomputation")
	assert.Equal(t, string(StepAskQuestion), rec.lastOutcome())
}

func TestRecomputeInvalidatesEstimate(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec)
	state := estimatedState(t, e)

	next := e.HandleMessage(context.Background(), state, "recalculate with metal roofing")
	require.NotNil(t, next.Estimate)
	assert.Equal(t, "metal", next.Facts[types.FieldMaterial])
	assert.Equal(t, "metal", next.Estimate.Facts[types.FieldMaterial])
	assert.InDelta(t, 21850, next.Estimate.Total, 1e-9)
	assert.Equal(t, 2, rec.estimates)
	assert.Equal(t, pricing.ClosingMessage, lastContent(next))
	assert.InDelta(t, 12250, state.Estimate.Total, 1e-9, "previous state untouched")
}

func TestRouteIsIdempotent(t *testing.T) {
	e := newTestEngine(nil)
	state := e.StartSession(context.Background(), "s1", "")
	state.TurnInput = "2000 sq ft"
	state.Facts[types.FieldArea] = "2000"
	tr := &turn{state: state, input: "2000 sq ft"}

	_, err := e.route(context.Background(), tr)
	require.NoError(t, err)
	facts := tr.state.Facts.Clone()
	historyLen := len(tr.state.History)

	_, err = e.route(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, facts, tr.state.Facts)
	assert.Len(t, tr.state.History, historyLen)
}

func TestExtractionFailureDegrades(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec, WithExtractor(extractorFunc(func(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
		return nil, errors.New("model unavailable")
	})))
	ctx := context.Background()

	state := e.StartSession(ctx, "s1", "")
	next := e.HandleMessage(ctx, state, "2000 sq ft")
	assert.Empty(t, next.Facts)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), lastContent(next))
	assert.Equal(t, "2000 sq ft", next.History[len(next.History)-2].Content)
	assert.Equal(t, 1, rec.failures["extract"])
}

func TestExtractionTimeoutDegrades(t *testing.T) {
	e := newTestEngine(nil,
		WithExtractionTimeout(10*time.Millisecond),
		WithExtractor(extractorFunc(func(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})),
	)
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")
	next := e.HandleMessage(ctx, state, "2000 sq ft")
	assert.Empty(t, next.Facts)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), lastContent(next))
}

func TestExtractorReceivesContext(t *testing.T) {
	var got *types.TurnRequest
	e := newTestEngine(nil, WithHistoryWindow(1), WithExtractor(extractorFunc(func(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
		got = req
		return types.Facts{}, nil
	})))
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")
	e.HandleMessage(ctx, state, "about 2000")

	require.NotNil(t, got)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), got.MessagePair.Question)
	assert.Equal(t, "about 2000", got.MessagePair.Answer)
	require.Len(t, got.RecentHistory, 1)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), got.RecentHistory[0].Content)
	assert.Len(t, got.MissingFields, 4)
}

func TestSelectorFailureApologizes(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec, WithSelector(selectorFunc(func(ctx context.Context, req *dialogue.Request) (string, error) {
		return "", errors.New("llm down")
	})))
	state := types.NewConversationState("s1")
	state.Service = "roofing"
	state.RequiredFields = scenarioProfile().RequiredFields
	state.AddMessage(schema.Assistant, dialogue.WelcomeMessage)

	next := e.HandleMessage(context.Background(), state, "2000 sq ft")
	require.Len(t, next.History, 3)
	assert.Equal(t, "2000 sq ft", next.History[1].Content)
	assert.Equal(t, dialogue.ApologyMessage, next.History[2].Content)
	assert.Equal(t, "2000", next.Facts[types.FieldArea])
	assert.Empty(t, next.TurnInput)
	assert.Empty(t, next.Route)
	assert.Equal(t, OutcomeError, rec.lastOutcome())
	assert.Equal(t, 1, rec.failures["dialogue"])
}

func TestPanicIsRecovered(t *testing.T) {
	e := newTestEngine(nil, WithExtractor(extractorFunc(func(ctx context.Context, req *types.TurnRequest) (types.Facts, error) {
		panic("boom")
	})))
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")

	next := e.HandleMessage(ctx, state, "2000 sq ft")
	require.Len(t, next.History, len(state.History)+1)
	assert.Equal(t, dialogue.ApologyMessage, lastContent(next))
	assert.Empty(t, next.Facts)
	assert.Empty(t, next.TurnInput)
}

func TestHandleImageWithFacts(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")

	next := e.HandleImage(ctx, state, extract.ImageInput{ID: "img-42"}, types.Facts{types.FieldMaterial: "slate"})
	assert.Equal(t, "slate", next.Facts[types.FieldMaterial])
	assert.Equal(t, map[string]string{"img-42": "material=slate"}, next.ImageNotes)
	require.Len(t, next.History, len(state.History)+2)
	assert.Equal(t, dialogue.ImageAcknowledgement, next.History[len(state.History)].Content)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), lastContent(next))
	for _, m := range next.History {
		assert.NotEqual(t, schema.User, m.Role)
	}
}

func TestHandleImageAnalyzes(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")

	next := e.HandleImage(ctx, state, extract.ImageInput{Description: "photo of a metal roof"}, nil)
	assert.Equal(t, "metal", next.Facts[types.FieldMaterial])
	assert.Contains(t, next.ImageNotes, "image_1")
	assert.Equal(t, []string{"image_1"}, next.ImageIDs())
}

func TestImageReferenceInText(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")

	next := e.HandleMessage(ctx, state, "I uploaded a photo, it's 1500 sq ft in Denver")
	assert.Equal(t, "1500", next.Facts[types.FieldArea])
	assert.Equal(t, "west", next.Facts[types.FieldRegion])
	assert.Contains(t, next.ImageNotes, "image_1")
	assert.Equal(t, dialogue.Prompt(types.FieldMaterial), lastContent(next))

	var acks int
	for _, m := range next.History {
		if m.Content == dialogue.ImageAcknowledgement {
			acks++
		}
	}
	assert.Equal(t, 1, acks)
}

func TestEstimateCountsImages(t *testing.T) {
	e := newTestEngine(nil)
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")
	state = e.HandleImage(ctx, state, extract.ImageInput{}, types.Facts{})
	state = e.HandleMessage(ctx, state, "2000 sq ft house in the northeast with asphalt shingles, standard timeline")

	require.NotNil(t, state.Estimate)
	assert.Equal(t, []string{"image_1"}, state.Estimate.Images)
}

func TestServiceSwitchesProfile(t *testing.T) {
	siding := types.ServiceProfile{
		Name:           "siding",
		RequiredFields: []string{types.FieldArea, types.FieldRegion},
		BaseRate:       3,
		RangeFraction:  0.1,
	}
	e := NewEngine(WithProfiles(StaticProfiles{"roofing": scenarioProfile(), "siding": siding}))
	ctx := context.Background()
	state := e.StartSession(ctx, "s1", "")

	state = e.HandleMessage(ctx, state, "I need new siding on 1200 sq ft")
	assert.Equal(t, "siding", state.Service)
	assert.Equal(t, siding.RequiredFields, state.RequiredFields)
	assert.Equal(t, dialogue.Prompt(types.FieldRegion), lastContent(state))

	state = e.HandleMessage(ctx, state, "south")
	require.NotNil(t, state.Estimate)
	assert.Equal(t, "siding", state.Estimate.Service)
	assert.InDelta(t, 3600, state.Estimate.Total, 1e-9)
}

func TestUnreadableAreaIsAskedAgain(t *testing.T) {
	e := newTestEngine(nil)
	state := types.NewConversationState("s1")
	state.Service = "roofing"
	state.RequiredFields = scenarioProfile().RequiredFields
	state.Facts = types.Facts{
		types.FieldRegion:   "northeast",
		types.FieldMaterial: "asphalt",
		types.FieldTimeline: "standard",
	}

	next := e.HandleImage(context.Background(), state, extract.ImageInput{ID: "image_1"}, types.Facts{types.FieldArea: "huge"})
	assert.Nil(t, next.Estimate)
	_, ok := next.Facts[types.FieldArea]
	assert.False(t, ok)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), lastContent(next))
}

func assistantContents(state *types.ConversationState) []string {
	var out []string
	for _, m := range state.History {
		if m.Role == schema.Assistant {
			out = append(out, m.Content)
		}
	}
	return out
}

func TestProfileWithoutAreaStillAsksForArea(t *testing.T) {
	profile := scenarioProfile()
	profile.RequiredFields = []string{types.FieldRegion, types.FieldMaterial, types.FieldTimeline}
	e := NewEngine(WithProfiles(StaticProfiles{"roofing": profile}))
	ctx := context.Background()

	state := e.StartSession(ctx, "s1", "")
	assert.Equal(t, []string{types.FieldArea, types.FieldRegion, types.FieldMaterial, types.FieldTimeline}, state.RequiredFields)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), lastContent(state))

	state = e.HandleMessage(ctx, state, "northeast, metal, standard timeline")
	assert.Nil(t, state.Estimate)
	assert.Equal(t, dialogue.Prompt(types.FieldArea), lastContent(state))
	assert.NotContains(t, assistantContents(state), dialogue.ReadyToEstimate)

	state = e.HandleMessage(ctx, state, "2000 sq ft")
	require.NotNil(t, state.Estimate)
	assert.InDelta(t, 21850, state.Estimate.Total, 1e-9)
	assert.NotContains(t, assistantContents(state), dialogue.ReadyToEstimate)
}

func TestStaleRequiredFieldsEndWithApology(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec)
	state := types.NewConversationState("s1")
	state.Service = "roofing"
	state.RequiredFields = []string{types.FieldRegion, types.FieldMaterial, types.FieldTimeline}
	state.Facts = types.Facts{
		types.FieldRegion:   "northeast",
		types.FieldMaterial: "asphalt",
		types.FieldTimeline: "standard",
	}

	next := e.HandleMessage(context.Background(), state, "ok thanks")
	assert.Nil(t, next.Estimate)
	assert.Equal(t, []string{dialogue.EstimateApology}, assistantContents(next))
	assert.Equal(t, string(StepRespond), rec.lastOutcome())
}

func TestStepBudgetRestoresTurnStart(t *testing.T) {
	rec := newCountingRecorder()
	e := newTestEngine(rec, WithSelector(selectorFunc(func(ctx context.Context, req *dialogue.Request) (string, error) {
		return dialogue.ReadyToEstimate, nil
	})))
	state := types.NewConversationState("s1")
	state.Service = "roofing"
	state.RequiredFields = scenarioProfile().RequiredFields
	state.Facts = types.Facts{types.FieldArea: "2000"}
	state.AddMessage(schema.Assistant, dialogue.WelcomeMessage)

	next := e.HandleMessage(context.Background(), state, "hello")
	require.Len(t, next.History, len(state.History)+1)
	assert.Equal(t, dialogue.WelcomeMessage, next.History[0].Content)
	assert.Equal(t, dialogue.ApologyMessage, lastContent(next))
	assert.Equal(t, state.Facts, next.Facts)
	assert.Empty(t, next.TurnInput)
	assert.Empty(t, next.Route)
	assert.Equal(t, OutcomeError, rec.lastOutcome())
}

func TestLastNTrimmer(t *testing.T) {
	history := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.AssistantMessage("a1", nil),
		nil,
		schema.UserMessage("u1"),
		schema.AssistantMessage("a2", nil),
	}
	got := LastNTrimmer{N: 2}.Trim(history)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].Content)
	assert.Equal(t, "a2", got[1].Content)

	assert.Len(t, LastNTrimmer{N: 10}.Trim(history), 3)
	assert.Empty(t, LastNTrimmer{}.Trim(history))
}
