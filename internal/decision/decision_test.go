package decision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/waypoint/internal/config"
	"github.com/lazypower/waypoint/internal/engine"
	"github.com/lazypower/waypoint/internal/llm"
	"github.com/lazypower/waypoint/internal/model"
)

func testEngine(client llm.Client) *Engine {
	cfg := config.Default()
	cfg.Decision.Timeout = 200 * time.Millisecond
	return New(client, cfg, nil)
}

func sampleTask() model.Task {
	return model.Task{
		ID:                "t1",
		Title:             "Run 5k",
		EstimatedDuration: 45,
		EnergyLevel:       model.EnergyHigh,
		Priority:          3,
		Status:            model.TaskInProgress,
	}
}

type stubSearcher struct {
	results []engine.Result
	err     error
	reqs    []engine.SearchRequest
}

func (s *stubSearcher) Search(_ context.Context, req engine.SearchRequest) ([]engine.Result, error) {
	s.reqs = append(s.reqs, req)
	return s.results, s.err
}

const validPlan = `{
  "goal": {"title": "Run a half marathon", "specific": "Finish 21km",
    "measurable": "Race result", "achievable": "3 runs a week",
    "relevant": "Health matters to me", "timeBound": "By October",
    "dimension": "health"},
  "milestones": [
    {"title": "Base", "tasks": [
      {"title": "Easy 3k", "estimatedDuration": 25, "energyLevel": "medium", "priority": 4},
      {"title": "Buy shoes", "estimatedDuration": 60, "energyLevel": "low"}
    ]}
  ]
}`

func TestAllDecisionsFallBackWithoutGeneration(t *testing.T) {
	ctx := context.Background()
	for name, client := range map[string]llm.Client{
		"nil":      nil,
		"disabled": llm.Disabled{},
		"error":    &llm.MockClient{Err: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			e := testEngine(client)

			c := e.Clarify(ctx, "u1", "get fit")
			assert.Equal(t, SourceFallback, c.Source)
			assert.Equal(t, ReasonTransport, c.FallbackReason)
			require.NoError(t, c.Value.validate())

			p := e.Decompose(ctx, DecomposeInput{OwnerID: "u1", Prompt: "get fit"})
			assert.Equal(t, SourceFallback, p.Source)
			require.NoError(t, p.Value.validate())

			a := e.Adjust(ctx, AdjustInput{Task: sampleTask(), Reason: model.ReasonForgot})
			assert.Equal(t, SourceFallback, a.Source)
			require.NoError(t, a.Value.validate(sampleTask()))

			k := e.Classify(ctx, "I prefer mornings")
			assert.Equal(t, SourceFallback, k.Source)
			assert.True(t, k.Value.Type.Valid())
		})
	}
}

func TestDecomposeMissingMilestonesFallsBack(t *testing.T) {
	mock := llm.NewMockClient(`{"goal": {"title": "Learn piano", "specific": "s", "measurable": "m",
		"achievable": "a", "relevant": "r", "timeBound": "t", "dimension": "hobby"}}`)
	e := testEngine(mock)

	res := e.Decompose(context.Background(), DecomposeInput{Prompt: "learn piano"})
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonSchema, res.FallbackReason)
	assert.Equal(t, 3, res.Value.TaskCount())
	assert.Equal(t, "learn piano", res.Value.Goal.Title)

	titles := []string{}
	for _, task := range res.Value.Milestones[0].Tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{
		"Break the goal into concrete steps",
		"Gather the resources you need",
		"Take the first action",
	}, titles)
	assert.Equal(t, 1, mock.CallCount())
}

func TestDecomposeAccepted(t *testing.T) {
	mock := llm.NewMockClient("Here is your plan:\n```json\n" + validPlan + "\n```")
	e := testEngine(mock)

	res := e.Decompose(context.Background(), DecomposeInput{Prompt: "half marathon", Answers: map[string]string{"timeframe": "6_months"}})
	require.Equal(t, SourceAI, res.Source, res.FallbackReason)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, model.DimHealth, res.Value.Goal.Dimension)
	assert.Equal(t, 2, res.Value.TaskCount())
	assert.Equal(t, 3, res.Value.Milestones[0].Tasks[1].Priority, "priority defaults to 3")

	req := mock.Calls[0]
	assert.True(t, req.JSONMode)
	assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "6_months")
}

func TestDecomposeDimensionSpellings(t *testing.T) {
	raw := strings.Replace(validPlan, `"health"`, `"Self-Realization"`, 1)
	res := testEngine(llm.NewMockClient(raw)).Decompose(context.Background(), DecomposeInput{Prompt: "x"})
	require.Equal(t, SourceAI, res.Source, res.FallbackReason)
	assert.Equal(t, model.DimSelfRealization, res.Value.Goal.Dimension)

	raw = strings.Replace(validPlan, `"health"`, `"spirituality"`, 1)
	res = testEngine(llm.NewMockClient(raw)).Decompose(context.Background(), DecomposeInput{Prompt: "x"})
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonSchema, res.FallbackReason)
}

func TestDecomposeSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"missing smart field", `"measurable": "Race result",`, ""},
		{"empty tasks", `"tasks": [`, `"tasks": [], "x": [`},
		{"zero duration", `"estimatedDuration": 25`, `"estimatedDuration": 0`},
		{"bad energy", `"energyLevel": "medium"`, `"energyLevel": "extreme"`},
		{"bad priority", `"priority": 4`, `"priority": 9`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(validPlan, tt.from, tt.to, 1)
			require.NotEqual(t, validPlan, raw)
			res := testEngine(llm.NewMockClient(raw)).Decompose(context.Background(), DecomposeInput{Prompt: "x"})
			assert.Equal(t, SourceFallback, res.Source)
			assert.Equal(t, ReasonSchema, res.FallbackReason)
			assert.Equal(t, 3, res.Value.TaskCount())
		})
	}
}

func TestFallbackReasons(t *testing.T) {
	tests := []struct {
		name   string
		client *llm.MockClient
		want   string
	}{
		{"prose only", llm.NewMockClient("I cannot help with that."), ReasonParse},
		{"malformed json", llm.NewMockClient(`{"questions": [1, 2,, }`), ReasonParse},
		{"wrong types", llm.NewMockClient(`{"questions": "two"}`), ReasonParse},
		{"too few questions", llm.NewMockClient(`{"questions": [{"id": "a", "prompt": "p", "options": [{"value": "1", "label": "one"}, {"value": "2", "label": "two"}]}]}`), ReasonSchema},
		{"transport", &llm.MockClient{Err: errors.New("503")}, ReasonTransport},
		{"timeout", &llm.MockClient{Block: true}, ReasonTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testEngine(tt.client).Clarify(context.Background(), "", "get fit")
			assert.Equal(t, SourceFallback, res.Source)
			assert.Equal(t, tt.want, res.FallbackReason)
			assert.Len(t, res.Value.Questions, 2)
		})
	}
}

func TestCallerCancellationStillFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(&llm.MockClient{Block: true}, config.Default(), nil)
	start := time.Now()
	res := e.Decompose(ctx, DecomposeInput{Prompt: "write a novel"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonTimeout, res.FallbackReason)
	assert.Equal(t, 3, res.Value.TaskCount())
}

func TestClarifyAccepted(t *testing.T) {
	raw := `{"questions": [
	  {"id": "level", "prompt": "Current level?", "options": [{"value": "none", "label": "Never played"}, {"value": "some", "label": "A little"}]},
	  {"id": "time", "prompt": "Practice time?", "options": [{"value": "15", "label": "15 min"}, {"value": "30", "label": "30 min"}, {"value": "60", "label": "1 hour"}]}
	]}`
	res := testEngine(llm.NewMockClient(raw)).Clarify(context.Background(), "", "learn piano")
	require.Equal(t, SourceAI, res.Source, res.FallbackReason)
	assert.Len(t, res.Value.Questions, 2)
	assert.Equal(t, "level", res.Value.Questions[0].ID)
}

func TestClarifyDuplicateQuestionIDs(t *testing.T) {
	raw := `{"questions": [
	  {"id": "a", "prompt": "One?", "options": [{"value": "1", "label": "x"}, {"value": "2", "label": "y"}]},
	  {"id": "a", "prompt": "Two?", "options": [{"value": "1", "label": "x"}, {"value": "2", "label": "y"}]}
	]}`
	res := testEngine(llm.NewMockClient(raw)).Clarify(context.Background(), "", "learn piano")
	assert.Equal(t, ReasonSchema, res.FallbackReason)
}

func TestMemoryContextInPrompt(t *testing.T) {
	mock := llm.NewMockClient(validPlan)
	e := testEngine(mock)
	searcher := &stubSearcher{results: []engine.Result{
		{Memory: model.MemoryRecord{Type: model.TypePersonalTrait, Text: "Bad knee, avoid running downhill"}},
	}}
	e.Memories = searcher

	e.Decompose(context.Background(), DecomposeInput{OwnerID: "u1", Prompt: "half marathon"})

	require.Len(t, searcher.reqs, 1)
	assert.Equal(t, "u1", searcher.reqs[0].OwnerID)
	assert.Equal(t, "half marathon", searcher.reqs[0].Query)
	assert.Equal(t, 5, searcher.reqs[0].Limit)

	prompt := mock.Calls[0].Messages[len(mock.Calls[0].Messages)-1].Content
	assert.Contains(t, prompt, "Bad knee, avoid running downhill")
}

func TestMemoryContextFailureDegrades(t *testing.T) {
	mock := llm.NewMockClient(validPlan)
	e := testEngine(mock)
	e.Memories = &stubSearcher{err: errors.New("store offline")}

	res := e.Decompose(context.Background(), DecomposeInput{OwnerID: "u1", Prompt: "half marathon"})
	assert.Equal(t, SourceAI, res.Source)
}

// slowSearcher ignores cancellation, like a store stuck on I/O.
type slowSearcher struct {
	delay time.Duration
}

func (s slowSearcher) Search(_ context.Context, _ engine.SearchRequest) ([]engine.Result, error) {
	time.Sleep(s.delay)
	return []engine.Result{{Memory: model.MemoryRecord{Type: model.TypeKeyEvent, Text: "late result"}}}, nil
}

func TestMemoryContextBoundedByTimeout(t *testing.T) {
	mock := llm.NewMockClient(validPlan)
	e := testEngine(mock)
	e.Memories = slowSearcher{delay: 2 * time.Second}

	start := time.Now()
	res := e.Decompose(context.Background(), DecomposeInput{OwnerID: "u1", Prompt: "half marathon"})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceAI, res.Source)

	prompt := mock.Calls[0].Messages[len(mock.Calls[0].Messages)-1].Content
	assert.NotContains(t, prompt, "late result")

	start = time.Now()
	clar := testEngine(nil)
	clar.Memories = slowSearcher{delay: 2 * time.Second}
	c := clar.Clarify(context.Background(), "u1", "learn spanish")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, SourceFallback, c.Source)
}

func TestAdjustEnergyLowFallsBackToReschedule(t *testing.T) {
	res := testEngine(nil).Adjust(context.Background(), AdjustInput{Task: sampleTask(), Reason: model.ReasonEnergyLow})
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, model.AdjustReschedule, res.Value.AdjustmentType)
	require.NotEmpty(t, res.Value.Options)
	assert.Equal(t, string(model.AdjustReschedule), res.Value.Options[0].Action)
	assert.Equal(t, 1, res.Value.Options[0].ShiftDays)
}

func TestAdjustFallbackTable(t *testing.T) {
	want := map[model.ReasonCode]model.AdjustmentType{
		model.ReasonTimeInsufficient:  model.AdjustSplit,
		model.ReasonEnergyLow:         model.AdjustReschedule,
		model.ReasonExternalInterrupt: model.AdjustPostpone,
		model.ReasonPriorityChanged:   model.AdjustReschedule,
		model.ReasonForgot:            model.AdjustPostpone,
		model.ReasonOther:             model.AdjustPostpone,
		"":                            model.AdjustPostpone,
	}
	for reason, typ := range want {
		p := fallbackProposal(sampleTask(), reason)
		assert.Equal(t, typ, p.AdjustmentType, "reason %q", reason)
		assert.NoError(t, p.validate(sampleTask()), "reason %q", reason)
	}
}

func TestAdjustSplitHalvesDuration(t *testing.T) {
	p := fallbackProposal(sampleTask(), model.ReasonTimeInsufficient)
	split := p.Options[0]
	require.Len(t, split.Tasks, 2)
	assert.Equal(t, 22, split.Tasks[0].EstimatedDuration)
	assert.Equal(t, 23, split.Tasks[1].EstimatedDuration)
	assert.Equal(t, model.EnergyHigh, split.Tasks[0].EnergyLevel)

	tiny := sampleTask()
	tiny.EstimatedDuration = 1
	p = fallbackProposal(tiny, model.ReasonTimeInsufficient)
	assert.Equal(t, 1, p.Options[0].Tasks[0].EstimatedDuration)
	assert.Equal(t, 1, p.Options[0].Tasks[1].EstimatedDuration)
}

func TestAdjustAcceptedFillsDefaults(t *testing.T) {
	raw := `{"adjustmentType": "split", "rationale": " Smaller steps. ",
	  "options": [
	    {"label": "Two halves", "action": "split", "shiftDays": 4,
	     "tasks": [{"title": "First half", "estimatedDuration": 20}, {"title": "Second half", "estimatedDuration": 25, "energyLevel": "low"}]},
	    {"label": "Tomorrow", "action": "postpone"},
	    {"id": "x", "label": "Drop it", "action": "cancel", "shiftDays": 3}
	  ]}`
	res := testEngine(llm.NewMockClient(raw)).Adjust(context.Background(), AdjustInput{Task: sampleTask(), Reason: model.ReasonTimeInsufficient})
	require.Equal(t, SourceAI, res.Source, res.FallbackReason)

	p := res.Value
	assert.Equal(t, "Smaller steps.", p.Rationale)
	assert.Equal(t, "a", p.Options[0].ID)
	assert.Equal(t, 0, p.Options[0].ShiftDays)
	assert.Equal(t, model.EnergyHigh, p.Options[0].Tasks[0].EnergyLevel, "energy inherited from task")
	assert.Equal(t, model.EnergyLow, p.Options[0].Tasks[1].EnergyLevel)
	assert.Equal(t, "b", p.Options[1].ID)
	assert.Equal(t, 1, p.Options[1].ShiftDays)
	assert.Equal(t, "x", p.Options[2].ID)
	assert.Equal(t, 0, p.Options[2].ShiftDays)
}

func TestAdjustSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"unknown type":        `{"adjustmentType": "delegate", "rationale": "r", "options": [{"label": "l", "action": "cancel"}]}`,
		"no rationale":        `{"adjustmentType": "cancel", "rationale": "  ", "options": [{"label": "l", "action": "cancel"}]}`,
		"no options":          `{"adjustmentType": "cancel", "rationale": "r", "options": []}`,
		"unknown action":      `{"adjustmentType": "cancel", "rationale": "r", "options": [{"label": "l", "action": "ignore"}]}`,
		"split without tasks": `{"adjustmentType": "split", "rationale": "r", "options": [{"label": "l", "action": "split"}]}`,
		"reduce bad task":     `{"adjustmentType": "split", "rationale": "r", "options": [{"label": "l", "action": "reduce_scope", "tasks": [{"title": "", "estimatedDuration": 10}]}]}`,
		"shift too far":       `{"adjustmentType": "postpone", "rationale": "r", "options": [{"label": "l", "action": "postpone", "shiftDays": 90}]}`,
		"duplicate ids":       `{"adjustmentType": "cancel", "rationale": "r", "options": [{"id": "a", "label": "l", "action": "cancel"}, {"id": "a", "label": "m", "action": "cancel"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			res := testEngine(llm.NewMockClient(raw)).Adjust(context.Background(), AdjustInput{Task: sampleTask(), Reason: model.ReasonEnergyLow})
			assert.Equal(t, SourceFallback, res.Source)
			assert.Equal(t, ReasonSchema, res.FallbackReason)
			assert.Equal(t, model.AdjustReschedule, res.Value.AdjustmentType)
		})
	}
}

func TestClassifyAccepted(t *testing.T) {
	raw := `{"type": "Personal_Trait", "systemTags": ["habit", "bogus", "preference"], "confidence": 0.8, "impactScore": 42}`
	res := testEngine(llm.NewMockClient(raw)).Classify(context.Background(), "I run every morning")
	require.Equal(t, SourceAI, res.Source, res.FallbackReason)
	assert.Equal(t, model.TypePersonalTrait, res.Value.Type)
	assert.Equal(t, []model.SystemTag{model.TagPreference, model.TagHabit}, res.Value.SystemTags)
	assert.Equal(t, 0.8, res.Value.Confidence)
	assert.Equal(t, 10.0, res.Value.ImpactScore)
}

func TestClassifySchemaViolations(t *testing.T) {
	for _, raw := range []string{
		`{"type": "gossip", "confidence": 0.5, "impactScore": 1}`,
		`{"type": "key_event", "confidence": 1.5, "impactScore": 1}`,
		`{"type": "key_event", "impactScore": 1}`,
		`{"type": "key_event", "confidence": 0.5, "impactScore": -2}`,
	} {
		res := testEngine(llm.NewMockClient(raw)).Classify(context.Background(), "note")
		assert.Equal(t, ReasonSchema, res.FallbackReason, raw)
	}
}

func TestClassifyFallbackRules(t *testing.T) {
	tests := []struct {
		text string
		typ  model.MemoryType
		tags []model.SystemTag
	}{
		{"Mom's birthday is March 3", model.TypeDateReminder, nil},
		{"Dentist on 2026-11-02", model.TypeDateReminder, nil},
		{"Piano lesson every Tuesday", model.TypeDateReminder, []model.SystemTag{model.TagHabit}},
		{"I prefer working out before work", model.TypePersonalTrait, []model.SystemTag{model.TagPreference}},
		{"I never drink coffee", model.TypePersonalTrait, []model.SystemTag{model.TagPreference, model.TagConstraint}},
		{"We moved to Lisbon", model.TypeKeyEvent, []model.SystemTag{model.TagMilestone}},
		{"Allergic to peanuts", model.TypeImportantInfo, []model.SystemTag{model.TagConstraint}},
		{"The wifi password is on the fridge", model.TypeImportantInfo, nil},
	}
	for _, tt := range tests {
		c := fallbackClassification(tt.text)
		assert.Equal(t, tt.typ, c.Type, tt.text)
		assert.Equal(t, tt.tags, c.SystemTags, tt.text)
		assert.Equal(t, 0.5, c.Confidence)
		assert.Equal(t, 1.0, c.ImpactScore)
	}
}

func TestClassifyMemoryAdapter(t *testing.T) {
	var _ engine.Classifier = (*Engine)(nil)

	c, source := testEngine(nil).ClassifyMemory(context.Background(), "We moved to Lisbon")
	assert.Equal(t, "fallback", source)
	assert.Equal(t, model.TypeKeyEvent, c.Type)
}
