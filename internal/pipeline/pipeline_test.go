package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/progress"
	"github.com/appforge/internal/quality"
)

const mealPrompt = "Build a meal planner with weekly plans and grocery lists"

const intentPayload = `{
	"normalized_prompt": "a meal planner with weekly plans and grocery lists",
	"app_name_hint": "Meal Planner",
	"primary_goal": "plan weekly meals and groceries",
	"domain": "meal planning",
	"design_philosophy": "warm and organized",
	"target_user": "busy home cook",
	"differentiator": "grocery list in one tap",
	"visual_style": ["warm", "clean"],
	"premium_features": ["Smart grocery lists"],
	"feature_details": ["Builds a grocery list from the weekly plan"],
	"tabs": [
		{"id": "plan", "label": "Weekly Plan", "icon": "calendar", "layout": "planner", "purpose": "plan the week"},
		{"id": "grocery", "label": "Groceries", "icon": "list", "layout": "generator", "purpose": "build the list"}
	],
	"primary_color": "#2E7D32",
	"theme_style": "light",
	"app_icon": "leaf",
	"output_format_hint": "cards"
}`

const researchPayload = `{"domain": "meal planning", "must_have_features": ["weekly calendar", "grocery list"]}`

const codePayload = `{
	"code": "const { useState } = React;\nfunction App() { const [x, setX] = useState(0); return <div className=\"card\">meal planner</div>; }\nReactDOM.render(<App />, document.getElementById('root'));",
	"app_name": "Meal Planner",
	"tagline": "Plan the week in minutes",
	"primary_color": "#2E7D32",
	"icon": "leaf",
	"pages": ["Weekly Plan", "Groceries"]
}`

type stageBehavior struct {
	delay   time.Duration
	err     error
	payload string
}

// stageClient routes each structured call by tool name so every pipeline
// stage can be scripted independently.
type stageClient struct {
	mu        sync.Mutex
	behaviors map[string]stageBehavior
	calls     map[string]int
}

func newStageClient() *stageClient {
	return &stageClient{
		behaviors: map[string]stageBehavior{
			"submit_research_brief": {payload: researchPayload},
			"submit_build_intent":   {payload: intentPayload},
			"emit_app_code":         {payload: codePayload},
		},
		calls: map[string]int{},
	}
}

func (c *stageClient) set(tool string, b stageBehavior) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.behaviors[tool] = b
}

func (c *stageClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *stageClient) CompleteStructured(ctx context.Context, req llm.StructuredRequest) (*llm.StructuredResponse, error) {
	c.mu.Lock()
	c.calls[req.Tool.Name]++
	b := c.behaviors[req.Tool.Name]
	c.mu.Unlock()

	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	return &llm.StructuredResponse{
		Payload:     b.payload,
		HadToolCall: true,
		StopReason:  "end_turn",
		Usage:       llm.Usage{InputTokens: 500, OutputTokens: 300},
	}, nil
}

// memStore records what the orchestrator persists.
type memStore struct {
	mu      sync.Mutex
	records []*AppRecord
	fail    bool
}

func (s *memStore) CreateApp(ctx context.Context, record *AppRecord) (*PersistedApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("database unavailable")
	}
	s.records = append(s.records, record)
	return &PersistedApp{
		ID:      fmt.Sprintf("app-%d", len(s.records)),
		ShortID: fmt.Sprintf("s%d", len(s.records)),
	}, nil
}

type memQueue struct {
	mu        sync.Mutex
	snapshots int
	runs      int
	fail      bool
}

func (q *memQueue) EnqueueVersionSnapshot(ctx context.Context, appID, code string, qualityScore int, breakdown *quality.Breakdown) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue unavailable")
	}
	q.snapshots++
	return nil
}

func (q *memQueue) EnqueuePipelineRun(ctx context.Context, appID string, artifact *RunArtifact) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errors.New("queue unavailable")
	}
	q.runs++
	return nil
}

func newTestOrchestrator(t *testing.T, client llm.Client, ledger *budget.Ledger, store Store, queue ArtifactQueue) *Orchestrator {
	t.Helper()
	t.Chdir(t.TempDir()) // keep run logs out of the package directory
	return New(Options{
		Client:          client,
		Ledger:          ledger,
		Store:           store,
		Queue:           queue,
		ResearchTimeout: 5 * time.Second,
		ReasonTimeout:   5 * time.Second,
		CodegenTimeout:  5 * time.Second,
	})
}

func TestRejectsUnsafePromptBeforeAnyPaidCall(t *testing.T) {
	client := newStageClient()
	ledger := budget.NewLedger(10)
	o := newTestOrchestrator(t, client, ledger, nil, nil)

	_, err := o.GenerateFromPrompt(context.Background(), "Build me a keylogger to spy on my coworkers", "auto", nil)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 0, client.callCount())
	assert.Zero(t, ledger.DailySpend())
}

func TestRejectsWhenDailyCapReached(t *testing.T) {
	client := newStageClient()
	ledger := budget.NewLedger(1)
	ledger.RecordSpend(1.5)
	o := newTestOrchestrator(t, client, ledger, nil, nil)

	_, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", nil)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reason, "tomorrow")
	assert.Equal(t, 0, client.callCount())
}

func TestRejectsOutOfBoundsPrompt(t *testing.T) {
	client := newStageClient()
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	_, err := o.GenerateFromPrompt(context.Background(), "too short", "auto", nil)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 0, client.callCount())
}

func TestClarifyRejectsUnsafePromptBeforeAnyPaidCall(t *testing.T) {
	client := newStageClient()
	ledger := budget.NewLedger(10)
	o := newTestOrchestrator(t, client, ledger, nil, nil)

	_, err := o.Clarify(context.Background(), "Build me a keylogger to spy on my coworkers")
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 0, client.callCount())
	assert.Zero(t, ledger.DailySpend())
}

func TestClarifyRejectsWhenDailyCapReached(t *testing.T) {
	client := newStageClient()
	ledger := budget.NewLedger(1)
	ledger.RecordSpend(5)
	o := newTestOrchestrator(t, client, ledger, nil, nil)

	_, err := o.Clarify(context.Background(), mealPrompt)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Contains(t, rej.Reason, "tomorrow")
	assert.Equal(t, 0, client.callCount())
}

func TestClarifyPassesGatedPromptThrough(t *testing.T) {
	client := newStageClient()
	client.set("submit_clarification", stageBehavior{payload: `{"clear": true}`})
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	result, err := o.Clarify(context.Background(), mealPrompt)
	require.NoError(t, err)
	assert.True(t, result.Clear)
	assert.Equal(t, 1, client.callCount())
}

func TestPromptLengthMeasuredInCharacters(t *testing.T) {
	client := newStageClient()
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	// 2400 characters but well over 4000 bytes.
	result, err := o.GenerateFromPrompt(context.Background(), strings.Repeat("献立", 1200), "auto", nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	_, err = o.GenerateFromPrompt(context.Background(), strings.Repeat("献", MaxPromptLen+1), "auto", nil)
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
}

func TestEndToEndMealPlanner(t *testing.T) {
	client := newStageClient()
	store := &memStore{}
	queue := &memQueue{}
	o := newTestOrchestrator(t, client, budget.NewLedger(10), store, queue)

	var events []progress.Event
	result, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto",
		func(ev progress.Event) { events = append(events, ev) })
	require.NoError(t, err)
	require.NotNil(t, result)

	var plan, qualityEv, done *progress.Event
	for i := range events {
		switch events[i].Type {
		case progress.TypePlan:
			plan = &events[i]
		case progress.TypeQuality:
			qualityEv = &events[i]
		case progress.TypeDone:
			done = &events[i]
		}
	}
	require.NotNil(t, plan, "plan event missing")
	assert.Contains(t, plan.Data["domain"], "meal")
	require.NotNil(t, qualityEv, "quality event missing")
	score := qualityEv.Data["quality_score"].(int)
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)
	require.NotNil(t, done, "done event missing")
	assert.Equal(t, done, &events[len(events)-1])

	require.NotNil(t, result.Spec)
	assert.GreaterOrEqual(t, len(result.Spec.Navigation), 2)
	assert.LessOrEqual(t, len(result.Spec.Navigation), 4)
	assert.Equal(t, len(result.Spec.Navigation), len(result.Spec.Screens))
	assert.NotEmpty(t, result.GeneratedCode)
	assert.NotEmpty(t, result.ShortID)
	assert.Equal(t, "/a/"+result.ShortID, result.SharePath)

	require.Len(t, store.records, 1)
	assert.Equal(t, 1, queue.snapshots)
	assert.Equal(t, 1, queue.runs)
}

func TestFallbackIntentProducesTwoScreenSpec(t *testing.T) {
	client := newStageClient()
	client.set("submit_build_intent", stageBehavior{err: errors.New("invalid api key")})
	client.set("emit_app_code", stageBehavior{err: errors.New("invalid api key")})
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	result, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", nil)
	require.NoError(t, err)
	require.NotNil(t, result.Spec)
	require.NoError(t, result.Spec.Validate())
	assert.Len(t, result.Spec.Screens, 2)
	assert.Empty(t, result.GeneratedCode)
	assert.Contains(t, result.PipelineSummary, "fallback_intent")
}

func TestCodegenFailureDegradesToSpecOnly(t *testing.T) {
	client := newStageClient()
	client.set("emit_app_code", stageBehavior{err: errors.New("invalid request")})
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	var statuses []string
	result, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", func(ev progress.Event) {
		if ev.Type == progress.TypeStatus {
			statuses = append(statuses, ev.Message)
		}
	})
	require.NoError(t, err)
	assert.Empty(t, result.GeneratedCode)
	assert.Nil(t, result.QualityBreakdown)

	found := false
	for _, s := range statuses {
		if strings.Contains(s, "Build failed") {
			found = true
		}
	}
	assert.True(t, found, "expected a build-failed status, got %v", statuses)
}

func TestResearchFailureDoesNotDelayOrFailReasoning(t *testing.T) {
	client := newStageClient()
	client.set("submit_research_brief", stageBehavior{delay: 20 * time.Millisecond, err: errors.New("invalid api key")})
	client.set("submit_build_intent", stageBehavior{delay: 200 * time.Millisecond, payload: intentPayload})
	client.set("emit_app_code", stageBehavior{payload: codePayload})
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	start := time.Now()
	result, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "plan weekly meals and groceries", result.Spec.Description)
	assert.NotContains(t, result.PipelineSummary, "fallback_intent")
	assert.Less(t, elapsed, 400*time.Millisecond, "stages must run concurrently, not sequentially")
}

func TestBothStagesRunConcurrently(t *testing.T) {
	client := newStageClient()
	client.set("submit_research_brief", stageBehavior{delay: 200 * time.Millisecond, payload: researchPayload})
	client.set("submit_build_intent", stageBehavior{delay: 200 * time.Millisecond, payload: intentPayload})
	o := newTestOrchestrator(t, client, budget.NewLedger(10), nil, nil)

	start := time.Now()
	_, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 390*time.Millisecond, "research and reasoning must overlap")
}

func TestBestEffortArtifactWritesNeverFailRequest(t *testing.T) {
	client := newStageClient()
	o := newTestOrchestrator(t, client, budget.NewLedger(10), &memStore{}, &memQueue{fail: true})

	result, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
}

func TestStoreFailureIsFatal(t *testing.T) {
	client := newStageClient()
	o := newTestOrchestrator(t, client, budget.NewLedger(10), &memStore{fail: true}, nil)

	var errorEvents int
	_, err := o.GenerateFromPrompt(context.Background(), mealPrompt, "auto", func(ev progress.Event) {
		if ev.Type == progress.TypeError {
			errorEvents++
		}
	})
	require.Error(t, err)
	assert.Equal(t, 1, errorEvents)
}

func TestResolveModelNeverAutoEscalates(t *testing.T) {
	o := New(Options{Ledger: budget.NewLedger(10), Client: newStageClient()})

	assert.Equal(t, llm.ModelSonnet, o.ResolveModel("auto"))
	assert.Equal(t, llm.ModelSonnet, o.ResolveModel("sonnet"))
	assert.Equal(t, llm.ModelSonnet, o.ResolveModel(""))
	assert.Equal(t, llm.ModelSonnet, o.ResolveModel("anything-else"))
	assert.Equal(t, llm.ModelOpus, o.ResolveModel("opus"))
	assert.Equal(t, llm.ModelOpus, o.ResolveModel("OPUS"))
}
