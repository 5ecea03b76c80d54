package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/intent"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/progress"
)

const sampleCode = `const { useState } = React;
function TopNavBar() { return <nav className="app-nav" />; }
const ProductCard = ({item}) => <div className="card">{item}</div>;
function App() {
  const [text, setText] = useState("");
  return <div className="app-shell"><TopNavBar /><ProductCard item={text} /></div>;
}
ReactDOM.render(<App />, document.getElementById('root'));`

// streamingClient replays the final payload in growing snapshots before
// returning it, the way a real provider stream behaves.
type streamingClient struct {
	payload    string
	stopReason string
	noToolCall bool
	err        error
	usage      llm.Usage
}

func (s *streamingClient) CompleteStructured(ctx context.Context, req llm.StructuredRequest) (*llm.StructuredResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if req.OnSnapshot != nil {
		for i := 40; i < len(s.payload); i += 40 {
			req.OnSnapshot(s.payload[:i])
		}
		req.OnSnapshot(s.payload)
	}
	stop := s.stopReason
	if stop == "" {
		stop = "end_turn"
	}
	return &llm.StructuredResponse{
		Payload:     s.payload,
		HadToolCall: !s.noToolCall,
		StopReason:  stop,
		Usage:       s.usage,
	}, nil
}

func payloadFor(t *testing.T, code string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"code":          code,
		"app_name":      "Meal Planner",
		"tagline":       "Plan the week in minutes",
		"primary_color": "#2E7D32",
		"icon":          "leaf",
		"pages":         []string{"Weekly Plan", "Groceries"},
	})
	require.NoError(t, err)
	return string(raw)
}

func testGenIntent() *intent.ReasonedIntent {
	return intent.FallbackIntent("meal planner with weekly plans")
}

func TestGenerateExtractsResultAndEmitsMilestones(t *testing.T) {
	client := &streamingClient{
		payload: payloadFor(t, sampleCode),
		usage:   llm.Usage{InputTokens: 1200, OutputTokens: 900},
	}
	g := New(client, budget.NewLedger(10), time.Second)

	var events []progress.Event
	emitter := progress.NewEmitter(func(ev progress.Event) { events = append(events, ev) })

	result, err := g.Generate(context.Background(), testGenIntent(), "meal planner", llm.ModelSonnet, nil, emitter, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, sampleCode, result.Code)
	assert.Equal(t, "Meal Planner", result.AppName)
	assert.Contains(t, result.Components, "TopNavBar")
	assert.Contains(t, result.Components, "App")

	var writing, created int
	for _, ev := range events {
		switch ev.Type {
		case progress.TypeWriting:
			writing++
		case progress.TypeCreated:
			created++
		}
	}
	assert.Greater(t, writing, 0)
	assert.Equal(t, 1, created)
}

func TestGenerateNilWithoutToolCall(t *testing.T) {
	client := &streamingClient{payload: "", noToolCall: true}
	g := New(client, budget.NewLedger(10), time.Second)

	result, err := g.Generate(context.Background(), testGenIntent(), "x", llm.ModelSonnet, nil, progress.NewEmitter(nil), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGenerateNilOnEmptyCode(t *testing.T) {
	client := &streamingClient{payload: payloadFor(t, "```jsx\n\n```")}
	g := New(client, budget.NewLedger(10), time.Second)

	result, err := g.Generate(context.Background(), testGenIntent(), "x", llm.ModelSonnet, nil, progress.NewEmitter(nil), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGenerateStripsFences(t *testing.T) {
	client := &streamingClient{payload: payloadFor(t, "```jsx\nconst x = 1;\n```")}
	g := New(client, budget.NewLedger(10), time.Second)

	result, err := g.Generate(context.Background(), testGenIntent(), "x", llm.ModelSonnet, nil, progress.NewEmitter(nil), nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "const x = 1;", result.Code)
}

func TestGenerateSurfacesTruncation(t *testing.T) {
	client := &streamingClient{
		payload:    payloadFor(t, sampleCode),
		stopReason: llm.StopReasonMaxTokens,
	}
	g := New(client, budget.NewLedger(10), time.Second)

	var statuses []string
	emitter := progress.NewEmitter(func(ev progress.Event) {
		if ev.Type == progress.TypeStatus {
			statuses = append(statuses, ev.Message)
		}
	})

	result, err := g.Generate(context.Background(), testGenIntent(), "x", llm.ModelSonnet, nil, emitter, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Truncated)
	require.Len(t, statuses, 1)
	assert.Contains(t, statuses[0], "cut short")
}

func TestGeneratePropagatesProviderError(t *testing.T) {
	client := &streamingClient{err: errors.New("overloaded_error")}
	g := New(client, budget.NewLedger(10), time.Second)

	_, err := g.Generate(context.Background(), testGenIntent(), "x", llm.ModelSonnet, nil, progress.NewEmitter(nil), nil)
	assert.Error(t, err)
}

func TestGenerateRecordsExactMultiTierCost(t *testing.T) {
	client := &streamingClient{
		payload: payloadFor(t, sampleCode),
		usage: llm.Usage{
			InputTokens:              1000,
			OutputTokens:             500,
			CacheReadInputTokens:     200,
			CacheCreationInputTokens: 100,
		},
	}
	ledger := budget.NewLedger(10)
	g := New(client, ledger, time.Second)

	_, err := g.Generate(context.Background(), testGenIntent(), "x", llm.ModelSonnet, nil, progress.NewEmitter(nil), nil)
	require.NoError(t, err)

	// 1000×3 + 100×3.75 + 200×0.30 + 500×15, all per MTok
	want := (1000*3.0 + 100*3.75 + 200*0.30 + 500*15.0) / 1e6
	assert.InDelta(t, want, ledger.DailySpend(), 1e-12)
}
