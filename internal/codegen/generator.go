// Package codegen runs the streaming code-generation stage: one structured
// tool-call request whose partially-accumulated payload drives milestone
// progress events, bounded by a hard timeout with real cancellation.
package codegen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/intent"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/logging"
	"github.com/appforge/internal/progress"
	"github.com/appforge/internal/research"
)

// DefaultTimeout bounds the whole streaming call.
const DefaultTimeout = 300 * time.Second

// Result is the extracted outcome of a generation attempt.
type Result struct {
	Code         string   `json:"code"`
	AppName      string   `json:"app_name"`
	Tagline      string   `json:"tagline"`
	PrimaryColor string   `json:"primary_color"`
	Icon         string   `json:"icon"`
	Pages        []string `json:"pages"`
	Components   []string `json:"-"`
	Repaired     bool     `json:"-"`
	Truncated    bool     `json:"-"`
}

var codeTool = llm.ToolSpec{
	Name:        "emit_app_code",
	Description: "Emit the complete generated app as a single source file plus metadata.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"code":          map[string]interface{}{"type": "string", "description": "complete single-file React source"},
			"app_name":      map[string]interface{}{"type": "string"},
			"tagline":       map[string]interface{}{"type": "string"},
			"primary_color": map[string]interface{}{"type": "string"},
			"icon":          map[string]interface{}{"type": "string"},
			"pages":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"code", "app_name", "tagline", "primary_color", "icon", "pages"},
	},
}

// Generator runs the code-generation stage.
type Generator struct {
	client  llm.Client
	ledger  *budget.Ledger
	timeout time.Duration
}

// New creates a Generator. A zero timeout falls back to DefaultTimeout.
func New(client llm.Client, ledger *budget.Ledger, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{client: client, ledger: ledger, timeout: timeout}
}

// Generate issues one streaming structured call and extracts the result.
// Returns (nil, nil) when the model produced no usable payload: a terminal
// stage failure the caller degrades from, not a retryable condition. Provider
// errors and timeouts are returned as errors. Progress is derived from the
// raw streaming payload alone, so even an attempt that ultimately times out
// has emitted partial, useful milestones.
func (g *Generator) Generate(ctx context.Context, ri *intent.ReasonedIntent, originalPrompt, model string, brief *research.ContextBrief, emitter *progress.Emitter, logger *logging.RunLogger) (*Result, error) {
	tracker := NewMilestoneTracker(emitter)

	req := llm.StructuredRequest{
		Request: llm.Request{
			Model:       model,
			System:      buildSystemPrompt(ri, brief),
			Prompt:      originalPrompt,
			Temperature: 0.8,
			MaxTokens:   16000,
		},
		Tool: codeTool,
		OnSnapshot: func(raw string) {
			tracker.Observe(extractPartialCode(raw))
		},
	}

	resp, err := llm.WithTimeout(ctx, g.timeout, "code generation", func(ctx context.Context) (*llm.StructuredResponse, error) {
		return g.client.CompleteStructured(ctx, req)
	})
	if resp != nil {
		cost := llm.Cost(model, resp.Usage)
		g.ledger.RecordSpend(cost)
		if logger != nil {
			logger.Log("Code generation call: in=%d out=%d cache_read=%d cache_write=%d cost=$%.4f",
				resp.Usage.InputTokens, resp.Usage.OutputTokens,
				resp.Usage.CacheReadInputTokens, resp.Usage.CacheCreationInputTokens, cost)
		}
	}
	if err != nil {
		return nil, err
	}

	tracker.Finish()

	truncated := resp.StopReason == llm.StopReasonMaxTokens
	if truncated {
		emitter.Status("Output was cut short at the length limit; the app may need a rebuild.")
		if logger != nil {
			logger.Log("Code generation truncated at max tokens")
		}
	}

	if !resp.HadToolCall || resp.Payload == "" {
		log.Debug().Msg("code generation produced no tool call")
		return nil, nil
	}

	payload := resp.Payload
	repaired := false
	result := &Result{}
	if jsonErr := json.Unmarshal([]byte(payload), result); jsonErr != nil {
		fixed, stats, repairErr := llm.RepairJSON(payload)
		if repairErr != nil {
			log.Debug().Err(jsonErr).Msg("code payload unparseable and unrepairable")
			return nil, nil
		}
		if err := json.Unmarshal([]byte(fixed), result); err != nil {
			return nil, nil
		}
		repaired = stats.WasRepaired
		if repaired && logger != nil {
			logger.Log("Repaired code payload (%d -> %d bytes)", stats.OriginalBytes, stats.RepairedBytes)
		}
	}

	result.Code = stripCodeFences(result.Code)
	if result.Code == "" {
		return nil, nil
	}
	result.Components = tracker.Components()
	result.Repaired = repaired
	result.Truncated = truncated
	return result, nil
}
