package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/logging"
	"github.com/appforge/internal/research"
	"github.com/appforge/internal/schema"
)

// DefaultTimeout bounds the reasoning call.
const DefaultTimeout = 30 * time.Second

const reasonSystemPrompt = `You are a senior product designer turning an app idea into concrete
product and design decisions. Decide the app's name, goal, domain, target
user, differentiator, premium features, 2-4 navigation tabs (each with a
layout kind), a primary brand color, theme style, icon, and output format.

Color policy: pick a color that fits the domain's psychology. Never pick
pure or near-pure red; red reads as an error state.

Respond by calling the provided tool exactly once, with every required
field filled.`

// intentSchema is the strict validation contract for the reasoner's output.
// No field defaults: a violation here is a hard stage failure.
var intentSchema = fmt.Sprintf(`{
	"type": "object",
	"required": ["normalized_prompt", "app_name_hint", "primary_goal", "domain",
		"design_philosophy", "target_user", "differentiator", "visual_style",
		"premium_features", "feature_details", "tabs", "primary_color",
		"theme_style", "app_icon", "output_format_hint"],
	"properties": {
		"normalized_prompt": {"type": "string", "minLength": 1},
		"app_name_hint": {"type": "string", "minLength": 1},
		"primary_goal": {"type": "string", "minLength": 1},
		"domain": {"type": "string", "minLength": 1},
		"design_philosophy": {"type": "string"},
		"target_user": {"type": "string"},
		"differentiator": {"type": "string"},
		"visual_style": {"type": "array", "items": {"type": "string"}},
		"premium_features": {"type": "array", "items": {"type": "string"}},
		"feature_details": {"type": "array", "items": {"type": "string"}},
		"tabs": {
			"type": "array",
			"minItems": 2,
			"maxItems": 4,
			"items": {
				"type": "object",
				"required": ["id", "label", "icon", "layout", "purpose"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"label": {"type": "string", "minLength": 1},
					"icon": {"type": "string"},
					"layout": {"type": "string", "enum": %s},
					"purpose": {"type": "string"}
				}
			}
		},
		"primary_color": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
		"theme_style": {"type": "string"},
		"app_icon": {"type": "string"},
		"output_format_hint": {"type": "string", "enum": %s},
		"layout_blueprint": {"type": "string"},
		"animation_style": {"type": "string"},
		"narrative": {"type": "string"},
		"reasoning_summary": {"type": "string"}
	}
}`, mustJSON(Layouts), mustJSON(Formats))

var intentTool = llm.ToolSpec{
	Name:        "submit_build_intent",
	Description: "Submit the structured build intent for the requested app.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"normalized_prompt": map[string]interface{}{"type": "string"},
			"app_name_hint":     map[string]interface{}{"type": "string"},
			"primary_goal":      map[string]interface{}{"type": "string"},
			"domain":            map[string]interface{}{"type": "string"},
			"design_philosophy": map[string]interface{}{"type": "string"},
			"target_user":       map[string]interface{}{"type": "string"},
			"differentiator":    map[string]interface{}{"type": "string"},
			"visual_style":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"premium_features":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"feature_details":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"tabs": map[string]interface{}{
				"type": "array", "minItems": 2, "maxItems": 4,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":      map[string]interface{}{"type": "string"},
						"label":   map[string]interface{}{"type": "string"},
						"icon":    map[string]interface{}{"type": "string", "enum": Icons},
						"layout":  map[string]interface{}{"type": "string", "enum": Layouts},
						"purpose": map[string]interface{}{"type": "string"},
					},
					"required": []string{"id", "label", "icon", "layout", "purpose"},
				},
			},
			"primary_color":      map[string]interface{}{"type": "string"},
			"theme_style":        map[string]interface{}{"type": "string", "enum": []string{"light", "dark"}},
			"app_icon":           map[string]interface{}{"type": "string", "enum": Icons},
			"output_format_hint": map[string]interface{}{"type": "string", "enum": Formats},
			"layout_blueprint":   map[string]interface{}{"type": "string"},
			"animation_style":    map[string]interface{}{"type": "string"},
			"narrative":          map[string]interface{}{"type": "string"},
			"reasoning_summary":  map[string]interface{}{"type": "string"},
		},
		"required": []string{
			"normalized_prompt", "app_name_hint", "primary_goal", "domain",
			"design_philosophy", "target_user", "differentiator", "visual_style",
			"premium_features", "feature_details", "tabs", "primary_color",
			"theme_style", "app_icon", "output_format_hint",
		},
	},
}

// Reasoner runs the intent-reasoning stage.
type Reasoner struct {
	caller  *llm.ResilientCaller
	ledger  *budget.Ledger
	model   string
	timeout time.Duration
}

// NewReasoner creates a Reasoner. A zero timeout falls back to DefaultTimeout.
func NewReasoner(client llm.Client, ledger *budget.Ledger, model string, timeout time.Duration) *Reasoner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reasoner{
		caller:  llm.NewResilientCaller(client),
		ledger:  ledger,
		model:   model,
		timeout: timeout,
	}
}

// Reason translates the prompt (plus the optional research brief) into a
// ReasonedIntent. Returns nil on any failure; the pipeline substitutes the
// deterministic fallback so generation still completes.
func (r *Reasoner) Reason(ctx context.Context, prompt string, brief *research.ContextBrief, logger *logging.RunLogger) *ReasonedIntent {
	userPrompt := prompt
	if guidance := brief.GuidanceText(); guidance != "" {
		userPrompt = prompt + "\n\n" + guidance
	}

	outcome := r.caller.CompleteStructured(ctx, llm.StructuredCall{
		Request: llm.StructuredRequest{
			Request: llm.Request{
				Model:       r.model,
				System:      reasonSystemPrompt,
				Prompt:      userPrompt,
				Temperature: 0.7,
				MaxTokens:   3000,
			},
			Tool: intentTool,
		},
		Timeout: r.timeout,
		Label:   "intent reasoning",
		Logger:  logger,
	})

	if outcome.Response != nil {
		r.ledger.RecordSpend(llm.Cost(r.model, outcome.Response.Usage))
	}
	if outcome.Err != nil {
		log.Debug().Err(outcome.Err).Msg("intent reasoning failed, fallback intent will be used")
		if logger != nil {
			logger.LogError("intent reasoning", outcome.Err)
		}
		return nil
	}

	if err := schema.Strict(outcome.Payload, intentSchema); err != nil {
		log.Debug().Err(err).Msg("intent payload failed strict validation")
		if logger != nil {
			logger.LogError("intent validation", err)
		}
		return nil
	}

	ri := &ReasonedIntent{}
	if err := json.Unmarshal([]byte(outcome.Payload), ri); err != nil {
		return nil
	}
	if err := ri.Validate(); err != nil {
		log.Debug().Err(err).Msg("intent failed closed-set validation")
		return nil
	}
	return ri
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
