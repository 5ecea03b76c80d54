package research

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/budget"
	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/logging"
	"github.com/appforge/internal/schema"
)

// DefaultTimeout bounds the research call.
const DefaultTimeout = 30 * time.Second

const cacheSize = 256

const systemPrompt = `You are a product researcher. Given a description of a small web app,
produce a competitive and design brief for its domain: the named competitors
and their UX patterns, the target persona, must-have and differentiating
features, design references (color psychology, layout, typography), the
domain's own terminology (field labels, CTA verbs, section headers), and
suggested UI components. Be concrete and specific to the domain. Respond by
calling the provided tool exactly once.`

var briefTool = llm.ToolSpec{
	Name:        "submit_research_brief",
	Description: "Submit the competitive/design research brief for the app domain.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"domain": map[string]interface{}{"type": "string"},
			"competitors": map[string]interface{}{
				"type":     "array",
				"maxItems": MaxCompetitors,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":             map[string]interface{}{"type": "string"},
						"ux_patterns":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"visual_signature": map[string]interface{}{"type": "string"},
						"pricing_model":    map[string]interface{}{"type": "string"},
					},
				},
			},
			"target_persona": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"role":         map[string]interface{}{"type": "string"},
					"pain_points":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"expectations": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
			},
			"must_have_features": map[string]interface{}{
				"type": "array", "maxItems": MaxMustHaves,
				"items": map[string]interface{}{"type": "string"},
			},
			"differentiators": map[string]interface{}{
				"type": "array", "maxItems": MaxDifferentiators,
				"items": map[string]interface{}{"type": "string"},
			},
			"design_references": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color_psychology": map[string]interface{}{"type": "string"},
					"layout_pattern":   map[string]interface{}{"type": "string"},
					"typography":       map[string]interface{}{"type": "string"},
					"visual_motifs":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
			},
			"domain_terminology": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"field_labels":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"cta_verbs":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"section_headers": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				},
			},
			"ui_component_suggestions": map[string]interface{}{
				"type": "array", "maxItems": MaxUIComponents,
				"items": map[string]interface{}{"type": "string"},
			},
			"animation_style": map[string]interface{}{"type": "string"},
			"layout_blueprint": map[string]interface{}{"type": "string"},
		},
		"required": []string{"domain"},
	},
}

// Researcher runs the context-research stage. Briefs are cached by prompt so
// repeated generations of the same idea do not re-pay for research.
type Researcher struct {
	caller  *llm.ResilientCaller
	ledger  *budget.Ledger
	model   string
	timeout time.Duration
	cache   *lru.Cache[string, *ContextBrief]
}

// New creates a Researcher. A zero timeout falls back to DefaultTimeout.
func New(client llm.Client, ledger *budget.Ledger, model string, timeout time.Duration) *Researcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cache, _ := lru.New[string, *ContextBrief](cacheSize)
	return &Researcher{
		caller:  llm.NewResilientCaller(client),
		ledger:  ledger,
		model:   model,
		timeout: timeout,
		cache:   cache,
	}
}

// Gather produces a ContextBrief for the prompt, or nil on any failure.
// Research is best-effort: a nil brief degrades downstream quality but must
// never abort generation.
func (r *Researcher) Gather(ctx context.Context, prompt string, logger *logging.RunLogger) *ContextBrief {
	if cached, ok := r.cache.Get(prompt); ok {
		if logger != nil {
			logger.Log("Research brief served from cache")
		}
		return cached
	}

	outcome := r.caller.CompleteStructured(ctx, llm.StructuredCall{
		Request: llm.StructuredRequest{
			Request: llm.Request{
				Model:       r.model,
				System:      systemPrompt,
				Prompt:      prompt,
				Temperature: 0.7,
				MaxTokens:   2000,
			},
			Tool: briefTool,
		},
		Timeout: r.timeout,
		Label:   "context research",
		Logger:  logger,
	})

	if outcome.Response != nil {
		r.ledger.RecordSpend(llm.Cost(r.model, outcome.Response.Usage))
	}
	if outcome.Err != nil {
		log.Debug().Err(outcome.Err).Msg("context research failed, continuing without brief")
		if logger != nil {
			logger.LogError("context research", outcome.Err)
		}
		return nil
	}

	brief := &ContextBrief{}
	if err := schema.DecodeRelaxed(outcome.Payload, brief); err != nil {
		log.Debug().Err(err).Msg("context research payload undecodable, continuing without brief")
		return nil
	}
	brief.applyDefaults()

	r.cache.Add(prompt, brief)
	return brief
}
