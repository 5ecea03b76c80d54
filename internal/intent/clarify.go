package intent

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/llm"
	"github.com/appforge/internal/logging"
)

// ClarifyQuestion is one follow-up question with concrete answer options for
// a caller-side disambiguation UI.
type ClarifyQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// ClarifyResult classifies a prompt as specific enough to build from.
type ClarifyResult struct {
	Clear         bool              `json:"clear"`
	RefinedPrompt string            `json:"refined_prompt,omitempty"`
	Questions     []ClarifyQuestion `json:"questions,omitempty"`
}

const clarifySystemPrompt = `You decide whether an app idea is specific enough to build from.
If it is, set clear to true and optionally provide a refined prompt.
If not, set clear to false and ask 2-3 short questions, each with 3-4
concrete options the user can pick from. Respond by calling the provided
tool exactly once.`

var clarifyTool = llm.ToolSpec{
	Name:        "submit_clarification",
	Description: "Report whether the prompt is clear, or ask follow-up questions.",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"clear":          map[string]interface{}{"type": "boolean"},
			"refined_prompt": map[string]interface{}{"type": "string"},
			"questions": map[string]interface{}{
				"type": "array", "minItems": 2, "maxItems": 3,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{"type": "string"},
						"options": map[string]interface{}{
							"type": "array", "minItems": 3, "maxItems": 4,
							"items": map[string]interface{}{"type": "string"},
						},
					},
					"required": []string{"question", "options"},
				},
			},
		},
		"required": []string{"clear"},
	},
}

// Clarify runs the advisory pre-stage. It fails open: any call or parse
// failure yields {Clear: true}, because clarification must never block the
// ability to proceed.
func (r *Reasoner) Clarify(ctx context.Context, prompt string, logger *logging.RunLogger) ClarifyResult {
	outcome := r.caller.CompleteStructured(ctx, llm.StructuredCall{
		Request: llm.StructuredRequest{
			Request: llm.Request{
				Model:       r.model,
				System:      clarifySystemPrompt,
				Prompt:      prompt,
				Temperature: 0.3,
				MaxTokens:   800,
			},
			Tool: clarifyTool,
		},
		Timeout: r.timeout,
		Label:   "clarification",
		Logger:  logger,
	})

	if outcome.Response != nil {
		r.ledger.RecordSpend(llm.Cost(r.model, outcome.Response.Usage))
	}
	if outcome.Err != nil {
		log.Debug().Err(outcome.Err).Msg("clarification failed open")
		return ClarifyResult{Clear: true}
	}

	var result ClarifyResult
	if err := json.Unmarshal([]byte(outcome.Payload), &result); err != nil {
		return ClarifyResult{Clear: true}
	}
	if !result.Clear && len(result.Questions) == 0 {
		// unclear verdict without questions is unusable, fail open
		return ClarifyResult{Clear: true}
	}
	return result
}
