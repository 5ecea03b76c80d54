package llm

import (
	"context"
	"time"

	"github.com/appforge/internal/logging"
	"github.com/appforge/internal/retry"
)

// ResilientCaller wraps a Client with retry logic, per-call timeout handling,
// and payload repair. The streaming code-generation stage manages its own
// single attempt; everything else (clarify, research, reason) goes through
// this wrapper.
type ResilientCaller struct {
	client      Client
	retryConfig retry.Config
}

// NewResilientCaller creates a caller with the LLM-tuned retry defaults.
func NewResilientCaller(client Client) *ResilientCaller {
	return &ResilientCaller{
		client:      client,
		retryConfig: retry.LLMConfig(),
	}
}

// StructuredCall is one resilient structured request.
type StructuredCall struct {
	Request StructuredRequest
	Timeout time.Duration
	// Label names the stage for timeout errors ("context research", ...).
	Label  string
	Logger *logging.RunLogger
}

// StructuredOutcome carries the response plus resiliency bookkeeping.
type StructuredOutcome struct {
	Response *StructuredResponse
	// Payload is Response.Payload after repair, when repair was needed.
	Payload     string
	Repaired    bool
	RepairStats *RepairStats
	Attempts    int
	Err         error
}

// CompleteStructured performs the call with retry, timeout, and JSON repair.
// The returned outcome's Err is the stage's terminal error after all
// attempts; a repaired-but-parseable payload is a success.
func (rc *ResilientCaller) CompleteStructured(ctx context.Context, call StructuredCall) StructuredOutcome {
	outcome := StructuredOutcome{}

	result := retry.DoWithReason(ctx, rc.retryConfig, func() (error, string) {
		resp, err := WithTimeout(ctx, call.Timeout, call.Label, func(ctx context.Context) (*StructuredResponse, error) {
			return rc.client.CompleteStructured(ctx, call.Request)
		})
		if err != nil {
			return err, err.Error()
		}

		outcome.Response = resp
		outcome.Payload = resp.Payload

		if !resp.HadToolCall || resp.Payload == "" {
			return errNoToolCall, "no_tool_call"
		}

		repaired, stats, repairErr := RepairJSON(resp.Payload)
		if repairErr != nil {
			return repairErr, "json_repair_failed"
		}
		if stats.WasRepaired {
			outcome.Repaired = true
			outcome.RepairStats = &stats
			if call.Logger != nil {
				call.Logger.Log("Repaired %s payload (%d -> %d bytes, strategies: %v)",
					call.Label, stats.OriginalBytes, stats.RepairedBytes, stats.Strategies)
			}
		}
		outcome.Payload = repaired

		return nil, "success"
	}, call.Logger)

	outcome.Attempts = result.Attempts
	if !result.Success {
		outcome.Err = result.LastError
	}

	return outcome
}

type noToolCallError struct{}

func (noToolCallError) Error() string { return "model response contained no tool call" }

var errNoToolCall = noToolCallError{}
