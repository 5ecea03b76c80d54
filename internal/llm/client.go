// Package llm is the model-provider boundary for the generation pipeline.
// Components depend only on the Client interface: a structured generation
// request with a system prompt, a user message, an optional tool/function
// schema, token/temperature limits, and a cancellation-aware context; the
// response carries the payload plus token-usage accounting.
package llm

import "context"

// Usage is the token accounting returned by the provider for one call.
// Cached and fresh input tokens are priced differently, so both are kept.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// Request carries the prompt and sampling parameters common to every call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ToolSpec describes the single tool/function call the model is constrained
// to emit. Parameters is a JSON-schema document.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// StructuredRequest is a generation request whose final payload must be the
// arguments of one tool call (schema-shaped JSON, not prose). OnSnapshot, if
// set, receives the growing raw payload as it streams; each call sees the
// full accumulated text so far.
type StructuredRequest struct {
	Request
	Tool       ToolSpec
	OnSnapshot func(raw string)
}

// StructuredResponse is the result of a structured generation.
type StructuredResponse struct {
	// Payload is the raw JSON arguments of the tool call; empty when the
	// model produced no tool call at all.
	Payload     string
	HadToolCall bool
	StopReason  string
	Usage       Usage
}

// Client is the capability every pipeline stage depends on. Every stage
// constrains the model to a tool call, so this is the only entry point.
type Client interface {
	CompleteStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error)
}

// StopReasonMaxTokens is the provider-normalized stop reason indicating the
// response was truncated at the output-token limit. Truncated output is the
// primary source of syntactically invalid generated code, so callers surface
// it distinctly.
const StopReasonMaxTokens = "max_tokens"
