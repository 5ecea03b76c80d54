package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/appforge/internal/metrics"
)

// Provider identifies a model-provider backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogleAI  Provider = "googleai"
	ProviderOllama    Provider = "ollama"
)

// Options configures a LangchainClient.
type Options struct {
	Provider Provider
	APIKey   string
	BaseURL  string
	// Default model; individual requests may override via Request.Model.
	Model string
	// Requests per second allowed against the provider. Zero disables
	// throttling.
	RateLimit float64
}

// LangchainClient implements Client on top of langchaingo model bindings.
type LangchainClient struct {
	llm     llms.Model
	options Options
	limiter *rate.Limiter
}

// NewLangchainClient creates a client for the configured provider.
func NewLangchainClient(ctx context.Context, options Options) (*LangchainClient, error) {
	var model llms.Model
	var err error

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.Model).
		Msg("Creating model-provider client")

	switch options.Provider {
	case ProviderAnthropic:
		model, err = createAnthropicModel(options)
	case ProviderOpenAI:
		model, err = createOpenAIModel(options)
	case ProviderGoogleAI:
		model, err = createGoogleAIModel(ctx, options)
	case ProviderOllama:
		model, err = createOllamaModel(options)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}

	var limiter *rate.Limiter
	if options.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RateLimit), 1)
	}

	return &LangchainClient{
		llm:     model,
		options: options,
		limiter: limiter,
	}, nil
}

func createAnthropicModel(options Options) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(options.APIKey),
		anthropic.WithModel(options.Model),
	}

	if options.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(options.BaseURL))
	}

	return anthropic.New(opts...)
}

func createOpenAIModel(options Options) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(options.APIKey),
		openai.WithModel(options.Model),
	}

	if options.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(options.BaseURL))
	}

	return openai.New(opts...)
}

func createGoogleAIModel(ctx context.Context, options Options) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(options.APIKey),
		googleai.WithDefaultModel(options.Model),
	}

	return googleai.New(ctx, opts...)
}

func createOllamaModel(options Options) (llms.Model, error) {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	opts := []ollama.Option{
		ollama.WithServerURL(baseURL),
		ollama.WithModel(options.Model),
	}

	return ollama.New(opts...)
}

func (c *LangchainClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *LangchainClient) callOptions(req Request) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	return opts
}

func messagesFor(req Request) []llms.MessageContent {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))
	return messages
}

// CompleteStructured issues a generation request constrained to a single
// tool call, optionally streaming accumulated payload snapshots to
// req.OnSnapshot as the provider emits them.
func (c *LangchainClient) CompleteStructured(ctx context.Context, req StructuredRequest) (*StructuredResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := c.callOptions(req.Request)
	opts = append(opts, llms.WithTools([]llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        req.Tool.Name,
			Description: req.Tool.Description,
			Parameters:  req.Tool.Parameters,
		},
	}}))

	// Accumulate streamed chunks; each chunk callback reports the full
	// payload so far. A mutex guards against providers that invoke the
	// streaming func from multiple goroutines.
	if req.OnSnapshot != nil {
		var mu sync.Mutex
		var accumulated strings.Builder
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			mu.Lock()
			accumulated.Write(chunk)
			snapshot := accumulated.String()
			mu.Unlock()
			req.OnSnapshot(snapshot)
			return nil
		}))
	}

	resp, err := c.llm.GenerateContent(ctx, messagesFor(req.Request), opts...)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	choice := resp.Choices[0]
	usage := usageFromInfo(choice.GenerationInfo)
	recordTokenMetrics(usage)

	result := &StructuredResponse{
		StopReason: normalizeStopReason(choice.StopReason),
		Usage:      usage,
	}

	switch {
	case len(choice.ToolCalls) > 0 && choice.ToolCalls[0].FunctionCall != nil:
		result.Payload = choice.ToolCalls[0].FunctionCall.Arguments
		result.HadToolCall = true
	case choice.FuncCall != nil:
		result.Payload = choice.FuncCall.Arguments
		result.HadToolCall = true
	}

	return result, nil
}

// usageFromInfo extracts token accounting from langchaingo's per-provider
// GenerationInfo map. Key spellings vary by backend, so several are probed.
func usageFromInfo(info map[string]interface{}) Usage {
	return Usage{
		InputTokens:              infoInt(info, "InputTokens", "input_tokens", "PromptTokens", "prompt_tokens"),
		OutputTokens:             infoInt(info, "OutputTokens", "output_tokens", "CompletionTokens", "completion_tokens"),
		CacheReadInputTokens:     infoInt(info, "CacheReadInputTokens", "cache_read_input_tokens"),
		CacheCreationInputTokens: infoInt(info, "CacheCreationInputTokens", "cache_creation_input_tokens"),
	}
}

func infoInt(info map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		v, ok := info[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// normalizeStopReason maps provider-specific stop reasons onto a small shared
// vocabulary; anything unrecognized passes through unchanged.
func normalizeStopReason(reason string) string {
	switch reason {
	case "max_tokens", "length", "MaxTokens":
		return StopReasonMaxTokens
	default:
		return reason
	}
}

func recordTokenMetrics(usage Usage) {
	metrics.TokensUsed.WithLabelValues("input").Add(float64(usage.InputTokens))
	metrics.TokensUsed.WithLabelValues("output").Add(float64(usage.OutputTokens))
	metrics.TokensUsed.WithLabelValues("cache_read").Add(float64(usage.CacheReadInputTokens))
	metrics.TokensUsed.WithLabelValues("cache_write").Add(float64(usage.CacheCreationInputTokens))
}
