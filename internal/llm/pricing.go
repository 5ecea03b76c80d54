package llm

// Model identifiers exposed to callers. The request-level model policy
// ("auto" and "sonnet" both resolve to the cheaper model, only an explicit
// "opus" escalates) lives in the pipeline; this file only knows about prices.
const (
	ModelSonnet = "claude-sonnet-4-20250514"
	ModelOpus   = "claude-opus-4-20250514"
)

// Pricing is the per-million-token rate card for one model. Cached and fresh
// input tokens are priced differently: cache writes cost 25% over the base
// input rate, cache reads 10% of it.
type Pricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
}

var priceTable = map[string]Pricing{
	ModelSonnet: {
		InputPerMTok:      3.0,
		OutputPerMTok:     15.0,
		CacheWritePerMTok: 3.75,
		CacheReadPerMTok:  0.30,
	},
	ModelOpus: {
		InputPerMTok:      15.0,
		OutputPerMTok:     75.0,
		CacheWritePerMTok: 18.75,
		CacheReadPerMTok:  1.50,
	},
}

// PricingFor returns the rate card for a model, falling back to the Sonnet
// rates for unknown model names so cost is never silently dropped.
func PricingFor(model string) Pricing {
	if p, ok := priceTable[model]; ok {
		return p
	}
	return priceTable[ModelSonnet]
}

// Cost computes the dollar cost of one call:
//
//	uncached_input×rate_in + cache_write×rate_cache_write +
//	cache_read×rate_cache_read + output×rate_out
//
// All token counts are clamped to non-negative before use.
func Cost(model string, usage Usage) float64 {
	p := PricingFor(model)

	in := float64(clampTokens(usage.InputTokens))
	out := float64(clampTokens(usage.OutputTokens))
	cacheWrite := float64(clampTokens(usage.CacheCreationInputTokens))
	cacheRead := float64(clampTokens(usage.CacheReadInputTokens))

	return in*p.InputPerMTok/1e6 +
		cacheWrite*p.CacheWritePerMTok/1e6 +
		cacheRead*p.CacheReadPerMTok/1e6 +
		out*p.OutputPerMTok/1e6
}

func clampTokens(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
