package llm

import (
	"math"
	"testing"
)

func TestCost_WeightedSum(t *testing.T) {
	usage := Usage{
		InputTokens:              1000,
		OutputTokens:             500,
		CacheReadInputTokens:     200,
		CacheCreationInputTokens: 100,
	}

	p := PricingFor(ModelSonnet)
	want := 1000*p.InputPerMTok/1e6 +
		100*p.CacheWritePerMTok/1e6 +
		200*p.CacheReadPerMTok/1e6 +
		500*p.OutputPerMTok/1e6

	got := Cost(ModelSonnet, usage)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Cost = %.9f, want %.9f", got, want)
	}

	// Sanity-check against hand-computed dollars for the Sonnet rates.
	if math.Abs(got-0.010935) > 1e-9 {
		t.Errorf("Cost = %.9f, want 0.010935", got)
	}
}

func TestCost_ClampsNegativeTokenCounts(t *testing.T) {
	usage := Usage{InputTokens: -50, OutputTokens: 100}

	p := PricingFor(ModelSonnet)
	want := 100 * p.OutputPerMTok / 1e6

	if got := Cost(ModelSonnet, usage); math.Abs(got-want) > 1e-12 {
		t.Errorf("Cost = %.9f, want %.9f (negative input must be clamped)", got, want)
	}
}

func TestCost_OpusCostsMore(t *testing.T) {
	usage := Usage{InputTokens: 1000, OutputTokens: 1000}

	if Cost(ModelOpus, usage) <= Cost(ModelSonnet, usage) {
		t.Error("Opus must price higher than Sonnet for identical usage")
	}
}

func TestPricingFor_UnknownModelFallsBack(t *testing.T) {
	if PricingFor("some-future-model") != PricingFor(ModelSonnet) {
		t.Error("unknown models must fall back to the Sonnet rate card")
	}
}
