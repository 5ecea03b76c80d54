// Package quality scores generated code with pattern heuristics. This is a
// deliberate, cheap, explainable proxy for quality (a linter-style gate),
// not a semantic evaluator; it cannot tell working code from broken code,
// only whether the expected structural signals are present.
package quality

import (
	"math"
	"regexp"
	"strings"
)

// Breakdown is the seven independently computed sub-scores, each in [0,100].
type Breakdown struct {
	VisualHierarchy       int `json:"visual_hierarchy"`
	DomainSpecificity     int `json:"domain_specificity"`
	Responsiveness        int `json:"responsiveness"`
	InteractionRichness   int `json:"interaction_richness"`
	ComponentCompleteness int `json:"component_completeness"`
	BrandCohesion         int `json:"brand_cohesion"`
	FormatCompliance      int `json:"format_compliance"`
}

// Fixed category weights; they sum to 1.0.
const (
	weightVisual      = 0.20
	weightDomain      = 0.20
	weightResponsive  = 0.15
	weightInteraction = 0.15
	weightCompletness = 0.15
	weightBrand       = 0.10
	weightFormat      = 0.05
)

var visualPatterns = []*regexp.Regexp{
	regexp.MustCompile(`hero`),
	regexp.MustCompile(`<h1|<h2`),
	regexp.MustCompile(`card`),
	regexp.MustCompile(`font-(?:bold|semibold)|fontWeight`),
	regexp.MustCompile(`text-(?:xl|2xl|3xl|lg)|fontSize`),
}

var responsivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`sm:|md:|lg:`),
	regexp.MustCompile(`grid-cols|gridTemplateColumns`),
	regexp.MustCompile(`flex`),
	regexp.MustCompile(`max-w|maxWidth`),
	regexp.MustCompile(`@media|min-width`),
}

var interactionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`onClick`),
	regexp.MustCompile(`onChange`),
	regexp.MustCompile(`useState\s*\(`),
	regexp.MustCompile(`disabled`),
	regexp.MustCompile(`hover:|:hover|onMouseEnter`),
	regexp.MustCompile(`loading|isLoading`),
}

var completenessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`function\s+[A-Z]|const\s+[A-Z][A-Za-z0-9]*\s*=`),
	regexp.MustCompile(`error`),
	regexp.MustCompile(`loading`),
	regexp.MustCompile(`ReactDOM\.render|createRoot`),
	regexp.MustCompile(`catch\s*\(`),
}

var brandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#[0-9a-fA-F]{6}`),
	regexp.MustCompile(`primary`),
	regexp.MustCompile(`theme|Theme`),
	regexp.MustCompile(`logo|brand|app-nav|title`),
}

// formatPatterns are checked per output format; any single match means
// compliant. Compliance is near-binary on purpose: 90 when any format
// signal is present, 40 otherwise.
var formatPatterns = map[string][]*regexp.Regexp{
	"markdown":   {regexp.MustCompile(`(?i)markdown|remark|dangerouslySetInnerHTML|##\s`)},
	"cards":      {regexp.MustCompile(`card`), regexp.MustCompile(`grid`)},
	"score_card": {regexp.MustCompile(`(?i)score`), regexp.MustCompile(`(?i)rating|/100|percent`)},
	"report":     {regexp.MustCompile(`(?i)report|section|summary`)},
	"list":       {regexp.MustCompile(`<li|\.map\s*\(|list`)},
	"plain":      {regexp.MustCompile(`<p|<pre|result`)},
}

const (
	formatCompliantScore    = 90
	formatNonCompliantScore = 40
)

// Input is the triple the scorer evaluates.
type Input struct {
	Code         string
	Prompt       string
	OutputFormat string
}

// Result is the composite score plus its breakdown.
type Result struct {
	Score     int       `json:"quality_score"`
	Breakdown Breakdown `json:"quality_breakdown"`
}

// Score evaluates generated code. Pure and deterministic for a given input.
func Score(in Input) Result {
	code := in.Code

	b := Breakdown{
		VisualHierarchy:       patternScore(code, visualPatterns),
		DomainSpecificity:     domainScore(code, in.Prompt),
		Responsiveness:        patternScore(code, responsivePatterns),
		InteractionRichness:   patternScore(code, interactionPatterns),
		ComponentCompleteness: patternScore(code, completenessPatterns),
		BrandCohesion:         patternScore(code, brandPatterns),
		FormatCompliance:      formatScore(code, in.OutputFormat),
	}

	composite := float64(b.VisualHierarchy)*weightVisual +
		float64(b.DomainSpecificity)*weightDomain +
		float64(b.Responsiveness)*weightResponsive +
		float64(b.InteractionRichness)*weightInteraction +
		float64(b.ComponentCompleteness)*weightCompletness +
		float64(b.BrandCohesion)*weightBrand +
		float64(b.FormatCompliance)*weightFormat

	return Result{Score: clamp(int(math.Round(composite))), Breakdown: b}
}

// patternScore is the fraction of the pattern set present in the code, ×100.
func patternScore(code string, patterns []*regexp.Regexp) int {
	if code == "" {
		return 0
	}
	hits := 0
	for _, re := range patterns {
		if re.MatchString(code) {
			hits++
		}
	}
	return clamp(int(math.Round(float64(hits) / float64(len(patterns)) * 100)))
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// domainScore is the fraction of distinct prompt tokens (alphanumeric runs
// longer than 3 chars, lower-cased) that appear as substrings of the code.
func domainScore(code, prompt string) int {
	if code == "" {
		return 0
	}
	lowerCode := strings.ToLower(code)
	tokens := map[string]bool{}
	for _, tok := range tokenRe.FindAllString(strings.ToLower(prompt), -1) {
		if len(tok) > 3 {
			tokens[tok] = true
		}
	}
	if len(tokens) == 0 {
		return 50
	}
	hits := 0
	for tok := range tokens {
		if strings.Contains(lowerCode, tok) {
			hits++
		}
	}
	return clamp(int(math.Round(float64(hits) / float64(len(tokens)) * 100)))
}

func formatScore(code, format string) int {
	patterns, ok := formatPatterns[format]
	if !ok {
		patterns = formatPatterns["plain"]
	}
	for _, re := range patterns {
		if re.MatchString(code) {
			return formatCompliantScore
		}
	}
	return formatNonCompliantScore
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
