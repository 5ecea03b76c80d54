// Package research produces the best-effort competitive/design brief for a
// prompt's domain. The stage is explicitly non-fatal: any failure (timeout,
// malformed output, missing credentials) yields a nil brief and generation
// proceeds with degraded quality.
package research

import "strings"

// Bounds on the structured output arrays. The model is told these limits in
// the tool schema and they are re-enforced after decoding.
const (
	MaxCompetitors     = 5
	MaxMustHaves       = 8
	MaxDifferentiators = 5
	MaxUIComponents    = 8
)

// Competitor is one named product in the competitive landscape.
type Competitor struct {
	Name            string   `json:"name"`
	UXPatterns      []string `json:"ux_patterns"`
	VisualSignature string   `json:"visual_signature"`
	PricingModel    string   `json:"pricing_model"`
}

// Persona describes the target user.
type Persona struct {
	Role         string   `json:"role"`
	PainPoints   []string `json:"pain_points"`
	Expectations []string `json:"expectations"`
}

// DesignReferences is the visual-direction portion of the brief.
type DesignReferences struct {
	ColorPsychology string   `json:"color_psychology"`
	LayoutPattern   string   `json:"layout_pattern"`
	Typography      string   `json:"typography"`
	VisualMotifs    []string `json:"visual_motifs"`
}

// DomainTerminology holds the vocabulary the generated UI should speak.
type DomainTerminology struct {
	FieldLabels    []string `json:"field_labels"`
	CTAVerbs       []string `json:"cta_verbs"`
	SectionHeaders []string `json:"section_headers"`
}

// ContextBrief is the research artifact consumed by the intent reasoner and
// code generator. Every field has a default so a partially-malformed model
// response still yields a usable (if generic) brief.
type ContextBrief struct {
	Domain           string            `json:"domain"`
	Competitors      []Competitor      `json:"competitors"`
	TargetPersona    Persona           `json:"target_persona"`
	MustHaveFeatures []string          `json:"must_have_features"`
	Differentiators  []string          `json:"differentiators"`
	DesignRefs       DesignReferences  `json:"design_references"`
	Terminology      DomainTerminology `json:"domain_terminology"`
	UIComponents     []string          `json:"ui_component_suggestions"`
	AnimationStyle   string            `json:"animation_style"`
	LayoutBlueprint  string            `json:"layout_blueprint"`
}

// applyDefaults fills empty fields and trims arrays to their bounds so a
// partial decode is still usable downstream.
func (b *ContextBrief) applyDefaults() {
	if b.Domain == "" {
		b.Domain = "general productivity"
	}
	if b.TargetPersona.Role == "" {
		b.TargetPersona.Role = "everyday user"
	}
	if b.DesignRefs.ColorPsychology == "" {
		b.DesignRefs.ColorPsychology = "calm, trustworthy tones"
	}
	if b.DesignRefs.LayoutPattern == "" {
		b.DesignRefs.LayoutPattern = "single-column with card sections"
	}
	if b.DesignRefs.Typography == "" {
		b.DesignRefs.Typography = "clean sans-serif"
	}
	if b.AnimationStyle == "" {
		b.AnimationStyle = "subtle"
	}
	b.Competitors = b.Competitors[:min(len(b.Competitors), MaxCompetitors)]
	b.MustHaveFeatures = clampList(b.MustHaveFeatures, MaxMustHaves)
	b.Differentiators = clampList(b.Differentiators, MaxDifferentiators)
	b.UIComponents = clampList(b.UIComponents, MaxUIComponents)
}

func clampList(items []string, max int) []string {
	out := items[:0:len(items)]
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

// GuidanceText renders the brief as prose suitable for embedding in a
// downstream system prompt.
func (b *ContextBrief) GuidanceText() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Domain research:\n")
	sb.WriteString("- Domain: " + b.Domain + "\n")
	if len(b.Competitors) > 0 {
		names := make([]string, 0, len(b.Competitors))
		for _, c := range b.Competitors {
			names = append(names, c.Name)
		}
		sb.WriteString("- Competitors: " + strings.Join(names, ", ") + "\n")
	}
	if b.TargetPersona.Role != "" {
		sb.WriteString("- Target user: " + b.TargetPersona.Role + "\n")
	}
	if len(b.MustHaveFeatures) > 0 {
		sb.WriteString("- Must-have features: " + strings.Join(b.MustHaveFeatures, ", ") + "\n")
	}
	if len(b.Differentiators) > 0 {
		sb.WriteString("- Differentiators: " + strings.Join(b.Differentiators, ", ") + "\n")
	}
	sb.WriteString("- Visual direction: " + b.DesignRefs.ColorPsychology +
		"; layout " + b.DesignRefs.LayoutPattern +
		"; typography " + b.DesignRefs.Typography + "\n")
	if len(b.Terminology.FieldLabels) > 0 {
		sb.WriteString("- Field labels: " + strings.Join(b.Terminology.FieldLabels, ", ") + "\n")
	}
	if len(b.Terminology.CTAVerbs) > 0 {
		sb.WriteString("- CTA verbs: " + strings.Join(b.Terminology.CTAVerbs, ", ") + "\n")
	}
	if len(b.UIComponents) > 0 {
		sb.WriteString("- Suggested UI components: " + strings.Join(b.UIComponents, ", ") + "\n")
	}
	if b.LayoutBlueprint != "" {
		sb.WriteString("- Layout blueprint: " + b.LayoutBlueprint + "\n")
	}
	return sb.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
