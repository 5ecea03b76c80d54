// Package intent translates a free-text prompt into the structured,
// schema-validated build intent that every downstream stage depends on.
// Validation here is strict all-or-nothing: a malformed intent must never
// silently corrupt the spec, so schema failure means total stage failure and
// the pipeline substitutes the deterministic fallback instead.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Layout kinds a navigation tab may use.
const (
	LayoutTool      = "tool"
	LayoutAnalyzer  = "analyzer"
	LayoutGenerator = "generator"
	LayoutDashboard = "dashboard"
	LayoutPlanner   = "planner"
)

// Output-format hints for the generated app's result area.
const (
	FormatMarkdown  = "markdown"
	FormatCards     = "cards"
	FormatScoreCard = "score_card"
	FormatReport    = "report"
	FormatList      = "list"
	FormatPlain     = "plain"
)

// Layouts is the closed set of tab layout kinds.
var Layouts = []string{LayoutTool, LayoutAnalyzer, LayoutGenerator, LayoutDashboard, LayoutPlanner}

// Formats is the closed set of output-format hints.
var Formats = []string{FormatMarkdown, FormatCards, FormatScoreCard, FormatReport, FormatList, FormatPlain}

// Icons is the closed set of icon names the reasoner may choose from.
var Icons = []string{
	"sparkles", "chart", "list", "calendar", "target", "bolt",
	"book", "beaker", "compass", "gift", "heart", "leaf",
	"music", "palette", "rocket", "shield", "star", "wrench",
}

// NavTab is one navigation entry in the reasoned intent.
type NavTab struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Icon    string `json:"icon"`
	Layout  string `json:"layout"`
	Purpose string `json:"purpose"`
}

// ReasonedIntent is the central intermediate artifact of the pipeline:
// the model's (or the fallback's) interpretation of the prompt as concrete
// product and design decisions. Immutable once produced.
type ReasonedIntent struct {
	NormalizedPrompt string   `json:"normalized_prompt"`
	AppNameHint      string   `json:"app_name_hint"`
	PrimaryGoal      string   `json:"primary_goal"`
	Domain           string   `json:"domain"`
	DesignPhilosophy string   `json:"design_philosophy"`
	TargetUser       string   `json:"target_user"`
	Differentiator   string   `json:"differentiator"`
	VisualStyle      []string `json:"visual_style"`
	PremiumFeatures  []string `json:"premium_features"`
	FeatureDetails   []string `json:"feature_details"`
	Tabs             []NavTab `json:"tabs"`
	PrimaryColor     string   `json:"primary_color"`
	ThemeStyle       string   `json:"theme_style"`
	AppIcon          string   `json:"app_icon"`
	OutputFormatHint string   `json:"output_format_hint"`
	LayoutBlueprint  string   `json:"layout_blueprint,omitempty"`
	AnimationStyle   string   `json:"animation_style,omitempty"`
	Narrative        string   `json:"narrative,omitempty"`
	ReasoningSummary string   `json:"reasoning_summary,omitempty"`
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// pureRedRe matches colors the policy forbids: pure and near-pure reds read
// as error states, so an out-of-policy color is replaced, not passed through.
// Red channel >= E0 with green and blue both <= 3F.
var pureRedRe = regexp.MustCompile(`^#(?i:[ef][0-9a-f][0-3][0-9a-f][0-3][0-9a-f])$`)

// replacementColor is used when the model picks an out-of-policy color.
const replacementColor = "#E11D48"

// Validate checks the closed-set invariants that the JSON schema cannot
// fully express and normalizes the color policy in place.
func (ri *ReasonedIntent) Validate() error {
	if len(ri.Tabs) < 2 || len(ri.Tabs) > 4 {
		return fmt.Errorf("intent must have 2-4 tabs, got %d", len(ri.Tabs))
	}
	seen := map[string]bool{}
	for i, tab := range ri.Tabs {
		if tab.ID == "" || tab.Label == "" {
			return fmt.Errorf("tab %d missing id or label", i)
		}
		if seen[tab.ID] {
			return fmt.Errorf("duplicate tab id %q", tab.ID)
		}
		seen[tab.ID] = true
		if !contains(Layouts, tab.Layout) {
			return fmt.Errorf("tab %q has unknown layout %q", tab.ID, tab.Layout)
		}
		if !contains(Icons, tab.Icon) {
			ri.Tabs[i].Icon = "sparkles"
		}
	}
	if !contains(Formats, ri.OutputFormatHint) {
		return fmt.Errorf("unknown output format hint %q", ri.OutputFormatHint)
	}
	if !hexColorRe.MatchString(ri.PrimaryColor) {
		return fmt.Errorf("primary color %q is not a 6-hex-digit color", ri.PrimaryColor)
	}
	if pureRedRe.MatchString(ri.PrimaryColor) {
		ri.PrimaryColor = replacementColor
	}
	if !contains(Icons, ri.AppIcon) {
		ri.AppIcon = "sparkles"
	}
	return nil
}

// PrimaryLayout returns the layout kind of the first tab, which selects the
// code generator's layout-specific system prompt.
func (ri *ReasonedIntent) PrimaryLayout() string {
	if len(ri.Tabs) == 0 {
		return LayoutTool
	}
	return ri.Tabs[0].Layout
}

// FallbackIntent builds the deterministic intent used when the reasoner is
// unavailable or fails. The pipeline must complete end-to-end without any
// model access, so this is a correctness requirement, not a convenience.
func FallbackIntent(prompt string) *ReasonedIntent {
	name := deriveName(prompt)
	return &ReasonedIntent{
		NormalizedPrompt: strings.TrimSpace(prompt),
		AppNameHint:      name,
		PrimaryGoal:      "help the user accomplish the task they described",
		Domain:           "general",
		DesignPhilosophy: "clean and focused",
		TargetUser:       "everyday user",
		Differentiator:   "instant, no-setup workflow",
		VisualStyle:      []string{"minimal", "modern"},
		PremiumFeatures:  []string{"Instant analysis", "Personalized results"},
		FeatureDetails:   []string{"Analyzes your input in seconds", "Tailors output to what you describe"},
		Tabs: []NavTab{
			{ID: "analyze", Label: "Analyze", Icon: "chart", Layout: LayoutAnalyzer, Purpose: "analyze the user's input"},
			{ID: "overview", Label: "Overview", Icon: "sparkles", Layout: LayoutDashboard, Purpose: "summarize results at a glance"},
		},
		PrimaryColor:     "#6366F1",
		ThemeStyle:       "light",
		AppIcon:          "sparkles",
		OutputFormatHint: FormatMarkdown,
		ReasoningSummary: "deterministic fallback intent",
	}
}

// deriveName extracts a short title-cased name from the prompt.
func deriveName(prompt string) string {
	words := strings.Fields(strings.TrimSpace(prompt))
	kept := make([]string, 0, 3)
	for _, w := range words {
		w = strings.Trim(w, `.,!?"'`)
		if w == "" {
			continue
		}
		lower := strings.ToLower(w)
		switch lower {
		case "a", "an", "the", "build", "make", "create", "me", "with", "for", "that", "app":
			continue
		}
		kept = append(kept, strings.ToUpper(lower[:1])+lower[1:])
		if len(kept) == 3 {
			break
		}
	}
	if len(kept) == 0 {
		return "My App"
	}
	return strings.Join(kept, " ")
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
