package codegen

import (
	"fmt"
	"strings"

	"github.com/appforge/internal/intent"
	"github.com/appforge/internal/research"
)

// layoutGuides hold the layout-specific portion of the system prompt.
// Selecting one guide by the intent's primary tab layout keeps the prompt
// small: the model only sees the structural guidance it will actually use.
var layoutGuides = map[string]string{
	intent.LayoutTool: `LAYOUT: single-focus tool.
One prominent input zone at the top, a primary action button, results below.
Keep chrome minimal; the input is the hero.`,

	intent.LayoutAnalyzer: `LAYOUT: analyzer.
Input panel on top, analysis results in a two-column breakdown beneath it:
key findings on the left, a score or verdict summary on the right.`,

	intent.LayoutGenerator: `LAYOUT: generator.
Compact input form, generate button, and a large output canvas that fills
with generated content. Include a copy-to-clipboard affordance.`,

	intent.LayoutDashboard: `LAYOUT: dashboard.
A responsive stat-card grid on top (3-4 cards with number, label, trend),
then a main content panel. Cards must render with realistic demo values.`,

	intent.LayoutPlanner: `LAYOUT: planner.
A calendar-like or column-per-period grid as the main surface, with an
input drawer for adding entries. Show a pre-filled example week.`,
}

const structuralContract = `STRUCTURAL CONTRACT (mandatory):
- First lines: const { useState, useEffect } = React; then any helpers.
- Declare each UI piece as a capitalized function or const-arrow component.
- Exactly one top-level render call as the very last line:
  ReactDOM.render(<App />, document.getElementById('root'));
- Use only the design-token classes: app-shell, app-nav, card, card-grid,
  hero, field, btn-primary, btn-ghost, result-panel, stat-card, badge.
- Every feature needs explicit states: default, loading, result, error.
- First render must be non-empty with realistic demo data, never blank.
- Call the host bridge as callAI(systemPrompt, userText) for model features.`

const referenceExample = `REFERENCE (style to match, do not copy content):
const { useState } = React;
const Hero = ({ title, subtitle }) => (
  <div className="hero"><h1>{title}</h1><p>{subtitle}</p></div>
);
function App() {
  const [text, setText] = useState("");
  const [result, setResult] = useState(null);
  const [loading, setLoading] = useState(false);
  const [error, setError] = useState(null);
  const run = async () => {
    setLoading(true); setError(null);
    try { setResult(await callAI("You are a helpful analyst.", text)); }
    catch (e) { setError(e.message); }
    finally { setLoading(false); }
  };
  return (
    <div className="app-shell">
      <Hero title="Quick Analyzer" subtitle="Paste anything, get insight" />
      <textarea className="field" value={text} onChange={e => setText(e.target.value)} />
      <button className="btn-primary" onClick={run} disabled={loading}>
        {loading ? "Analyzing..." : "Run Analysis"}
      </button>
      {error && <div className="badge">{error}</div>}
      {result && <div className="result-panel">{result}</div>}
    </div>
  );
}
ReactDOM.render(<App />, document.getElementById('root'));`

// buildSystemPrompt assembles the layout-specific system prompt for one
// generation attempt.
func buildSystemPrompt(ri *intent.ReasonedIntent, brief *research.ContextBrief) string {
	guide, ok := layoutGuides[ri.PrimaryLayout()]
	if !ok {
		guide = layoutGuides[intent.LayoutTool]
	}

	var sb strings.Builder
	sb.WriteString("You are an expert front-end engineer generating a complete single-file React app.\n\n")
	fmt.Fprintf(&sb, "App: %s. Domain: %s. Goal: %s.\n", ri.AppNameHint, ri.Domain, ri.PrimaryGoal)
	fmt.Fprintf(&sb, "Design philosophy: %s. Target user: %s.\n", ri.DesignPhilosophy, ri.TargetUser)
	fmt.Fprintf(&sb, "Primary color: %s. Theme: %s. Output format: %s.\n", ri.PrimaryColor, ri.ThemeStyle, ri.OutputFormatHint)
	if len(ri.VisualStyle) > 0 {
		fmt.Fprintf(&sb, "Visual style: %s.\n", strings.Join(ri.VisualStyle, ", "))
	}

	sb.WriteString("\nTabs:\n")
	for _, tab := range ri.Tabs {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", tab.Label, tab.Layout, tab.Purpose)
	}
	if len(ri.PremiumFeatures) > 0 {
		sb.WriteString("\nFeatures:\n")
		for i, f := range ri.PremiumFeatures {
			detail := ""
			if i < len(ri.FeatureDetails) {
				detail = " - " + ri.FeatureDetails[i]
			}
			fmt.Fprintf(&sb, "- %s%s\n", f, detail)
		}
	}

	if guidance := brief.GuidanceText(); guidance != "" {
		sb.WriteString("\n" + guidance)
	}

	sb.WriteString("\n" + guide + "\n\n" + structuralContract + "\n\n" + referenceExample + "\n")
	sb.WriteString("\nRespond by calling the provided tool exactly once with the complete app.")
	return sb.String()
}
