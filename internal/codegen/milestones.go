package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/appforge/internal/progress"
)

// lengthMilestone fires once when the accumulated source passes a character
// threshold. Thresholds fire strictly in ascending order as output grows.
type lengthMilestone struct {
	threshold int
	message   string
}

var lengthMilestones = []lengthMilestone{
	{200, "Scaffolding the app shell..."},
	{1500, "Compiling component modules..."},
	{4000, "Wiring up interactions and state..."},
	{7000, "Polishing layout and styling..."},
	{10000, "Adding finishing touches..."},
	{13000, "Finalizing the build..."},
}

// patternMilestone fires once, the first time its pattern appears in the
// accumulated source. Order depends on generated content.
type patternMilestone struct {
	re      *regexp.Regexp
	message string
}

var patternMilestones = []patternMilestone{
	{regexp.MustCompile(`useState\s*\(`), "Hooking up live state..."},
	{regexp.MustCompile(`lucide|LucideIcon|<Icon`), "Placing icons..."},
	{regexp.MustCompile(`callAI|fetch\s*\(|invokeModel`), "Connecting the AI engine..."},
	{regexp.MustCompile(`useEffect\s*\(`), "Adding lifecycle behavior..."},
	{regexp.MustCompile(`localStorage|sessionStorage`), "Enabling local persistence..."},
	{regexp.MustCompile(`@keyframes|transition[-:]|animate-`), "Animating the interface..."},
}

// componentRe matches function and const-arrow component declarations with a
// capitalized identifier.
var componentRe = regexp.MustCompile(
	`(?m)(?:function\s+([A-Z][A-Za-z0-9]*)\s*\(|const\s+([A-Z][A-Za-z0-9]*)\s*=\s*(?:\([^)]*\)|[A-Za-z0-9_]+)\s*=>)`)

// pathRule buckets a component name into a folder by keyword, evaluated
// first-match-wins.
type pathRule struct {
	re     *regexp.Regexp
	folder string
}

var pathRules = []pathRule{
	{regexp.MustCompile(`(?i)nav|header|footer|sidebar|layout|shell|topbar|appbar`), "src/components/layout"},
	{regexp.MustCompile(`(?i)card|list|grid|item|row|tile|badge|button|input|field`), "src/components/ui"},
	{regexp.MustCompile(`(?i)modal|dialog|drawer|popover|tooltip|toast|overlay`), "src/components/overlay"},
	{regexp.MustCompile(`(?i)score|chart|graph|stat|meter|gauge|ring|progress`), "src/components/data"},
}

const genericFolder = "src/components"

// ClassifyComponentPath buckets a component name into its folder.
func ClassifyComponentPath(name string) string {
	for _, rule := range pathRules {
		if rule.re.MatchString(name) {
			return rule.folder
		}
	}
	return genericFolder
}

// MilestoneTracker turns a sequence of growing source snapshots into one-shot
// progress events. State is scoped to a single generation attempt; never
// share a tracker across attempts.
type MilestoneTracker struct {
	emitter       *progress.Emitter
	nextLength    int
	patternFired  []bool
	seenComponent map[string]bool
	componentSeq  []string
}

// NewMilestoneTracker creates a tracker bound to an emitter.
func NewMilestoneTracker(emitter *progress.Emitter) *MilestoneTracker {
	return &MilestoneTracker{
		emitter:       emitter,
		patternFired:  make([]bool, len(patternMilestones)),
		seenComponent: make(map[string]bool),
	}
}

// Observe inspects the full accumulated source so far and emits any newly
// reached milestones. Each milestone fires at most once per tracker.
func (t *MilestoneTracker) Observe(source string) {
	for t.nextLength < len(lengthMilestones) && len(source) >= lengthMilestones[t.nextLength].threshold {
		t.emitter.Emit(progress.Event{
			Type:    progress.TypeWriting,
			Message: lengthMilestones[t.nextLength].message,
		})
		t.nextLength++
	}

	for i, pm := range patternMilestones {
		if !t.patternFired[i] && pm.re.MatchString(source) {
			t.patternFired[i] = true
			t.emitter.Emit(progress.Event{
				Type:    progress.TypeWriting,
				Message: pm.message,
			})
		}
	}

	for _, match := range componentRe.FindAllStringSubmatch(source, -1) {
		name := match[1]
		if name == "" {
			name = match[2]
		}
		if name == "" || t.seenComponent[name] {
			continue
		}
		t.seenComponent[name] = true
		t.componentSeq = append(t.componentSeq, name)
		t.emitter.Emit(progress.Event{
			Type:    progress.TypeWriting,
			Message: fmt.Sprintf("wrote %s/%s.jsx", ClassifyComponentPath(name), name),
		})
	}
}

// Finish emits the aggregate created event listing every detected component.
func (t *MilestoneTracker) Finish() {
	if len(t.componentSeq) == 0 {
		return
	}
	t.emitter.Emit(progress.Event{
		Type:    progress.TypeCreated,
		Message: fmt.Sprintf("Created %d components: %s", len(t.componentSeq), strings.Join(t.componentSeq, ", ")),
		Data:    map[string]interface{}{"components": append([]string(nil), t.componentSeq...)},
	})
}

// Components returns the detected component names in first-seen order.
func (t *MilestoneTracker) Components() []string {
	return append([]string(nil), t.componentSeq...)
}
