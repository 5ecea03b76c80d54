package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validIntent() *ReasonedIntent {
	return &ReasonedIntent{
		NormalizedPrompt: "a meal planner with weekly plans",
		AppNameHint:      "Meal Planner",
		PrimaryGoal:      "plan weekly meals",
		Domain:           "meal planning",
		DesignPhilosophy: "warm and organized",
		TargetUser:       "busy home cook",
		Differentiator:   "grocery list in one tap",
		VisualStyle:      []string{"warm", "clean"},
		PremiumFeatures:  []string{"Smart grocery lists"},
		FeatureDetails:   []string{"Builds a grocery list from the weekly plan"},
		Tabs: []NavTab{
			{ID: "plan", Label: "Weekly Plan", Icon: "calendar", Layout: LayoutPlanner, Purpose: "plan the week"},
			{ID: "grocery", Label: "Groceries", Icon: "list", Layout: LayoutGenerator, Purpose: "build the list"},
		},
		PrimaryColor:     "#2E7D32",
		ThemeStyle:       "light",
		AppIcon:          "leaf",
		OutputFormatHint: FormatCards,
	}
}

func TestValidateAccepts(t *testing.T) {
	ri := validIntent()
	require.NoError(t, ri.Validate())
}

func TestValidateTabCount(t *testing.T) {
	ri := validIntent()
	ri.Tabs = ri.Tabs[:1]
	assert.Error(t, ri.Validate())

	ri = validIntent()
	five := make([]NavTab, 5)
	for i := range five {
		five[i] = NavTab{ID: string(rune('a' + i)), Label: "T", Icon: "star", Layout: LayoutTool}
	}
	ri.Tabs = five
	assert.Error(t, ri.Validate())
}

func TestValidateRejectsUnknownLayout(t *testing.T) {
	ri := validIntent()
	ri.Tabs[0].Layout = "kanban"
	assert.Error(t, ri.Validate())
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	ri := validIntent()
	ri.OutputFormatHint = "yaml"
	assert.Error(t, ri.Validate())
}

func TestValidateRejectsBadColor(t *testing.T) {
	for _, color := range []string{"red", "#fff", "#12345g", "123456"} {
		ri := validIntent()
		ri.PrimaryColor = color
		assert.Error(t, ri.Validate(), "color %q", color)
	}
}

func TestValidateReplacesPureRed(t *testing.T) {
	for _, color := range []string{"#FF0000", "#ff0000", "#E81010", "#F20305"} {
		ri := validIntent()
		ri.PrimaryColor = color
		require.NoError(t, ri.Validate())
		assert.Equal(t, replacementColor, ri.PrimaryColor, "color %q", color)
	}
	// dark reds and pinks with real green/blue channels stay
	ri := validIntent()
	ri.PrimaryColor = "#E11D48"
	require.NoError(t, ri.Validate())
	assert.Equal(t, "#E11D48", ri.PrimaryColor)
}

func TestValidateSubstitutesUnknownIcons(t *testing.T) {
	ri := validIntent()
	ri.Tabs[0].Icon = "unicorn"
	ri.AppIcon = "dragon"
	require.NoError(t, ri.Validate())
	assert.Equal(t, "sparkles", ri.Tabs[0].Icon)
	assert.Equal(t, "sparkles", ri.AppIcon)
}

func TestValidateRejectsDuplicateTabIDs(t *testing.T) {
	ri := validIntent()
	ri.Tabs[1].ID = ri.Tabs[0].ID
	assert.Error(t, ri.Validate())
}

func TestFallbackIntentIsValid(t *testing.T) {
	ri := FallbackIntent("Build a meal planner with weekly plans and grocery lists")
	require.NoError(t, ri.Validate())
	assert.Len(t, ri.Tabs, 2)
	assert.Equal(t, LayoutAnalyzer, ri.Tabs[0].Layout)
	assert.NotEmpty(t, ri.AppNameHint)
	assert.NotEqual(t, "My App", ri.AppNameHint)
}

func TestFallbackIntentEmptyPrompt(t *testing.T) {
	ri := FallbackIntent("   ")
	require.NoError(t, ri.Validate())
	assert.Equal(t, "My App", ri.AppNameHint)
}

func TestPrimaryLayout(t *testing.T) {
	ri := validIntent()
	assert.Equal(t, LayoutPlanner, ri.PrimaryLayout())
	assert.Equal(t, LayoutTool, (&ReasonedIntent{}).PrimaryLayout())
}
