// Package appspec defines the declarative application description and the
// pure, deterministic builder that produces it from a reasoned intent.
// No model call happens here; the spec is what the execution runtime replays
// unchanged for every subsequent run of the app.
package appspec

import (
	"fmt"

	"github.com/appforge/internal/intent"
	"github.com/appforge/internal/schema"
)

// Theme is the app-wide visual identity.
type Theme struct {
	PrimaryColor string `json:"primary_color"`
	Style        string `json:"style"`
	Icon         string `json:"icon"`
}

// NavItem is one entry in the app's navigation.
type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Hero is the headline block at the top of a screen.
type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	CTALabel string `json:"cta_label"`
}

// InputField is one user input on a screen.
type InputField struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	MaxLength   int      `json:"max_length,omitempty"`
	Required    bool     `json:"required"`
}

// AILogic is the model-call block of a screen. ContextTemplate references
// field keys as {{key}} placeholders; unresolved keys pass through at render
// time rather than failing at construction.
type AILogic struct {
	SystemPrompt    string  `json:"system_prompt"`
	ContextTemplate string  `json:"context_template"`
	Temperature     float64 `json:"temperature"`
	MaxTokens       int     `json:"max_tokens"`
}

// Screen is one navigable page of the app.
type Screen struct {
	NavID        string       `json:"nav_id"`
	Layout       string       `json:"layout"`
	Hero         Hero         `json:"hero"`
	Fields       []InputField `json:"fields"`
	AILogic      AILogic      `json:"ai_logic"`
	OutputFormat string       `json:"output_format"`
	OutputLabel  string       `json:"output_label"`
}

// AppSpec is the persisted, schema-validated description of a built app.
type AppSpec struct {
	Name        string    `json:"name"`
	Tagline     string    `json:"tagline"`
	Description string    `json:"description"`
	Theme       Theme     `json:"theme"`
	Navigation  []NavItem `json:"navigation"`
	Screens     []Screen  `json:"screens"`
}

const specSchema = `{
	"type": "object",
	"required": ["name", "tagline", "description", "theme", "navigation", "screens"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"tagline": {"type": "string"},
		"description": {"type": "string"},
		"theme": {
			"type": "object",
			"required": ["primary_color", "style", "icon"],
			"properties": {
				"primary_color": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}$"},
				"style": {"type": "string"},
				"icon": {"type": "string"}
			}
		},
		"navigation": {
			"type": "array",
			"minItems": 2,
			"maxItems": 4,
			"items": {
				"type": "object",
				"required": ["id", "label", "icon"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"label": {"type": "string", "minLength": 1},
					"icon": {"type": "string"}
				}
			}
		},
		"screens": {
			"type": "array",
			"minItems": 2,
			"maxItems": 4,
			"items": {
				"type": "object",
				"required": ["nav_id", "layout", "hero", "fields", "ai_logic", "output_format", "output_label"],
				"properties": {
					"nav_id": {"type": "string", "minLength": 1},
					"layout": {"type": "string"},
					"hero": {
						"type": "object",
						"required": ["title", "subtitle", "cta_label"]
					},
					"fields": {
						"type": "array",
						"minItems": 1,
						"maxItems": 6,
						"items": {
							"type": "object",
							"required": ["key", "label", "type"]
						}
					},
					"ai_logic": {
						"type": "object",
						"required": ["system_prompt", "context_template", "temperature", "max_tokens"]
					},
					"output_format": {"type": "string"},
					"output_label": {"type": "string"}
				}
			}
		}
	}
}`

// Validate runs the spec through strict schema validation.
func (s *AppSpec) Validate() error {
	return schema.Strict(s, specSchema)
}

// Build deterministically turns a reasoned intent into a validated AppSpec.
// A validation failure here means an internal bug, since every value is an
// already-validated intent field, so the error is returned as fatal rather
// than recovered from.
func Build(ri *intent.ReasonedIntent) (*AppSpec, error) {
	spec := &AppSpec{
		Name:        ri.AppNameHint,
		Tagline:     ri.Differentiator,
		Description: ri.PrimaryGoal,
		Theme: Theme{
			PrimaryColor: ri.PrimaryColor,
			Style:        ri.ThemeStyle,
			Icon:         ri.AppIcon,
		},
	}

	for i, tab := range ri.Tabs {
		spec.Navigation = append(spec.Navigation, NavItem{
			ID:    tab.ID,
			Label: tab.Label,
			Icon:  tab.Icon,
		})
		spec.Screens = append(spec.Screens, buildScreen(ri, tab, i == 0))
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("spec built from validated intent failed validation: %w", err)
	}
	return spec, nil
}

func buildScreen(ri *intent.ReasonedIntent, tab intent.NavTab, first bool) Screen {
	hero := Hero{
		Title:    tab.Label,
		Subtitle: tab.Purpose,
		CTALabel: "Generate",
	}
	if first {
		hero.Subtitle = ri.PrimaryGoal
		hero.CTALabel = "Run Analysis"
	}
	if hero.Subtitle == "" {
		hero.Subtitle = ri.PrimaryGoal
	}

	return Screen{
		NavID:  tab.ID,
		Layout: tab.Layout,
		Hero:   hero,
		Fields: []InputField{{
			Key:         "input",
			Label:       "Describe what you need",
			Type:        "textarea",
			Placeholder: "Type here...",
			MaxLength:   2000,
			Required:    true,
		}},
		AILogic: AILogic{
			SystemPrompt: fmt.Sprintf(
				"You are the %s assistant inside %q. Goal: %s. Help the user with: %s.",
				ri.Domain, ri.AppNameHint, ri.PrimaryGoal, tab.Purpose),
			ContextTemplate: "{{input}}",
			Temperature:     0.7,
			MaxTokens:       1500,
		},
		OutputFormat: ri.OutputFormatHint,
		OutputLabel:  "Results",
	}
}
