package llm

import (
	"encoding/json"
	"testing"
)

func TestRepairJSON_ValidPassesThrough(t *testing.T) {
	raw := `{"app_name": "Meal Planner", "pages": ["Plan", "Groceries"]}`

	repaired, stats, err := RepairJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.WasRepaired {
		t.Error("valid JSON must not be marked repaired")
	}
	if repaired != raw {
		t.Error("valid JSON must pass through unchanged")
	}
}

func TestRepairJSON_TrailingCommas(t *testing.T) {
	raw := `{"app_name": "Tracker", "pages": ["Home",],}`

	repaired, stats, err := RepairJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("expected repair to be recorded")
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("repaired JSON still invalid: %v", err)
	}
}

func TestRepairJSON_UnquotedKeysAndSingleQuotes(t *testing.T) {
	raw := `{app_name: 'Budget Buddy', primary_color: '#2563eb'}`

	repaired, _, err := RepairJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("repaired JSON still invalid: %v", err)
	}
	if out["app_name"] != "Budget Buddy" {
		t.Errorf("app_name = %q", out["app_name"])
	}
}

func TestRepairJSON_TruncatedPayload(t *testing.T) {
	// Simulates a response cut off at the token limit mid-array.
	raw := `{"app_name": "Recipe Box", "pages": ["Recipes", "Shopping`

	repaired, stats, err := RepairJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.WasRepaired {
		t.Error("expected repair to be recorded")
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		t.Fatalf("repaired JSON still invalid: %v", err)
	}
	if out["app_name"] != "Recipe Box" {
		t.Errorf("app_name lost during repair: %v", out)
	}
}

func TestRepairJSON_Unsalvageable(t *testing.T) {
	if _, _, err := RepairJSON("not json at all ::: ["); err == nil {
		// The jsonrepair library is aggressive, so this may legitimately
		// succeed; if it does, the output must at least parse.
		repaired, _, _ := RepairJSON("not json at all ::: [")
		var out interface{}
		if json.Unmarshal([]byte(repaired), &out) != nil {
			t.Error("RepairJSON returned nil error but output does not parse")
		}
	}
}
