package center

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"automatic":    Automatic,
		"tomopy":       Automatic,
		" Manual ":     Manual,
		"user defined": Manual,
	}
	for text, want := range tests {
		got, err := ParseStrategy(text)
		if err != nil {
			t.Errorf("ParseStrategy(%q): unexpected error %v", text, err)
			continue
		}
		if got != want {
			t.Errorf("ParseStrategy(%q): expected %s, got %s", text, want, got)
		}
	}

	if _, err := ParseStrategy("gridrec"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("Expected ErrUnknownStrategy, got %v", err)
	}
}

func TestStrategyJSON(t *testing.T) {
	data, err := json.Marshal(Session{Enabled: true, Index180: 3, Strategy: Manual, ManualValue: 12})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"state":true,"image_0_file_index":0,"image_180_file_index":3,"algorithm_selected":"manual","user_value":12}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}

	var legacy Session
	if err := json.Unmarshal([]byte(`{"algorithm_selected":"tomopy"}`), &legacy); err != nil {
		t.Fatal(err)
	}
	if legacy.Strategy != Automatic {
		t.Errorf("Expected legacy tomopy to decode as automatic, got %s", legacy.Strategy)
	}

	if _, err := json.Marshal(Session{Strategy: Strategy(4)}); err == nil {
		t.Error("Expected marshal error for an unknown strategy")
	}
}

func TestSelectByAngleFallback(t *testing.T) {
	if got := SelectByAngle([]string{"a.tiff", "b.tiff"}); got != 0 {
		t.Errorf("Expected fallback to 0, got %d", got)
	}
	if _, err := ParseSelection("nearest"); err == nil {
		t.Error("Expected error for unknown selection")
	}
}
