package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTuning_Valid(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("DefaultTuning().Validate() error = %v", err)
	}
}

func TestTuning_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Tuning)
		wantErr bool
	}{
		{"default", func(*Tuning) {}, false},
		{"negative progress", func(tu *Tuning) { tu.InitialProgress = -1 }, true},
		{"morale above 100", func(tu *Tuning) { tu.InitialMorale = 101 }, true},
		{"zero budget", func(tu *Tuning) { tu.InitialBudget = 0 }, true},
		{"zero progress rate", func(tu *Tuning) { tu.BaseProgressRate = 0 }, true},
		{"negative bugs", func(tu *Tuning) { tu.InitialBugs = -5 }, true},
		{"threshold above 100", func(tu *Tuning) { tu.DebtBugThreshold = 150 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := DefaultTuning()
			tt.mutate(&tu)
			err := tu.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	content := "initial_morale: 50\nbase_progress_rate: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tu, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if tu.InitialMorale != 50 || tu.BaseProgressRate != 8 {
		t.Errorf("overrides not applied: %+v", tu)
	}
	// Omitted fields keep their defaults.
	if tu.InitialBudget != 100 || tu.DebtBugThreshold != 40 {
		t.Errorf("defaults not preserved: %+v", tu)
	}
}

func TestLoadTuning_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("initial_morale: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Error("LoadTuning() with out-of-range value = nil error")
	}
}

func TestLoadTuning_MissingFile(t *testing.T) {
	if _, err := LoadTuning(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadTuning() on missing file = nil error")
	}
}
