package seedstore

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingSidecarIsEmpty(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	s, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Seeds) != 0 {
		t.Fatalf("Seeds = %v, want empty", s.Seeds)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	s, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"a", "b", "c"}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(out)
	if err != nil {
		t.Fatalf("Load (reload): %v", err)
	}
	if len(reloaded.Seeds) != len(want) {
		t.Fatalf("Seeds = %v, want %v", reloaded.Seeds, want)
	}
	for i := range want {
		if reloaded.Seeds[i] != want[i] {
			t.Fatalf("Seeds[%d] = %q, want %q", i, reloaded.Seeds[i], want[i])
		}
	}
}

func TestSidecarPathNaming(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.json")
	s, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(filepath.Dir(out), "report.json.seeds.json")
	if s.path != want {
		t.Fatalf("path = %q, want %q", s.path, want)
	}
}

func TestSaveTruncatesToMax(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	s, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	big := make([]string, maxSeeds+10)
	for i := range big {
		big[i] = "x"
	}
	if err := s.Save(big); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(s.Seeds) != maxSeeds {
		t.Fatalf("Seeds len = %d, want %d", len(s.Seeds), maxSeeds)
	}
}
