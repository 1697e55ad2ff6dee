// Package seedstore persists the list of previously seen URL slugs to a
// sidecar JSON file next to the output, so a later run against a grown
// input file assigns the same ids to the same paths (spec.md §4.2's
// "seed phase"). It is the same sidecar-metadata pattern the teacher
// uses to carry virtual-column schema between runs, adapted here to
// carry path-registry seeds instead.
package seedstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// maxSeeds caps how many slugs a Store will persist. A run against an
// adversarially wide input could otherwise grow the sidecar without
// bound; beyond this many distinct paths, newer slugs still aggregate
// correctly within that run, they just aren't carried forward as seeds.
const maxSeeds = 1_000_000

// Store holds the seed slug list for one output path and guards Save
// with a mutex, so concurrent Save calls on one Store do not interleave.
type Store struct {
	Seeds []string `json:"seeds"`

	path string
	mu   sync.Mutex
}

// Load reads the seed sidecar for outputPath if it exists. A missing
// sidecar is not an error: it means this is the first run against this
// output, so Store starts with an empty seed list.
func Load(outputPath string) (*Store, error) {
	s := &Store{path: seedPath(outputPath)}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Seeds == nil {
		s.Seeds = []string{}
	}
	return s, nil
}

// LoadFrom reads a seed sidecar from an explicit path rather than one
// derived from an output path, for the CLI's --seeds override flag. A
// missing file is not an error, same as Load.
func LoadFrom(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Seeds == nil {
		s.Seeds = []string{}
	}
	return s, nil
}

// Save writes slugs to the sidecar, truncated to maxSeeds in first-seen
// order (the order callers care about preserving is the low end: ids
// assigned to the earliest-seen paths).
func (s *Store) Save(slugs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(slugs) > maxSeeds {
		slugs = slugs[:maxSeeds]
	}
	s.Seeds = slugs

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func seedPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	return filepath.Join(dir, base+".seeds.json")
}
