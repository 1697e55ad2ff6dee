package aggregate

import (
	"os"
	"testing"

	"github.com/asterd/100-million-row-challenge/internal/dateindex"
	"github.com/asterd/100-million-row-challenge/internal/pathregistry"
)

func setup(t *testing.T, lines string) (*pathregistry.Registry, *dateindex.Index, string) {
	t.Helper()
	dir := t.TempDir()
	p := dir + "/input.csv"
	if err := os.WriteFile(p, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dates, err := dateindex.Build()
	if err != nil {
		t.Fatalf("dateindex.Build: %v", err)
	}
	paths, err := pathregistry.Discover(p, nil, dates.Count())
	if err != nil {
		t.Fatalf("pathregistry.Discover: %v", err)
	}
	return paths, dates, p
}

func TestRunCountsKnownLines(t *testing.T) {
	lines := "https://stitcher.io/blog/foo,2024-01-15T10:00:00+00:00\n" +
		"https://stitcher.io/blog/foo,2024-01-15T11:00:00+00:00\n" +
		"https://stitcher.io/blog/bar,2024-01-16T10:00:00+00:00\n"
	paths, dates, _ := setup(t, lines)

	matrix := NewMatrix(paths.Count(), dates.Count())
	valid, total := Run([]byte(lines), paths, dates, matrix)

	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if valid != 3 {
		t.Fatalf("valid = %d, want 3", valid)
	}

	fooID, _ := paths.Lookup([]byte("foo"))
	d1, _ := dates.Lookup([]byte("24-01-15"))
	if got := matrix[paths.Offset(fooID)+d1]; got != 2 {
		t.Fatalf("foo@2024-01-15 = %d, want 2", got)
	}

	barID, _ := paths.Lookup([]byte("bar"))
	d2, _ := dates.Lookup([]byte("24-01-16"))
	if got := matrix[paths.Offset(barID)+d2]; got != 1 {
		t.Fatalf("bar@2024-01-16 = %d, want 1", got)
	}
}

func TestRunSkipsUnknownPath(t *testing.T) {
	lines := "https://stitcher.io/blog/foo,2024-01-15T10:00:00+00:00\n"
	paths, dates, _ := setup(t, lines)

	matrix := NewMatrix(paths.Count(), dates.Count())
	extra := lines + "https://stitcher.io/blog/never-seen,2024-01-15T10:00:00+00:00\n"
	valid, total := Run([]byte(extra), paths, dates, matrix)

	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if valid != 1 {
		t.Fatalf("valid = %d, want 1 (unknown path skipped)", valid)
	}
}

func TestRunSkipsMalformedLine(t *testing.T) {
	lines := "https://stitcher.io/blog/foo,2024-01-15T10:00:00+00:00\n"
	paths, dates, _ := setup(t, lines)

	matrix := NewMatrix(paths.Count(), dates.Count())
	extra := lines + "garbage-line-too-short\n"
	valid, total := Run([]byte(extra), paths, dates, matrix)

	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if valid != 1 {
		t.Fatalf("valid = %d, want 1 (malformed line skipped)", valid)
	}
}

func TestRunEmptyRegion(t *testing.T) {
	paths, dates, _ := setup(t, "https://stitcher.io/blog/foo,2024-01-15T10:00:00+00:00\n")
	matrix := NewMatrix(paths.Count(), dates.Count())
	valid, total := Run(nil, paths, dates, matrix)
	if valid != 0 || total != 0 {
		t.Fatalf("valid=%d total=%d, want 0,0", valid, total)
	}
}
