package jsonemit

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/asterd/100-million-row-challenge/internal/aggregate"
	"github.com/asterd/100-million-row-challenge/internal/dateindex"
	"github.com/asterd/100-million-row-challenge/internal/pathregistry"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "input.csv")
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

// render runs the full discover -> aggregate -> emit pipeline over
// contents and returns the emitted JSON bytes, mirroring spec.md §8's
// concrete end-to-end scenarios.
func render(t *testing.T, contents string) string {
	t.Helper()

	dates, err := dateindex.Build()
	if err != nil {
		t.Fatalf("dateindex.Build: %v", err)
	}

	p := writeTemp(t, contents)
	paths, err := pathregistry.Discover(p, nil, dates.Count())
	if err != nil {
		t.Fatalf("pathregistry.Discover: %v", err)
	}

	matrix := aggregate.NewMatrix(paths.Count(), dates.Count())
	aggregate.Run([]byte(contents), paths, dates, matrix)

	var buf bytes.Buffer
	if err := Write(&buf, paths, dates, matrix); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.String()
}

func TestEmptyFile(t *testing.T) {
	got := render(t, "")
	if got != "{}\n" {
		t.Fatalf("got %q, want %q", got, "{}\n")
	}
}

func TestSingleLine(t *testing.T) {
	got := render(t, "https://stitcher.io/blog/hello,2024-01-15T10:00:00+00:00\n")
	want := "{\n    \"\\/blog\\/hello\": {\n        \"2024-01-15\": 1\n    }\n}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTwoPathsTwoDays(t *testing.T) {
	got := render(t,
		"https://stitcher.io/blog/a,2024-01-15T00:00:00+00:00\n"+
			"https://stitcher.io/blog/b,2024-01-15T00:00:00+00:00\n"+
			"https://stitcher.io/blog/a,2024-01-16T00:00:00+00:00\n"+
			"https://stitcher.io/blog/a,2024-01-15T00:00:00+00:00\n")
	want := "{\n    \"\\/blog\\/a\": {\n        \"2024-01-15\": 2,\n        \"2024-01-16\": 1\n    }," +
		"\n    \"\\/blog\\/b\": {\n        \"2024-01-15\": 1\n    }\n}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSlugWithSlashEscaped(t *testing.T) {
	got := render(t, "https://stitcher.io/blog/sub/post,2024-02-29T00:00:00+00:00\n")
	want := "{\n    \"\\/blog\\/sub\\/post\": {\n        \"2024-02-29\": 1\n    }\n}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLeapDayRejectedOutsideLeapYear(t *testing.T) {
	// 2023 is not a leap year, so 2023-02-29 is never registered in
	// dateindex; the line contributes nothing and the path itself ends
	// up with zero total visits, so it's omitted entirely.
	got := render(t, "https://stitcher.io/blog/x,2023-02-29T00:00:00+00:00\n")
	if got != "{}\n" {
		t.Fatalf("got %q, want %q", got, "{}\n")
	}
}

func TestZeroVisitPathOmitted(t *testing.T) {
	// Seed a path with no registry entries; it should never appear.
	dates, _ := dateindex.Build()
	p := writeTemp(t, "")
	paths, err := pathregistry.Discover(p, []string{"ghost"}, dates.Count())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	matrix := aggregate.NewMatrix(paths.Count(), dates.Count())

	var buf bytes.Buffer
	if err := Write(&buf, paths, dates, matrix); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "{}\n" {
		t.Fatalf("got %q, want %q", got, "{}\n")
	}
}
