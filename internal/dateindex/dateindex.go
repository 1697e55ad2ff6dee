// Package dateindex enumerates every calendar day in the fixed
// 2020-01-01..2026-12-31 window and assigns each a dense, chronologically
// ordered id, so that iterating 0..Count() yields sorted days.
package dateindex

import "fmt"

// FirstYear and LastYear bound the closed window this index covers.
// Widening the window requires upgrading isLeap beyond the %4 rule.
const (
	FirstYear = 2020
	LastYear  = 2026
)

// Index is read-only after Build and safe for concurrent readers.
type Index struct {
	idToDate []string // id -> "YYYY-MM-DD", ascending chronological order
	dateToID map[string]int32
}

// Build enumerates FirstYear..LastYear and assigns ids in ascending
// chronological order. It has no failure mode; it returns an error to
// keep its call site uniform with the rest of the pipeline's
// constructors (PathRegistry.Discover, Scanner.NewScanner in the
// teacher all return (*T, error)).
func Build() (*Index, error) {
	idx := &Index{
		dateToID: make(map[string]int32, 2560),
	}
	var id int32
	for year := FirstYear; year <= LastYear; year++ {
		for month := 1; month <= 12; month++ {
			days := daysInMonth(year, month)
			for day := 1; day <= days; day++ {
				full := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
				idx.idToDate = append(idx.idToDate, full)
				idx.dateToID[full[2:]] = id // "YY-MM-DD", "20" prefix implied
				id++
			}
		}
	}
	return idx, nil
}

// Count returns D, the number of distinct days in the window.
func (idx *Index) Count() int {
	return len(idx.idToDate)
}

// Date returns the canonical "YYYY-MM-DD" form for id.
func (idx *Index) Date(id int32) string {
	return idx.idToDate[id]
}

// Lookup returns the id for an 8-byte "YY-MM-DD" key and whether it was
// found. key is never retained: the string(key) conversion below is the
// map-index form the Go compiler recognizes and elides the allocation
// for, so callers may pass a slice borrowed from a read buffer.
func (idx *Index) Lookup(key []byte) (int32, bool) {
	id, ok := idx.dateToID[string(key)]
	return id, ok
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// isLeap uses the classic %4 rule. spec.md phrases this as
// (year+2000)%4==0 over a two-digit year offset; since year here is
// already the full four-digit year, that's equivalent to year%4==0.
// Correct for 2020-2099, not in general — the window has no century
// boundary so the full Gregorian rule is unneeded.
func isLeap(year int) bool {
	return year%4 == 0
}
