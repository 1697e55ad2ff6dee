// Package pathregistry assigns each distinct URL slug a dense id in
// first-seen order, the same map-as-registry approach as the date index,
// but discovered rather than enumerated: slugs aren't known ahead of
// time, so the registry is built by reading a prefix of the input
// instead of a fixed calendar window.
//
// Discovery runs in two phases (spec.md §4.2): a seed phase that inserts
// slugs carried over from a prior run's seed file in their original
// order, then a pre-scan phase that reads the first slice of the input
// file and inserts any further slugs it finds, in the order they first
// appear. Anything not seen by either phase is dropped silently when
// the aggregator later encounters it — the registry is never grown
// mid-aggregation.
package pathregistry

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/asterd/100-million-row-challenge/internal/layout"
)

// prescanWindowMin and prescanWindowMax bound how much of the input the
// pre-scan phase reads looking for slugs, per spec.md §4.2: "the first
// 8-16 MiB". The window grows to prescanWindowMax only when the file is
// large enough to have that much to offer.
const (
	prescanWindowMin = 8 << 20
	prescanWindowMax = 16 << 20
)

// Registry maps slugs to dense ids in first-seen order and is read-only
// once Discover returns.
type Registry struct {
	idToSlug  []string
	slugToID  map[string]int32
	dateCount int32
}

// Count returns P, the number of distinct slugs the registry holds.
func (r *Registry) Count() int {
	return len(r.idToSlug)
}

// Slug returns the URL slug assigned to id.
func (r *Registry) Slug(id int32) string {
	return r.idToSlug[id]
}

// Offset returns the flat matrix offset id*D for id — the base index the
// hot loop adds a date id onto to reach a specific (path, day) cell.
func (r *Registry) Offset(id int32) int32 {
	return id * r.dateCount
}

// Lookup returns the id for slug and whether it was found. slug is never
// retained by the registry: the string(slug) expression below is the
// no-allocation map-index form the compiler recognizes, so callers may
// pass a slice borrowed from a read buffer.
func (r *Registry) Lookup(slug []byte) (int32, bool) {
	id, ok := r.slugToID[string(slug)]
	return id, ok
}

// Seeds returns every registered slug in id order, for persisting back
// to a seed file so the next run reproduces the same ids.
func (r *Registry) Seeds() []string {
	out := make([]string, len(r.idToSlug))
	copy(out, r.idToSlug)
	return out
}

// Discover builds a Registry for inputPath. seeds are slugs carried over
// from a prior run (already stripped of the URL prefix) and are
// registered first, in order, so a re-run against a grown file keeps
// assigning the same ids to the same paths. dateCount is D, the date
// index's day count, used to pre-multiply each id's matrix offset.
func Discover(inputPath string, seeds []string, dateCount int) (*Registry, error) {
	r := &Registry{
		slugToID:  make(map[string]int32, 4096),
		dateCount: int32(dateCount),
	}

	for _, slug := range seeds {
		r.insert(slug)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("pathregistry: open %s: %w", inputPath, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("pathregistry: stat %s: %w", inputPath, err)
	}
	size := stat.Size()
	if size == 0 {
		return r, nil
	}

	window := prescanWindowMax
	if int64(window) > size {
		window = int(size)
	} else if window < prescanWindowMin {
		window = prescanWindowMin
	}

	buf := make([]byte, window)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("pathregistry: read prescan window: %w", err)
	}
	buf = buf[:n]

	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		// No complete line in the window; nothing further to discover
		// from the pre-scan. A caller relying solely on discovery (no
		// seeds) ends up with an empty registry, which is valid: every
		// line is then silently skipped as an unknown path.
		return r, nil
	}
	buf = buf[:last+1]

	for pos := 0; pos < len(buf); {
		nl := bytes.IndexByte(buf[pos:], '\n')
		if nl < 0 {
			break
		}
		nl += pos
		line := buf[pos:nl]
		pos = nl + 1

		if len(line) <= layout.URLPrefixLen+layout.LineTailLenNoNL {
			continue // too short to hold a non-empty slug, skip
		}
		slug := line[layout.URLPrefixLen : len(line)-layout.LineTailLenNoNL]
		r.insert(string(slug))
	}

	return r, nil
}

func (r *Registry) insert(slug string) {
	if _, ok := r.slugToID[slug]; ok {
		return
	}
	id := int32(len(r.idToSlug))
	r.idToSlug = append(r.idToSlug, slug)
	r.slugToID[slug] = id
}
