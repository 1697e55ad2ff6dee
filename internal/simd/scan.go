// Package simd builds a bitmap of newline positions across a byte
// range, the same bitmap-then-bits.TrailingZeros64-walk shape the
// teacher's scanner uses for quotes/commas/newlines, narrowed to a
// single delimiter: this format has no quoting and a fixed-width line
// tail, so newlines are the only structural byte the hot loop needs to
// find (see internal/aggregate).
//
// HasAVX2/HasSSE42 report CPU capability bits; nothing in this repository
// calls them, and Scan does not dispatch on them — see DESIGN.md for why
// Scan itself is the scalar/SWAR fallback promoted to sole implementation
// rather than dispatching to hand-written SIMD assembly.
package simd

// Scan sets bit i of newlines[i/64] for every i where data[i] == '\n'.
// newlines must be pre-allocated with length >= (len(data)+63)/64.
func Scan(data []byte, newlines []uint64) {
	for i, b := range data {
		if b == '\n' {
			newlines[i/64] |= 1 << uint(i%64)
		}
	}
}
