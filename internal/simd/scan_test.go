package simd

import (
	"math/bits"
	"testing"
)

func bitmapToPositions(bitmap []uint64, maxLen int) []int {
	var positions []int
	for wordIdx, word := range bitmap {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			pos := wordIdx*64 + tz
			if pos < maxLen {
				positions = append(positions, pos)
			}
			word &^= 1 << tz
		}
	}
	return positions
}

func TestScanFindsNewlines(t *testing.T) {
	input := []byte("a,b\nc,d\ne,f\n")
	bitmapLen := (len(input) + 63) / 64
	newlines := make([]uint64, bitmapLen)

	Scan(input, newlines)

	got := bitmapToPositions(newlines, len(input))
	want := []int{3, 7, 11}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestScanEmpty(t *testing.T) {
	Scan(nil, nil) // must not panic
}

func TestScanNoNewlines(t *testing.T) {
	input := []byte("abcdef")
	newlines := make([]uint64, 1)
	Scan(input, newlines)
	if newlines[0] != 0 {
		t.Fatalf("newlines = %x, want 0", newlines[0])
	}
}

func TestScanSpansMultipleWords(t *testing.T) {
	input := make([]byte, 130)
	for i := range input {
		input[i] = 'x'
	}
	input[0] = '\n'
	input[64] = '\n'
	input[129] = '\n'

	bitmapLen := (len(input) + 63) / 64
	newlines := make([]uint64, bitmapLen)
	Scan(input, newlines)

	got := bitmapToPositions(newlines, len(input))
	want := []int{0, 64, 129}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
