package common

import (
	"bytes"
	"testing"
)

func TestPutGetMatrixRoundTrip(t *testing.T) {
	counts := []uint32{0, 1, 4294967295, 42, 1000000}
	dst := make([]byte, MatrixBytes(len(counts)))
	PutMatrix(dst, counts)

	got := make([]uint32, len(counts))
	GetMatrix(got, dst)

	for i := range counts {
		if got[i] != counts[i] {
			t.Fatalf("cell %d = %d, want %d", i, got[i], counts[i])
		}
	}
}

func TestWriteReadMatrixRoundTrip(t *testing.T) {
	counts := make([]uint32, 5000)
	for i := range counts {
		counts[i] = uint32(i * 7 % 1000)
	}

	var buf bytes.Buffer
	if err := WriteMatrix(&buf, counts); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}

	got, err := ReadMatrix(&buf, len(counts))
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	for i := range counts {
		if got[i] != counts[i] {
			t.Fatalf("cell %d = %d, want %d", i, got[i], counts[i])
		}
	}
}

func TestAddIntoIsCommutative(t *testing.T) {
	a := []uint32{1, 2, 3}
	b := []uint32{10, 20, 30}

	acc1 := make([]uint32, 3)
	AddInto(acc1, a)
	AddInto(acc1, b)

	acc2 := make([]uint32, 3)
	AddInto(acc2, b)
	AddInto(acc2, a)

	for i := range acc1 {
		if acc1[i] != acc2[i] {
			t.Fatalf("cell %d: merge order changed result: %d vs %d", i, acc1[i], acc2[i])
		}
		if acc1[i] != a[i]+b[i] {
			t.Fatalf("cell %d = %d, want %d", i, acc1[i], a[i]+b[i])
		}
	}
}

func TestMatrixBytes(t *testing.T) {
	if got := MatrixBytes(1000); got != 4000 {
		t.Fatalf("MatrixBytes(1000) = %d, want 4000", got)
	}
}
