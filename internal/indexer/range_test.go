package indexer

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeShortTail(t *testing.T) {
	got, err := SplitRange(1, 7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 ranges, got %+v", got)
	}
	if got[2].Len() != 1 {
		t.Fatalf("expected tail of 1 block, got %+v", got[2])
	}
}

func TestSplitRangeTopOfRange(t *testing.T) {
	got, err := SplitRange(math.MaxUint64-2, math.MaxUint64, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: math.MaxUint64 - 2, To: math.MaxUint64 - 1},
		{From: math.MaxUint64, To: math.MaxUint64},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestResolveRange(t *testing.T) {
	r, err := ResolveRange(0, 0, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (BlockRange{From: 1, To: 12}); r != want {
		t.Fatalf("range mismatch: %+v != %+v", r, want)
	}
	if r.Len() != 12 {
		t.Fatalf("expected 12 blocks, got %d", r.Len())
	}

	r, err = ResolveRange(4, 100, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (BlockRange{From: 4, To: 12}); r != want {
		t.Fatalf("range mismatch: %+v != %+v", r, want)
	}

	if _, err := ResolveRange(13, 0, 12); err == nil {
		t.Fatalf("expected error for start past head")
	}
	if _, err := ResolveRange(0, 0, 0); !errors.Is(err, ErrEmptyHistory) {
		t.Fatalf("expected ErrEmptyHistory, got %v", err)
	}
}
