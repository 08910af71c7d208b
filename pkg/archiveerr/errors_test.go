package archiveerr

import (
	"errors"
	"testing"
)

func TestKindOfAndIs(t *testing.T) {
	err := New(InvalidPath, "test.Op", errors.New("boom"))
	kind, ok := KindOf(err)
	if !ok || kind != InvalidPath {
		t.Fatalf("KindOf = (%v, %v), want (InvalidPath, true)", kind, ok)
	}
	if !Is(err, InvalidPath) {
		t.Fatal("expected Is to report true for a matching kind")
	}
	if Is(err, Format) {
		t.Fatal("expected Is to report false for a non-matching kind")
	}
}

func TestKindOfFalseForPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatal("expected KindOf to report false for a non-archiveerr error")
	}
}

func TestAggregateErrNilWhenNoFailures(t *testing.T) {
	agg := &Aggregate{Succeeded: 3}
	if err := agg.Err(); err != nil {
		t.Fatalf("expected nil Err with no failures, got %v", err)
	}
}

func TestAggregateErrReportsPartialFailure(t *testing.T) {
	agg := &Aggregate{Succeeded: 2}
	agg.Record("bad/path", InvalidPath, errors.New("traversal"))

	err := agg.Err()
	if err == nil {
		t.Fatal("expected a non-nil error when failures were recorded")
	}
	if !Is(err, PartialFailure) {
		t.Fatalf("expected PartialFailure kind, got %v", err)
	}
}

func TestNilAggregateErrIsNil(t *testing.T) {
	var agg *Aggregate
	if err := agg.Err(); err != nil {
		t.Fatalf("expected a nil *Aggregate to report nil Err, got %v", err)
	}
}
