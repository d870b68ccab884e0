package vaulterrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := New(KindChunkCorrupt, "deadbeef", nil)
	if !errors.Is(err, ErrChunkCorrupt) {
		t.Fatalf("expected errors.Is to match ErrChunkCorrupt, got %v", err)
	}
	if errors.Is(err, ErrChunkMissing) {
		t.Fatalf("did not expect errors.Is to match ErrChunkMissing")
	}
}

func TestErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("get: %w", New(KindChunkMissing, "cafe", nil))

	var e *Error
	if !errors.As(wrapped, &e) {
		t.Fatalf("expected errors.As to find *Error in %v", wrapped)
	}
	if e.Kind != KindChunkMissing {
		t.Errorf("Kind = %v, want KindChunkMissing", e.Kind)
	}
	if e.Subject != "cafe" {
		t.Errorf("Subject = %q, want cafe", e.Subject)
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New(KindIOError, "/tmp/x", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	if !errors.Is(err, ErrIOError) {
		t.Fatalf("expected errors.Is to also match the Kind sentinel")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindSnapshotNotFound, "s1", nil)); got != KindSnapshotNotFound {
		t.Errorf("KindOf = %v, want KindSnapshotNotFound", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain error) = %v, want KindUnknown", got)
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := New(KindInvalidSnapshotID, "../evil", nil)
	want := `INVALID_SNAPSHOT_ID "../evil"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
