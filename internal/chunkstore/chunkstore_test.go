package chunkstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapvault/internal/vaulterrors"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir(), nil)
	data := []byte("hello world")

	h, reused, err := s.Put(data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if reused {
		t.Error("first Put should not be reused")
	}

	got, err := s.Get(h)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}
}

func TestPutDedupes(t *testing.T) {
	s := New(t.TempDir(), nil)
	data := []byte("repeat me")

	h1, reused1, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if reused1 {
		t.Fatal("first put should be new")
	}

	h2, reused2, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hashes differ across identical puts: %v vs %v", h1, h2)
	}
	if !reused2 {
		t.Error("second put of identical content should report reused=true")
	}
}

func TestHas(t *testing.T) {
	s := New(t.TempDir(), nil)
	h, _, err := s.Put([]byte("present"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Has(h) {
		t.Error("Has should report true for a placed chunk")
	}

	missing, _ := ParseChunkHash(strings.Repeat("0", 64))
	if s.Has(missing) {
		t.Error("Has should report false for an absent chunk")
	}
}

func TestGetMissing(t *testing.T) {
	s := New(t.TempDir(), nil)
	h, _ := ParseChunkHash(strings.Repeat("0", 64))
	_, err := s.Get(h)
	if vaulterrors.KindOf(err) != vaulterrors.KindChunkMissing {
		t.Fatalf("err = %v, want CHUNK_MISSING", err)
	}
}

func TestGetCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	h, _, err := s.Put([]byte("original content"))
	if err != nil {
		t.Fatal(err)
	}

	// Overwrite the chunk file with garbage of the same length.
	if err := os.WriteFile(s.ChunkPath(h), []byte("GARBAGE-same-len"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = s.Get(h)
	if vaulterrors.KindOf(err) != vaulterrors.KindChunkCorrupt {
		t.Fatalf("err = %v, want CHUNK_CORRUPT", err)
	}
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir(), nil)
	h, _, err := s.Put([]byte("to be removed"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(h); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Has(h) {
		t.Error("chunk should be gone after Remove")
	}

	// Removing an already-absent chunk is success, not an error.
	if err := s.Remove(h); err != nil {
		t.Errorf("Remove of already-absent chunk returned error: %v", err)
	}
}

func TestRemoveCleansUpEmptyShardDir(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	h, _, err := s.Put([]byte("solo chunk in its shard"))
	if err != nil {
		t.Fatal(err)
	}
	shard := filepath.Dir(s.ChunkPath(h))

	if err := s.Remove(h); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(shard); !os.IsNotExist(err) {
		t.Errorf("expected now-empty shard dir to be removed, stat err = %v", err)
	}
}

func TestChunkHashStringParseRoundTrip(t *testing.T) {
	s := New(t.TempDir(), nil)
	h, _, err := s.Put([]byte("round trip me"))
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseChunkHash(h.String())
	if err != nil {
		t.Fatalf("ParseChunkHash: %v", err)
	}
	if parsed != h {
		t.Errorf("ParseChunkHash(%s) = %v, want %v", h.String(), parsed, h)
	}
}

func TestShardLayout(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, nil)
	h, _, err := s.Put([]byte("shard me"))
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, h.String()[:2], h.String())
	if s.ChunkPath(h) != want {
		t.Errorf("ChunkPath = %q, want %q", s.ChunkPath(h), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("chunk file not found at expected shard path: %v", err)
	}
}
