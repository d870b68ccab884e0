package refindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapvault/internal/chunkstore"
)

func hash(b byte) chunkstore.ChunkHash {
	var h chunkstore.ChunkHash
	h[0] = b
	return h
}

func newIndexPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddAndReferrers(t *testing.T) {
	idx, err := Load(newIndexPath(t), nil)
	if err != nil {
		t.Fatal(err)
	}

	h := hash(1)
	idx.Add("snap1", []chunkstore.ChunkHash{h})
	idx.Add("snap1", []chunkstore.ChunkHash{h}) // idempotent
	idx.Add("snap2", []chunkstore.ChunkHash{h})

	refs := idx.Referrers(h)
	if len(refs) != 2 {
		t.Fatalf("referrers = %v, want 2 entries", refs)
	}
	if _, ok := refs["snap1"]; !ok {
		t.Error("missing snap1 referrer")
	}
	if _, ok := refs["snap2"]; !ok {
		t.Error("missing snap2 referrer")
	}
}

func TestRemoveSnapshotReturnsOrphans(t *testing.T) {
	idx, err := Load(newIndexPath(t), nil)
	if err != nil {
		t.Fatal(err)
	}

	shared := hash(1)
	onlySnap1 := hash(2)
	idx.Add("snap1", []chunkstore.ChunkHash{shared, onlySnap1})
	idx.Add("snap2", []chunkstore.ChunkHash{shared})

	orphans := idx.RemoveSnapshot("snap1")
	if len(orphans) != 1 || orphans[0] != onlySnap1 {
		t.Fatalf("orphans = %v, want [%v]", orphans, onlySnap1)
	}

	refs := idx.Referrers(shared)
	if _, ok := refs["snap2"]; !ok || len(refs) != 1 {
		t.Errorf("shared hash referrers = %v, want only snap2", refs)
	}
	if idx.Referrers(onlySnap1) != nil {
		t.Errorf("orphaned hash should no longer be a key in the index")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := newIndexPath(t)
	idx, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	h1, h2 := hash(1), hash(2)
	idx.Add("snapA", []chunkstore.ChunkHash{h1, h2})
	idx.Add("snapB", []chunkstore.ChunkHash{h1})

	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded Len = %d, want 2", reloaded.Len())
	}
	refs := reloaded.Referrers(h1)
	if len(refs) != 2 {
		t.Errorf("reloaded referrers for h1 = %v, want 2", refs)
	}
}

func TestSaveLeavesValidJSON(t *testing.T) {
	path := newIndexPath(t)
	idx, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	idx.Add("snap1", []chunkstore.ChunkHash{hash(9)})
	if err := idx.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "snap1") {
		t.Errorf("saved index does not contain expected snapshot id: %s", data)
	}
}
