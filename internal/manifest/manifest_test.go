package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"snapvault/internal/repository"
	"snapvault/internal/vaulterrors"
)

func newRepo(t *testing.T) *repository.Repository {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	repo, err := repository.Init(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := newRepo(t)
	m := &Manifest{
		ID:         "snap1",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SourceRoot: "/home/user/docs",
		Files: []FileRecord{
			{Path: "a.txt", Size: 3, Chunks: []string{"aaaa"}},
		},
		Stats: Stats{FileCount: 1, TotalSize: 3, UniqueChunks: 1, StoredSize: 3},
	}

	if err := Save(repo, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(repo, "snap1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != m.ID || loaded.SourceRoot != m.SourceRoot || len(loaded.Files) != 1 {
		t.Errorf("loaded = %+v, want match of %+v", loaded, m)
	}
	if !loaded.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, m.CreatedAt)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	repo := newRepo(t)
	_, err := Load(repo, "nope")
	if vaulterrors.KindOf(err) != vaulterrors.KindSnapshotNotFound {
		t.Fatalf("err = %v, want SNAPSHOT_NOT_FOUND", err)
	}
}

func TestListSortedByTimeDescThenID(t *testing.T) {
	repo := newRepo(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mustSave := func(id string, t2 time.Time) {
		if err := Save(repo, &Manifest{ID: id, CreatedAt: t2, SourceRoot: "/x"}); err != nil {
			t.Fatal(err)
		}
	}
	mustSave("older", base)
	mustSave("newer", base.Add(time.Hour))
	mustSave("tie-b", base.Add(2*time.Hour))
	mustSave("tie-a", base.Add(2*time.Hour))

	list, err := List(repo)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("List returned %d manifests, want 4", len(list))
	}
	gotIDs := []string{list[0].ID, list[1].ID, list[2].ID, list[3].ID}
	want := []string{"tie-a", "tie-b", "newer", "older"}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Errorf("position %d: got %q, want %q (full order %v)", i, gotIDs[i], want[i], gotIDs)
		}
	}
}

func TestListEmptyRepoReturnsEmpty(t *testing.T) {
	repo := newRepo(t)
	list, err := List(repo)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List = %v, want empty", list)
	}
}

func TestRemove(t *testing.T) {
	repo := newRepo(t)
	if err := Save(repo, &Manifest{ID: "gone", CreatedAt: time.Now().UTC(), SourceRoot: "/x"}); err != nil {
		t.Fatal(err)
	}
	if err := Remove(repo, "gone"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := Load(repo, "gone"); vaulterrors.KindOf(err) != vaulterrors.KindSnapshotNotFound {
		t.Errorf("expected SNAPSHOT_NOT_FOUND after Remove, got %v", err)
	}
	// Removing an already-absent manifest is not an error.
	if err := Remove(repo, "gone"); err != nil {
		t.Errorf("Remove of already-absent manifest returned error: %v", err)
	}
}
