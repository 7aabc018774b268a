package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bridge/api/internal/screenplay"
)

func TestScriptRepoLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{
		Title:       "Night Train",
		Description: "A thriller on rails",
		Scenes: []screenplay.Scene{
			{ID: "scene_a", Title: "INT. TRAIN CAR - NIGHT", Content: "INT. TRAIN CAR - NIGHT\n\nAlice watches the door.", Characters: []string{"ALICE"}},
		},
	}

	if err := svc.EnsureScriptRepo("script-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureScriptRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "script-1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	// Re-ensuring an existing repo is a no-op
	if err := svc.EnsureScriptRepo("script-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureScriptRepo() second call error = %v", err)
	}

	updated := initial
	updated.Scenes = append(updated.Scenes, screenplay.Scene{
		ID: "scene_b", Title: "EXT. PLATFORM - NIGHT", Content: "EXT. PLATFORM - NIGHT\n\nThe train pulls away.", Characters: []string{},
	})
	commit, err := svc.CommitSnapshot("script-1", updated, "Avery", "Add platform scene")
	if err != nil {
		t.Fatalf("CommitSnapshot() error = %v", err)
	}
	if commit.Hash == "" {
		t.Fatal("expected commit hash")
	}
	if commit.Author != "Avery" {
		t.Fatalf("commit author = %q", commit.Author)
	}

	history, err := svc.History("script-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() len = %d, want 2", len(history))
	}
	if history[0].Message != "Add platform scene" {
		t.Fatalf("unexpected newest commit: %+v", history[0])
	}

	snapshot, info, err := svc.GetSnapshotByHash("script-1", commit.Hash)
	if err != nil {
		t.Fatalf("GetSnapshotByHash() error = %v", err)
	}
	if info.Hash != commit.Hash {
		t.Fatalf("snapshot hash = %q, want %q", info.Hash, commit.Hash)
	}
	if len(snapshot.Scenes) != 2 || snapshot.Scenes[1].ID != "scene_b" {
		t.Fatalf("unexpected snapshot scenes: %+v", snapshot.Scenes)
	}

	older, _, err := svc.GetSnapshotByHash("script-1", history[1].Hash)
	if err != nil {
		t.Fatalf("GetSnapshotByHash() older error = %v", err)
	}
	if len(older.Scenes) != 1 {
		t.Fatalf("older snapshot scenes = %d, want 1", len(older.Scenes))
	}
}

func TestHistoryLimit(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{Title: "Short", Scenes: []screenplay.Scene{}}
	if err := svc.EnsureScriptRepo("script-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureScriptRepo() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		next := initial
		next.Description = fmt.Sprintf("rev-%d", i)
		if _, err := svc.CommitSnapshot("script-1", next, "Avery", fmt.Sprintf("Revision %d", i)); err != nil {
			t.Fatalf("CommitSnapshot() error = %v", err)
		}
	}

	history, err := svc.History("script-1", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() len = %d, want 3", len(history))
	}
}

func TestConcurrentSnapshotsSameScript(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	initial := Content{Title: "Race", Scenes: []screenplay.Scene{}}
	if err := svc.EnsureScriptRepo("script-1", initial, "Avery"); err != nil {
		t.Fatalf("EnsureScriptRepo() error = %v", err)
	}

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			next := initial
			next.Description = fmt.Sprintf("draft-%02d", idx)
			if _, err := svc.CommitSnapshot("script-1", next, "Avery", fmt.Sprintf("Draft %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("CommitSnapshot() concurrent error = %v", err)
		}
	}

	history, err := svc.History("script-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) < writers+1 {
		t.Fatalf("expected at least %d commits in history, got %d", writers+1, len(history))
	}

	snapshot, _, err := svc.GetSnapshotByHash("script-1", history[0].Hash)
	if err != nil {
		t.Fatalf("GetSnapshotByHash() error = %v", err)
	}
	if !strings.HasPrefix(snapshot.Description, "draft-") {
		t.Fatalf("unexpected head snapshot after concurrent commits: %+v", snapshot)
	}
}

func TestDeleteScriptRepo(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	if err := svc.EnsureScriptRepo("script-1", Content{Title: "Gone"}, "Avery"); err != nil {
		t.Fatalf("EnsureScriptRepo() error = %v", err)
	}
	if err := svc.DeleteScriptRepo("script-1"); err != nil {
		t.Fatalf("DeleteScriptRepo() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "script-1")); !os.IsNotExist(err) {
		t.Fatalf("repo directory still present after delete: %v", err)
	}
}
