package overlay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poachedegg12/SplitProject/internal/testutil"
)

// TestReplaceDir_RemovesStaleFiles tests replace-all semantics
func TestReplaceDir_RemovesStaleFiles(t *testing.T) {
	mod := testutil.NewModDir(t, map[string]string{"lang/a.txt": "new a"})
	game := testutil.NewGameDir(t, map[string]string{
		"lang/a.txt": "old a",
		"lang/b.txt": "old b",
	})

	if err := ReplaceDir(filepath.Join(mod, "lang"), filepath.Join(game, "lang")); err != nil {
		t.Fatalf("ReplaceDir() error = %v", err)
	}

	got := testutil.Tree(t, filepath.Join(game, "lang"))
	if len(got) != 1 || got["a.txt"] != "new a" {
		t.Errorf("lang/ after overlay = %v, want exactly {a.txt: new a}", got)
	}
}

// TestReplaceDir_NestedAndMissingDestination tests copying into a fresh directory
func TestReplaceDir_NestedAndMissingDestination(t *testing.T) {
	mod := testutil.NewModDir(t, map[string]string{
		"sound/sfx/hit.ogg":   "hit",
		"sound/music/bgm.ogg": "bgm",
	})
	game := testutil.NewGameDir(t, map[string]string{"Game.exe": "exe"})

	if err := ReplaceDir(filepath.Join(mod, "sound"), filepath.Join(game, "sound")); err != nil {
		t.Fatalf("ReplaceDir() error = %v", err)
	}

	names := strings.Join(testutil.TreeNames(t, game), ",")
	if names != "Game.exe,sound/music/bgm.ogg,sound/sfx/hit.ogg" {
		t.Errorf("game tree = %s", names)
	}
}

// TestReplaceDir_MissingSource tests that the destination survives a bad source
func TestReplaceDir_MissingSource(t *testing.T) {
	game := testutil.NewGameDir(t, map[string]string{"lang/a.txt": "keep"})

	if err := ReplaceDir(filepath.Join(t.TempDir(), "lang"), filepath.Join(game, "lang")); err == nil {
		t.Fatal("ReplaceDir() expected error for missing source")
	}
	testutil.AssertFileContent(t, filepath.Join(game, "lang", "a.txt"), "keep")
}

// TestApply tests overlaying directories and integration files together
func TestApply(t *testing.T) {
	mod := testutil.NewModDir(t, map[string]string{
		"lang/en.json":     "mod en",
		"NekoPresence.dll": "mod dll",
	})
	game := testutil.NewGameDir(t, map[string]string{
		"lang/en.json":     "game en",
		"lang/old.json":    "stale",
		"NekoPresence.dll": "game dll",
	})

	items := Apply(Plan{
		ModDir:  mod,
		GameDir: game,
		Dirs:    []string{"lang", "sound"},
		Files:   []string{"NekoPresence.dll"},
	})

	if len(items) != 3 {
		t.Fatalf("Apply() returned %d items, want 3", len(items))
	}
	if items[0].Err != nil {
		t.Errorf("lang overlay error = %v", items[0].Err)
	}
	// sound/ isn't in the mod: that item fails, the others still run
	if items[1].Err == nil {
		t.Error("sound overlay should fail when the mod has no sound/")
	}
	if items[2].Err != nil || items[2].Kind != File {
		t.Errorf("dll item = %+v", items[2])
	}

	testutil.AssertFileContent(t, filepath.Join(game, "lang", "en.json"), "mod en")
	testutil.AssertFileNotExists(t, filepath.Join(game, "lang", "old.json"))
	testutil.AssertFileContent(t, filepath.Join(game, "NekoPresence.dll"), "mod dll")
}

// TestClean tests that only .po files are removed, anywhere in the tree
func TestClean(t *testing.T) {
	game := testutil.NewGameDir(t, map[string]string{
		"Game.exe":               "exe",
		"data.win":               "data",
		"lang/en.po":             "po",
		"lang/en.mo":             "mo",
		"lang/deep/nested/fr.po": "po",
		"notes.po.txt":           "not po",
		"UPPER.PO":               "case differs",
	})

	res := Clean(game, LeftoverExt)
	if len(res.Errors) != 0 {
		t.Fatalf("Clean() errors = %v", res.Errors)
	}
	if len(res.Removed) != 2 {
		t.Errorf("Clean() removed %d files, want 2: %v", len(res.Removed), res.Removed)
	}

	names := strings.Join(testutil.TreeNames(t, game), ",")
	if names != "Game.exe,UPPER.PO,data.win,lang/en.mo,notes.po.txt" {
		t.Errorf("game tree after cleanup = %s", names)
	}
}

// TestClean_MissingRoot tests that a missing tree is reported
func TestClean_MissingRoot(t *testing.T) {
	res := Clean(filepath.Join(t.TempDir(), "missing"), LeftoverExt)
	if len(res.Errors) == 0 {
		t.Error("Clean() expected an error for a missing root")
	}
	if len(res.Removed) != 0 {
		t.Errorf("Clean() removed %v", res.Removed)
	}
}

// TestClean_DeleteFailure tests that a failed delete is tolerated
func TestClean_DeleteFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks don't apply to root")
	}

	game := testutil.NewGameDir(t, map[string]string{
		"locked/a.po": "po",
		"open/b.po":   "po",
	})
	locked := filepath.Join(game, "locked")
	if err := os.Chmod(locked, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	res := Clean(game, LeftoverExt)
	if len(res.Errors) != 1 {
		t.Errorf("Clean() errors = %v, want 1", res.Errors)
	}
	if len(res.Removed) != 1 {
		t.Errorf("Clean() removed %v, want only open/b.po", res.Removed)
	}
}
