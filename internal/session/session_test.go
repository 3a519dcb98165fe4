package session

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poachedegg12/SplitProject/internal/backup"
	"github.com/poachedegg12/SplitProject/internal/lock"
	"github.com/poachedegg12/SplitProject/internal/process"
	"github.com/poachedegg12/SplitProject/internal/testutil"
)

// alerts records every notification raised by a session
type alerts struct {
	mu   sync.Mutex
	list []Alert
}

func (a *alerts) Notify(alert Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = append(a.list, alert)
}

func (a *alerts) kinds() []Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	var kinds []Kind
	for _, alert := range a.list {
		kinds = append(kinds, alert.Kind)
	}
	return kinds
}

type panicCodec struct{}

func (panicCodec) Decode(ctx context.Context, source, patch, output string) error {
	panic("codec exploded")
}

func newPatcher(runner *testutil.FakeRunner, notes *alerts) *Patcher {
	return &Patcher{
		Codec:     &testutil.FakeCodec{},
		Launcher:  runner,
		Notifier:  notes,
		IsRunning: func(dir, exe string) bool { return false },
		TempDir:   os.TempDir(),
	}
}

func assertClean(t *testing.T, gameDir string) {
	t.Helper()
	testutil.AssertFileNotExists(t, filepath.Join(gameDir, lock.FileName))
	testutil.AssertFileNotExists(t, filepath.Join(gameDir, backup.JournalFile))
}

var fullRun = []Stage{Matching, BackingUp, Patching, Overlaying, Cleaning, Launching, Running, Restoring, Done}

// TestPatch_EndToEnd tests a full session: the data file is patched while the
// game runs and both critical files come back byte-identical afterwards.
func TestPatch_EndToEnd(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "patch_a_game.win.xdelta"), "original game.win", "modded game.win")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"game.win": "original game.win",
		"Game.exe": "original exe",
	})
	before := testutil.Tree(t, gameDir)
	exeInfo, err := os.Stat(filepath.Join(gameDir, "Game.exe"))
	require.NoError(t, err)

	runner := &testutil.FakeRunner{OnRun: func(exe, dir string) {
		testutil.AssertFileContent(t, filepath.Join(dir, "game.win"), "modded game.win")
		testutil.AssertFileContent(t, filepath.Join(dir, "Game.exe"), "original exe")
		testutil.AssertFileContent(t, filepath.Join(dir, "game.win.bak"), "original game.win")
		testutil.AssertFileContent(t, filepath.Join(dir, "Game.exe.bak"), "original exe")
		testutil.AssertFileExists(t, filepath.Join(dir, backup.JournalFile))
	}}
	notes := &alerts{}

	res := newPatcher(runner, notes).Patch(context.Background(), mod, gameDir)

	assert.True(t, res.Success(), "errors: %v", res.Errors)
	assert.Equal(t, fullRun, res.Stages)
	assert.Equal(t, "Game.exe", res.Executable)
	assert.Empty(t, res.Errors)
	assert.Empty(t, notes.kinds())
	assert.Equal(t, 1, res.Applied())

	require.Len(t, runner.Launches(), 1)
	assert.Equal(t, filepath.Join(gameDir, "Game.exe"), runner.Launches()[0].Exe)
	assert.Equal(t, gameDir, runner.Launches()[0].Dir)

	require.Len(t, res.Backups, 2)
	for _, rec := range res.Backups {
		assert.True(t, rec.Restored, "%s not restored", rec.Original)
	}

	assert.Equal(t, before, testutil.Tree(t, gameDir))
	after, err := os.Stat(filepath.Join(gameDir, "Game.exe"))
	require.NoError(t, err)
	assert.True(t, exeInfo.ModTime().Equal(after.ModTime()), "Game.exe modification time changed")
	assertClean(t, gameDir)
	assert.NotEmpty(t, res.Lines)
}

// TestPatch_PatchNameWithoutTarget tests that a patch whose name doesn't
// contain a target's name is skipped and the target is left alone.
func TestPatch_PatchNameWithoutTarget(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "patch_a.xdelta"), "original game.win", "modded game.win")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"game.win": "original game.win",
		"Game.exe": "original exe",
	})
	before := testutil.Tree(t, gameDir)

	runner := &testutil.FakeRunner{OnRun: func(exe, dir string) {
		testutil.AssertFileContent(t, filepath.Join(dir, "game.win"), "original game.win")
	}}
	codec := &testutil.FakeCodec{}
	p := newPatcher(runner, &alerts{})
	p.Codec = codec
	res := p.Patch(context.Background(), mod, gameDir)

	require.Len(t, res.Descriptors, 1)
	assert.False(t, res.Descriptors[0].Matched())
	unmatched := res.ErrorsOf(MatchNotFound)
	require.Len(t, unmatched, 1)
	assert.Equal(t, filepath.Join(mod, "patch_a.xdelta"), unmatched[0].Path)
	assert.Empty(t, codec.Calls())
	assert.Equal(t, 0, res.Applied())

	assert.Len(t, runner.Launches(), 1)
	assert.Equal(t, before, testutil.Tree(t, gameDir))
	assertClean(t, gameDir)
}

// TestPatch_LaunchFailureStillRestores tests that a game that can't start
// doesn't leave the installation patched.
func TestPatch_LaunchFailureStillRestores(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win": "data",
		"Game.exe": "exe",
	})
	before := testutil.Tree(t, gameDir)

	runner := &testutil.FakeRunner{Err: process.ErrLaunch}
	notes := &alerts{}
	res := newPatcher(runner, notes).Patch(context.Background(), mod, gameDir)

	assert.Equal(t, []Stage{Matching, BackingUp, Patching, Overlaying, Cleaning, Launching, Restoring, Done}, res.Stages)
	assert.False(t, res.Entered(Running))
	assert.False(t, res.Launched)
	assert.False(t, res.Success())
	require.Len(t, res.ErrorsOf(LaunchError), 1)
	assert.ErrorIs(t, res.ErrorsOf(LaunchError)[0], process.ErrLaunch)
	assert.Equal(t, []Kind{LaunchError}, notes.kinds())

	assert.Equal(t, before, testutil.Tree(t, gameDir))
	assertClean(t, gameDir)
}

// TestPatch_NonZeroExit tests that a crashing game is still followed by a restore
func TestPatch_NonZeroExit(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win": "data",
		"Game.exe": "exe",
	})
	before := testutil.Tree(t, gameDir)

	runner := &testutil.FakeRunner{ExitCode: 3}
	res := newPatcher(runner, &alerts{}).Patch(context.Background(), mod, gameDir)

	assert.Equal(t, fullRun, res.Stages)
	assert.True(t, res.Launched)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, res.Success())
	assert.Equal(t, before, testutil.Tree(t, gameDir))
}

// TestPatch_BackupCountIndependentOfPatches tests that every critical file is
// backed up and restored even when no patch applies.
func TestPatch_BackupCountIndependentOfPatches(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "some other version", "modded")
	testutil.WriteFakePatch(t, filepath.Join(mod, "chapter2.win.xdelta"), "chapter2", "modded chapter2")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"DATA.WIN":     "data",
		"chapter2.win": "chapter2",
		"Game.exe":     "exe",
		"other.win":    "untouched",
	})
	before := testutil.Tree(t, gameDir)

	runner := &testutil.FakeRunner{}
	res := newPatcher(runner, &alerts{}).Patch(context.Background(), mod, gameDir)

	// DATA.WIN (primary data), chapter2.win (target), Game.exe (executable)
	require.Len(t, res.Backups, 3)
	names := make([]string, 0, len(res.Backups))
	for _, rec := range res.Backups {
		assert.True(t, rec.Restored)
		names = append(names, filepath.Base(rec.Original))
	}
	assert.ElementsMatch(t, []string{"DATA.WIN", "chapter2.win", "Game.exe"}, names)

	assert.Equal(t, 1, res.Applied())
	assert.Len(t, res.ErrorsOf(ValidationFailed), 1)
	assert.Equal(t, before, testutil.Tree(t, gameDir))
}

// TestPatch_UnmatchedAndInvalidLeaveTargetsUntouched tests the skip paths
func TestPatch_UnmatchedAndInvalidLeaveTargetsUntouched(t *testing.T) {
	mod := testutil.NewModDir(t, map[string]string{"readme.xdelta": "not a patch"})
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "wrong version", "modded")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win": "data",
		"Game.exe": "exe",
	})

	runner := &testutil.FakeRunner{OnRun: func(exe, dir string) {
		testutil.AssertFileContent(t, filepath.Join(dir, "data.win"), "data")
		testutil.AssertFileContent(t, filepath.Join(dir, "Game.exe"), "exe")
	}}
	codec := &testutil.FakeCodec{}
	p := newPatcher(runner, &alerts{})
	p.Codec = codec
	res := p.Patch(context.Background(), mod, gameDir)

	require.Len(t, res.Descriptors, 2)
	assert.Equal(t, "data.win.xdelta", res.Descriptors[0].Patch)
	assert.Equal(t, "data.win", res.Descriptors[0].Target)
	assert.False(t, res.Descriptors[0].Applied)
	assert.Equal(t, "readme.xdelta", res.Descriptors[1].Patch)
	assert.False(t, res.Descriptors[1].Matched())

	assert.Len(t, res.ErrorsOf(MatchNotFound), 1)
	assert.Len(t, res.ErrorsOf(ValidationFailed), 1)
	// the invalid patch is only dry-run, never applied
	assert.Equal(t, []string{"data.win.xdelta"}, codec.Calls())

	// launching without patches is the default
	assert.Len(t, runner.Launches(), 1)
}

// TestPatch_MidWriteFailureKeepsOriginal tests that a codec dying halfway
// through the committed decode leaves no trace in the installation.
func TestPatch_MidWriteFailureKeepsOriginal(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win": "data",
		"Game.exe": "exe",
	})

	// validation uses a codec that works, the commit one that breaks
	p := newPatcher(&testutil.FakeRunner{OnRun: func(exe, dir string) {
		testutil.AssertFileContent(t, filepath.Join(dir, "data.win"), "data")
		assert.ElementsMatch(t, []string{"Game.exe", "Game.exe.bak", "data.win", "data.win.bak", backup.JournalFile, lock.FileName},
			dirNames(t, dir))
	}}, &alerts{})
	p.Codec = &flakyCodec{good: &testutil.FakeCodec{}, bad: &testutil.FakeCodec{FailMidWrite: true}}
	res := p.Patch(context.Background(), mod, gameDir)

	assert.Len(t, res.ErrorsOf(ApplyFailed), 1)
	assert.Equal(t, 0, res.Applied())
	testutil.AssertFileContent(t, filepath.Join(gameDir, "data.win"), "data")
}

// flakyCodec validates with good and commits with bad
type flakyCodec struct {
	mu    sync.Mutex
	calls int
	good  *testutil.FakeCodec
	bad   *testutil.FakeCodec
}

func (c *flakyCodec) Decode(ctx context.Context, source, patch, output string) error {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if n%2 == 1 {
		return c.good.Decode(ctx, source, patch, output)
	}
	return c.bad.Decode(ctx, source, patch, output)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// TestPatch_BackupFailureSkipsTarget tests that a file without a backup is never patched
func TestPatch_BackupFailureSkipsTarget(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win": "data",
		"Game.exe": "exe",
	})
	// a directory where the snapshot should go makes the backup fail
	require.NoError(t, os.MkdirAll(filepath.Join(gameDir, "data.win.bak", "blocker"), 0755))

	runner := &testutil.FakeRunner{OnRun: func(exe, dir string) {
		testutil.AssertFileContent(t, filepath.Join(dir, "data.win"), "data")
	}}
	notes := &alerts{}
	res := newPatcher(runner, notes).Patch(context.Background(), mod, gameDir)

	assert.Len(t, res.ErrorsOf(BackupFailed), 1)
	assert.Contains(t, notes.kinds(), BackupFailed)
	assert.Equal(t, 0, res.Applied())
	require.Len(t, res.Backups, 1)
	assert.Equal(t, "Game.exe", filepath.Base(res.Backups[0].Original))
	assert.Len(t, runner.Launches(), 1)
	testutil.AssertFileContent(t, filepath.Join(gameDir, "data.win"), "data")
}

// TestPatch_EarlyTermination tests sessions that end during matching
func TestPatch_EarlyTermination(t *testing.T) {
	tests := []struct {
		name  string
		mod   map[string]string
		game  map[string]string
		setup func(t *testing.T, gameDir string)
		kind  Kind
	}{
		{
			name: "no patches",
			mod:  map[string]string{"lang/en.json": "x"},
			game: map[string]string{"data.win": "data", "Game.exe": "exe"},
			kind: NothingToPatch,
		},
		{
			name: "no candidates",
			mod:  map[string]string{"data.win.xdelta": "p"},
			game: map[string]string{"readme.txt": "hi"},
			kind: NothingToPatch,
		},
		{
			name: "no executable",
			mod:  map[string]string{"data.win.xdelta": "p"},
			game: map[string]string{"data.win": "data", "unins000.exe": "uninstaller"},
			kind: NoExecutableFound,
		},
		{
			name: "session lock held",
			mod:  map[string]string{"data.win.xdelta": "p"},
			game: map[string]string{"data.win": "data", "Game.exe": "exe"},
			setup: func(t *testing.T, gameDir string) {
				_, err := lock.Acquire(gameDir)
				require.NoError(t, err)
			},
			kind: SessionBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := testutil.NewModDir(t, tt.mod)
			gameDir := testutil.NewGameDir(t, tt.game)
			if tt.setup != nil {
				tt.setup(t, gameDir)
			}
			before := testutil.Tree(t, gameDir)

			runner := &testutil.FakeRunner{}
			res := newPatcher(runner, &alerts{}).Patch(context.Background(), mod, gameDir)

			assert.Equal(t, []Stage{Matching, Done}, res.Stages)
			assert.Len(t, res.ErrorsOf(tt.kind), 1)
			assert.Empty(t, runner.Launches())
			assert.Empty(t, res.Backups)
			assert.Equal(t, before, testutil.Tree(t, gameDir))
		})
	}
}

// TestPatch_GameAlreadyRunning tests refusing to patch a running game
func TestPatch_GameAlreadyRunning(t *testing.T) {
	mod := testutil.NewModDir(t, map[string]string{"data.win.xdelta": "p"})
	gameDir := testutil.NewGameDir(t, map[string]string{"data.win": "data", "Game.exe": "exe"})

	runner := &testutil.FakeRunner{}
	p := newPatcher(runner, &alerts{})
	p.IsRunning = func(dir, exe string) bool { return exe == "Game.exe" }
	res := p.Patch(context.Background(), mod, gameDir)

	assert.Len(t, res.ErrorsOf(SessionBusy), 1)
	assert.Empty(t, runner.Launches())
	assertClean(t, gameDir)
}

// TestPatch_PanicStillRestores tests that a panic inside a stage is contained
func TestPatch_PanicStillRestores(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win": "data",
		"Game.exe": "exe",
	})
	before := testutil.Tree(t, gameDir)

	runner := &testutil.FakeRunner{}
	notes := &alerts{}
	p := newPatcher(runner, notes)
	p.Codec = panicCodec{}

	var res *Result
	require.NotPanics(t, func() {
		res = p.Patch(context.Background(), mod, gameDir)
	})

	assert.Len(t, res.ErrorsOf(Internal), 1)
	assert.Contains(t, notes.kinds(), Internal)
	assert.Equal(t, []Stage{Matching, BackingUp, Patching, Restoring, Done}, res.Stages)
	assert.Empty(t, runner.Launches())
	assert.Equal(t, before, testutil.Tree(t, gameDir))
	assertClean(t, gameDir)
}

// TestPatch_LaunchPolicy tests what happens when nothing could be applied
func TestPatch_LaunchPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   LaunchPolicy
		confirm  func(string) bool
		launches int
	}{
		{"always", LaunchAlways, nil, 1},
		{"never", LaunchNever, nil, 0},
		{"ask declined", LaunchAsk, func(string) bool { return false }, 0},
		{"ask accepted", LaunchAsk, func(string) bool { return true }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := testutil.NewModDir(t, nil)
			testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "another version", "modded")
			gameDir := testutil.NewGameDir(t, map[string]string{"data.win": "data", "Game.exe": "exe"})

			runner := &testutil.FakeRunner{}
			p := newPatcher(runner, &alerts{})
			p.LaunchPolicy = tt.policy
			p.ConfirmLaunch = tt.confirm
			res := p.Patch(context.Background(), mod, gameDir)

			assert.Len(t, runner.Launches(), tt.launches)
			assert.True(t, res.Entered(Launching))
			assert.True(t, res.Entered(Restoring))
			assert.Equal(t, tt.launches == 1, res.Entered(Running))
			for _, rec := range res.Backups {
				assert.True(t, rec.Restored)
			}
		})
	}
}

// TestPatch_OverlayAndCleanup tests asset overlay and leftover removal inside a session
func TestPatch_OverlayAndCleanup(t *testing.T) {
	mod := testutil.NewModDir(t, map[string]string{
		"lang/en.json":     "mod strings",
		"NekoPresence.dll": "mod dll",
	})
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win":       "data",
		"Game.exe":       "exe",
		"lang/en.json":   "game strings",
		"lang/stale.txt": "stale",
		"lang/ja.po":     "po",
		"extra/fr.po":    "po",
	})

	res := newPatcher(&testutil.FakeRunner{}, &alerts{}).Patch(context.Background(), mod, gameDir)

	assert.Empty(t, res.Errors)
	assert.Len(t, res.Overlays, 2)
	assert.Equal(t, 1, res.LeftoversRemoved)
	testutil.AssertFileContent(t, filepath.Join(gameDir, "lang", "en.json"), "mod strings")
	testutil.AssertFileNotExists(t, filepath.Join(gameDir, "lang", "stale.txt"))
	testutil.AssertFileNotExists(t, filepath.Join(gameDir, "lang", "ja.po"))
	testutil.AssertFileNotExists(t, filepath.Join(gameDir, "extra", "fr.po"))
	testutil.AssertFileContent(t, filepath.Join(gameDir, "NekoPresence.dll"), "mod dll")
	// critical files are restored, overlaid assets stay
	testutil.AssertFileContent(t, filepath.Join(gameDir, "data.win"), "data")
}

// TestPatch_RecoversInterruptedSession tests that originals left behind by a
// crashed session are put back before a new session backs anything up.
func TestPatch_RecoversInterruptedSession(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{
		"data.win":     "patched by a crashed session",
		"data.win.bak": "data",
		"Game.exe":     "exe",
	})
	j := backup.NewJournal(gameDir, mod)
	require.NoError(t, j.Add(backup.Record{
		Original: filepath.Join(gameDir, "data.win"),
		Backup:   filepath.Join(gameDir, "data.win.bak"),
	}))
	// a crash leaves its lock behind too
	testutil.WriteFile(t, filepath.Join(gameDir, lock.FileName), strconv.Itoa(testutil.DeadPID(t)))

	runner := &testutil.FakeRunner{OnRun: func(exe, dir string) {
		testutil.AssertFileContent(t, filepath.Join(dir, "data.win"), "modded data")
		testutil.AssertFileContent(t, filepath.Join(dir, "data.win.bak"), "data")
	}}
	res := newPatcher(runner, &alerts{}).Patch(context.Background(), mod, gameDir)

	assert.True(t, res.Success(), "errors: %v", res.Errors)
	testutil.AssertFileContent(t, filepath.Join(gameDir, "data.win"), "data")
	testutil.AssertFileNotExists(t, filepath.Join(gameDir, "data.win.bak"))
	assertClean(t, gameDir)
}

// TestStart_StreamsLines tests running a session in the background
func TestStart_StreamsLines(t *testing.T) {
	mod := testutil.NewModDir(t, nil)
	testutil.WriteFakePatch(t, filepath.Join(mod, "data.win.xdelta"), "data", "modded data")
	gameDir := testutil.NewGameDir(t, map[string]string{"data.win": "data", "Game.exe": "exe"})

	release := make(chan struct{})
	runner := &testutil.FakeRunner{OnRun: func(exe, dir string) { <-release }}
	h := newPatcher(runner, &alerts{}).Start(context.Background(), mod, gameDir)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var streamed []Line
	lines := h.Lines(ctx)
	for line := range lines {
		streamed = append(streamed, line)
		if line.Text == "Launching Game.exe" {
			// the worker is blocked in the game; the reader still got here
			close(release)
		}
	}

	res := h.Wait()
	select {
	case <-h.Done():
	default:
		t.Fatal("Done() not closed after Wait()")
	}
	assert.True(t, res.Success())
	assert.Equal(t, res.Lines, streamed)
}
