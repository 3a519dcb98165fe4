package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/poachedegg12/SplitProject/internal/backup"
	"github.com/poachedegg12/SplitProject/internal/delta"
	"github.com/poachedegg12/SplitProject/internal/game"
	"github.com/poachedegg12/SplitProject/internal/lock"
	"github.com/poachedegg12/SplitProject/internal/modpkg"
	"github.com/poachedegg12/SplitProject/internal/overlay"
	"github.com/poachedegg12/SplitProject/internal/patch"
	"github.com/poachedegg12/SplitProject/internal/paths"
	"github.com/poachedegg12/SplitProject/internal/process"
)

// Patcher runs patch sessions. The zero value uses xdelta3 from PATH, starts
// the game as a child process and logs nowhere.
type Patcher struct {
	Codec    delta.Codec
	Launcher process.Launcher
	Logger   *zerolog.Logger
	Notifier Notifier
	Sound    Sound

	// LaunchPolicy applies when no patch could be applied.
	LaunchPolicy LaunchPolicy
	// ConfirmLaunch answers LaunchAsk. A nil func launches.
	ConfirmLaunch func(mod string) bool

	// IsRunning reports whether the game is already running from the installation.
	// Defaults to process.IsRunningFromDir.
	IsRunning func(dir, exe string) bool

	// TempDir receives validation output; "" uses the system temp dir.
	TempDir string
}

// Handle tracks a session running on its own goroutine.
type Handle struct {
	log  *Log
	done chan struct{}
	res  *Result
}

// Lines streams the session's log until it finishes or ctx is done
func (h *Handle) Lines(ctx context.Context) <-chan Line {
	return h.log.Follow(ctx)
}

// Done is closed once the session has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the session finishes and returns its result
func (h *Handle) Wait() *Result {
	<-h.done
	return h.res
}

// Start runs a session on a dedicated goroutine so the caller stays responsive.
func (p *Patcher) Start(ctx context.Context, modDir, gameDir string) *Handle {
	h := &Handle{log: NewLog(), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.res = p.run(ctx, modDir, gameDir, h.log)
	}()
	return h
}

// Patch runs one session synchronously: match, back up, patch, overlay,
// clean, launch, and restore. Once a backup has been attempted the originals
// are restored on every path out, including a panic inside a stage.
func (p *Patcher) Patch(ctx context.Context, modDir, gameDir string) *Result {
	return p.run(ctx, modDir, gameDir, NewLog())
}

func (p *Patcher) run(ctx context.Context, modDir, gameDir string, log *Log) *Result {
	s := p.newSession(ctx, modDir, gameDir, log)
	s.run()
	return s.res
}

// session is the state of one Patch call. It is never reused.
type session struct {
	p      *Patcher
	ctx    context.Context
	logger zerolog.Logger
	log    *Log
	res    *Result

	modDir  string
	gameDir string

	codec    delta.Codec
	launcher process.Launcher
	notifier Notifier
	sound    Sound

	mod     *modpkg.Package
	inst    *game.Installation
	lock    *lock.Lock
	journal *backup.Journal
	records []*backup.Record
	// unsafe holds targets without a backup; they are never patched.
	unsafe map[string]bool
	stage  Stage
}

func (p *Patcher) newSession(ctx context.Context, modDir, gameDir string, log *Log) *session {
	s := &session{
		p:        p,
		ctx:      ctx,
		log:      log,
		modDir:   modDir,
		gameDir:  gameDir,
		codec:    p.Codec,
		launcher: p.Launcher,
		notifier: p.Notifier,
		sound:    p.Sound,
		unsafe:   make(map[string]bool),
		res: &Result{
			ID:      uuid.NewString(),
			Mod:     modDir,
			Game:    gameDir,
			Started: time.Now(),
		},
	}

	if s.codec == nil {
		s.codec = delta.NewXDelta("")
	}
	if s.launcher == nil {
		s.launcher = &process.Runner{}
	}
	if s.notifier == nil {
		s.notifier = silent{}
	}
	if s.sound == nil {
		s.sound = silent{}
	}

	base := zerolog.Nop()
	if p.Logger != nil {
		base = *p.Logger
	}
	s.logger = base.With().Str("session", s.res.ID[:8]).Logger()

	return s
}

func (s *session) run() {
	defer s.finish()

	if !s.guard(s.match) {
		return
	}

	// From here on the originals are restored no matter how the stages end.
	defer s.guard(func() bool {
		s.restore()
		return true
	})

	s.guard(func() bool {
		s.backupAll()
		s.patchAll()
		s.overlayAssets()
		s.cleanLeftovers()
		s.launch()
		return true
	})
}

// guard runs a stage function and turns a panic into an Internal error.
func (s *session) guard(fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("stack", string(debug.Stack())).Msg("session stage panicked")
			s.fail(Internal, "", fmt.Errorf("unexpected failure during %s: %v", s.stage, r))
			ok = false
		}
	}()
	return fn()
}

func (s *session) enter(stage Stage) {
	s.stage = stage
	s.res.Stages = append(s.res.Stages, stage)
	s.logger.Debug().Str("stage", stage.String()).Msg("entering stage")
}

func (s *session) logf(level zerolog.Level, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	s.log.Append(Line{Time: time.Now(), Level: level, Stage: s.stage, Text: text})
	s.logger.WithLevel(level).Str("stage", s.stage.String()).Msg(text)
}

// fail records a failure, logs it and raises an alert when the kind calls for one.
func (s *session) fail(kind Kind, path string, err error) {
	e := &Error{Kind: kind, Path: path, Err: err}
	s.res.Errors = append(s.res.Errors, e)

	level := zerolog.WarnLevel
	switch {
	case kind == MatchNotFound || kind == NothingToPatch:
		level = zerolog.InfoLevel
	case kind.Alerts():
		level = zerolog.ErrorLevel
	}
	s.logf(level, "%s", e.Error())

	if kind.Alerts() {
		s.sound.Play(CueError)
		s.notifier.Notify(Alert{Kind: kind, Title: kind.Title(), Message: e.Error()})
	}
}

func (s *session) finish() {
	s.enter(Done)
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			s.logf(zerolog.WarnLevel, "%v", err)
		}
	}
	if s.res.Success() {
		s.sound.Play(CueSuccess)
	}
	s.res.Finished = time.Now()
	s.logf(zerolog.InfoLevel, "Session finished in %s", s.res.Duration().Round(time.Millisecond))
	s.log.Close()
	s.res.Lines = s.log.Lines()
}

// match reads both directories and pairs patches with targets. It has no
// side effects on the installation besides the session lock, and returns
// false when the session should end without touching anything.
func (s *session) match() bool {
	s.enter(Matching)

	mod, err := modpkg.Load(s.modDir)
	if err != nil {
		s.fail(Internal, s.modDir, err)
		return false
	}
	s.mod = mod

	inst, err := game.Scan(s.gameDir)
	if err != nil {
		s.fail(Internal, s.gameDir, err)
		return false
	}
	s.inst = inst

	l, err := lock.Acquire(s.gameDir)
	if err != nil {
		kind := Internal
		if errors.Is(err, lock.ErrLocked) {
			kind = SessionBusy
		}
		s.fail(kind, s.gameDir, err)
		return false
	}
	s.lock = l

	if !s.recoverInterrupted() {
		return false
	}

	s.logf(zerolog.InfoLevel, "Patching %s", mod.Name())

	if len(mod.Patches) == 0 || len(inst.Targets) == 0 {
		s.fail(NothingToPatch, "", fmt.Errorf("%d patch(es), %d candidate file(s)", len(mod.Patches), len(inst.Targets)))
		return false
	}

	exe, err := patch.SelectExecutable(inst.Executables, mod.Patches)
	if err != nil {
		s.fail(NoExecutableFound, s.gameDir, err)
		return false
	}
	s.res.Executable = exe

	isRunning := s.p.IsRunning
	if isRunning == nil {
		isRunning = process.IsRunningFromDir
	}
	if isRunning(s.gameDir, exe) {
		s.fail(SessionBusy, exe, errors.New("the game is already running from this folder"))
		return false
	}

	s.res.Descriptors = patch.Match(mod.Patches, inst.Targets)
	for _, d := range s.res.Descriptors {
		if d.Matched() {
			s.logf(zerolog.DebugLevel, "%s -> %s", d.Patch, d.Target)
		}
	}

	return true
}

// recoverInterrupted puts back originals left by a session that died. A
// session can't start on top of an unrecovered one: its backups would
// overwrite the only good copies.
func (s *session) recoverInterrupted() bool {
	records, errs, err := backup.Recover(s.gameDir)
	if err != nil {
		s.fail(RestoreFailed, filepath.Join(s.gameDir, backup.JournalFile), err)
		return false
	}
	for _, rec := range records {
		if rec.Restored {
			s.logf(zerolog.WarnLevel, "Restored %s left patched by an interrupted session", filepath.Base(rec.Original))
		}
	}
	for _, err := range errs {
		s.fail(RestoreFailed, "", err)
	}
	return len(errs) == 0
}

// critical returns the installation files the session backs up: the main
// executable, the primary data file and every patch target.
func (s *session) critical() []string {
	names := []string{s.res.Executable}
	if s.inst.DataFile != "" {
		names = append(names, s.inst.DataFile)
	}
	names = append(names, patch.Targets(s.res.Descriptors)...)

	seen := make(map[string]bool, len(names))
	var unique []string
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		unique = append(unique, name)
	}
	return paths.SortNames(unique)
}

func (s *session) backupAll() {
	s.enter(BackingUp)

	s.journal = backup.NewJournal(s.gameDir, s.modDir)
	s.journal.ID = s.res.ID
	mgr := &backup.Manager{Journal: s.journal}

	for _, name := range s.critical() {
		path := s.inst.Path(name)

		if _, err := os.Stat(path + backup.Suffix); err == nil {
			s.logf(zerolog.WarnLevel, "Overwriting stale backup %s", name+backup.Suffix)
		}

		rec, err := mgr.Backup(path)
		if rec == nil {
			if err != nil {
				s.unsafe[name] = true
				s.fail(BackupFailed, path, err)
			}
			continue
		}

		s.records = append(s.records, rec)
		if err != nil {
			// The snapshot is usable; only crash recovery is affected.
			s.logf(zerolog.WarnLevel, "%v", err)
		}
		s.logf(zerolog.InfoLevel, "Backed up %s", name)
	}
}

func (s *session) patchAll() {
	s.enter(Patching)

	validator := &patch.Validator{Codec: s.codec, TempDir: s.p.TempDir}
	applier := &patch.Applier{Codec: s.codec}

	for i := range s.res.Descriptors {
		d := &s.res.Descriptors[i]
		patchPath := s.mod.PatchPath(d.Patch)

		if !d.Matched() {
			s.fail(MatchNotFound, patchPath, nil)
			continue
		}
		if s.unsafe[d.Target] {
			s.logf(zerolog.WarnLevel, "Skipping %s: %s has no backup", d.Patch, d.Target)
			continue
		}

		target := s.inst.Path(d.Target)
		if !validator.Validate(s.ctx, target, patchPath) {
			d.Validity = patch.Invalid
			s.fail(ValidationFailed, patchPath, fmt.Errorf("does not apply to %s", d.Target))
			continue
		}
		d.Validity = patch.Valid

		if err := applier.Apply(s.ctx, target, patchPath); err != nil {
			s.fail(ApplyFailed, patchPath, err)
			continue
		}
		d.Applied = true
		s.logf(zerolog.InfoLevel, "Patched %s with %s", d.Target, d.Patch)
	}
}

func (s *session) overlayAssets() {
	s.enter(Overlaying)

	items := overlay.Apply(overlay.Plan{
		ModDir:  s.mod.Dir,
		GameDir: s.gameDir,
		Dirs:    s.mod.AssetDirs,
		Files:   s.mod.IntegrationFiles,
	})
	s.res.Overlays = items

	for _, item := range items {
		if item.Err != nil {
			s.fail(OverlayFailed, filepath.Join(s.gameDir, item.Name), item.Err)
			continue
		}
		if item.Kind == overlay.Dir {
			s.logf(zerolog.InfoLevel, "Copied %s/ folder", item.Name)
		} else {
			s.logf(zerolog.InfoLevel, "Copied %s", item.Name)
		}
	}
}

func (s *session) cleanLeftovers() {
	s.enter(Cleaning)

	res := overlay.Clean(s.gameDir, overlay.LeftoverExt)
	for _, err := range res.Errors {
		s.fail(CleanupFailed, "", err)
	}
	s.res.LeftoversRemoved = len(res.Removed)
	s.logf(zerolog.InfoLevel, "Deleted %d %s file(s)", len(res.Removed), overlay.LeftoverExt)
}

// launch starts the game and waits for it. A spawn failure is recorded and
// the session moves on to restoring without entering Running.
func (s *session) launch() {
	s.enter(Launching)

	if s.res.Applied() == 0 {
		switch s.p.LaunchPolicy {
		case LaunchNever:
			s.logf(zerolog.WarnLevel, "No patches applied, not launching the game")
			return
		case LaunchAsk:
			if s.p.ConfirmLaunch != nil && !s.p.ConfirmLaunch(s.mod.Name()) {
				s.logf(zerolog.WarnLevel, "No patches applied, launch declined")
				return
			}
		}
	}

	exe := s.inst.Path(s.res.Executable)
	s.logf(zerolog.InfoLevel, "Launching %s", s.res.Executable)
	s.sound.Play(CueLaunch)

	code, err := s.launcher.Run(exe, s.gameDir)
	if err != nil {
		s.fail(LaunchError, exe, err)
		return
	}

	s.enter(Running)
	s.res.Launched = true
	s.res.ExitCode = code
	if code != 0 {
		s.logf(zerolog.WarnLevel, "Game exited with code %d", code)
	} else {
		s.logf(zerolog.InfoLevel, "Game exited")
	}
}

func (s *session) restore() {
	s.enter(Restoring)

	errs := backup.RestoreAll(s.records)
	for _, err := range errs {
		s.fail(RestoreFailed, "", err)
	}
	for _, rec := range s.records {
		if rec.Restored {
			s.logf(zerolog.InfoLevel, "Restored %s", filepath.Base(rec.Original))
		}
		s.res.Backups = append(s.res.Backups, *rec)
	}

	if s.journal != nil {
		if err := s.journal.Sync(s.records); err != nil {
			s.logf(zerolog.WarnLevel, "%v", err)
		}
	}
}
