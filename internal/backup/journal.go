package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JournalFile is kept in the game directory while a session holds backups.
const JournalFile = ".split-session.json"

// Journal is the on-disk list of backups taken by a session. It outlives a
// crash of the patcher so the next run can put the originals back.
type Journal struct {
	ID      string    `json:"id"`
	ModDir  string    `json:"mod_dir"`
	Started time.Time `json:"started"`
	Records []Record  `json:"records"`

	mu   sync.Mutex
	path string
}

// NewJournal creates an empty journal for a session in gameDir. Nothing is
// written until the first record is added.
func NewJournal(gameDir, modDir string) *Journal {
	return &Journal{
		ID:      uuid.NewString(),
		ModDir:  modDir,
		Started: time.Now().UTC(),
		path:    filepath.Join(gameDir, JournalFile),
	}
}

// LoadJournal reads the journal left in gameDir. The error wraps fs.ErrNotExist
// when there is none.
func LoadJournal(gameDir string) (*Journal, error) {
	path := filepath.Join(gameDir, JournalFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session journal: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to parse session journal: %w", err)
	}
	j.path = path
	return &j, nil
}

// Path returns where the journal is stored
func (j *Journal) Path() string {
	return j.path
}

// Add appends a record and persists the journal
func (j *Journal) Add(rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Records = append(j.Records, rec)
	return j.save()
}

// Sync copies restored flags from records into the journal, then removes the
// journal if everything is restored or saves the remainder otherwise.
func (j *Journal) Sync(records []*Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	restored := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Restored {
			restored[rec.Original] = true
		}
	}

	var pending []Record
	for _, rec := range j.Records {
		if rec.Restored || restored[rec.Original] {
			continue
		}
		pending = append(pending, rec)
	}
	j.Records = pending

	if len(pending) == 0 {
		if err := os.Remove(j.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove session journal: %w", err)
		}
		return nil
	}
	return j.save()
}

func (j *Journal) save() error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session journal: %w", err)
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write session journal: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save session journal: %w", err)
	}
	return nil
}

// Recover restores every backup recorded by an interrupted session in gameDir.
// It returns the records it handled and one error per record that could not be
// restored. A missing journal is not an error.
func Recover(gameDir string) ([]*Record, []error, error) {
	j, err := LoadJournal(gameDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	records := make([]*Record, 0, len(j.Records))
	for i := range j.Records {
		rec := j.Records[i]
		if _, statErr := os.Stat(rec.Backup); errors.Is(statErr, fs.ErrNotExist) {
			// Already moved back by hand or by a previous partial recovery.
			rec.Restored = true
		}
		records = append(records, &rec)
	}

	errs := RestoreAll(records)
	if err := j.Sync(records); err != nil {
		errs = append(errs, err)
	}
	return records, errs, nil
}
