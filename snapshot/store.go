// Package snapshot persists timestamped CSV/JSON output files and resolves
// the most recent snapshot for readers.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the fixed filename timestamp format. Its fixed width
// makes lexicographic filename order chronological, so "latest" never
// depends on filesystem metadata.
const TimestampLayout = "20060102_150405"

var (
	// ErrNoData signals that no snapshot of the requested kind exists yet.
	ErrNoData = errors.New("snapshot: no data available")
	// ErrDisabled signals that the store could not set up its directories
	// and persistence is skipped for this run.
	ErrDisabled = errors.New("snapshot: store disabled")
)

// Store is an append-only directory of timestamped snapshot files, CSV under
// <data>/csv and JSON under <data>/json. Construction is best-effort: when
// the directories cannot be created (read-only environment), the store marks
// itself disabled and every write reports ErrDisabled instead of failing the
// run.
type Store struct {
	csvDir   string
	jsonDir  string
	disabled bool
}

// NewStore prepares the output directories under dataDir.
func NewStore(dataDir string) *Store {
	s := &Store{
		csvDir:  filepath.Join(dataDir, "csv"),
		jsonDir: filepath.Join(dataDir, "json"),
	}
	for _, dir := range []string{s.csvDir, s.jsonDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("cannot create output directory, persistence disabled",
				slog.String("dir", dir),
				slog.Any("error", err),
			)
			s.disabled = true
			return s
		}
	}
	return s
}

// Enabled reports whether writes will be attempted.
func (s *Store) Enabled() bool {
	return !s.disabled
}

// Filename builds the timestamped snapshot filename for a kind prefix.
func Filename(prefix string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, ts.Format(TimestampLayout), ext)
}

// write materializes one snapshot file all-or-nothing: content goes to a
// temp file in the target directory, renamed into place only after a clean
// close. A failed write leaves no partial file behind.
func (s *Store) write(dir, name string, fill func(io.Writer) error) (string, error) {
	if s.disabled {
		return "", ErrDisabled
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename snapshot into place: %w", err)
	}
	return target, nil
}

// latest returns the newest snapshot path for a kind prefix and extension,
// ordered by the timestamp embedded in the filename.
func (s *Store) latest(dir, prefix, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ErrNoData
	}

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, "."+ext) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return "", ErrNoData
	}

	sort.Strings(matches)
	return filepath.Join(dir, matches[len(matches)-1]), nil
}

// LatestCSV resolves the newest CSV snapshot for a kind prefix.
func (s *Store) LatestCSV(prefix string) (string, error) {
	return s.latest(s.csvDir, prefix, "csv")
}

// LatestJSON resolves the newest JSON snapshot for a kind prefix.
func (s *Store) LatestJSON(prefix string) (string, error) {
	return s.latest(s.jsonDir, prefix, "json")
}
