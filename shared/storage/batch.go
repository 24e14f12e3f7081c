package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"video-analyzer/internal/models"

	"github.com/gofrs/flock"
)

const timestampLayout = "20060102_150405"

const maxNameAttempts = 3600

// ErrNoBatches is returned when a directory holds no final batch files.
var ErrNoBatches = errors.New("no result files found")

// BatchWriter persists analysis results as timestamped JSON arrays. Files are
// never updated in place; each call produces a new file.
type BatchWriter struct {
	dir    string
	prefix string
	lock   *flock.Flock
	now    func() time.Time
}

// NewBatchWriter creates the output directory. Failure here means results
// cannot be persisted at all, so callers should abort.
func NewBatchWriter(dir, prefix string) (*BatchWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &BatchWriter{
		dir:    dir,
		prefix: prefix,
		lock:   flock.New(lockPath(dir, prefix)),
		now:    time.Now,
	}, nil
}

// WithClock overrides the timestamp source used in file names.
func (w *BatchWriter) WithClock(now func() time.Time) *BatchWriter {
	w.now = now
	return w
}

func (w *BatchWriter) Dir() string {
	return w.dir
}

// WriteFinal writes <prefix>_<timestamp>.json.
func (w *BatchWriter) WriteFinal(records []models.AnalysisRecord) (string, error) {
	return w.write("%s_%s.json", records)
}

// WritePartial writes <prefix>_partial_<timestamp>.json.
func (w *BatchWriter) WritePartial(records []models.AnalysisRecord) (string, error) {
	return w.write("%s_partial_%s.json", records)
}

// write never replaces an existing batch. When the name for the current
// second is taken, the timestamp moves forward one second at a time.
func (w *BatchWriter) write(pattern string, records []models.AnalysisRecord) (string, error) {
	if records == nil {
		records = []models.AnalysisRecord{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}

	if err := w.lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock output directory: %w", err)
	}
	defer w.lock.Unlock()

	path, err := w.freePath(pattern)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// freePath must be called with the directory lock held.
func (w *BatchWriter) freePath(pattern string) (string, error) {
	ts := w.now()
	for i := 0; i < maxNameAttempts; i++ {
		path := filepath.Join(w.dir, fmt.Sprintf(pattern, w.prefix, ts.Format(timestampLayout)))
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", path, err)
		}
		ts = ts.Add(time.Second)
	}
	return "", fmt.Errorf("failed to find a free batch name in %s after %d attempts", w.dir, maxNameAttempts)
}

// LoadLatestBatch loads the most recently modified final batch file
// (partial snapshots are ignored) and returns its records and path.
func LoadLatestBatch(dir, prefix string) ([]models.AnalysisRecord, string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.json"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to list result files: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var files []candidate
	partialPrefix := prefix + "_partial_"
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), partialPrefix) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, candidate{path: m, modTime: info.ModTime()})
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("%w in %s", ErrNoBatches, dir)
	}

	// Newest first; the timestamp in the name breaks mtime ties.
	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path > files[j].path
	})
	latest := files[0].path

	lock := flock.New(lockPath(dir, prefix))
	if err := lock.RLock(); err != nil {
		return nil, "", fmt.Errorf("failed to lock output directory: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(latest)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", latest, err)
	}

	var records []models.AnalysisRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", latest, err)
	}
	return records, latest, nil
}

func lockPath(dir, prefix string) string {
	return filepath.Join(dir, "."+prefix+".lock")
}
