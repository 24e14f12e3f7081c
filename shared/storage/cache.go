package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"video-analyzer/internal/models"
)

// Kind selects which cache namespace an entry lives in.
type Kind int

const (
	KindDetails Kind = iota
	KindTranscript
)

func (k Kind) suffix() string {
	if k == KindTranscript {
		return "_transcript.txt"
	}
	return "_details.json"
}

// Cache is an on-disk store keyed by video ID: one JSON file per video for
// details and one plain-text file for transcripts. Entries never expire.
// Concurrent writers of the same key each replace the whole file, so the
// worst case is a lost update, never a torn file.
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(kind Kind, videoID string) string {
	return filepath.Join(c.dir, videoID+kind.suffix())
}

// Get returns the raw entry, or false when it is missing or unreadable.
func (c *Cache) Get(kind Kind, videoID string) ([]byte, bool) {
	if !validKey(videoID) {
		return nil, false
	}
	data, err := os.ReadFile(c.path(kind, videoID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("cache: read error for %s, regenerating: %v", videoID, err)
		}
		return nil, false
	}
	return data, true
}

// Put overwrites the entry, creating the cache directory if needed.
func (c *Cache) Put(kind Kind, videoID string, data []byte) error {
	if !validKey(videoID) {
		return fmt.Errorf("invalid cache key %q", videoID)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return writeFileAtomic(c.path(kind, videoID), data)
}

// GetDetails returns the cached record only when it decodes and carries id, title and url.
func (c *Cache) GetDetails(videoID string) (*models.Video, bool) {
	data, ok := c.Get(KindDetails, videoID)
	if !ok {
		return nil, false
	}

	var video models.Video
	if err := json.Unmarshal(data, &video); err != nil {
		log.Printf("cache: corrupt details for %s, regenerating: %v", videoID, err)
		return nil, false
	}
	if !video.Complete() {
		log.Printf("cache: incomplete details for %s, regenerating", videoID)
		return nil, false
	}
	return &video, true
}

func (c *Cache) PutDetails(video *models.Video) error {
	if !video.Complete() {
		return fmt.Errorf("refusing to cache incomplete details for %q", video.ID)
	}
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}
	return c.Put(KindDetails, video.ID, data)
}

// GetTranscript treats an empty file as absent.
func (c *Cache) GetTranscript(videoID string) (string, bool) {
	data, ok := c.Get(KindTranscript, videoID)
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *Cache) PutTranscript(videoID, text string) error {
	return c.Put(KindTranscript, videoID, []byte(text))
}

// validKey rejects IDs that would escape the cache directory.
func validKey(videoID string) bool {
	return videoID != "" && !strings.ContainsAny(videoID, `/\`) && videoID != "." && videoID != ".."
}

// writeFileAtomic writes to a temp file in the target directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}
	return nil
}
