package storage

import (
	"os"
	"path/filepath"
	"testing"

	"video-analyzer/internal/models"
)

func TestCacheDetailsRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	cache := NewCache(dir)

	views := int64(1234)
	video := &models.Video{
		ID:          "abc123",
		Title:       "RTX 4090 Review",
		Description: "Benchmarks",
		PublishDate: "20240102",
		URL:         "https://www.youtube.com/watch?v=abc123",
		Thumbnail:   "https://img.youtube.com/vi/abc123/maxresdefault.jpg",
		ViewCount:   &views,
	}

	if err := cache.PutDetails(video); err != nil {
		t.Fatalf("PutDetails() error = %v", err)
	}

	got, ok := cache.GetDetails("abc123")
	if !ok {
		t.Fatal("GetDetails() returned absent for a stored entry")
	}
	if got.Title != video.Title || got.URL != video.URL || got.PublishDate != video.PublishDate {
		t.Errorf("GetDetails() = %+v, want %+v", got, video)
	}
	if got.ViewCount == nil || *got.ViewCount != views {
		t.Errorf("ViewCount = %v, want %d", got.ViewCount, views)
	}
}

func TestCacheDetailsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Missing id", content: `{"title": "t", "url": "u"}`},
		{name: "Missing title", content: `{"id": "vid", "url": "u"}`},
		{name: "Missing url", content: `{"id": "vid", "title": "t"}`},
		{name: "Empty title", content: `{"id": "vid", "title": "", "url": "u"}`},
		{name: "Not JSON", content: `{"id": "vid", "title":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "vid_details.json"), []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to seed cache: %v", err)
			}

			if got, ok := NewCache(dir).GetDetails("vid"); ok {
				t.Errorf("GetDetails() = %+v, want absent", got)
			}
		})
	}
}

func TestCachePutOverwrites(t *testing.T) {
	cache := NewCache(t.TempDir())

	if err := cache.PutTranscript("vid", "first"); err != nil {
		t.Fatalf("PutTranscript() error = %v", err)
	}
	if err := cache.PutTranscript("vid", "second"); err != nil {
		t.Fatalf("PutTranscript() error = %v", err)
	}

	got, ok := cache.GetTranscript("vid")
	if !ok || got != "second" {
		t.Errorf("GetTranscript() = %q, %v; want \"second\", true", got, ok)
	}
}

func TestCacheTranscriptAbsent(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir)

	if _, ok := cache.GetTranscript("missing"); ok {
		t.Error("GetTranscript() on missing entry should be absent")
	}

	if err := os.WriteFile(filepath.Join(dir, "blank_transcript.txt"), []byte("  \n"), 0644); err != nil {
		t.Fatalf("Failed to seed cache: %v", err)
	}
	if _, ok := cache.GetTranscript("blank"); ok {
		t.Error("GetTranscript() on blank entry should be absent")
	}
}

func TestCacheRejectsIncompleteAndUnsafeKeys(t *testing.T) {
	cache := NewCache(t.TempDir())

	if err := cache.PutDetails(&models.Video{ID: "vid", Title: "no url"}); err == nil {
		t.Error("PutDetails() should reject a record without url")
	}
	if err := cache.Put(KindDetails, "../escape", []byte("{}")); err == nil {
		t.Error("Put() should reject keys containing path separators")
	}
	if _, ok := cache.Get(KindDetails, ""); ok {
		t.Error("Get() with empty key should be absent")
	}
}
