package channelanalyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"video-analyzer/internal/models"
	"video-analyzer/shared/ai"
	"video-analyzer/shared/config"
	"video-analyzer/shared/scheduler"
	"video-analyzer/shared/storage"
)

type fakeVideos struct {
	videos []*models.Video
	err    error
}

func (f *fakeVideos) FetchChannelVideos(ctx context.Context, handle string, after time.Time, maxResults, concurrency int) ([]*models.Video, error) {
	return f.videos, f.err
}

type fakeTranscripts struct {
	mu    sync.Mutex
	text  string
	calls []string
}

func (f *fakeTranscripts) FetchTranscript(ctx context.Context, videoID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, videoID)
	return f.text, f.text != ""
}

// brokenClassifier fails or panics for selected IDs and defers to keywords otherwise.
type brokenClassifier struct {
	fail   map[string]bool
	panics map[string]bool
	inner  *ai.Classifier
}

func (b *brokenClassifier) Classify(ctx context.Context, videoID, title, description, transcript string) (*models.Classification, error) {
	if b.panics[videoID] {
		panic("classifier blew up")
	}
	if b.fail[videoID] {
		return nil, errors.New("backend unavailable")
	}
	return b.inner.Classify(ctx, videoID, title, description, transcript)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Output.ProcessedDataPath = t.TempDir()
	return cfg
}

// steppingClock advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func makeVideos(n int) []*models.Video {
	var videos []*models.Video
	for i := 1; i <= n; i++ {
		title := fmt.Sprintf("Vlog %d", i)
		if i%3 == 0 {
			title = fmt.Sprintf("RTX build %d", i)
		}
		id := fmt.Sprintf("vid%02d", i)
		videos = append(videos, &models.Video{ID: id, Title: title, URL: "https://www.youtube.com/watch?v=" + id})
	}
	return videos
}

func newTestAgent(t *testing.T, deps Dependencies) (*Agent, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	agent := NewAgent(cfg, deps).WithClock(steppingClock()).WithOutput(io.Discard)
	return agent, cfg
}

func TestAgentName(t *testing.T) {
	agent := NewAgent(&config.Config{}, Dependencies{})
	if name := agent.Name(); name != "Channel Analyzer" {
		t.Errorf("Agent.Name() = %s, want Channel Analyzer", name)
	}
}

func TestRunMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  RunMetrics
		expected string
	}{
		{
			name:     "All zeros",
			metrics:  RunMetrics{RunID: "r1"},
			expected: "run r1: found 0 videos, processed 0, 0 relevant, 0 failed",
		},
		{
			name:     "With failures",
			metrics:  RunMetrics{RunID: "r2", VideosFound: 12, Processed: 12, Relevant: 4, Failed: 1},
			expected: "run r2: found 12 videos, processed 12, 4 relevant, 1 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.metrics.GetSummary(); result != tt.expected {
				t.Errorf("GetSummary() = %s, want %s", result, tt.expected)
			}
		})
	}
}

func countBatchFiles(t *testing.T, dir string) (partials, finals int) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, "gpu_videos_partial_"):
			partials++
		case strings.HasPrefix(name, "gpu_videos_") && strings.HasSuffix(name, ".json"):
			finals++
		}
	}
	return partials, finals
}

// Uses the wall clock: all saves of a run land in the same second.
func TestRunOncePartialSaveCadence(t *testing.T) {
	cfg := testConfig(t)
	agent := NewAgent(cfg, Dependencies{
		Videos:      &fakeVideos{videos: makeVideos(12)},
		Transcripts: &fakeTranscripts{text: "transcript text"},
		Classifier:  ai.NewKeywordClassifier(config.DefaultKeywords),
	}).WithOutput(io.Discard)

	if err := agent.RunOnce(context.Background(), nil); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	partials, finals := countBatchFiles(t, cfg.Output.ProcessedDataPath)
	if partials != 2 || finals != 1 {
		t.Errorf("got %d partial and %d final files, want 2 and 1", partials, finals)
	}

	records, path, err := storage.LoadLatestBatch(cfg.Output.ProcessedDataPath, cfg.Output.FilePrefix)
	if err != nil {
		t.Fatalf("LoadLatestBatch() error = %v", err)
	}
	if path != agent.LastReport().OutputFile {
		t.Errorf("loaded %s, want %s", path, agent.LastReport().OutputFile)
	}
	if !reflect.DeepEqual(records, agent.LastReport().Records) {
		t.Error("reloaded records differ from the written ones")
	}
	if len(records) != 12 {
		t.Errorf("len(records) = %d, want 12", len(records))
	}
}

func TestRunOnceRepeatedRunsKeepEveryBatch(t *testing.T) {
	cfg := testConfig(t)
	agent := NewAgent(cfg, Dependencies{
		Videos:      &fakeVideos{videos: makeVideos(3)},
		Transcripts: &fakeTranscripts{text: "transcript text"},
		Classifier:  ai.NewKeywordClassifier(config.DefaultKeywords),
	}).WithOutput(io.Discard)

	var outputs []string
	for i := 0; i < 2; i++ {
		if err := agent.RunOnce(context.Background(), nil); err != nil {
			t.Fatalf("RunOnce() #%d error = %v", i+1, err)
		}
		outputs = append(outputs, agent.LastReport().OutputFile)
	}

	if outputs[0] == outputs[1] {
		t.Errorf("both runs wrote %s", outputs[0])
	}
	if _, finals := countBatchFiles(t, cfg.Output.ProcessedDataPath); finals != 2 {
		t.Errorf("got %d final files after two runs, want 2", finals)
	}
}

func TestRunOnceTranscriptOnlyForRelevant(t *testing.T) {
	long := strings.Repeat("g", 600)
	transcripts := &fakeTranscripts{text: long}
	agent, _ := newTestAgent(t, Dependencies{
		Videos:      &fakeVideos{videos: makeVideos(6)},
		Transcripts: transcripts,
		Classifier:  ai.NewKeywordClassifier(config.DefaultKeywords),
	})

	if err := agent.RunOnce(context.Background(), nil); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if want := []string{"vid03", "vid06"}; !reflect.DeepEqual(transcripts.calls, want) {
		t.Errorf("transcript fetched for %v, want %v", transcripts.calls, want)
	}

	for _, rec := range agent.LastReport().Records {
		if rec.IsRelevant {
			if !rec.HasTranscript || rec.TranscriptSnippet != strings.Repeat("g", 500)+"..." {
				t.Errorf("%s: relevant record missing truncated snippet", rec.VideoID)
			}
			if rec.Confidence != 0.9 {
				t.Errorf("%s: confidence = %v, want 0.9", rec.VideoID, rec.Confidence)
			}
		} else if rec.HasTranscript || rec.TranscriptSnippet != "" {
			t.Errorf("%s: non-relevant record should carry no transcript", rec.VideoID)
		}
	}
}

func TestRunOnceCallsBeforeRun(t *testing.T) {
	var calls int
	agent, _ := newTestAgent(t, Dependencies{
		Videos:      &fakeVideos{},
		Transcripts: &fakeTranscripts{},
		Classifier:  ai.NewKeywordClassifier(config.DefaultKeywords),
		BeforeRun: func() error {
			calls++
			return errors.New("token refresh failed")
		},
	})

	if err := agent.RunOnce(context.Background(), nil); err != nil {
		t.Fatalf("RunOnce() error = %v, hook failures must not abort the run", err)
	}
	if calls != 1 {
		t.Errorf("BeforeRun called %d times, want 1", calls)
	}
}

func TestRunOnceDropsFailedItems(t *testing.T) {
	var partialErrs []error
	var succeeded bool
	events := &scheduler.AgentEvents{
		OnSuccess:        func(m scheduler.Metrics, d time.Duration) { succeeded = true },
		OnPartialFailure: func(err error, d time.Duration) { partialErrs = append(partialErrs, err) },
	}

	agent, _ := newTestAgent(t, Dependencies{
		Videos:      &fakeVideos{videos: makeVideos(4)},
		Transcripts: &fakeTranscripts{},
		Classifier: &brokenClassifier{
			fail:   map[string]bool{"vid02": true},
			panics: map[string]bool{"vid03": true},
			inner:  ai.NewKeywordClassifier(config.DefaultKeywords),
		},
	})

	if err := agent.RunOnce(context.Background(), events); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	var ids []string
	for _, rec := range agent.LastReport().Records {
		ids = append(ids, rec.VideoID)
	}
	if want := []string{"vid01", "vid04"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("records = %v, want %v", ids, want)
	}
	if !succeeded || len(partialErrs) != 1 {
		t.Errorf("succeeded = %v, partial failures = %v", succeeded, partialErrs)
	}
}

func TestRunOnceListerFailureStillWritesResults(t *testing.T) {
	var partialErr error
	events := &scheduler.AgentEvents{
		OnPartialFailure: func(err error, d time.Duration) { partialErr = err },
	}
	agent, cfg := newTestAgent(t, Dependencies{
		Videos:      &fakeVideos{err: errors.New("channel page never rendered")},
		Transcripts: &fakeTranscripts{},
		Classifier:  ai.NewKeywordClassifier(config.DefaultKeywords),
	})

	if err := agent.RunOnce(context.Background(), events); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if partialErr == nil {
		t.Error("Expected a partial failure event")
	}

	records, _, err := storage.LoadLatestBatch(cfg.Output.ProcessedDataPath, cfg.Output.FilePrefix)
	if err != nil {
		t.Fatalf("LoadLatestBatch() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestInitializeFailsWithoutOutputDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker: %v", err)
	}

	cfg := config.Default()
	cfg.Output.ProcessedDataPath = filepath.Join(blocker, "out")
	agent := NewAgent(cfg, Dependencies{
		Videos:      &fakeVideos{},
		Transcripts: &fakeTranscripts{},
		Classifier:  ai.NewKeywordClassifier(config.DefaultKeywords),
	})

	if err := agent.Initialize(); err == nil {
		t.Error("Expected Initialize() to fail when the output directory cannot be created")
	}
	if err := agent.RunOnce(context.Background(), nil); err == nil {
		t.Error("Expected RunOnce() to fail when the output directory cannot be created")
	}
}

func TestInitializeRequiresDependencies(t *testing.T) {
	if err := NewAgent(testConfig(t), Dependencies{}).Initialize(); err == nil {
		t.Error("Expected Initialize() to reject missing dependencies")
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet("short"); got != "short" {
		t.Errorf("snippet(short) = %q", got)
	}
	long := strings.Repeat("é", 501)
	if got := snippet(long); got != strings.Repeat("é", 500)+"..." {
		t.Errorf("snippet(long) has %d runes", len([]rune(got)))
	}
}
