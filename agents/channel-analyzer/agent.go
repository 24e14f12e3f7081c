package channelanalyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"video-analyzer/internal/models"
	"video-analyzer/shared/ai"
	"video-analyzer/shared/config"
	"video-analyzer/shared/scheduler"
	"video-analyzer/shared/storage"
)

const transcriptSnippetLength = 500

// VideoSource lists and resolves a channel's recent videos.
type VideoSource interface {
	FetchChannelVideos(ctx context.Context, handle string, publishedAfter time.Time, maxResults, concurrency int) ([]*models.Video, error)
}

type TranscriptProvider interface {
	FetchTranscript(ctx context.Context, videoID string) (string, bool)
}

type VideoClassifier interface {
	Classify(ctx context.Context, videoID, title, description, transcript string) (*models.Classification, error)
}

// Dependencies are the collaborators the pipeline drives.
type Dependencies struct {
	Videos      VideoSource
	Transcripts TranscriptProvider
	Classifier  VideoClassifier
	// BeforeRun runs at the start of every run; a failure is logged, not fatal.
	BeforeRun func() error
}

// RunMetrics implements scheduler.Metrics for one pipeline run.
type RunMetrics struct {
	RunID          string
	VideosFound    int
	Processed      int
	Relevant       int
	WithTranscript int
	Failed         int
	PartialSaves   int
	OutputFile     string
}

func (m RunMetrics) GetSummary() string {
	return fmt.Sprintf("run %s: found %d videos, processed %d, %d relevant, %d failed",
		m.RunID, m.VideosFound, m.Processed, m.Relevant, m.Failed)
}

// Agent drives listing, classification, transcript enrichment and persistence.
type Agent struct {
	config *config.Config
	deps   Dependencies
	writer *storage.BatchWriter
	out    io.Writer
	now    func() time.Time

	lastReport *models.RunReport
}

func NewAgent(cfg *config.Config, deps Dependencies) *Agent {
	return &Agent{
		config: cfg,
		deps:   deps,
		out:    os.Stdout,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for the date cutoff and file names.
func (a *Agent) WithClock(now func() time.Time) *Agent {
	a.now = now
	if a.writer != nil {
		a.writer.WithClock(now)
	}
	return a
}

// WithOutput redirects console progress.
func (a *Agent) WithOutput(w io.Writer) *Agent {
	a.out = w
	return a
}

func (a *Agent) Name() string {
	return "Channel Analyzer"
}

// Initialize creates the output directory. It is the one fatal setup step.
func (a *Agent) Initialize() error {
	if a.deps.Videos == nil || a.deps.Classifier == nil || a.deps.Transcripts == nil {
		return errors.New("pipeline dependencies are not configured")
	}
	if a.writer == nil {
		writer, err := storage.NewBatchWriter(a.config.Output.ProcessedDataPath, a.config.Output.FilePrefix)
		if err != nil {
			return err
		}
		a.writer = writer.WithClock(a.now)
	}
	return nil
}

// LastReport returns the result of the most recent completed run.
func (a *Agent) LastReport() *models.RunReport {
	return a.lastReport
}

func (a *Agent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	if err := a.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", a.Name(), err)
	}

	startTime := time.Now()
	metrics := RunMetrics{RunID: uuid.NewString()}

	if a.deps.BeforeRun != nil {
		if err := a.deps.BeforeRun(); err != nil {
			log.Printf("Warning: pre-run hook failed: %v", err)
		}
	}
	channel := a.config.Channel

	publishedAfter := a.now().AddDate(0, 0, -channel.LookbackDays)
	fmt.Fprintf(a.out, "Fetching videos from %s published after %s\n", channel.Handle, publishedAfter.Format(time.RFC3339))

	videos, err := a.deps.Videos.FetchChannelVideos(ctx, channel.Handle, publishedAfter, channel.MaxVideos, channel.Concurrency)
	if err != nil {
		log.Printf("Warning: %v; continuing with no videos", err)
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
	}
	metrics.VideosFound = len(videos)
	fmt.Fprintf(a.out, "Processing %d videos (limited to %d)\n", len(videos), channel.MaxVideos)

	every := a.config.Output.PartialEvery
	var records []models.AnalysisRecord

	for i, video := range videos {
		if ctx.Err() != nil {
			log.Printf("Run %s interrupted after %d videos", metrics.RunID, i)
			break
		}

		fmt.Fprintf(a.out, "Processing video %d/%d: %s\n", i+1, len(videos), video.Title)
		record, err := a.processVideo(ctx, video)
		metrics.Processed++
		if err != nil {
			log.Printf("Warning: Failed to process video %s: %v", video.ID, err)
			metrics.Failed++
		} else {
			records = append(records, *record)
			if record.IsRelevant {
				metrics.Relevant++
			}
			if record.HasTranscript {
				metrics.WithTranscript++
			}
		}

		if every > 0 && (i+1)%every == 0 {
			if path, err := a.writer.WritePartial(records); err != nil {
				log.Printf("Warning: Failed to save partial results: %v", err)
			} else {
				metrics.PartialSaves++
				fmt.Fprintf(a.out, "Saved partial results to %s\n", path)
			}
		}
	}

	outputFile, err := a.writer.WriteFinal(records)
	if err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(startTime))
		}
		return fmt.Errorf("failed to save results: %w", err)
	}
	metrics.OutputFile = outputFile

	report := &models.RunReport{
		RunID:      metrics.RunID,
		Channel:    channel.Handle,
		OutputFile: outputFile,
		Records:    records,
	}
	a.lastReport = report
	a.printSummary(report)

	if metrics.Failed > 0 && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(fmt.Errorf("%d of %d videos failed", metrics.Failed, metrics.Processed), time.Since(startTime))
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	return nil
}

// processVideo classifies one video and fetches its transcript only when it is relevant.
func (a *Agent) processVideo(ctx context.Context, video *models.Video) (record *models.AnalysisRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = fmt.Errorf("panic while processing: %v", r)
		}
	}()

	classification, err := a.deps.Classifier.Classify(ctx, video.ID, video.Title, video.Description, "")
	if err != nil {
		return nil, fmt.Errorf("failed to classify: %w", err)
	}

	rec := models.NewAnalysisRecord(video, classification)
	if !rec.IsRelevant {
		fmt.Fprintf(a.out, "⏭️ Skipping non-relevant video: %s\n", video.Title)
		return &rec, nil
	}

	fmt.Fprintf(a.out, "📊 Relevant video found: %s\n", video.Title)
	if transcript, ok := a.deps.Transcripts.FetchTranscript(ctx, video.ID); ok {
		rec.TranscriptSnippet = snippet(transcript)
		rec.HasTranscript = true
	}
	return &rec, nil
}

func snippet(transcript string) string {
	cut := ai.TruncateRunes(transcript, transcriptSnippetLength)
	if cut != transcript {
		return cut + "..."
	}
	return cut
}

func (a *Agent) printSummary(report *models.RunReport) {
	relevant := report.Relevant()
	fmt.Fprintf(a.out, "Analysis complete. Results saved to %s\n", report.OutputFile)
	fmt.Fprintf(a.out, "Summary: Found %d relevant videos out of %d total videos.\n", len(relevant), len(report.Records))

	if len(relevant) > 0 {
		fmt.Fprintf(a.out, "\nRelevant videos:\n")
		for _, rec := range relevant {
			fmt.Fprintf(a.out, "- %s (%s)\n", rec.Title, rec.URL)
		}
	}
}
