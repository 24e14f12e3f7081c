package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"video-analyzer/internal/models"
)

const defaultYtdlpTimeout = 60 * time.Second

// CommandRunner executes a command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// YtdlpSource resolves metadata with the yt-dlp executable.
type YtdlpSource struct {
	Path    string
	Timeout time.Duration
	run     CommandRunner
}

func NewYtdlpSource(path string) *YtdlpSource {
	if path == "" {
		path = "yt-dlp"
	}
	return &YtdlpSource{Path: path, Timeout: defaultYtdlpTimeout, run: execCommand}
}

func (y *YtdlpSource) Name() string {
	return "yt-dlp"
}

func (y *YtdlpSource) FetchDetails(ctx context.Context, videoID string) (*models.Video, error) {
	run := y.run
	if run == nil {
		run = execCommand
	}

	ctx, cancel := context.WithTimeout(ctx, y.Timeout)
	defer cancel()

	out, err := run(ctx, y.Path, "-J", "--no-warnings", "--skip-download", watchURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	return parseYtdlpMetadata(videoID, out)
}

type ytdlpMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	UploadDate  string   `json:"upload_date"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    *float64 `json:"duration"`
	ViewCount   *int64   `json:"view_count"`
}

func parseYtdlpMetadata(videoID string, data []byte) (*models.Video, error) {
	var raw ytdlpMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse metadata JSON: %w", err)
	}
	if raw.Title == "" {
		return nil, fmt.Errorf("invalid metadata: missing or empty title")
	}

	video := &models.Video{
		ID:          videoID,
		Title:       raw.Title,
		Description: raw.Description,
		PublishDate: raw.UploadDate,
		URL:         watchURL(videoID),
		Thumbnail:   raw.Thumbnail,
		ViewCount:   raw.ViewCount,
	}
	if video.Thumbnail == "" {
		video.Thumbnail = thumbnailURL(videoID)
	}
	if raw.Duration != nil {
		seconds := int(*raw.Duration)
		video.Duration = &seconds
	}
	return video, nil
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
