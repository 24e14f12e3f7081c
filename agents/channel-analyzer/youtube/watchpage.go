package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ytdl "github.com/kkdai/youtube/v2"

	"video-analyzer/internal/models"
)

// videoResolver is the subset of the kkdai client used for watch-page scraping.
type videoResolver interface {
	GetVideoContext(ctx context.Context, id string) (*ytdl.Video, error)
}

// WatchPageSource reads metadata from the public watch page player response.
type WatchPageSource struct {
	client videoResolver
}

func NewWatchPageSource(httpClient *http.Client) *WatchPageSource {
	return &WatchPageSource{client: &ytdl.Client{HTTPClient: httpClient}}
}

func (w *WatchPageSource) Name() string {
	return "watch page"
}

func (w *WatchPageSource) FetchDetails(ctx context.Context, videoID string) (*models.Video, error) {
	v, err := w.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("resolve watch page: %w", err)
	}
	return videoFromWatchPage(videoID, v), nil
}

func videoFromWatchPage(videoID string, v *ytdl.Video) *models.Video {
	video := &models.Video{
		ID:          videoID,
		Title:       v.Title,
		Description: v.Description,
		URL:         watchURL(videoID),
		Thumbnail:   thumbnailURL(videoID),
	}
	if !v.PublishDate.IsZero() {
		video.PublishDate = v.PublishDate.UTC().Format(time.RFC3339)
	}

	var widest uint
	for _, thumb := range v.Thumbnails {
		if thumb.URL != "" && thumb.Width > widest {
			widest = thumb.Width
			video.Thumbnail = thumb.URL
		}
	}

	if v.Duration > 0 {
		seconds := int(v.Duration / time.Second)
		video.Duration = &seconds
	}
	if v.Views > 0 {
		views := int64(v.Views)
		video.ViewCount = &views
	}
	return video
}
