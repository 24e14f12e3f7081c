package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"

	"video-analyzer/internal/models"
	"video-analyzer/shared/storage"
)

// ErrDetailsUnavailable means every detail source failed for a video.
var ErrDetailsUnavailable = errors.New("video details unavailable")

// DetailSource is one strategy for resolving video metadata.
type DetailSource interface {
	Name() string
	FetchDetails(ctx context.Context, videoID string) (*models.Video, error)
}

// DetailFetcher tries the cache, then each source in order, stopping at the
// first complete record and writing it through to the cache.
type DetailFetcher struct {
	cache   *storage.Cache
	sources []DetailSource
}

func NewDetailFetcher(cache *storage.Cache, sources ...DetailSource) *DetailFetcher {
	return &DetailFetcher{cache: cache, sources: sources}
}

// Sources returns the cascade order.
func (f *DetailFetcher) Sources() []DetailSource {
	return f.sources
}

func (f *DetailFetcher) FetchDetails(ctx context.Context, videoID string) (*models.Video, error) {
	if f.cache != nil {
		if video, ok := f.cache.GetDetails(videoID); ok {
			return video, nil
		}
	}

	var errs []error
	for _, source := range f.sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		video, err := source.FetchDetails(ctx, videoID)
		if err == nil && !video.Complete() {
			err = fmt.Errorf("incomplete record")
		}
		if err != nil {
			log.Printf("details: %s failed for %s: %v", source.Name(), videoID, err)
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
			continue
		}

		if f.cache != nil {
			if err := f.cache.PutDetails(video); err != nil {
				log.Printf("Warning: Failed to cache details for %s: %v", videoID, err)
			}
		}
		return video, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w for %s: no sources configured", ErrDetailsUnavailable, videoID)
	}
	return nil, fmt.Errorf("%w for %s: %w", ErrDetailsUnavailable, videoID, errors.Join(errs...))
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func thumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}
