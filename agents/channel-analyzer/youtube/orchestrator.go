package youtube

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"video-analyzer/internal/models"
)

type VideoLister interface {
	ListVideoIDs(ctx context.Context, handle string, maxResults int) ([]string, error)
}

type DetailResolver interface {
	FetchDetails(ctx context.Context, videoID string) (*models.Video, error)
}

// Orchestrator resolves a channel's video list into records with a bounded worker pool.
type Orchestrator struct {
	lister  VideoLister
	details DetailResolver
}

func NewOrchestrator(lister VideoLister, details DetailResolver) *Orchestrator {
	return &Orchestrator{lister: lister, details: details}
}

// FetchChannelVideos returns records in completion order. Failed fetches are
// dropped, and records with an unparseable publish date are kept.
func (o *Orchestrator) FetchChannelVideos(ctx context.Context, handle string, publishedAfter time.Time, maxResults, concurrency int) ([]*models.Video, error) {
	ids, err := o.lister.ListVideoIDs(ctx, handle, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos for %s: %w", handle, err)
	}
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		videos []*models.Video
	)

	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, id := range ids {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Warning: detail worker panicked for %s: %v", id, r)
				}
			}()

			video, err := o.details.FetchDetails(ctx, id)
			if err != nil {
				log.Printf("Warning: skipping %s: %v", id, err)
				return nil
			}
			if !PublishedOnOrAfter(video, publishedAfter) {
				return nil
			}

			mu.Lock()
			videos = append(videos, video)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	log.Printf("Fetched %d of %d videos for %s", len(videos), len(ids), handle)
	return videos, nil
}
