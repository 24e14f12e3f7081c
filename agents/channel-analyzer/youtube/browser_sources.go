package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"video-analyzer/internal/models"
	"video-analyzer/shared/browser"
)

const (
	titleSelector        = "h1.title, h1.ytd-watch-metadata"
	descriptionSelector  = "#description-inline-expander"
	dateSelector         = "#info-strings yt-formatted-string"
	moreActionsSelector  = "button[aria-label='More actions']"
	menuItemSelector     = "tp-yt-paper-item"
	transcriptSegmentSel = "#transcript-scrollbox yt-formatted-string, ytd-transcript-segment-renderer .segment-text"
)

// BrowserDetailSource scrapes metadata from the rendered watch page.
type BrowserDetailSource struct {
	renderer browser.Renderer
	timeout  time.Duration
}

func NewBrowserDetailSource(renderer browser.Renderer, elementTimeout time.Duration) *BrowserDetailSource {
	return &BrowserDetailSource{renderer: renderer, timeout: elementTimeout}
}

func (b *BrowserDetailSource) Name() string {
	return "browser"
}

func (b *BrowserDetailSource) FetchDetails(ctx context.Context, videoID string) (*models.Video, error) {
	video := &models.Video{
		ID:        videoID,
		URL:       watchURL(videoID),
		Thumbnail: thumbnailURL(videoID),
	}

	err := b.renderer.Do(ctx, func(p browser.Page) error {
		if err := p.Navigate(video.URL); err != nil {
			return err
		}
		if err := p.WaitFor(titleSelector, b.timeout); err != nil {
			return fmt.Errorf("title never rendered: %w", err)
		}

		title, err := p.Text(titleSelector)
		if err != nil {
			return err
		}
		video.Title = title

		// Description and date are best effort.
		if desc, err := p.Text(descriptionSelector); err == nil {
			video.Description = desc
		}
		if date, err := p.Text(dateSelector); err == nil {
			video.PublishDate = date
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("render watch page: %w", err)
	}
	return video, nil
}

// BrowserTranscriptSource opens the transcript panel through the page menu.
type BrowserTranscriptSource struct {
	renderer browser.Renderer
	timeout  time.Duration
}

func NewBrowserTranscriptSource(renderer browser.Renderer, elementTimeout time.Duration) *BrowserTranscriptSource {
	return &BrowserTranscriptSource{renderer: renderer, timeout: elementTimeout}
}

func (b *BrowserTranscriptSource) Name() string {
	return "browser"
}

func (b *BrowserTranscriptSource) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	var transcript string

	err := b.renderer.Do(ctx, func(p browser.Page) error {
		if err := p.Navigate(watchURL(videoID)); err != nil {
			return err
		}
		if err := p.Sleep(2 * time.Second); err != nil {
			return err
		}
		if err := p.Click(moreActionsSelector, b.timeout); err != nil {
			return fmt.Errorf("open actions menu: %w", err)
		}
		if err := p.Sleep(time.Second); err != nil {
			return err
		}

		found, err := p.ClickContaining(menuItemSelector, "transcript")
		if err != nil {
			return err
		}
		if !found {
			return ErrNoCaptions
		}
		if err := p.Sleep(2 * time.Second); err != nil {
			return err
		}

		segments, err := p.Texts(transcriptSegmentSel)
		if err != nil {
			return err
		}
		transcript = strings.Join(segments, " ")
		return nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return "", ErrNoCaptions
	}
	return transcript, nil
}
