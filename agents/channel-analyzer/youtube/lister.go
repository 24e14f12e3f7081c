package youtube

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"video-analyzer/shared/browser"
)

const (
	contentsSelector  = "#contents"
	thumbnailSelector = "a#thumbnail.yt-simple-endpoint"
)

// ChannelURL builds the videos tab URL for a channel handle.
func ChannelURL(handle string) string {
	handle = strings.TrimSpace(handle)
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	return "https://www.youtube.com/" + handle + "/videos"
}

type ListerOptions struct {
	ElementTimeout time.Duration
	ScrollCount    int
	ScrollWait     time.Duration
}

// ChannelLister enumerates video IDs from a rendered channel page.
type ChannelLister struct {
	renderer browser.Renderer
	opts     ListerOptions
}

func NewChannelLister(renderer browser.Renderer, opts ListerOptions) *ChannelLister {
	return &ChannelLister{renderer: renderer, opts: opts}
}

// ListVideoIDs returns deduplicated IDs in discovery order. The result may
// be longer or shorter than maxResults.
func (l *ChannelLister) ListVideoIDs(ctx context.Context, handle string, maxResults int) ([]string, error) {
	channelURL := ChannelURL(handle)
	var html string

	err := l.renderer.Do(ctx, func(p browser.Page) error {
		if err := p.Navigate(channelURL); err != nil {
			return err
		}
		if err := p.WaitFor(contentsSelector, l.opts.ElementTimeout); err != nil {
			return fmt.Errorf("channel contents never rendered: %w", err)
		}

		for i := 0; i < l.opts.ScrollCount; i++ {
			if maxResults > 0 {
				if n, err := p.Count(thumbnailSelector); err == nil && n >= maxResults {
					break
				}
			}
			if err := p.ScrollToBottom(); err != nil {
				return err
			}
			if err := p.Sleep(l.opts.ScrollWait); err != nil {
				return err
			}
		}

		var err error
		html, err = p.HTML()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", channelURL, err)
	}

	ids, err := ExtractVideoIDs(html)
	if err != nil {
		return nil, err
	}
	log.Printf("lister: found %d videos on %s", len(ids), channelURL)
	return ids, nil
}

// ExtractVideoIDs pulls the v query parameter from every thumbnail anchor,
// keeping the first occurrence of each ID.
func ExtractVideoIDs(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel page: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	doc.Find(thumbnailSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		u, err := url.Parse(href)
		if err != nil || u.Path != "/watch" {
			return
		}
		id := u.Query().Get("v")
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids, nil
}
