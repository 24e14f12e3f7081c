package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"

	"video-analyzer/shared/storage"
)

// ErrNoCaptions means the video exposes no usable transcript. It ends the
// cascade; later sources are only tried after real failures.
var ErrNoCaptions = errors.New("no captions available")

type TranscriptSource interface {
	Name() string
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}

// TranscriptFetcher tries the cache and then each source in order.
type TranscriptFetcher struct {
	cache   *storage.Cache
	sources []TranscriptSource
}

func NewTranscriptFetcher(cache *storage.Cache, sources ...TranscriptSource) *TranscriptFetcher {
	return &TranscriptFetcher{cache: cache, sources: sources}
}

// FetchTranscript never fails: an unavailable transcript is reported as ("", false).
func (f *TranscriptFetcher) FetchTranscript(ctx context.Context, videoID string) (string, bool) {
	if f.cache != nil {
		if text, ok := f.cache.GetTranscript(videoID); ok {
			return text, true
		}
	}

	for _, src := range f.sources {
		if ctx.Err() != nil {
			return "", false
		}
		text, err := src.FetchTranscript(ctx, videoID)
		if errors.Is(err, ErrNoCaptions) {
			return "", false
		}
		if err != nil {
			log.Printf("transcript: %s failed for %s: %v", src.Name(), videoID, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if f.cache != nil {
			if err := f.cache.PutTranscript(videoID, text); err != nil {
				log.Printf("Warning: failed to cache transcript for %s: %v", videoID, err)
			}
		}
		return text, true
	}
	return "", false
}

type CaptionTrack struct {
	BaseURL      string
	LanguageCode string
	// Kind is "asr" for auto-generated tracks.
	Kind string
}

// CaptionService downloads a raw caption document for a video.
type CaptionService interface {
	Captions(ctx context.Context, videoID string) (string, error)
}

// KkdaiCaptions lists tracks from the player response and downloads one as WebVTT.
type KkdaiCaptions struct {
	client     videoResolver
	httpClient *http.Client
}

func NewKkdaiCaptions(httpClient *http.Client) *KkdaiCaptions {
	return &KkdaiCaptions{
		client:     &ytdl.Client{HTTPClient: httpClient},
		httpClient: httpClient,
	}
}

func (k *KkdaiCaptions) Captions(ctx context.Context, videoID string) (string, error) {
	v, err := k.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("resolve captions: %w", err)
	}

	tracks := make([]CaptionTrack, 0, len(v.CaptionTracks))
	for _, t := range v.CaptionTracks {
		tracks = append(tracks, CaptionTrack{BaseURL: t.BaseURL, LanguageCode: t.LanguageCode, Kind: t.Kind})
	}

	track, ok := pickTrack(tracks)
	if !ok {
		return "", ErrNoCaptions
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL+"&fmt=vtt", nil)
	if err != nil {
		return "", err
	}
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download captions: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read captions: %w", err)
	}
	return string(body), nil
}

// pickTrack prefers a manual English track, then auto-generated English, then anything.
func pickTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}
	for _, t := range tracks {
		if isEnglish(t.LanguageCode) && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range tracks {
		if isEnglish(t.LanguageCode) {
			return t, true
		}
	}
	return tracks[0], true
}

func isEnglish(code string) bool {
	return code == "en" || strings.HasPrefix(code, "en-")
}

// CaptionSource adapts a CaptionService into a transcript source.
type CaptionSource struct {
	service CaptionService
}

func NewCaptionSource(service CaptionService) *CaptionSource {
	return &CaptionSource{service: service}
}

func (c *CaptionSource) Name() string {
	return "captions"
}

func (c *CaptionSource) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	raw, err := c.service.Captions(ctx, videoID)
	if err != nil {
		return "", err
	}
	text := CaptionsToText(raw)
	if text == "" {
		return "", ErrNoCaptions
	}
	return text, nil
}

var (
	captionIndexRE = regexp.MustCompile(`^\d+$`)
	captionTagRE   = regexp.MustCompile(`<[^>]*>`)
)

// CaptionsToText flattens an SRT or WebVTT document into plain spoken text.
func CaptionsToText(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		switch {
		case line == "":
		case strings.HasPrefix(line, "WEBVTT"),
			strings.HasPrefix(line, "Kind:"),
			strings.HasPrefix(line, "Language:"),
			strings.HasPrefix(line, "NOTE"):
		case captionIndexRE.MatchString(line):
		case strings.Contains(line, "-->"):
		default:
			if text := strings.TrimSpace(captionTagRE.ReplaceAllString(line, "")); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}
