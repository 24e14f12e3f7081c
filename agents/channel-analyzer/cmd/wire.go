package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	channelanalyzer "video-analyzer/agents/channel-analyzer"
	"video-analyzer/agents/channel-analyzer/youtube"
	"video-analyzer/shared/ai"
	"video-analyzer/shared/browser"
	"video-analyzer/shared/config"
	"video-analyzer/shared/httpx"
	"video-analyzer/shared/storage"
)

// buildDependencies assembles the fetch cascades around one browser session.
// The returned func closes the session.
func buildDependencies(ctx context.Context, cfg *config.Config) (channelanalyzer.Dependencies, func() error, error) {
	httpClient := httpx.New(httpx.Config{
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Timeout:           30 * time.Second,
	})
	session := browser.Open(browser.Options{
		Headless: cfg.Browser.IsHeadless(),
		ExecPath: cfg.Browser.ExecPath,
	})
	cache := storage.NewCache(cfg.Cache.Dir)
	timeout := cfg.Browser.ElementTimeout()

	var beforeRun func() error
	sources := []youtube.DetailSource{
		youtube.NewYtdlpSource(cfg.YouTube.YtdlpPath),
		youtube.NewWatchPageSource(httpClient),
	}
	dataAPI, err := youtube.NewDataAPISource(ctx, cfg.YouTube)
	switch {
	case err == nil:
		sources = append(sources, dataAPI)
		beforeRun = dataAPI.RefreshToken
	case !errors.Is(err, youtube.ErrNoCredentials):
		log.Printf("Warning: YouTube Data API disabled: %v", err)
	}
	sources = append(sources, youtube.NewBrowserDetailSource(session, timeout))

	lister := youtube.NewChannelLister(session, youtube.ListerOptions{
		ElementTimeout: timeout,
		ScrollCount:    cfg.Browser.ScrollCount,
		ScrollWait:     cfg.Browser.ScrollWait(),
	})
	transcripts := youtube.NewTranscriptFetcher(cache,
		youtube.NewCaptionSource(youtube.NewKkdaiCaptions(httpClient)),
		youtube.NewBrowserTranscriptSource(session, timeout),
	)

	classifier, err := newClassifier(ctx, cfg)
	if err != nil {
		session.Close()
		return channelanalyzer.Dependencies{}, nil, err
	}

	deps := channelanalyzer.Dependencies{
		Videos:      youtube.NewOrchestrator(lister, youtube.NewDetailFetcher(cache, sources...)),
		Transcripts: transcripts,
		Classifier:  classifier,
		BeforeRun:   beforeRun,
	}
	return deps, session.Close, nil
}

func newClassifier(ctx context.Context, cfg *config.Config) (*ai.Classifier, error) {
	if !cfg.AI.LLMEnabled() {
		return ai.NewKeywordClassifier(cfg.Classifier.Keywords), nil
	}

	classifier, err := ai.NewClassifier(cfg.Classifier.Keywords, cfg.AI.FallbackEnabled(), func() (ai.Generator, error) {
		generator, err := ai.NewGeminiGenerator(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		return generator, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	return classifier, nil
}
