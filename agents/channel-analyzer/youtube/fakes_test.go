package youtube

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"video-analyzer/internal/models"
	"video-analyzer/shared/browser"
)

// fakePage serves canned element text and records interactions.
type fakePage struct {
	texts      map[string]string
	lists      map[string][]string
	counts     []int
	html       string
	missing    map[string]bool
	menuItems  []string
	navigated  []string
	scrolls    int
	clicked    []string
	countCalls int
}

func (p *fakePage) Navigate(url string) error {
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) WaitFor(selector string, timeout time.Duration) error {
	if p.missing[selector] {
		return errors.New("timeout waiting for " + selector)
	}
	return nil
}

func (p *fakePage) Text(selector string) (string, error) {
	return p.texts[selector], nil
}

func (p *fakePage) Texts(selector string) ([]string, error) {
	return p.lists[selector], nil
}

func (p *fakePage) Count(selector string) (int, error) {
	defer func() { p.countCalls++ }()
	if p.countCalls < len(p.counts) {
		return p.counts[p.countCalls], nil
	}
	return 0, nil
}

func (p *fakePage) Click(selector string, timeout time.Duration) error {
	if p.missing[selector] {
		return errors.New("no node for " + selector)
	}
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) ClickContaining(selector, substr string) (bool, error) {
	for _, item := range p.menuItems {
		if strings.Contains(strings.ToLower(item), strings.ToLower(substr)) {
			p.clicked = append(p.clicked, item)
			return true, nil
		}
	}
	return false, nil
}

func (p *fakePage) ScrollToBottom() error {
	p.scrolls++
	return nil
}

func (p *fakePage) HTML() (string, error) {
	return p.html, nil
}

func (p *fakePage) Sleep(d time.Duration) error {
	return nil
}

type fakeRenderer struct {
	page *fakePage
	err  error
}

func (r *fakeRenderer) Do(ctx context.Context, fn func(browser.Page) error) error {
	if r.err != nil {
		return r.err
	}
	return fn(r.page)
}

// fakeDetailSource returns a fixed result and counts calls.
type fakeDetailSource struct {
	name  string
	video *models.Video
	err   error

	mu    sync.Mutex
	calls int
}

func (f *fakeDetailSource) Name() string {
	return f.name
}

func (f *fakeDetailSource) FetchDetails(ctx context.Context, videoID string) (*models.Video, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.video == nil {
		return nil, nil
	}
	v := *f.video
	v.ID = videoID
	v.URL = watchURL(videoID)
	return &v, nil
}

func (f *fakeDetailSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranscriptSource struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeTranscriptSource) Name() string {
	return f.name
}

func (f *fakeTranscriptSource) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	f.calls++
	return f.text, f.err
}
