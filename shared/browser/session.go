// Package browser wraps a headless Chrome instance behind an explicitly owned
// handle. A Session is opened once, used through Do, and closed by its owner.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"video-analyzer/shared/httpx"

	"github.com/chromedp/chromedp"
)

// Page is the set of primitives sources use against a rendered page.
type Page interface {
	Navigate(url string) error
	// WaitFor blocks until selector is present or timeout elapses.
	WaitFor(selector string, timeout time.Duration) error
	// Text returns the trimmed innerText of the first match, or "" when absent.
	Text(selector string) (string, error)
	// Texts returns the non-empty trimmed innerText of every match.
	Texts(selector string) ([]string, error)
	Count(selector string) (int, error)
	Click(selector string, timeout time.Duration) error
	// ClickContaining clicks the first match whose text contains substr (case-insensitive).
	ClickContaining(selector, substr string) (bool, error)
	ScrollToBottom() error
	HTML() (string, error)
	Sleep(d time.Duration) error
}

// Renderer hands out exclusive access to a page.
type Renderer interface {
	Do(ctx context.Context, fn func(Page) error) error
}

type Options struct {
	Headless  bool
	ExecPath  string
	UserAgent string
}

// Session owns one browser process. Do serializes callers: the underlying
// tab is single-consumer, so concurrent fetch workers queue here.
type Session struct {
	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	started     bool
	closed      bool
}

// Open prepares the browser. Chrome itself starts on first use.
func Open(opts Options) *Session {
	if opts.UserAgent == "" {
		opts.UserAgent = httpx.RandomUserAgent()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...any) {
		log.Printf("browser: "+format, args...)
	}))

	return &Session{
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}
}

// Do runs fn with exclusive use of the page. Cancelling ctx aborts any
// pending browser action.
func (s *Session) Do(ctx context.Context, fn func(Page) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("browser session is closed")
	}
	// The first Run must use the session context itself; a derived context
	// would tie the browser's lifetime to this one call.
	if !s.started {
		if err := chromedp.Run(s.browserCtx); err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		s.started = true
	}

	runCtx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return fn(&page{ctx: runCtx})
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cancelTab()
	s.cancelAlloc()
	return nil
}

type page struct {
	ctx context.Context
}

func (p *page) run(actions ...chromedp.Action) error {
	return chromedp.Run(p.ctx, actions...)
}

func (p *page) runWithTimeout(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *page) Navigate(url string) error {
	if err := p.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *page) WaitFor(selector string, timeout time.Duration) error {
	if err := p.runWithTimeout(timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("timed out waiting for %s: %w", selector, err)
	}
	return nil
}

func (p *page) Text(selector string) (string, error) {
	var text string
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el ? el.innerText.trim() : ""; })()`, strconv.Quote(selector))
	if err := p.run(chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", selector, err)
	}
	return text, nil
}

func (p *page) Texts(selector string) ([]string, error) {
	var texts []string
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(el => el.innerText.trim()).filter(t => t.length > 0)`, strconv.Quote(selector))
	if err := p.run(chromedp.Evaluate(js, &texts)); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", selector, err)
	}
	return texts, nil
}

func (p *page) Count(selector string) (int, error) {
	var n int
	js := fmt.Sprintf(`document.querySelectorAll(%s).length`, strconv.Quote(selector))
	if err := p.run(chromedp.Evaluate(js, &n)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", selector, err)
	}
	return n, nil
}

func (p *page) Click(selector string, timeout time.Duration) error {
	if err := p.runWithTimeout(timeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (p *page) ClickContaining(selector, substr string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
  const needle = %s.toLowerCase();
  for (const el of document.querySelectorAll(%s)) {
    if (el.innerText.toLowerCase().includes(needle)) { el.click(); return true; }
  }
  return false;
})()`, strconv.Quote(substr), strconv.Quote(selector))
	if err := p.run(chromedp.Evaluate(js, &clicked)); err != nil {
		return false, fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return clicked, nil
}

func (p *page) ScrollToBottom() error {
	return p.run(chromedp.Evaluate(`window.scrollTo(0, document.documentElement.scrollHeight)`, nil))
}

func (p *page) HTML() (string, error) {
	var html string
	if err := p.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}
	return html, nil
}

func (p *page) Sleep(d time.Duration) error {
	return p.run(chromedp.Sleep(d))
}
