package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/config"
)

// overlaySelectors match consent and tip popups that cover the results
var overlaySelectors = []string{
	`//button[contains(text(), "Got it")]`,
	`//button[contains(text(), "Accept")]`,
	`//button[contains(@aria-label, "Got it")]`,
}

// BrowserRetriever renders pages in a shared headless Chrome, one tab per call
type BrowserRetriever struct {
	Config *config.BrowserConfig
	logger *zap.Logger

	startOnce     sync.Once
	startErr      error
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewBrowserRetriever creates a new browser retriever. Chrome is started on first use.
func NewBrowserRetriever(config *config.AppConfig, logger *zap.Logger) *BrowserRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Browser.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(config.Scraper.UserAgents[0]),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &BrowserRetriever{
		Config:        &config.Browser,
		logger:        logger,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}
}

// Close shuts the browser down
func (s *BrowserRetriever) Close() error {
	s.cancelBrowser()
	s.cancelAlloc()
	return nil
}

func (s *BrowserRetriever) start() error {
	s.startOnce.Do(func() {
		s.startErr = chromedp.Run(s.browserCtx)
	})
	return s.startErr
}

// Retrieve loads url in a new tab, dismisses overlays, scrolls until no more
// results load and returns the rendered HTML
func (s *BrowserRetriever) Retrieve(ctx context.Context, url string, headers map[string]string) (string, error) {
	if err := s.start(); err != nil {
		return "", fmt.Errorf("start browser: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	extra := network.Headers{}
	for name, value := range headers {
		extra[name] = value
	}
	setup := []chromedp.Action{network.Enable(), network.SetExtraHTTPHeaders(extra)}
	if ua, ok := headers["User-Agent"]; ok {
		setup = append(setup, emulation.SetUserAgentOverride(ua))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		return "", fmt.Errorf("configure tab: %w", err)
	}

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return "", &StatusError{URL: url, StatusCode: int(resp.Status)}
	}

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		s.dismissOverlay(),
		chromedp.Sleep(s.Config.WaitTime),
		s.scrollToBottom(),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return html, nil
}

// dismissOverlay clicks the first overlay button present, if any
func (s *BrowserRetriever) dismissOverlay() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, selector := range overlaySelectors {
			var nodes []*cdp.Node
			if err := chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0)).Do(ctx); err != nil {
				continue
			}
			if len(nodes) == 0 {
				continue
			}
			if err := chromedp.MouseClickNode(nodes[0]).Do(ctx); err != nil {
				s.logger.Debug("overlay click failed", zap.String("selector", selector), zap.Error(err))
				continue
			}
			s.logger.Debug("dismissed overlay", zap.String("selector", selector))
			return nil
		}
		return nil
	})
}

// scrollToBottom scrolls until the page height stops growing or MaxScrolls is reached
func (s *BrowserRetriever) scrollToBottom() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var last int64
		if err := chromedp.Evaluate(`document.body.scrollHeight`, &last).Do(ctx); err != nil {
			return err
		}
		for i := 0; i < s.Config.MaxScrolls; i++ {
			if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Config.ScrollPause):
			}
			var height int64
			if err := chromedp.Evaluate(`document.body.scrollHeight`, &height).Do(ctx); err != nil {
				return err
			}
			if height == last {
				return nil
			}
			last = height
		}
		return nil
	})
}
