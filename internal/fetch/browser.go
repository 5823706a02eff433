package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/logger"
	"github.com/kayz/perplex/internal/security"
)

// BrowserFetcher renders pages in a headless Chromium before extraction.
// The browser is launched on first use and shared by concurrent fetches.
type BrowserFetcher struct {
	Extractor Extractor
	Timeout   time.Duration
	Validate  func(ctx context.Context, rawURL string) error

	once     sync.Once
	browser  *rod.Browser
	launcher *launcher.Launcher
	initErr  error
}

func NewBrowserFetcher(cfg config.FetchConfig, extractor Extractor) *BrowserFetcher {
	f := &BrowserFetcher{Extractor: extractor, Timeout: cfg.Timeout()}
	if cfg.SSRFProtection {
		f.Validate = security.ValidateFetchURL
	}
	return f
}

func (f *BrowserFetcher) start() {
	f.launcher = launcher.New().Headless(true)
	controlURL, err := f.launcher.Launch()
	if err != nil {
		f.initErr = err
		return
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		f.launcher.Kill()
		f.initErr = err
		return
	}
	logger.Debug("Headless browser started at %s", controlURL)
	f.browser = browser
}

func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	out := f.fetch(ctx, rawURL)
	out.Limit = f.Timeout
	return out
}

func (f *BrowserFetcher) fetch(ctx context.Context, rawURL string) Outcome {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	if f.Validate != nil {
		if err := f.Validate(ctx, rawURL); err != nil {
			return failed(rawURL, NetworkError, err.Error())
		}
	}

	f.once.Do(f.start)
	if f.initErr != nil {
		return failed(rawURL, NetworkError, "browser unavailable: "+f.initErr.Error())
	}

	page, err := f.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return classify(ctx, rawURL, err)
	}
	// the page outlives ctx so it can still be closed after a timeout
	defer func() { _ = page.Context(context.Background()).Close() }()

	if err := page.WaitLoad(); err != nil {
		return classify(ctx, rawURL, err)
	}
	html, err := page.HTML()
	if err != nil {
		return classify(ctx, rawURL, err)
	}
	return extractOutcome(f.Extractor, rawURL, html)
}

// Close shuts the browser down if it was started.
func (f *BrowserFetcher) Close() error {
	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.launcher.Kill()
	return err
}
