package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/logger"
	"github.com/kayz/perplex/internal/security"
)

// HTTPFetcher downloads pages with a plain HTTP GET.
type HTTPFetcher struct {
	Client       *http.Client
	Extractor    Extractor
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	// Validate, when set, is consulted before each request.
	Validate func(ctx context.Context, rawURL string) error
}

func NewHTTPFetcher(cfg config.FetchConfig, extractor Extractor) *HTTPFetcher {
	dialer := &net.Dialer{Timeout: cfg.Timeout(), KeepAlive: 30 * time.Second}
	f := &HTTPFetcher{
		Extractor:    extractor,
		Timeout:      cfg.Timeout(),
		UserAgent:    cfg.UserAgent,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.SSRFProtection {
		dialer.Control = security.DialControl
		f.Validate = security.ValidateFetchURL
	}
	f.Client = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: cfg.Timeout(),
			MaxIdleConnsPerHost: 2,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			return nil
		},
	}
	if f.UserAgent == "" {
		f.UserAgent = config.DefaultUserAgent
	}
	if f.MaxBodyBytes <= 0 {
		f.MaxBodyBytes = 5 << 20
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) Outcome {
	out := f.fetch(ctx, rawURL)
	out.Limit = f.Timeout
	return out
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) Outcome {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	if f.Validate != nil {
		if err := f.Validate(ctx, rawURL); err != nil {
			logger.Debug("Fetch refused for %s: %v", rawURL, err)
			return failed(rawURL, NetworkError, err.Error())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failed(rawURL, NetworkError, err.Error())
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return classify(ctx, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(rawURL, NetworkError, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBodyBytes))
	if err != nil {
		return classify(ctx, rawURL, err)
	}
	logger.Debug("Fetched %s: %d bytes in %v", rawURL, len(body), time.Since(start))

	return extractOutcome(f.Extractor, rawURL, string(body))
}

// extractOutcome applies the extractor to a downloaded body.
func extractOutcome(extractor Extractor, rawURL, body string) Outcome {
	if strings.TrimSpace(body) == "" {
		return failed(rawURL, NetworkError, ReasonNoBody)
	}
	text, ok := extractor.Extract(body, rawURL)
	if !ok {
		return failed(rawURL, ExtractionError, ReasonNoText)
	}
	return succeeded(rawURL, text)
}

// classify maps a transport error onto an outcome kind.
func classify(ctx context.Context, rawURL string, err error) Outcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return failed(rawURL, Timeout, ReasonTimedOut)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failed(rawURL, Timeout, ReasonTimedOut)
	}
	if errors.Is(err, context.Canceled) {
		return failed(rawURL, NetworkError, ReasonInterrupted)
	}
	return failed(rawURL, NetworkError, err.Error())
}
