package enrich

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the visible text of a web page.
type Fetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// FetchOptions configures the HTTP fetcher.
type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
	// RequestsPerSec caps outbound fetches. Zero means unlimited.
	RequestsPerSec float64
}

type httpFetcher struct {
	http      *http.Client
	userAgent string
	cache     *gocache.Cache
	cacheTTL  time.Duration
	limiter   *rate.Limiter
}

// NewFetcher creates an HTTP fetcher with a time-bounded in-memory cache.
func NewFetcher(opts FetchOptions) Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 6 * time.Second
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	f := &httpFetcher{
		http:      &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		cache:     gocache.New(opts.CacheTTL, opts.CacheTTL/2),
		cacheTTL:  opts.CacheTTL,
	}
	if opts.RequestsPerSec > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}
	return f
}

func (f *httpFetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	if cached, ok := f.cache.Get(pageURL); ok {
		return cached.(string), nil
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "fetch: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "fetch: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("fetch: unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	// Cap page reads at 1MB; provider sites beyond that are noise.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", eris.Wrap(err, "fetch: read body")
	}

	text := StripHTML(string(body))
	f.cache.Set(pageURL, text, f.cacheTTL)

	zap.L().Debug("fetch: page retrieved", zap.String("url", pageURL), zap.Int("text_len", len(text)))
	return text, nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// StripHTML reduces an HTML document to its visible text.
func StripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&#39;", "'", "&quot;", `"`).Replace(text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
