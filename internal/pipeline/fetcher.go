package pipeline

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/jurimetrics/sentenza/internal/cache"
	"github.com/jurimetrics/sentenza/internal/model"
	"github.com/jurimetrics/sentenza/internal/util"
)

// fetchSleepFunc is replaceable in tests to avoid real backoff delays
var fetchSleepFunc = time.Sleep

const maxFetchAttempts = 3

// Fetcher retrieves judgment HTML. Fetches honor robots.txt, per-host
// rate limits and a shared page cache when those are configured.
type Fetcher struct {
	httpClient *http.Client
	transport  *http.Transport
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker

	store    cache.Cache
	cacheTTL time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
}

// FetchResult contains the fetched page and its metadata
type FetchResult struct {
	HTML     string
	Meta     model.FetchMeta
	FinalURL string

	// Slug is the last URL path segment without extension. For CanLII
	// decision URLs this is the compact case id.
	Slug string
}

// cachedPage is the serialized form stored in the fetch cache
type cachedPage struct {
	HTML     string          `json:"html"`
	Meta     model.FetchMeta `json:"meta"`
	FinalURL string          `json:"final_url"`
	Slug     string          `json:"slug"`
}

// NewFetcher creates a Fetcher. With respectRobots set, every fetch is
// checked against the host's robots.txt first.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, respectRobots bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
	}

	var robots *util.RobotsChecker
	if respectRobots {
		robots = util.NewRobotsChecker(userAgent, timeout)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		transport: transport,
		userAgent: userAgent,
		maxBytes:  maxBytes,
		robots:    robots,
	}
}

// UseCache attaches a page cache so repeated analyses of the same URL
// skip the network.
func (f *Fetcher) UseCache(store cache.Cache, ttl time.Duration) {
	f.store = store
	f.cacheTTL = ttl
}

// RateLimit bounds requests per second against any single host
func (f *Fetcher) RateLimit(perHost float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perHost = rate.Limit(perHost)
	f.limiters = make(map[string]*rate.Limiter)
}

// AllowInsecureTLS disables certificate verification
func (f *Fetcher) AllowInsecureTLS() {
	f.transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
}

// FetchWithRetry fetches with bounded retries and exponential backoff.
// Only transport failures and retryable statuses (5xx, 429) are retried.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// Fetch retrieves HTML content from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if cached, ok := f.fromCache(rawURL); ok {
		return cached, nil
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", model.ErrRobotsDisallowed, rawURL)
		}
		if delay > 0 {
			fetchSleepFunc(delay)
		}
	}

	if err := f.waitForHost(ctx, rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-CA,en;q=0.9,fr-CA;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}

	// Store selected headers
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// Decode to UTF-8; older decisions arrive in legacy encodings
	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBytes), meta.ContentType)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	result := &FetchResult{
		HTML:     string(body),
		Meta:     meta,
		FinalURL: finalURL,
		Slug:     pathSlug(finalURL),
	}
	f.toCache(rawURL, result)

	return result, nil
}

// fromCache returns a previously fetched page, if any
func (f *Fetcher) fromCache(rawURL string) (*FetchResult, bool) {
	if f.store == nil {
		return nil, false
	}
	data, ok := f.store.Get(cache.Key("fetch", rawURL))
	if !ok {
		return nil, false
	}
	var page cachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false
	}
	return &FetchResult{
		HTML:     page.HTML,
		Meta:     page.Meta,
		FinalURL: page.FinalURL,
		Slug:     page.Slug,
	}, true
}

func (f *Fetcher) toCache(rawURL string, result *FetchResult) {
	if f.store == nil {
		return
	}
	data, err := json.Marshal(cachedPage{
		HTML:     result.HTML,
		Meta:     result.Meta,
		FinalURL: result.FinalURL,
		Slug:     result.Slug,
	})
	if err != nil {
		return
	}
	_ = f.store.Set(cache.Key("fetch", rawURL), data, f.cacheTTL)
}

// waitForHost blocks until the per-host rate limiter admits the request
func (f *Fetcher) waitForHost(ctx context.Context, rawURL string) error {
	limiter := f.limiterFor(rawURL)
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (f *Fetcher) limiterFor(rawURL string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.perHost <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		limiter = rate.NewLimiter(f.perHost, 1)
		f.limiters[parsed.Host] = limiter
	}
	return limiter
}

// isRetryableFetchError reports whether a fetch failure is transient.
// Server errors, rate limiting and transport failures retry; client
// errors and robots denials do not.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "unexpected status: ") {
		return strings.Contains(msg, "unexpected status: 5") ||
			strings.Contains(msg, "unexpected status: 429")
	}
	return strings.HasPrefix(msg, "fetch: ")
}

// pathSlug extracts the last URL path segment without its extension
func pathSlug(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}
