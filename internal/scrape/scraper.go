// Package scrape implements the tiered web scraper: a JSON-LD tier, a
// meta/structured-data tier, a headless-browser tier, and a plain-request
// fallback tier, walked in order. The JSON-LD and meta tiers are accepted
// when their confidence clears their gate; the later tiers have no gate.
// JSON-LD and meta are always preferred;
// headless rendering is a fallback, and the plain-request tier only runs
// when a headless browser cannot be launched in the current environment.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadboost/leadpipe/internal/config"
	"github.com/leadboost/leadpipe/internal/resilience"
)

// Result is the outcome of one scrape attempt. It is carried into a
// ScrapingLog row and, on success, merged into the Lead by the
// orchestrator.
type Result struct {
	Success          bool
	Data             map[string]string
	Method           string
	Confidence       float64
	ProcessingTimeMS int64
	Error            string
}

// Scraper walks the tiered extraction strategy for a single URL. One
// Scraper is owned per worker; its http.Client is reused and connection-
// pooled across calls. The headless browser is launched fresh per call and
// closed on every exit path — there is no shared browser process.
type Scraper struct {
	http     *http.Client
	cfg      config.ScrapeConfig
	limiters sync.Map // host (string) -> *rate.Limiter
	breakers *resilience.ServiceBreakers
	retry    resilience.RetryConfig
}

// New creates a Scraper from cfg.
func New(cfg config.ScrapeConfig) *Scraper {
	return &Scraper{
		http:     &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSecs) * time.Second},
		cfg:      cfg,
		breakers: resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		retry:    resilience.DefaultRetryConfig(),
	}
}

// hostOf returns rawURL's host for use as a per-target key, falling back to
// the raw string when it doesn't parse as a URL.
func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}

// limiterFor returns the per-host token bucket for rawURL's host, creating
// it on first use, so repeated scrapes of the same domain are smoothed to
// cfg.RequestsPerSecond rather than fired as fast as the tier loop allows.
func (s *Scraper) limiterFor(rawURL string) *rate.Limiter {
	host := hostOf(rawURL)

	if existing, ok := s.limiters.Load(host); ok {
		return existing.(*rate.Limiter)
	}

	perSecond := s.cfg.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	burst := s.cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	actual, _ := s.limiters.LoadOrStore(host, limiter)
	return actual.(*rate.Limiter)
}

func sinceMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func (s *Scraper) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en-US")
}

// fetchResult bundles one GET's outcome so it can cross the resilience
// package's generic retry/circuit-breaker boundary as a single value.
type fetchResult struct {
	body   string
	status int
}

// fetch performs the single shared GET reused by the JSON-LD and meta
// tiers. Each target host gets its own circuit breaker (so a site that is
// consistently down stops being retried within the same scrape run) and
// transient failures — timeouts, connection resets, 429/5xx — are retried
// with backoff before the tier loop gives up and falls through.
func (s *Scraper) fetch(ctx context.Context, rawURL string) (string, int, error) {
	if err := s.limiterFor(rawURL).Wait(ctx); err != nil {
		return "", 0, err
	}

	breaker := s.breakers.Get(hostOf(rawURL))
	result, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (fetchResult, error) {
		return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (fetchResult, error) {
			return s.doFetch(ctx, rawURL)
		})
	})
	return result.body, result.status, err
}

func (s *Scraper) doFetch(ctx context.Context, rawURL string) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fetchResult{}, err
	}
	s.setHeaders(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fetchResult{}, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{status: resp.StatusCode}, resilience.NewTransientError(err, resp.StatusCode)
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return fetchResult{body: string(body), status: resp.StatusCode},
			resilience.NewTransientError(fmt.Errorf("scrape: unexpected status %d", resp.StatusCode), resp.StatusCode)
	}
	return fetchResult{body: string(body), status: resp.StatusCode}, nil
}

// Scrape walks the tier list and returns the JSON-LD or meta result when
// its confidence clears that tier's gate; otherwise it returns the
// headless result (or the plain-request result when no headless browser
// can be launched) as is, with no gate. It never returns an error: a scrape where
// every tier fails is reported as Result{Success: false} so the caller can
// log the attempt and continue the pipeline rather than aborting it.
func (s *Scraper) Scrape(ctx context.Context, url string) *Result {
	html, status, err := s.fetch(ctx, url)
	if err == nil && status == http.StatusOK {
		r := s.tryJSONLD(url, html)
		if r.Confidence > s.cfg.JSONLDConfidenceGate {
			zap.L().Debug("scrape: json-ld tier accepted",
				zap.String("url", url), zap.Float64("confidence", r.Confidence))
			return r
		}
		zap.L().Debug("scrape: json-ld tier below gate, trying meta tier",
			zap.String("url", url), zap.Float64("confidence", r.Confidence))

		r = s.tryMeta(url, html)
		if r.Confidence > s.cfg.MetaConfidenceGate {
			zap.L().Debug("scrape: meta tier accepted",
				zap.String("url", url), zap.Float64("confidence", r.Confidence))
			return r
		}
		zap.L().Debug("scrape: meta tier below gate, trying headless tier",
			zap.String("url", url), zap.Float64("confidence", r.Confidence))
	} else {
		zap.L().Debug("scrape: initial fetch failed, trying headless tier",
			zap.String("url", url), zap.Error(err), zap.Int("status", status))
	}

	if s.cfg.HeadlessEnabled {
		r, launchErr := s.tryHeadless(ctx, url)
		if launchErr == nil {
			return r
		}
		zap.L().Warn("scrape: headless browser unavailable, using plain-request fallback",
			zap.String("url", url), zap.Error(launchErr))
	}

	return s.tryPlainFallback(ctx, url)
}
