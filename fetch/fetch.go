// Package fetch issues rate-limited, retried HTTP GETs and parses the
// responses into traversable documents.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-book-pipeline/config"
)

// RetryPolicy is the explicit retry behavior handed to the Fetcher. Nothing
// here relies on library defaults, so runs are reproducible.
type RetryPolicy struct {
	MaxRetries        int
	Backoff           time.Duration
	BackoffMax        time.Duration
	RetryableStatuses []int
}

// Retryable reports whether a status code warrants another attempt.
func (p RetryPolicy) Retryable(statusCode int) bool {
	for _, code := range p.RetryableStatuses {
		if code == statusCode {
			return true
		}
	}
	return false
}

// PolicyFromConfig derives the retry policy from pipeline configuration.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        cfg.MaxRetries,
		Backoff:           cfg.RetryBackoff,
		BackoffMax:        cfg.RetryBackoffMax,
		RetryableStatuses: cfg.RetryableStatuses,
	}
}

// Fetcher wraps an HTTP client with politeness delay, rotating User-Agent
// headers, and retry handling. It owns no state besides the client and the
// limiter, so independent pipeline runs can each hold their own instance.
type Fetcher struct {
	client  *resty.Client
	policy  RetryPolicy
	limiter *rate.Limiter
	agents  []string
	next    atomic.Uint64
	metrics *Metrics
}

// New builds a Fetcher configured from cfg.
func New(cfg *config.Config, policy RetryPolicy, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	// Accept-Encoding is left to the transport so gzip bodies arrive decoded.
	client.SetHeaders(map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	})
	client.SetRetryCount(policy.MaxRetries)
	if policy.Backoff > 0 {
		client.SetRetryWaitTime(policy.Backoff)
	}
	if policy.BackoffMax > 0 {
		client.SetRetryMaxWaitTime(policy.BackoffMax)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return policy.Retryable(r.StatusCode())
	})
	client.AddRetryHook(func(r *resty.Response, err error) {
		metrics.IncRetries()
		slog.Debug("retrying request",
			slog.String("url", requestURL(r)),
			slog.Any("error", err),
		)
	})

	f := &Fetcher{
		client:  client,
		policy:  policy,
		agents:  cfg.UserAgents,
		metrics: metrics,
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Every(cfg.RateLimit), 1)
		// Drain the initial token so the delay applies before the first
		// request too, not only between requests.
		f.limiter.Allow()
	}
	return f, nil
}

// SetTransport swaps the underlying HTTP transport. Tests install mock
// transports through this.
func (f *Fetcher) SetTransport(transport http.RoundTripper) {
	f.client.SetTransport(transport)
}

// Fetch GETs a URL and parses the body into a document. Every failure mode
// is converted to a typed *Error; transport errors never escape raw.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, f.fail(pageURL, 0, err)
		}
	}

	slog.Debug("fetching", slog.String("url", pageURL))
	f.metrics.IncRequest("started")
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", f.userAgent()).
		Get(pageURL)

	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		return nil, f.fail(pageURL, 0, err)
	}
	if !resp.IsSuccess() {
		return nil, f.fail(pageURL, resp.StatusCode(), nil)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		ferr := &Error{URL: pageURL, Kind: KindParse, Err: err}
		f.logFailure(ferr)
		return nil, ferr
	}

	f.metrics.IncRequest("completed")
	return doc, nil
}

func (f *Fetcher) fail(pageURL string, statusCode int, err error) *Error {
	ferr := newError(pageURL, statusCode, err)
	f.logFailure(ferr)
	return ferr
}

func (f *Fetcher) logFailure(ferr *Error) {
	f.metrics.IncError(string(ferr.Kind))
	slog.Error("request failed",
		slog.String("url", ferr.URL),
		slog.String("category", string(ferr.Kind)),
		slog.Int("status", ferr.StatusCode),
		slog.Any("error", ferr.Err),
	)
}

// userAgent returns the next agent from the pool, round-robin.
func (f *Fetcher) userAgent() string {
	if len(f.agents) == 0 {
		return ""
	}
	index := f.next.Add(1) - 1
	return f.agents[index%uint64(len(f.agents))]
}

func requestURL(r *resty.Response) string {
	if r == nil || r.Request == nil {
		return ""
	}
	return r.Request.URL
}
