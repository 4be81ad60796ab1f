package crawler

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/infra/fetcher"
	"newsgraph/internal/resilience/circuitbreaker"
	"newsgraph/internal/usecase/fetch"

	"github.com/go-shiori/go-readability"
)

// ReadabilityArticleCrawler fetches one article's full HTML and extracts its
// title and clean text with Mozilla Readability, the same extraction the
// teacher's content-enhancement path uses, but producing a fully populated
// entity.Article (including RawHTML, kept until the archive engine moves it
// out of the operational store) instead of a bare content string.
type ReadabilityArticleCrawler struct {
	name            string
	displayName     string
	source          string
	intervalMinutes int
	timeoutSeconds  int
	client          *http.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	config          fetcher.ContentFetchConfig
}

// NewReadabilityArticleCrawler builds an ArticleCrawler for source that
// validates URLs per cfg and sends fetches through a per-source circuit
// breaker; it applies no rate limiting.
func NewReadabilityArticleCrawler(name, displayName, source string, intervalMinutes, timeoutSeconds int, cfg fetcher.ContentFetchConfig) *ReadabilityArticleCrawler {
	c := &ReadabilityArticleCrawler{
		name:            name,
		displayName:     displayName,
		source:          source,
		intervalMinutes: intervalMinutes,
		timeoutSeconds:  timeoutSeconds,
		config:          cfg,
		circuitBreaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "article-crawl:" + source,
			MaxRequests:      5,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      5,
		}),
	}

	c.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", fetch.ErrTooManyRedirects, len(via))
			}
			if err := validateArticleURL(req.URL.String(), c.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return c
}

func (c *ReadabilityArticleCrawler) Name() string               { return c.name }
func (c *ReadabilityArticleCrawler) DisplayName() string        { return c.displayName }
func (c *ReadabilityArticleCrawler) Source() string              { return c.source }
func (c *ReadabilityArticleCrawler) DefaultIntervalMinutes() int { return c.intervalMinutes }
func (c *ReadabilityArticleCrawler) DefaultTimeoutSeconds() int  { return c.timeoutSeconds }


// FetchArticle validates urlStr, fetches its HTML through the circuit
// breaker, and extracts Title/Content via readability, filling in the
// remaining fields a C3 store write needs: URLHash, Source, CrawledAt.
func (c *ReadabilityArticleCrawler) FetchArticle(ctx context.Context, urlStr string) (*entity.Article, error) {
	if err := validateArticleURL(urlStr, c.config.DenyPrivateIPs); err != nil {
		return nil, err
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doFetch(ctx, urlStr)
	})
	if err != nil {
		return nil, err
	}
	return result.(*entity.Article), nil
}

func (c *ReadabilityArticleCrawler) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(c.timeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", fetch.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "newsgraph-crawler/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: request exceeded %v", fetch.ErrTimeout, time.Duration(c.timeoutSeconds)*time.Second)
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limitedReader := io.LimitReader(resp.Body, c.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > c.config.MaxBodySize {
		return nil, fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			fetch.ErrBodyTooLarge, len(htmlBytes), c.config.MaxBodySize)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	return c.extractArticle(htmlBytes, urlStr, parsedURL)
}

// ParseHTML re-derives an article's parsed fields from already-downloaded
// HTML, issuing no network requests. Used by the reparse worker (C7) to
// replay extraction over HTML already sitting in the operational store or
// in cold storage, per §4.6's "ParseHTML(raw_html, url) (pure, network-free)."
func (c *ReadabilityArticleCrawler) ParseHTML(html, urlStr string) (*entity.Article, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	return c.extractArticle([]byte(html), urlStr, parsedURL)
}

func (c *ReadabilityArticleCrawler) extractArticle(htmlBytes []byte, urlStr string, parsedURL *url.URL) (*entity.Article, error) {
	htmlReader := io.NopCloser(bytes.NewReader(htmlBytes))
	parsed, err := readability.FromReader(htmlReader, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrReadabilityFailed, err)
	}

	content := parsed.TextContent
	if content == "" {
		if parsed.Content == "" {
			return nil, fmt.Errorf("%w: no readable content found", fetch.ErrReadabilityFailed)
		}
		slog.Debug("using article Content instead of TextContent",
			slog.String("url", urlStr), slog.Int("content_length", len(parsed.Content)))
		content = parsed.Content
	}

	rawHTML := string(htmlBytes)
	return &entity.Article{
		URL:         urlStr,
		URLHash:     entity.HashURL(urlStr),
		Title:       parsed.Title,
		Content:     content,
		Author:      parsed.Byline,
		Source:      c.source,
		CrawlerName: c.name,
		CrawledAt:   time.Now(),
		RawHTML:     &rawHTML,
	}, nil
}

// validateArticleURL rejects anything but http/https and, when
// denyPrivateIPs is set, anything resolving to a loopback, private, or
// link-local address, preventing the article crawler from being used as an
// SSRF pivot. Adapted from fetcher.validateURL, unexported there.
func validateArticleURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", fetch.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", fetch.ErrInvalidURL, u.Scheme)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", fetch.ErrInvalidURL)
	}
	if !denyPrivateIPs {
		return nil
	}
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", fetch.ErrInvalidURL, hostname, err)
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return fmt.Errorf("%w: hostname '%s' resolves to private IP %s", fetch.ErrPrivateIP, hostname, ip.String())
		}
	}
	return nil
}
