// Package crawler resolves a sitemap into crawled documents with a bounded
// number of in-flight page fetches.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
	"github.com/rura-ai/rura/internal/metrics"
)

const (
	// DefaultConcurrency bounds simultaneous page fetches.
	DefaultConcurrency = 10
	// DefaultTimeout applies per HTTP request.
	DefaultTimeout = 30 * time.Second

	sitemapSuffix = "sitemap.xml"
)

// Crawler fetches sitemaps and pages over HTTP.
type Crawler struct {
	client      *http.Client
	concurrency int
	logger      *zap.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithConcurrency overrides the fetch pool size.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithHTTPClient overrides the HTTP client, for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) { c.client = client }
}

// New creates a crawler.
func New(logger *zap.Logger, opts ...Option) *Crawler {
	c := &Crawler{
		client:      &http.Client{Timeout: DefaultTimeout},
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sitemap fetches baseURL's sitemap and crawls every listed page. The sitemap
// fetch is fail-fast; page fetches are skip-and-continue, and an error is
// returned only when no page could be crawled at all. Result order preserves
// the sitemap listing order.
func (c *Crawler) Sitemap(ctx context.Context, baseURL string) ([]domain.Document, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, domain.ErrEmptyURL
	}

	sitemapURL := baseURL
	if !strings.HasSuffix(sitemapURL, sitemapSuffix) {
		sitemapURL = strings.TrimRight(sitemapURL, "/") + "/" + sitemapSuffix
	}

	start := time.Now()
	body, err := c.get(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	urls, err := pageURLs(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("sitemap %s lists no page urls", sitemapURL)
	}
	c.logger.Info("sitemap resolved",
		zap.String("sitemap", sitemapURL),
		zap.Int("pages", len(urls)))

	pool, err := ants.NewPool(c.concurrency)
	if err != nil {
		return nil, fmt.Errorf("create fetch pool: %w", err)
	}
	defer pool.Release()

	// Slots keep sitemap listing order regardless of fetch completion order.
	results := make([]*domain.Document, len(urls))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i, pageURL := range urls {
		i, pageURL := i, pageURL // capture per iteration for pre-1.22 loopvar semantics
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			doc, err := c.FetchPage(ctx, pageURL)
			if err != nil {
				c.logger.Warn("skipping page",
					zap.String("url", pageURL),
					zap.Error(err))
				metrics.CrawlPagesTotal.WithLabelValues("error").Inc()
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			metrics.CrawlPagesTotal.WithLabelValues("ok").Inc()
			results[i] = &doc
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("submit fetch task: %w", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(results))
	for _, doc := range results {
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("all %d page fetches failed for %s", failed, sitemapURL)
	}

	metrics.CrawlDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("crawl finished",
		zap.String("sitemap", sitemapURL),
		zap.Int("fetched", len(docs)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	return docs, nil
}

// FetchPage fetches one page and extracts its title and cleaned body text as
// a document under the basic collection.
func (c *Crawler) FetchPage(ctx context.Context, pageURL string) (domain.Document, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return domain.Document{}, err
	}

	title, text, err := extractPage(strings.NewReader(body))
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	c.logger.Debug("page fetched",
		zap.String("url", pageURL),
		zap.String("title", title),
		zap.Int("text_len", len(text)))
	return domain.NewDocument(pageURL, title, text), nil
}

func (c *Crawler) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, resp.Body); err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return sb.String(), nil
}
