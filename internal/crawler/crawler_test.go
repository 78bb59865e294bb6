package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
)

func page(title, body string) string {
	return fmt.Sprintf("<html><head><title>%s</title></head><body><p>%s</p></body></html>", title, body)
}

func sitemapFor(srv *httptest.Server, paths ...string) string {
	var sb []byte
	sb = append(sb, `<?xml version="1.0" encoding="UTF-8"?><urlset>`...)
	for _, p := range paths {
		sb = append(sb, "<url><loc>"+srv.URL+p+"</loc></url>"...)
	}
	sb = append(sb, "</urlset>"...)
	return string(sb)
}

func TestSitemap_SkipsFailedPages(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	srv = httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sitemapFor(srv, "/a", "/missing", "/b"))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page("Page A", "alpha content"))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page("Page B", "beta content"))
	})

	c := New(zap.NewNop())
	docs, err := c.Sitemap(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Listing order survives the missing middle page.
	assert.Equal(t, "Page A", docs[0].Title)
	assert.Equal(t, "Page B", docs[1].Title)
	assert.Equal(t, srv.URL+"/a", docs[0].URL)
	assert.Equal(t, "alpha content", docs[0].Text())
}

func TestSitemap_AcceptsExplicitSitemapURL(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	srv = httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sitemapFor(srv, "/a"))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page("Page A", "alpha"))
	})

	c := New(zap.NewNop())
	docs, err := c.Sitemap(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSitemap_FailsWhenSitemapUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := New(zap.NewNop())
	_, err := c.Sitemap(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestSitemap_FailsWhenAllPagesFail(t *testing.T) {
	var srv *httptest.Server
	mux := http.NewServeMux()
	srv = httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sitemapFor(srv, "/gone1", "/gone2"))
	})

	c := New(zap.NewNop())
	_, err := c.Sitemap(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetches failed")
}

func TestSitemap_EmptyURL(t *testing.T) {
	c := New(zap.NewNop())
	_, err := c.Sitemap(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrEmptyURL))
}

func TestSitemap_BoundsConcurrency(t *testing.T) {
	const limit = 3

	var inFlight, peak atomic.Int64
	var srv *httptest.Server
	mux := http.NewServeMux()
	srv = httptest.NewServer(mux)
	defer srv.Close()

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = fmt.Sprintf("/p%d", i)
	}
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sitemapFor(srv, paths...))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, page("P", "content"))
	})

	c := New(zap.NewNop(), WithConcurrency(limit))
	docs, err := c.Sitemap(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, docs, len(paths))
	assert.LessOrEqual(t, peak.Load(), int64(limit))
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page("Title", "body text"))
	}))
	defer srv.Close()

	c := New(zap.NewNop())
	doc, err := c.FetchPage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Title", doc.Title)
	assert.Equal(t, "body text", doc.Text())
	assert.NotEmpty(t, doc.Hash)
}
