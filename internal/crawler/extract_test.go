package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageURLs(t *testing.T) {
	sitemap := `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc><lastmod>2024-01-01</lastmod></url>
  <url><loc> https://example.com/b </loc></url>
  <url><loc></loc></url>
</urlset>`

	urls, err := pageURLs(strings.NewReader(sitemap))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestPageURLs_SitemapIndex(t *testing.T) {
	index := `<sitemapindex>
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`

	urls, err := pageURLs(strings.NewReader(index))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/sitemap-posts.xml"}, urls)
}

func TestExtractPage_StripsScriptAndNav(t *testing.T) {
	doc := `<html>
<head><title>  My Page  </title></head>
<body>
  <nav><a href="/">home</a><a href="/about">about</a></nav>
  <h1>Heading</h1>
  <script>var tracked = true;</script>
  <p>First paragraph.</p>
  <div>Second <b>bold</b> part.</div>
</body>
</html>`

	title, text, err := extractPage(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "My Page", title)
	assert.Equal(t, "Heading First paragraph. Second bold part.", text)
	assert.NotContains(t, text, "tracked")
	assert.NotContains(t, text, "home")
}

func TestExtractPage_MissingTitle(t *testing.T) {
	title, text, err := extractPage(strings.NewReader("<html><body><p>hello</p></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Equal(t, "hello", text)
}
