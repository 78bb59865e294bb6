package crawler

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// pageURLs collects the text of every <loc> element. The lenient HTML parser
// handles both urlset and sitemap-index documents, and survives the loosely
// formed sitemaps real sites serve.
func pageURLs(r io.Reader) ([]string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	var urls []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "loc" {
			if loc := strings.TrimSpace(nodeText(n)); loc != "" {
				urls = append(urls, loc)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return urls, nil
}

// extractPage pulls the <title> text and the cleaned body text out of an HTML
// page. Script and nav subtrees are stripped; the remaining text nodes are
// joined into a single whitespace-normalized line.
func extractPage(r io.Reader) (title, text string, err error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", "", fmt.Errorf("parse page: %w", err)
	}

	if titleNode := findElement(root, "title"); titleNode != nil {
		title = strings.TrimSpace(nodeText(titleNode))
	}

	body := findElement(root, "body")
	if body == nil {
		return "", "", fmt.Errorf("page has no body element")
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "nav") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(body)

	return title, strings.Join(parts, " "), nil
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, name); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
