package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunking window sizes, in runes.
const (
	// FragmentSize is the primary chunk window.
	FragmentSize = 1512
	// OverlapSize is shared between consecutive primary chunks.
	OverlapSize = 256
	// MetaFragmentSize is the compact window for higher-precision matching.
	MetaFragmentSize = 384
	// MaxTitleSize bounds the title prefixed to every fragment.
	MaxTitleSize = 128
	// MaxURLSize bounds the URL prefixed to every fragment.
	MaxURLSize = 128
)

// Fragment is one chunk of a document's text for one collection.
type Fragment struct {
	Text       string
	Collection Collection
	// Meta marks compact fragments. They share the collection identity of
	// their primary siblings for retrieval purposes.
	Meta bool
}

// Fragments chunks every collection variant of the document into overlapping
// windows, prefixing each chunk with the truncated title and URL. An
// unresolvable title or URL downgrades the prefix to the raw content rather
// than failing the document. Output order is collection declaration order,
// then left-to-right chunk origin; meta fragments of a collection follow its
// primary fragments when includeMeta is set.
func (d *Document) Fragments(includeMeta bool) ([]Fragment, error) {
	title := truncateRunes(d.Title, MaxTitleSize)
	url := truncateRunes(d.URL, MaxURLSize)

	var out []Fragment
	for _, c := range Collections {
		text, ok := d.Variants[c]
		if !ok {
			continue
		}
		for _, chunk := range splitWindows(text, FragmentSize, OverlapSize) {
			out = append(out, Fragment{Text: renderFragment(title, url, chunk), Collection: c})
		}
		if !includeMeta {
			continue
		}
		for _, chunk := range splitWindows(text, MetaFragmentSize, 0) {
			out = append(out, Fragment{Text: renderFragment(title, url, chunk), Collection: c, Meta: true})
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyDocument
	}
	return out, nil
}

func renderFragment(title, url, chunk string) string {
	if title == "" || url == "" {
		return fmt.Sprintf("Content: %s", chunk)
	}
	return fmt.Sprintf("Title: %s URL: %s Content: %s", title, url, chunk)
}

// splitWindows cuts text into windows of at most size runes, consecutive
// windows sharing overlap runes. Window ends are pulled back to the nearest
// word boundary when one exists past the overlap region, so words are not
// split mid-token.
func splitWindows(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if overlap >= size {
		overlap = 0
	}
	step := size - overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			if chunk := strings.TrimSpace(string(runes[start:])); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}
		cut := end
		for cut > start+step && !unicode.IsSpace(runes[cut]) {
			cut--
		}
		if cut == start+step {
			// No boundary inside the window suffix, hard cut.
			cut = end
		}
		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// truncateRunes bounds s to max runes and collapses surrounding whitespace.
func truncateRunes(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
