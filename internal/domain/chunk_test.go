package domain

import (
	"strings"
	"testing"
)

func TestFragments_ShortDocument(t *testing.T) {
	doc := NewDocument("https://example.com/page", "Example", "short body text")

	frags, err := doc.Fragments(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}

	want := "Title: Example URL: https://example.com/page Content: short body text"
	if frags[0].Text != want {
		t.Errorf("unexpected fragment text:\ngot:  %q\nwant: %q", frags[0].Text, want)
	}
	if frags[0].Collection != CollectionBasic {
		t.Errorf("expected basic collection, got %s", frags[0].Collection)
	}
	if frags[0].Meta {
		t.Error("short primary fragment should not be marked meta")
	}
}

func TestFragments_ContentFallbackWithoutTitle(t *testing.T) {
	doc := NewDocument("https://example.com/page", "", "body text")

	frags, err := doc.Fragments(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frags[0].Text != "Content: body text" {
		t.Errorf("expected content-only fallback, got %q", frags[0].Text)
	}
}

func TestFragments_EmptyDocument(t *testing.T) {
	doc := NewDocument("https://example.com/page", "Example", "   ")

	if _, err := doc.Fragments(false); err != ErrEmptyDocument {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestFragments_MetaFollowPrimary(t *testing.T) {
	text := strings.Repeat("word ", 400) // ~2000 runes
	doc := NewDocument("https://example.com/page", "Example", text)

	frags, err := doc.Fragments(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sawMeta := false
	for _, f := range frags {
		if f.Meta {
			sawMeta = true
		} else if sawMeta {
			t.Fatal("primary fragment appeared after a meta fragment")
		}
	}
	if !sawMeta {
		t.Fatal("expected meta fragments for a long document")
	}
}

func TestFragments_SummaryVariantIncluded(t *testing.T) {
	doc := NewDocument("https://example.com/page", "Example", "full body")
	doc.SetVariant(CollectionSummary, "condensed body")

	frags, err := doc.Fragments(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Collection != CollectionBasic || frags[1].Collection != CollectionSummary {
		t.Errorf("expected basic then summary order, got %s then %s",
			frags[0].Collection, frags[1].Collection)
	}
}

func TestSplitWindows_CountAndOverlap(t *testing.T) {
	// A space every 10 runes gives the boundary backoff something to find.
	text := strings.TrimSpace(strings.Repeat("abcdefghi ", 500)) // 4999 runes

	chunks := splitWindows(text, FragmentSize, OverlapSize)

	// ceil(4999 / (1512-256)) = 4 windows
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > FragmentSize {
			t.Errorf("chunk %d has %d runes, exceeds window size", i, n)
		}
	}
	// Consecutive windows share text: the start of chunk 2 must occur inside chunk 1.
	head := string([]rune(chunks[1])[:20])
	if !strings.Contains(chunks[0], head) {
		t.Error("expected overlap between consecutive chunks")
	}
}

func TestSplitWindows_NoMidWordCut(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("lorem ipsum dolor sit amet ", 100))
	whole := map[string]bool{"lorem": true, "ipsum": true, "dolor": true, "sit": true, "amet": true}

	// Window ends are boundary-adjusted; starts advance by a fixed step, so
	// only the first token of a chunk may be a word tail.
	for _, chunk := range splitWindows(text, 100, 20) {
		fields := strings.Fields(chunk)
		for _, word := range fields[1:] {
			if !whole[word] {
				t.Fatalf("chunk ends with split word %q", word)
			}
		}
	}
}

func TestSplitWindows_ShorterThanWindow(t *testing.T) {
	chunks := splitWindows("tiny", 100, 20)
	if len(chunks) != 1 || chunks[0] != "tiny" {
		t.Fatalf("expected single chunk %q, got %v", "tiny", chunks)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("  a   b  c ", 10); got != "a b c" {
		t.Errorf("expected whitespace collapse, got %q", got)
	}
	long := strings.Repeat("x", 200)
	if got := truncateRunes(long, MaxTitleSize); len([]rune(got)) != MaxTitleSize {
		t.Errorf("expected truncation to %d runes, got %d", MaxTitleSize, len([]rune(got)))
	}
}
