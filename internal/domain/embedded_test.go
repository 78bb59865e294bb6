package domain

import (
	"strings"
	"testing"
)

func TestNewMetadata_DeterministicID(t *testing.T) {
	doc := NewDocument("https://example.com/a", "A", "text")
	frag := Fragment{Text: "Content: text", Collection: CollectionBasic}

	m1 := NewMetadata(doc, frag)
	m2 := NewMetadata(doc, frag)
	if m1.ID != m2.ID {
		t.Errorf("same document and fragment must yield the same id: %s vs %s", m1.ID, m2.ID)
	}

	other := NewMetadata(doc, Fragment{Text: "Content: other", Collection: CollectionBasic})
	if m1.ID == other.ID {
		t.Error("different fragment text must yield a different id")
	}
}

func TestNewMetadata_HashTiesIdentityToContent(t *testing.T) {
	a := NewDocument("https://example.com/a", "A", "text")
	b := NewDocument("https://example.com/a", "A", "changed text")
	if a.Hash == b.Hash {
		t.Error("changed text must change the document hash")
	}

	frag := Fragment{Text: "Content: same", Collection: CollectionBasic}
	if NewMetadata(a, frag).ID == NewMetadata(b, frag).ID {
		t.Error("point id must incorporate the document hash")
	}
}

func TestPayloadRoundtrip(t *testing.T) {
	doc := NewDocument("https://example.com/a", "A", "text")
	m := NewMetadata(doc, Fragment{Text: "Content: text", Collection: CollectionSummary})

	got, err := MetadataFromPayload(m.Payload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != m {
		t.Errorf("roundtrip mismatch:\ngot:  %+v\nwant: %+v", got, m)
	}
}

func TestMetadataFromPayload_Invalid(t *testing.T) {
	if _, err := MetadataFromPayload(map[string]string{"collection": "bogus", "id": "x"}); err == nil {
		t.Error("expected error for unknown collection")
	}
	if _, err := MetadataFromPayload(map[string]string{"collection": "basic"}); err == nil {
		t.Error("expected error for missing id")
	}
	if _, err := MetadataFromPayload(map[string]string{"collection": "basic", "id": "x"}); err != nil {
		t.Errorf("minimal valid payload rejected: %v", err)
	}

	m, err := MetadataFromPayload(map[string]string{
		"collection": strings.ToUpper("basic"), "id": "x",
	})
	if err != nil || m.Collection != CollectionBasic {
		t.Errorf("collection parsing should be case-insensitive: %v, %v", m, err)
	}
}
