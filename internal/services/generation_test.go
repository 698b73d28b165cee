package services

import (
	"strings"
	"testing"
)

func TestNormalizeResponse_NilAndEmptyString(t *testing.T) {
	if got := NormalizeResponse(nil); got != EmptyResponsePlaceholder {
		t.Fatalf("nil: got %q", got)
	}
	if got := NormalizeResponse(""); got != EmptyResponsePlaceholder {
		t.Fatalf("empty string: got %q", got)
	}
}

func TestNormalizeResponse_BareString(t *testing.T) {
	if got := NormalizeResponse("hello there"); got != "hello there" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeResponse_ResponseField(t *testing.T) {
	got := NormalizeResponse(map[string]any{"response": "from response field"})
	if got != "from response field" {
		t.Fatalf("got %q", got)
	}

	// A present but empty response string still wins the chain.
	got = NormalizeResponse(map[string]any{"response": "", "output": []any{map[string]any{"text": "ignored"}}})
	if got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNormalizeResponse_ResultOutputText(t *testing.T) {
	got := NormalizeResponse(map[string]any{
		"result": map[string]any{"output_text": "nested text"},
	})
	if got != "nested text" {
		t.Fatalf("got %q", got)
	}

	// Empty output_text falls through to the serialization fallback.
	got = NormalizeResponse(map[string]any{
		"result": map[string]any{"output_text": ""},
	})
	if !strings.Contains(got, "result") {
		t.Fatalf("expected serialized fallback, got %q", got)
	}
}

func TestNormalizeResponse_OutputItems(t *testing.T) {
	got := NormalizeResponse(map[string]any{
		"output": []any{
			map[string]any{"text": "a"},
			map[string]any{"content": "b"},
			map[string]any{},
		},
	})
	if got != "a\nb" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeResponse_OutputContentParts(t *testing.T) {
	got := NormalizeResponse(map[string]any{
		"output": []any{
			map[string]any{"content": []any{
				map[string]any{"text": "part one"},
				map[string]any{"text": "part two"},
			}},
		},
	})
	if got != "part one\npart two" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeResponse_ItemPrefersTextOverContent(t *testing.T) {
	got := NormalizeResponse(map[string]any{
		"output": []any{
			map[string]any{"text": "wins", "content": "loses"},
		},
	})
	if got != "wins" {
		t.Fatalf("got %q", got)
	}

	// A present but empty text field short-circuits the item, which
	// then contributes nothing.
	got = NormalizeResponse(map[string]any{
		"output": []any{
			map[string]any{"text": "", "content": "loses"},
			map[string]any{"text": "kept"},
		},
	})
	if got != "kept" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeResponse_SerializationFallback(t *testing.T) {
	got := NormalizeResponse(map[string]any{"unknown": 42})
	if got != `{"unknown":42}` {
		t.Fatalf("got %q", got)
	}

	got = NormalizeResponse([]any{"a", "b"})
	if got != `["a","b"]` {
		t.Fatalf("got %q", got)
	}
}
