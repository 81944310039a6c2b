package processor

import (
	"errors"
	"testing"
)

func TestCalculateSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the answer is B", "the answer is B", 1.0},
		{"case insensitive", "Hello", "hello", 1.0},
		{"empty left", "", "x", 0.0},
		{"empty right", "x", "", 0.0},
		{"no tokens", "!!!", "abc", 0.0},
		{"half overlap", "a b c", "b c d", 0.5},
		{"disjoint", "red green", "blue yellow", 0.0},
		{"duplicates collapse", "a a a b", "a b", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateSimilarity(tt.a, tt.b); !approxEqual(got, tt.want) {
				t.Errorf("CalculateSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCalculateSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Question: 2+2 Answer: 4", "Answer: 4"},
		{"", "something"},
		{"one two three", "three four"},
	}
	for _, p := range pairs {
		ab := CalculateSimilarity(p[0], p[1])
		ba := CalculateSimilarity(p[1], p[0])
		if ab != ba {
			t.Errorf("similarity(%q,%q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
	}
}

func TestCompareResponses(t *testing.T) {
	pairs := CompareResponses([]ProviderResponse{
		NewSuccess("A", "a b c"),
		NewFailure("B", errors.New("down")),
		NewSuccess("C", "b c d"),
		NewSuccess("D", "x y z"),
	}, 0.3)

	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d: %+v", len(pairs), pairs)
	}
	first := pairs[0]
	if first.ProviderA != "A" || first.ProviderB != "C" {
		t.Errorf("first pair = %s/%s, want A/C", first.ProviderA, first.ProviderB)
	}
	if !approxEqual(first.Similarity, 0.5) || !first.Agree {
		t.Errorf("A/C = %+v, want similarity 0.5 and agree", first)
	}
	if pairs[1].Agree || pairs[2].Agree {
		t.Errorf("disjoint pairs should not agree: %+v", pairs[1:])
	}
}

func TestCompareResponses_NoPairs(t *testing.T) {
	pairs := CompareResponses([]ProviderResponse{NewSuccess("A", "only one")}, 0.3)
	if pairs == nil || len(pairs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", pairs)
	}
}
