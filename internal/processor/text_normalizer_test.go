package processor

import (
	"reflect"
	"strings"
	"testing"
)

// ========== CleanText ==========

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t  ", ""},
		{"collapse and trim", "  hello   world \n\t foo ", "hello world foo"},
		{"keeps punctuation", "Q1: Which (A) or (B)? Pick one; fast-ish, ok!", "Q1: Which (A) or (B)? Pick one; fast-ish, ok!"},
		{"drops symbols", "Price: $5 @home #1!", "Price: 5 home 1!"},
		{"no double space after removal", "a @ b", "a b"},
		{"leading removed char", "@ start", "start"},
		{"unicode letters kept", "café – naïve", "café naïve"},
		{"underscore kept", "snake_case", "snake_case"},
		{"information separators are whitespace", "a\x1cb\x1fc", "a b c"},
		{"unicode spaces collapse", "a\u00a0\u2003b\vc", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"a @ b",
		"  Question 3:\n\nWhat is 2+2?  A) 3  B) 4 ",
		"line one\r\nline two three",
		"*** ### $$$",
		"emoji 😀 inside — text",
	}
	for _, in := range inputs {
		once := CleanText(in)
		if twice := CleanText(once); twice != once {
			t.Errorf("CleanText not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(once, "  ") {
			t.Errorf("CleanText(%q) = %q contains a double space", in, once)
		}
	}
}

// ========== Tokenize ==========

func TestTokenize(t *testing.T) {
	got := Tokenize("Hello, hello WORLD! foo_bar 42")
	want := []string{"hello", "world", "foo_bar", "42"}

	if len(got) != len(want) {
		t.Fatalf("len(Tokenize) = %d, want %d (%v)", len(got), len(want), got)
	}
	for _, w := range want {
		if !got.Contains(w) {
			t.Errorf("token %q missing from %v", w, got)
		}
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("Tokenize(\"\") = %v, want empty", got)
	}
	if got := Tokenize("!!! ... ???"); len(got) != 0 {
		t.Errorf("Tokenize(punctuation) = %v, want empty", got)
	}
}

// ========== ExtractKeywords ==========

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "", 10, []string{}},
		{"zero limit", "apple banana", 0, []string{}},
		{"first seen order", "The quick brown fox jumps over the lazy dog", 10,
			[]string{"quick", "brown", "jumps", "over", "lazy"}},
		{"by frequency", "apple banana apple cherry banana apple", 10,
			[]string{"apple", "banana", "cherry"}},
		{"ties keep first appearance", "zeta alpha alpha zeta", 10,
			[]string{"zeta", "alpha"}},
		{"limit", "apple banana apple cherry banana apple", 2,
			[]string{"apple", "banana"}},
		{"only stop words", "this that these those with have been would could", 10, []string{}},
		{"case insensitive", "APPLE apple Apple", 10, []string{"apple"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractKeywords(%q, %d) = %v, want %v", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestExtractKeywords_NeverReturnsStopWordsOrShortTokens(t *testing.T) {
	text := "They would have been there with them, but the cats and dogs ran far away from the house quickly"
	for _, max := range []int{1, 3, 10, 100} {
		got := ExtractKeywords(text, max)
		if len(got) > max {
			t.Errorf("max=%d: got %d keywords", max, len(got))
		}
		for _, kw := range got {
			if stopWords[kw] {
				t.Errorf("max=%d: stop word %q returned", max, kw)
			}
			if len([]rune(kw)) <= 3 {
				t.Errorf("max=%d: short token %q returned", max, kw)
			}
		}
	}
}

// ========== TruncateText ==========

func TestTruncateText(t *testing.T) {
	if got := TruncateText("hello world", 0); got != "hello world" {
		t.Errorf("limit 0 should not truncate, got %q", got)
	}
	if got := TruncateText("hello world", 5); got != "hello" {
		t.Errorf("TruncateText = %q, want hello", got)
	}
	if got := TruncateText("héllo", 2); got != "hé" {
		t.Errorf("TruncateText should count runes, got %q", got)
	}
}
