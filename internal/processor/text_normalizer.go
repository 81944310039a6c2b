// text_normalizer.go - Cleaning and tokenizing OCR text

package processor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxKeywords is used when the caller has no configured keyword budget
const DefaultMaxKeywords = 10

var (
	// wordPattern matches maximal runs of word characters (letters, digits, underscore)
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

	// disallowedChars matches anything outside word chars, whitespace and . , ! ? ; : - ( )
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()-]`)
)

// stopWords ถูกตัดทิ้งก่อนนับความถี่ของ keyword
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "you": true, "he": true, "she": true, "it": true,
	"we": true, "they": true, "me": true, "him": true, "her": true, "us": true,
	"them": true,
}

// TokenSet is a set of lower-cased word tokens
type TokenSet map[string]struct{}

// Contains reports whether token is in the set
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// CleanText normalizes OCR output: whitespace runs become a single space,
// the ends are trimmed and characters outside the allowed set are removed.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = collapseWhitespace(text)
	text = disallowedChars.ReplaceAllString(text, "")

	// Removing characters can leave "a  b" or a leading space behind
	return collapseWhitespace(text)
}

// collapseWhitespace joins whitespace-separated fields with a single space
func collapseWhitespace(text string) string {
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}

// isSpace is unicode.IsSpace plus the information separators U+001C..U+001F,
// which OCR output sometimes carries between words
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= '\x1c' && r <= '\x1f')
}

// Tokenize returns the distinct lower-cased word tokens of text
func Tokenize(text string) TokenSet {
	tokens := TokenSet{}
	for _, word := range tokenStream(text) {
		tokens[word] = struct{}{}
	}
	return tokens
}

// tokenStream returns every lower-cased word token in order of appearance
func tokenStream(text string) []string {
	if text == "" {
		return nil
	}
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// ExtractKeywords returns up to maxKeywords tokens ordered by frequency.
// Stop words and tokens of three characters or fewer are ignored; equal
// counts keep the order in which the tokens first appeared.
func ExtractKeywords(text string, maxKeywords int) []string {
	if text == "" || maxKeywords <= 0 {
		return []string{}
	}

	type keywordCount struct {
		word  string
		count int
	}

	var counts []keywordCount
	index := make(map[string]int)

	for _, word := range tokenStream(text) {
		if stopWords[word] || utf8.RuneCountInString(word) <= 3 {
			continue
		}
		if i, seen := index[word]; seen {
			counts[i].count++
			continue
		}
		index[word] = len(counts)
		counts = append(counts, keywordCount{word: word, count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].count > counts[j].count
	})

	if len(counts) > maxKeywords {
		counts = counts[:maxKeywords]
	}

	keywords := make([]string, 0, len(counts))
	for _, kc := range counts {
		keywords = append(keywords, kc.word)
	}
	return keywords
}

// TruncateText cuts text to at most maxRunes runes; maxRunes <= 0 disables the limit
func TruncateText(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
