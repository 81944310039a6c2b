// answer_matcher.go - Majority vote over the models' final answers
package processor

import (
	"math"
	"regexp"
	"strings"
)

// Answers at or above this similarity (0-100) are counted as the same answer
const answerMatchThreshold = 70.0

// Answers longer than this are cut before fuzzy comparison
const maxCompareRunes = 200

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// AnswerVerdict represents the answer most models agreed on
type AnswerVerdict struct {
	Found     bool     `json:"found"`
	Option    string   `json:"option,omitempty"`
	Answer    string   `json:"answer,omitempty"`
	Providers []string `json:"providers"`
	Votes     int      `json:"votes"`
	Total     int      `json:"total"`
	Agreement float64  `json:"agreement"` // votes / total (0-100)
	Method    string   `json:"method"`    // option, exact, fuzzy, single, not_found
}

type answerGroup struct {
	option     string
	answer     string
	normalized string
	providers  []string
	fuzzy      bool
}

// MatchAnswers groups the successful responses by their chosen option, or by
// fuzzy answer text when no option was given, and returns the largest group.
// Ties go to the group seen first.
func MatchAnswers(responses []ProviderResponse) AnswerVerdict {
	var groups []*answerGroup
	total := 0

	for _, r := range responses {
		if !r.Succeeded() {
			continue
		}
		total++

		parsed := ParseStructuredAnswer(r.Text)
		answer := parsed.Answer
		if parsed.Empty() {
			answer = r.Text
		}
		normalized := normalizeAnswerText(answer)

		if group := findGroup(groups, parsed.Option, normalized); group != nil {
			group.providers = append(group.providers, r.Provider)
			continue
		}
		groups = append(groups, &answerGroup{
			option:     parsed.Option,
			answer:     answer,
			normalized: normalized,
			providers:  []string{r.Provider},
		})
	}

	if len(groups) == 0 {
		return AnswerVerdict{Providers: []string{}, Method: "not_found"}
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if len(g.providers) > len(best.providers) {
			best = g
		}
	}

	return AnswerVerdict{
		Found:     true,
		Option:    best.option,
		Answer:    best.answer,
		Providers: best.providers,
		Votes:     len(best.providers),
		Total:     total,
		Agreement: math.Round(float64(len(best.providers))/float64(total)*1000) / 10,
		Method:    groupMethod(best),
	}
}

// findGroup returns the group an answer belongs to, marking fuzzy joins
func findGroup(groups []*answerGroup, option, normalized string) *answerGroup {
	for _, g := range groups {
		if option != "" && g.option != "" {
			if option == g.option {
				return g
			}
			continue
		}

		similarity := calculateAnswerSimilarity(normalized, g.normalized)
		if similarity >= answerMatchThreshold {
			if similarity < 100 {
				g.fuzzy = true
			}
			return g
		}
	}
	return nil
}

func groupMethod(g *answerGroup) string {
	switch {
	case len(g.providers) == 1:
		return "single"
	case g.option != "":
		return "option"
	case g.fuzzy:
		return "fuzzy"
	default:
		return "exact"
	}
}

// normalizeAnswerText lowercases and strips punctuation for matching
func normalizeAnswerText(text string) string {
	text = strings.ToLower(text)
	text = nonWordPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// calculateAnswerSimilarity returns 0-100 based on rune-level edit distance
func calculateAnswerSimilarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 100.0
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) > maxCompareRunes {
		ra = ra[:maxCompareRunes]
	}
	if len(rb) > maxCompareRunes {
		rb = rb[:maxCompareRunes]
	}

	maxLen := float64(max(len(ra), len(rb)))
	if maxLen == 0 {
		return 0
	}

	distance := levenshteinDistance(ra, rb)
	similarity := (1.0 - (float64(distance) / maxLen)) * 100.0
	return math.Max(0, similarity)
}

// levenshteinDistance คำนวณ edit distance ระหว่าง 2 strings
// Algorithm: Dynamic Programming
func levenshteinDistance(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
