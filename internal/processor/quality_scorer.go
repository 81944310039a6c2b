// quality_scorer.go - Heuristic quality score for a single answer
//
// คะแนนคุณภาพคำตอบ 0.0-1.0 คิดจากกฎตามลำดับ (predicate, weight)
// ลำดับของกฎมีผลกับช่วงความยาวที่ไม่ซ้อนกัน

package processor

import (
	"math"
	"strings"
	"unicode/utf8"
)

// QualityRule is one weighted predicate of the quality score
type QualityRule struct {
	Name   string
	Weight float64
	Match  func(response string, length int) bool
}

// QualityRules are evaluated in order and their weights summed
var QualityRules = []QualityRule{
	{
		Name:   "length_ideal",
		Weight: 0.3,
		Match: func(_ string, length int) bool {
			return inIdealLengthBand(length)
		},
	},
	{
		// Only when the ideal band did not already apply
		Name:   "length_acceptable",
		Weight: 0.2,
		Match: func(_ string, length int) bool {
			return !inIdealLengthBand(length) && length >= 50 && length <= 5000
		},
	},
	{
		// A bare hyphen counts as structure, so most prose qualifies
		Name:   "structure",
		Weight: 0.2,
		Match: func(response string, _ int) bool {
			return strings.Contains(response, "\n\n") ||
				strings.Contains(response, "•") ||
				strings.Contains(response, "-")
		},
	},
	{
		Name:   "content",
		Weight: 0.3,
		Match: func(response string, _ int) bool {
			return countMeaningfulWords(response) > 10
		},
	},
	{
		Name:   "incomplete",
		Weight: -0.1,
		Match: func(response string, _ int) bool {
			return strings.HasSuffix(response, "?") && strings.Count(response, "?") == 1
		},
	},
}

// QualityReport is the score of one answer plus the rules that contributed
type QualityReport struct {
	Score        float64  `json:"score"`
	AppliedRules []string `json:"applied_rules"`
}

func inIdealLengthBand(length int) bool {
	return length >= 100 && length <= 2000
}

// countMeaningfulWords counts whitespace separated words longer than 4 characters
func countMeaningfulWords(response string) int {
	count := 0
	for _, word := range strings.Fields(response) {
		if utf8.RuneCountInString(word) > 4 {
			count++
		}
	}
	return count
}

// ScoreResponse scores a raw answer string; empty answers and "Error:" markers score 0
func ScoreResponse(response string) QualityReport {
	if response == "" || IsErrorMarker(response) {
		return QualityReport{Score: 0.0, AppliedRules: []string{}}
	}

	length := utf8.RuneCountInString(response)
	score := 0.0
	applied := []string{}

	for _, rule := range QualityRules {
		if rule.Match(response, length) {
			score += rule.Weight
			applied = append(applied, rule.Name)
		}
	}

	// ปัดเศษเป็นทศนิยม 2 ตำแหน่ง แล้วจำกัดช่วง 0-1
	score = math.Round(score*100) / 100
	score = math.Min(1.0, math.Max(0.0, score))

	return QualityReport{Score: score, AppliedRules: applied}
}

// ScoreProviderResponse scores a tagged response; failures score 0
func ScoreProviderResponse(r ProviderResponse) QualityReport {
	if !r.Succeeded() {
		return QualityReport{Score: 0.0, AppliedRules: []string{}}
	}
	return ScoreResponse(r.Text)
}

// AnalyzeResponseQuality scores every response, keyed by provider
func AnalyzeResponseQuality(responses []ProviderResponse) map[string]QualityReport {
	scores := make(map[string]QualityReport, len(responses))
	for _, r := range responses {
		scores[r.Provider] = ScoreProviderResponse(r)
	}
	return scores
}
