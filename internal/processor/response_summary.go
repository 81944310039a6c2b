// response_summary.go - Aggregate summary over all provider answers

package processor

import (
	"strings"
	"unicode/utf8"
)

// ConsensusLevel describes how many providers produced a usable answer
type ConsensusLevel string

const (
	ConsensusNone     ConsensusLevel = "none"
	ConsensusLow      ConsensusLevel = "low"
	ConsensusModerate ConsensusLevel = "moderate"
	ConsensusHigh     ConsensusLevel = "high"
)

// commonThemesLimit caps the number of keywords reported as common themes
const commonThemesLimit = 5

// ResponseSummary is derived from the full set of responses and never stored on its own
type ResponseSummary struct {
	TotalModels         int            `json:"total_models"`
	SuccessfulResponses int            `json:"successful_responses"`
	FailedResponses     int            `json:"failed_responses"`
	AverageLength       float64        `json:"average_length"`
	CommonThemes        []string       `json:"common_themes"`
	ConsensusLevel      ConsensusLevel `json:"consensus_level"`
}

// GenerateSummary builds the summary of an ordered set of responses.
// Common themes come from the successful answers joined in input order.
func GenerateSummary(responses []ProviderResponse) ResponseSummary {
	total := len(responses)

	var valid []string
	for _, r := range responses {
		if r.Succeeded() {
			valid = append(valid, r.Text)
		}
	}

	if len(valid) == 0 {
		return ResponseSummary{
			TotalModels:         total,
			SuccessfulResponses: 0,
			FailedResponses:     total,
			AverageLength:       0,
			CommonThemes:        []string{},
			ConsensusLevel:      ConsensusNone,
		}
	}

	totalLength := 0
	for _, text := range valid {
		totalLength += utf8.RuneCountInString(text)
	}

	return ResponseSummary{
		TotalModels:         total,
		SuccessfulResponses: len(valid),
		FailedResponses:     total - len(valid),
		AverageLength:       float64(totalLength) / float64(len(valid)),
		CommonThemes:        ExtractKeywords(strings.Join(valid, " "), commonThemesLimit),
		ConsensusLevel:      determineConsensusLevel(len(valid), total),
	}
}

// determineConsensusLevel กำหนดระดับ consensus จากสัดส่วนคำตอบที่ใช้ได้
// 70% is inclusive: 7 of 10 is moderate, 2 of 3 is low.
func determineConsensusLevel(valid, total int) ConsensusLevel {
	if valid == 0 {
		return ConsensusNone
	}
	if valid == total {
		return ConsensusHigh
	}
	if valid*10 >= total*7 {
		return ConsensusModerate
	}
	return ConsensusLow
}
