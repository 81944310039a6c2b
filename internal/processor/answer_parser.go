// answer_parser.go - Parse the Question / Option / Answer block returned by a model
package processor

import (
	"regexp"
	"strings"
)

// StructuredAnswer is the parsed form of an answer in the requested line format
type StructuredAnswer struct {
	Question string `json:"question,omitempty"`
	Option   string `json:"option,omitempty"` // normalized option letter, e.g. "B"
	Answer   string `json:"answer,omitempty"`
}

// Empty reports whether nothing could be parsed
func (s StructuredAnswer) Empty() bool {
	return s.Question == "" && s.Option == "" && s.Answer == ""
}

var (
	answerLinePattern   = regexp.MustCompile(`(?i)^\s*(?:\*\*)?(question|option|answer)(?:\*\*)?\s*[:：]\s*(?:\*\*)?\s*(.*?)\s*$`)
	optionPattern       = regexp.MustCompile(`^\(?([A-Za-z])[\).:]?(?:\s|$)`)
	answerOptionPattern = regexp.MustCompile(`^\(?([A-Za-z])[\).:](?:\s|$)`)
)

// ParseStructuredAnswer extracts the labelled lines of an answer.
// The first occurrence of each label wins; unlabelled lines continue the previous field.
func ParseStructuredAnswer(text string) StructuredAnswer {
	var result StructuredAnswer
	current := ""

	for _, line := range strings.Split(text, "\n") {
		if m := answerLinePattern.FindStringSubmatch(line); m != nil {
			label := strings.ToLower(m[1])
			value := strings.TrimSpace(m[2])
			current = ""
			switch label {
			case "question":
				if result.Question == "" {
					result.Question = value
					current = label
				}
			case "option":
				if result.Option == "" {
					result.Option = normalizeOption(value)
				}
			case "answer":
				if result.Answer == "" {
					result.Answer = value
					current = label
				}
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			current = ""
			continue
		}
		switch current {
		case "question":
			result.Question += " " + line
		case "answer":
			result.Answer += " " + line
		}
	}

	// "Answer: B) Paris" carries the option when no Option line was given
	if result.Option == "" && result.Answer != "" {
		if m := answerOptionPattern.FindStringSubmatch(result.Answer); m != nil {
			result.Option = strings.ToUpper(m[1])
		}
	}
	return result
}

// normalizeOption reduces "b)", "(B) Paris" or "Option B" to "B"
func normalizeOption(value string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(strings.TrimPrefix(value, "Option "), "option ")
	if m := optionPattern.FindStringSubmatch(value); m != nil {
		return strings.ToUpper(m[1])
	}
	return strings.TrimSpace(value)
}
