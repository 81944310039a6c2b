// similarity.go - Jaccard similarity between two answers

package processor

// CalculateSimilarity returns the Jaccard index of the word tokens of text1 and text2.
// Return: similarity score 0.0-1.0, 0 when either text has no tokens
func CalculateSimilarity(text1, text2 string) float64 {
	words1 := Tokenize(text1)
	words2 := Tokenize(text2)

	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	intersection := 0
	for word := range words1 {
		if words2.Contains(word) {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection

	return float64(intersection) / float64(union)
}

// SimilarityPair is the similarity between the answers of two providers
type SimilarityPair struct {
	ProviderA  string  `json:"provider_a"`
	ProviderB  string  `json:"provider_b"`
	Similarity float64 `json:"similarity"`
	Agree      bool    `json:"agree"` // similarity reached the configured threshold
}

// CompareResponses computes pairwise similarity between every two successful responses
func CompareResponses(responses []ProviderResponse, threshold float64) []SimilarityPair {
	var valid []ProviderResponse
	for _, r := range responses {
		if r.Succeeded() {
			valid = append(valid, r)
		}
	}

	pairs := []SimilarityPair{}
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			sim := CalculateSimilarity(valid[i].Text, valid[j].Text)
			pairs = append(pairs, SimilarityPair{
				ProviderA:  valid[i].Provider,
				ProviderB:  valid[j].Provider,
				Similarity: sim,
				Agree:      sim >= threshold,
			})
		}
	}
	return pairs
}
