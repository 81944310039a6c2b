// confidence_calculator.go - Weighted confidence for the recommended answer
//
// คำนวณคะแนนความน่าเชื่อถือของคำตอบที่ดีที่สุดแบบถ่วงน้ำหนัก
// จากคุณภาพคำตอบ ความเห็นตรงกันของโมเดลอื่น และจำนวนโมเดลที่ตอบได้

package processor

import (
	"math"

	"github.com/bosocmputer/ocr_answer_compare/internal/common"
)

// ConfidenceFactors เก็บคะแนนของแต่ละปัจจัย (0-100)
type ConfidenceFactors struct {
	Quality   float64 `json:"quality"`   // คะแนนคุณภาพของคำตอบที่เลือก
	Agreement float64 `json:"agreement"` // ความคล้ายเฉลี่ยกับคำตอบของโมเดลอื่น
	Coverage  float64 `json:"coverage"`  // สัดส่วนโมเดลที่ตอบสำเร็จ
}

// ConfidenceWeights น้ำหนักของแต่ละปัจจัย (รวมต้องเท่ากับ 1.0)
type ConfidenceWeights struct {
	Quality   float64
	Agreement float64
	Coverage  float64
}

// DefaultWeights น้ำหนักมาตรฐานที่ใช้ในการคำนวณ
var DefaultWeights = ConfidenceWeights{
	Quality:   0.40,
	Agreement: 0.40,
	Coverage:  0.20,
}

// ConfidenceResult ผลลัพธ์การคำนวณ confidence
type ConfidenceResult struct {
	Provider       string            `json:"provider"`
	OverallScore   float64           `json:"overall_score"`   // คะแนนรวม (0-100)
	OverallLevel   string            `json:"overall_level"`   // ระดับความน่าเชื่อถือ
	RequiresReview bool              `json:"requires_review"` // ต้องตรวจสอบเพิ่มเติมหรือไม่
	Factors        ConfidenceFactors `json:"factors"`
	Breakdown      map[string]string `json:"breakdown"`
}

// CalculateAnswerConfidence scores how much the recommended answer can be trusted.
// agreeThreshold is the similarity at which two answers count as agreeing.
func CalculateAnswerConfidence(
	best string,
	reports map[string]QualityReport,
	pairs []SimilarityPair,
	summary ResponseSummary,
	agreeThreshold float64,
	reqCtx *common.RequestContext,
) ConfidenceResult {
	if best == "" {
		return ConfidenceResult{
			OverallLevel:   determineConfidenceLevel(0),
			RequiresReview: true,
			Breakdown:      map[string]string{"answer": "ไม่มีโมเดลที่ตอบสำเร็จ"},
		}
	}

	factors := ConfidenceFactors{
		Quality:   math.Round(reports[best].Score*1000) / 10,
		Agreement: agreementScore(best, pairs),
		Coverage:  coverageScore(summary),
	}

	overallScore := (factors.Quality * DefaultWeights.Quality) +
		(factors.Agreement * DefaultWeights.Agreement) +
		(factors.Coverage * DefaultWeights.Coverage)
	overallScore = math.Round(overallScore*100) / 100

	level := determineConfidenceLevel(overallScore)
	requiresReview := shouldRequireReview(overallScore, factors, agreeThreshold)

	if reqCtx != nil {
		reqCtx.LogInfo("📊 Confidence Calculation (%s):", best)
		reqCtx.LogInfo("  ├─ Quality: %.1f%% (weight: %.0f%%)", factors.Quality, DefaultWeights.Quality*100)
		reqCtx.LogInfo("  ├─ Agreement: %.1f%% (weight: %.0f%%)", factors.Agreement, DefaultWeights.Agreement*100)
		reqCtx.LogInfo("  ├─ Coverage: %.1f%% (weight: %.0f%%)", factors.Coverage, DefaultWeights.Coverage*100)
		reqCtx.LogInfo("  └─ Overall: %.1f%% (%s) → Review: %v", overallScore, level, requiresReview)
	}

	return ConfidenceResult{
		Provider:       best,
		OverallScore:   overallScore,
		OverallLevel:   level,
		RequiresReview: requiresReview,
		Factors:        factors,
		Breakdown:      generateBreakdown(factors, agreeThreshold),
	}
}

// agreementScore averages the similarity between best and every other successful answer
func agreementScore(best string, pairs []SimilarityPair) float64 {
	total, count := 0.0, 0
	for _, pair := range pairs {
		if pair.ProviderA == best || pair.ProviderB == best {
			total += pair.Similarity
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Round(total/float64(count)*1000) / 10
}

func coverageScore(summary ResponseSummary) float64 {
	if summary.TotalModels == 0 {
		return 0
	}
	score := float64(summary.SuccessfulResponses) / float64(summary.TotalModels) * 100
	return math.Round(score*10) / 10
}

// determineConfidenceLevel แปลงคะแนนเป็นระดับ
func determineConfidenceLevel(score float64) string {
	if score >= 95 {
		return "very_high" // 95-100
	} else if score >= 85 {
		return "high" // 85-94
	} else if score >= 70 {
		return "medium" // 70-84
	} else if score >= 50 {
		return "low" // 50-69
	} else {
		return "very_low" // 0-49
	}
}

// shouldRequireReview ตัดสินใจว่าผู้ใช้ควรตรวจคำตอบเองหรือไม่
func shouldRequireReview(overallScore float64, factors ConfidenceFactors, agreeThreshold float64) bool {
	// 1. Overall score ต่ำกว่า 70
	if overallScore < 70 {
		return true
	}

	// 2. โมเดลอื่นไม่เห็นด้วยกับคำตอบนี้
	if factors.Agreement < agreeThreshold*100 {
		return true
	}

	// 3. โมเดลตอบสำเร็จน้อยกว่า 70%
	return factors.Coverage < 70
}

// generateBreakdown สร้างคำอธิบายของแต่ละปัจจัย
func generateBreakdown(factors ConfidenceFactors, agreeThreshold float64) map[string]string {
	breakdown := make(map[string]string)

	if factors.Quality >= 80 {
		breakdown["quality"] = "คำตอบมีคุณภาพสูง"
	} else if factors.Quality >= 50 {
		breakdown["quality"] = "คำตอบมีคุณภาพปานกลาง"
	} else {
		breakdown["quality"] = "คำตอบสั้นหรือไม่สมบูรณ์"
	}

	if factors.Agreement == 0 {
		breakdown["agreement"] = "ไม่มีคำตอบอื่นให้เปรียบเทียบ"
	} else if factors.Agreement >= agreeThreshold*100 {
		breakdown["agreement"] = "โมเดลอื่นให้คำตอบใกล้เคียงกัน"
	} else {
		breakdown["agreement"] = "โมเดลอื่นให้คำตอบต่างกัน - ต้องตรวจสอบ"
	}

	if factors.Coverage >= 100 {
		breakdown["coverage"] = "ทุกโมเดลตอบสำเร็จ"
	} else {
		breakdown["coverage"] = "บางโมเดลตอบไม่สำเร็จ"
	}

	return breakdown
}
