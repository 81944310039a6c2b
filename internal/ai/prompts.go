// prompts.go - Centralized prompt templates for OCR and answer models
package ai

import (
	"github.com/bosocmputer/ocr_answer_compare/configs"
)

// noTextSentinel is what the OCR prompt asks the model to reply for an image without text
const noTextSentinel = "NO_TEXT_FOUND"

// ============================================================================
// 📋 SECTION 1: OCR
// ============================================================================

// GetOCRPrompt returns the Pure OCR prompt used by vision models.
// อ่านแค่ข้อความดิบ ไม่ต้องวิเคราะห์
func GetOCRPrompt() string {
	return `Extract ALL visible text from this image.
Read everything from top to bottom, left to right.
Include the question, every answer option (A, B, C, D, ...), headers and notes.
Keep each line on its own line. Do not translate, summarize or answer anything.
Return ONLY the extracted text, nothing else.
If the image contains no readable text, return exactly: ` + noTextSentinel
}

// ============================================================================
// 🤖 SECTION 2: ANSWER MODELS
// ============================================================================

// systemPromptFor returns the model's own system prompt, falling back to the default
func systemPromptFor(cfg configs.ModelConfig) string {
	if cfg.SystemPrompt != "" {
		return cfg.SystemPrompt
	}
	return configs.DefaultSystemPrompt
}
