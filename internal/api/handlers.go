// handlers.go - HTTP handlers for image upload, text analysis and comparison tools.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/ai"
	"github.com/bosocmputer/ocr_answer_compare/internal/common"
	"github.com/bosocmputer/ocr_answer_compare/internal/compare"
	"github.com/bosocmputer/ocr_answer_compare/internal/processor"
	"github.com/bosocmputer/ocr_answer_compare/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistoryStore persists finished comparisons
type HistoryStore interface {
	SaveComparison(ctx context.Context, record storage.ComparisonRecord) error
	RecentComparisons(ctx context.Context, limit int) ([]storage.ComparisonRecord, error)
}

// Options are the request limits applied by the handlers
type Options struct {
	SupportedFormats    []string
	MaxImageBytes       int64
	Preprocess          bool
	MaxImageDimension   int
	MinTextLength       int
	MaxTextLength       int
	SimilarityThreshold float64
	MaxKeywords         int
	Debug               bool // always include step timings
}

// OptionsFromConfig reads the handler limits loaded by configs.LoadConfig
func OptionsFromConfig() Options {
	return Options{
		SupportedFormats:    configs.SUPPORTED_IMAGE_FORMATS,
		MaxImageBytes:       configs.MaxImageSizeBytes(),
		Preprocess:          configs.ENABLE_IMAGE_PREPROCESSING,
		MaxImageDimension:   configs.MAX_IMAGE_DIMENSION,
		MinTextLength:       configs.MIN_TEXT_LENGTH,
		MaxTextLength:       configs.MAX_TEXT_LENGTH,
		SimilarityThreshold: configs.SIMILARITY_THRESHOLD,
		MaxKeywords:         configs.MAX_KEYWORDS,
		Debug:               configs.DEBUG,
	}
}

// Handler serves the comparison API
type Handler struct {
	comparer    *compare.Comparer
	ocrPrimary  ai.OCRProvider
	ocrFallback ai.OCRProvider
	cache       *storage.ResponseCache
	history     HistoryStore
	opts        Options
}

// NewHandler creates a Handler. ocrFallback and history may be nil.
func NewHandler(comparer *compare.Comparer, ocrPrimary, ocrFallback ai.OCRProvider, cache *storage.ResponseCache, history HistoryStore, opts Options) *Handler {
	return &Handler{
		comparer:    comparer,
		ocrPrimary:  ocrPrimary,
		ocrFallback: ocrFallback,
		cache:       cache,
		history:     history,
		opts:        opts,
	}
}

// RegisterRoutes mounts the API under /api/v1
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/analyze-image", h.AnalyzeImageHandler)
	v1.POST("/analyze-text", h.AnalyzeTextHandler)
	v1.POST("/summarize", h.SummarizeHandler)
	v1.POST("/similarity", h.SimilarityHandler)
	v1.GET("/models", h.ModelsHandler)
	v1.GET("/cache/stats", h.CacheStatsHandler)
	v1.DELETE("/cache", h.ClearCacheHandler)
	v1.GET("/history", h.HistoryHandler)
}

// AnalyzeTextRequest is the body of POST /analyze-text
type AnalyzeTextRequest struct {
	Text   string   `json:"text"`
	Models []string `json:"models"`
}

// SummarizeRequest is the body of POST /summarize
type SummarizeRequest struct {
	Responses map[string]string `json:"responses"`
}

// SimilarityRequest is the body of POST /similarity
type SimilarityRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

// AnalyzeImageHandler reads the text of an uploaded image and compares the answers to it
func (h *Handler) AnalyzeImageHandler(c *gin.Context) {
	reqCtx := common.NewRequestContext("image")

	// Step 1: Validate the upload
	reqCtx.StartStep("validate_image")
	header, err := c.FormFile("image")
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "image file is required",
			"details":    "send the image as multipart form field 'image'",
			"request_id": reqCtx.RequestID,
		})
		return
	}

	ext, err := processor.ValidateImageFormat(header.Filename, h.opts.SupportedFormats)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "unsupported_format",
			"details":    err.Error(),
			"request_id": reqCtx.RequestID,
		})
		return
	}

	if err := processor.ValidateImageSize(header.Size, h.opts.MaxImageBytes); err != nil {
		reqCtx.EndStep("failed", nil, err)
		status := http.StatusBadRequest
		if errors.Is(err, processor.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{
			"error":      "invalid_image_size",
			"details":    err.Error(),
			"request_id": reqCtx.RequestID,
		})
		return
	}

	imageData, err := readUpload(c, header.Filename)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "failed to read image",
			"details":    err.Error(),
			"request_id": reqCtx.RequestID,
		})
		return
	}
	mimeType := processor.MIMETypeForExtension(ext)

	if h.opts.Preprocess {
		reqCtx.StartSubStep("image_preprocessing")
		processed, processedMIME, err := processor.PreprocessImage(imageData, ext, h.opts.MaxImageDimension)
		if err != nil {
			reqCtx.EndSubStep("⚠️ skipped")
			reqCtx.LogWarning("Preprocessing failed, using original image: %v", err)
		} else {
			reqCtx.EndSubStep(fmt.Sprintf("%d → %d bytes", len(imageData), len(processed)))
			imageData, mimeType = processed, processedMIME
		}
	}
	reqCtx.EndStep("success", nil, nil)

	// Step 2: OCR with fallback
	reqCtx.StartStep("ocr_extraction")
	ocrResult, err := h.extractText(c.Request.Context(), imageData, mimeType, reqCtx)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		errorResponse := ai.BuildErrorResponse(err)
		errorResponse["error"] = "ocr_failed"
		errorResponse["request_id"] = reqCtx.RequestID
		c.JSON(http.StatusBadGateway, errorResponse)
		return
	}
	reqCtx.EndStep("success", ocrResult.Tokens, nil)

	h.respondWithComparison(c, reqCtx, ocrResult.RawText, parseModels(c.PostForm("models")), ocrResult)
}

// AnalyzeTextHandler compares the answers to text supplied directly
func (h *Handler) AnalyzeTextHandler(c *gin.Context) {
	var req AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request format",
			"details":  err.Error(),
			"expected": "JSON with text and optional models array",
		})
		return
	}

	reqCtx := common.NewRequestContext("text")
	h.respondWithComparison(c, reqCtx, req.Text, req.Models, nil)
}

// respondWithComparison cleans the text, asks the models and writes the response
func (h *Handler) respondWithComparison(c *gin.Context, reqCtx *common.RequestContext, rawText string, models []string, ocrResult *ai.OCRResult) {
	// Step 3: Clean and bound the text
	reqCtx.StartStep("clean_text")
	text := processor.CleanText(rawText)
	if len([]rune(text)) < h.opts.MinTextLength {
		err := fmt.Errorf("only %d characters of text", len([]rune(text)))
		reqCtx.EndStep("failed", nil, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "no_text_detected",
			"message":    fmt.Sprintf("No meaningful text found (minimum %d characters)", h.opts.MinTextLength),
			"request_id": reqCtx.RequestID,
		})
		return
	}

	truncated := false
	if h.opts.MaxTextLength > 0 && len([]rune(text)) > h.opts.MaxTextLength {
		text = processor.TruncateText(text, h.opts.MaxTextLength)
		truncated = true
		reqCtx.LogWarning("Text truncated to %d characters", h.opts.MaxTextLength)
	}
	reqCtx.EndStep("success", nil, nil)

	// Step 4: Ask the models and compare
	comparison, err := h.comparer.Compare(c.Request.Context(), text, models, reqCtx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, compare.ErrNoModels) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":      err.Error(),
			"available":  h.comparer.ProviderNames(),
			"request_id": reqCtx.RequestID,
		})
		return
	}

	// Step 5: Save history
	if h.history != nil {
		reqCtx.StartStep("save_history")
		record := buildRecord(reqCtx, text, comparison, ocrResult)
		if err := h.history.SaveComparison(c.Request.Context(), record); err != nil {
			reqCtx.EndStep("failed", nil, err)
			reqCtx.LogWarning("History not saved: %v", err)
		} else {
			reqCtx.EndStep("success", nil, nil)
		}
	}

	summary := reqCtx.GetSummary()

	response := gin.H{
		"status":         "success",
		"extracted_text": text,
		"text_length":    len([]rune(text)),
		"truncated":      truncated,
		"keywords":       processor.ExtractKeywords(text, h.maxKeywords()),
		"answers":        comparison.Answers,
		"quality_scores": comparison.Scores,
		"summary":        comparison.Summary,
		"similarities":   comparison.Similarities,
		"low_quality":    comparison.LowQuality,
		"best_provider":  comparison.Best,
		"verdict":        comparison.Verdict,
		"confidence":     comparison.Confidence,
		"cache_hits":     comparison.CacheHits,
		"metadata": gin.H{
			"request_id":   reqCtx.RequestID,
			"source":       reqCtx.Source,
			"processed_at": time.Now().Format(time.RFC3339),
			"duration_sec": summary["total_duration_sec"],
			"token_usage":  summary["token_usage"],
		},
	}
	if ocrResult != nil {
		response["ocr"] = gin.H{
			"provider":      ocrResult.Provider,
			"fallback_used": ocrResult.FallbackUsed,
			"text_length":   ocrResult.TextLength,
			"warning":       ocrResult.Warning,
		}
	}
	if h.opts.Debug || c.Query("debug") == "true" {
		response["debug_data"] = gin.H{"steps": reqCtx.Steps}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) maxKeywords() int {
	if h.opts.MaxKeywords > 0 {
		return h.opts.MaxKeywords
	}
	return processor.DefaultMaxKeywords
}

// extractText runs the primary OCR provider and falls back to the secondary on error
func (h *Handler) extractText(ctx context.Context, image []byte, mimeType string, reqCtx *common.RequestContext) (*ai.OCRResult, error) {
	if h.ocrPrimary == nil {
		return nil, errors.New("no OCR provider configured")
	}

	result, err := h.ocrPrimary.ExtractText(ctx, image, mimeType, reqCtx)
	if err == nil {
		return result, nil
	}
	reqCtx.LogError("OCR provider %s failed: %v", h.ocrPrimary.GetProviderName(), err)

	if h.ocrFallback == nil {
		return nil, err
	}

	reqCtx.LogWarning("🔄 Falling back to %s", h.ocrFallback.GetProviderName())
	result, fallbackErr := h.ocrFallback.ExtractText(ctx, image, mimeType, reqCtx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary and fallback OCR failed: %w (primary error: %v)", fallbackErr, err)
	}
	result.FallbackUsed = true
	return result, nil
}

// SummarizeHandler scores and summarizes answers that were collected elsewhere
func (h *Handler) SummarizeHandler(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Responses) == 0 {
		details := "responses map is required"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request format",
			"details":  details,
			"expected": `JSON {"responses": {"provider": "answer or Error: message"}}`,
		})
		return
	}

	scores, summary := compare.Summarize(req.Responses)
	c.JSON(http.StatusOK, gin.H{
		"quality_scores": scores,
		"summary":        summary,
	})
}

// SimilarityHandler returns the Jaccard similarity of two texts
func (h *Handler) SimilarityHandler(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request format",
			"details":  err.Error(),
			"expected": "JSON with text1 and text2",
		})
		return
	}

	similarity := processor.CalculateSimilarity(req.Text1, req.Text2)
	c.JSON(http.StatusOK, gin.H{
		"similarity": similarity,
		"agree":      similarity >= h.opts.SimilarityThreshold,
		"threshold":  h.opts.SimilarityThreshold,
	})
}

// ModelsHandler lists the configured models and which API keys are usable
func (h *Handler) ModelsHandler(c *gin.Context) {
	ocr := gin.H{"primary": nil, "fallback": nil}
	if h.ocrPrimary != nil {
		ocr["primary"] = h.ocrPrimary.GetProviderName()
	}
	if h.ocrFallback != nil {
		ocr["fallback"] = h.ocrFallback.GetProviderName()
	}

	c.JSON(http.StatusOK, gin.H{
		"models":   configs.Models,
		"enabled":  h.comparer.ProviderNames(),
		"api_keys": configs.ValidateConfig(),
		"ocr":      ocr,
		"cache":    h.cache != nil,
		"history":  h.history != nil,
		"app_name": configs.APP_NAME,
		"version":  configs.APP_VERSION,
	})
}

// CacheStatsHandler reports cache usage
func (h *Handler) CacheStatsHandler(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"stats":   h.cache.Stats(),
	})
}

// ClearCacheHandler drops every cached answer
func (h *Handler) ClearCacheHandler(c *gin.Context) {
	removed := 0
	if h.cache != nil {
		removed = h.cache.Len()
		h.cache.Clear()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "cleared",
		"removed": removed,
	})
}

// HistoryHandler returns the most recent comparisons
func (h *Handler) HistoryHandler(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "history_disabled",
			"message": "set MONGO_URI to keep a comparison history",
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid limit",
				"details": err.Error(),
			})
			return
		}
		limit = n
	}
	limit = storage.ClampHistoryLimit(limit)

	records, err := h.history.RecentComparisons(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load history",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"limit":   limit,
		"records": records,
	})
}

// readUpload reads the uploaded image into memory
func readUpload(c *gin.Context, filename string) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, err
	}
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return data, nil
}

// parseModels splits a comma separated model list
func parseModels(raw string) []string {
	var models []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// buildRecord converts a finished comparison into its history record
func buildRecord(reqCtx *common.RequestContext, text string, comparison *compare.Comparison, ocrResult *ai.OCRResult) storage.ComparisonRecord {
	scores := make(map[string]float64, len(comparison.Scores))
	for name, report := range comparison.Scores {
		scores[name] = report.Score
	}

	record := storage.ComparisonRecord{
		RecordID:       uuid.New().String(),
		RequestID:      reqCtx.RequestID,
		Source:         reqCtx.Source,
		ExtractedText:  text,
		Answers:        comparison.Answers,
		QualityScores:  scores,
		ConsensusLevel: string(comparison.Summary.ConsensusLevel),
		CommonThemes:   comparison.Summary.CommonThemes,
		BestProvider:   comparison.Best,
		DurationMS:     time.Since(reqCtx.StartTime).Milliseconds(),
		CreatedAt:      time.Now(),
	}
	if ocrResult != nil {
		record.OCRProvider = ocrResult.Provider
	}
	return record
}
