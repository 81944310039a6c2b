package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/internal/ai"
	"github.com/bosocmputer/ocr_answer_compare/internal/common"
	"github.com/bosocmputer/ocr_answer_compare/internal/compare"
	"github.com/bosocmputer/ocr_answer_compare/internal/processor"
	"github.com/bosocmputer/ocr_answer_compare/internal/storage"
	"github.com/gin-gonic/gin"
)

const questionText = "Which planet is known as the red planet? A. Venus B. Mars C. Jupiter"

type fakeOCR struct {
	name string
	text string
	err  error
}

func (f *fakeOCR) GetProviderName() string { return f.name }

func (f *fakeOCR) ExtractText(ctx context.Context, image []byte, mimeType string, reqCtx *common.RequestContext) (*ai.OCRResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.OCRResult{Provider: f.name, RawText: f.text, TextLength: len([]rune(f.text))}, nil
}

type fakeAnswer struct {
	name   string
	answer string
	err    error
}

func (f *fakeAnswer) Name() string  { return f.name }
func (f *fakeAnswer) Model() string { return "fake" }

func (f *fakeAnswer) Answer(ctx context.Context, text string) (string, *common.TokenUsage, error) {
	return f.answer, nil, f.err
}

type fakeHistory struct {
	saved []storage.ComparisonRecord
	err   error
}

func (f *fakeHistory) SaveComparison(ctx context.Context, record storage.ComparisonRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeHistory) RecentComparisons(ctx context.Context, limit int) ([]storage.ComparisonRecord, error) {
	if len(f.saved) > limit {
		return f.saved[:limit], nil
	}
	return f.saved, nil
}

func testOptions() Options {
	return Options{
		SupportedFormats:    []string{"png", "jpg", "jpeg"},
		MaxImageBytes:       1 << 20,
		MinTextLength:       10,
		MaxTextLength:       5000,
		SimilarityThreshold: 0.3,
	}
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func newTestHandler(primary, fallback ai.OCRProvider, history HistoryStore) (*Handler, *storage.ResponseCache) {
	cache := storage.NewResponseCache()
	answer := "Question: Which planet is known as the red planet?\nOption: B\nAnswer: Mars, because iron oxide dust covers its surface."
	providers := []ai.AnswerProvider{
		&fakeAnswer{name: "ChatGPT", answer: answer},
		&fakeAnswer{name: "Claude", answer: answer},
		&fakeAnswer{name: "Gemini", err: errors.New("googleapi: Error 500: backend error")},
	}
	comparer := compare.NewComparer(providers, cache, nil, compare.Settings{
		CallTimeout:         time.Second,
		SimilarityThreshold: 0.3,
		QualityThreshold:    0.5,
		CacheEnabled:        true,
	})
	return NewHandler(comparer, primary, fallback, cache, history, testOptions()), cache
}

func uploadRequest(t *testing.T, filename string, content []byte, models string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(content)
	}
	if models != "" {
		writer.WriteField("models", models)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAnalyzeImage_Success(t *testing.T) {
	history := &fakeHistory{}
	h, _ := newTestHandler(&fakeOCR{name: "ocrspace", text: "  " + questionText + "  "}, nil, history)
	router := newTestRouter(h)

	w, body := serve(router, uploadRequest(t, "question.png", []byte("fake-png"), ""))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if body["extracted_text"] != questionText {
		t.Errorf("extracted_text = %v", body["extracted_text"])
	}
	answers := body["answers"].(map[string]interface{})
	if len(answers) != 3 || !strings.HasPrefix(answers["Gemini"].(string), "Error: ") {
		t.Errorf("answers = %v", answers)
	}
	summary := body["summary"].(map[string]interface{})
	if summary["consensus_level"] != "low" {
		t.Errorf("summary = %v", summary)
	}
	ocr := body["ocr"].(map[string]interface{})
	if ocr["provider"] != "ocrspace" || ocr["fallback_used"] != false {
		t.Errorf("ocr = %v", ocr)
	}
	if _, ok := body["debug_data"]; ok {
		t.Error("debug_data should only be present with ?debug=true")
	}

	if len(history.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(history.saved))
	}
	record := history.saved[0]
	if record.Source != "image" || record.OCRProvider != "ocrspace" || record.BestProvider != "ChatGPT" {
		t.Errorf("record = %+v", record)
	}
}

func TestAnalyzeImage_Fallback(t *testing.T) {
	primary := &fakeOCR{name: "ocrspace", err: errors.New("connection refused")}
	fallback := &fakeOCR{name: "gemini", text: questionText}
	h, _ := newTestHandler(primary, fallback, nil)
	router := newTestRouter(h)

	w, body := serve(router, uploadRequest(t, "question.jpg", []byte("fake-jpg"), "claude"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	ocr := body["ocr"].(map[string]interface{})
	if ocr["provider"] != "gemini" || ocr["fallback_used"] != true {
		t.Errorf("ocr = %v", ocr)
	}
	if answers := body["answers"].(map[string]interface{}); len(answers) != 1 {
		t.Errorf("models filter ignored: %v", answers)
	}
}

func TestAnalyzeImage_OCRFailure(t *testing.T) {
	primary := &fakeOCR{name: "ocrspace", err: &ai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}}
	h, _ := newTestHandler(primary, nil, nil)
	router := newTestRouter(h)

	w, body := serve(router, uploadRequest(t, "question.png", []byte("x"), ""))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if body["error"] != "ocr_failed" || body["category"] != ai.CategoryRateLimit {
		t.Errorf("body = %v", body)
	}
}

func TestAnalyzeImage_Validation(t *testing.T) {
	h, _ := newTestHandler(&fakeOCR{name: "ocrspace", text: questionText}, nil, nil)
	router := newTestRouter(h)

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     int
	}{
		{name: "missing file", want: http.StatusBadRequest},
		{name: "unsupported extension", filename: "notes.pdf", content: []byte("pdf"), want: http.StatusBadRequest},
		{name: "too large", filename: "big.png", content: bytes.Repeat([]byte("a"), 2<<20), want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := serve(router, uploadRequest(t, tt.filename, tt.content, ""))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAnalyzeImage_NoText(t *testing.T) {
	h, _ := newTestHandler(&fakeOCR{name: "ocrspace", text: "   \n "}, nil, nil)
	router := newTestRouter(h)

	w, body := serve(router, uploadRequest(t, "blank.png", []byte("x"), ""))
	if w.Code != http.StatusUnprocessableEntity || body["error"] != "no_text_detected" {
		t.Errorf("status = %d, body = %v", w.Code, body)
	}
}

func TestAnalyzeText(t *testing.T) {
	h, cache := newTestHandler(nil, nil, nil)
	router := newTestRouter(h)

	w, body := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/analyze-text?debug=true", AnalyzeTextRequest{Text: questionText}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, ok := body["ocr"]; ok {
		t.Error("text requests have no ocr block")
	}
	if _, ok := body["debug_data"]; !ok {
		t.Error("debug_data missing")
	}
	// only the two successful answers are cached
	if cache.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", cache.Len())
	}

	w, body = serve(router, jsonRequest(t, http.MethodPost, "/api/v1/analyze-text", AnalyzeTextRequest{Text: questionText, Models: []string{"unknown"}}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown model status = %d, body = %v", w.Code, body)
	}
}

func TestAnalyzeText_Truncates(t *testing.T) {
	h, _ := newTestHandler(nil, nil, nil)
	h.opts.MaxTextLength = 20
	router := newTestRouter(h)

	w, body := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/analyze-text", AnalyzeTextRequest{Text: questionText}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["truncated"] != true || body["text_length"].(float64) > 20 {
		t.Errorf("truncated=%v text_length=%v", body["truncated"], body["text_length"])
	}
}

func TestAnalyzeText_Keywords(t *testing.T) {
	h, _ := newTestHandler(nil, nil, nil)
	h.opts.MaxKeywords = 2
	router := newTestRouter(h)

	w, body := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/analyze-text", AnalyzeTextRequest{Text: questionText}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	keywords, _ := body["keywords"].([]interface{})
	if len(keywords) != 2 || keywords[0] != "planet" || keywords[1] != "which" {
		t.Errorf("keywords = %v, want [planet which]", body["keywords"])
	}

	h.opts.MaxKeywords = 0
	if got := h.maxKeywords(); got != processor.DefaultMaxKeywords {
		t.Errorf("maxKeywords() = %d, want default %d", got, processor.DefaultMaxKeywords)
	}
}

func TestSummarizeHandler(t *testing.T) {
	h, _ := newTestHandler(nil, nil, nil)
	router := newTestRouter(h)

	w, _ := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/summarize", SummarizeRequest{}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty responses status = %d", w.Code)
	}

	w, body := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/summarize", SummarizeRequest{Responses: map[string]string{
		"ChatGPT": "Mars is the red planet.",
		"Claude":  "Error: Request took too long. Please try again.",
	}}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	summary := body["summary"].(map[string]interface{})
	if summary["successful_responses"].(float64) != 1 || summary["failed_responses"].(float64) != 1 {
		t.Errorf("summary = %v", summary)
	}
}

func TestSimilarityHandler(t *testing.T) {
	h, _ := newTestHandler(nil, nil, nil)
	router := newTestRouter(h)

	w, body := serve(router, jsonRequest(t, http.MethodPost, "/api/v1/similarity", SimilarityRequest{Text1: "the red planet", Text2: "The red planet!"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["similarity"].(float64) != 1 || body["agree"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestCacheEndpoints(t *testing.T) {
	h, cache := newTestHandler(nil, nil, nil)
	cache.Set("q", "ChatGPT", "a")
	router := newTestRouter(h)

	w, body := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	if w.Code != http.StatusOK || body["enabled"] != true {
		t.Fatalf("stats status=%d body=%v", w.Code, body)
	}

	w, body = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil))
	if w.Code != http.StatusOK || body["removed"].(float64) != 1 || cache.Len() != 0 {
		t.Errorf("clear status=%d body=%v len=%d", w.Code, body, cache.Len())
	}
}

func TestHistoryHandler(t *testing.T) {
	h, _ := newTestHandler(nil, nil, nil)
	router := newTestRouter(h)
	if w, _ := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no store status = %d, want 503", w.Code)
	}

	history := &fakeHistory{saved: []storage.ComparisonRecord{{RecordID: "1"}, {RecordID: "2"}, {RecordID: "3"}}}
	h, _ = newTestHandler(nil, nil, history)
	router = newTestRouter(h)

	w, body := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=2", nil))
	if w.Code != http.StatusOK || body["count"].(float64) != 2 {
		t.Errorf("status=%d body=%v", w.Code, body)
	}
	if w, _ := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=abc", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}
}

func TestModelsHandler(t *testing.T) {
	h, _ := newTestHandler(&fakeOCR{name: "ocrspace"}, &fakeOCR{name: "gemini"}, nil)
	router := newTestRouter(h)

	w, body := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	enabled := body["enabled"].([]interface{})
	if len(enabled) != 3 || enabled[0] != "ChatGPT" {
		t.Errorf("enabled = %v", enabled)
	}
	ocr := body["ocr"].(map[string]interface{})
	if ocr["primary"] != "ocrspace" || ocr["fallback"] != "gemini" {
		t.Errorf("ocr = %v", ocr)
	}
}

func TestParseModels(t *testing.T) {
	got := parseModels(" ChatGPT, ,claude ")
	if len(got) != 2 || got[0] != "ChatGPT" || got[1] != "claude" {
		t.Errorf("parseModels = %v", got)
	}
	if parseModels("") != nil {
		t.Error("empty input should give nil")
	}
}
