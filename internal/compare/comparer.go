// comparer.go - Ask every answer model and compare what they said

package compare

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/ai"
	"github.com/bosocmputer/ocr_answer_compare/internal/common"
	"github.com/bosocmputer/ocr_answer_compare/internal/processor"
	"github.com/bosocmputer/ocr_answer_compare/internal/ratelimit"
	"github.com/bosocmputer/ocr_answer_compare/internal/storage"
	"golang.org/x/sync/singleflight"
)

// ErrNoModels is returned when no enabled model matches the request
var ErrNoModels = errors.New("no enabled models selected")

// Settings tunes a Comparer
type Settings struct {
	CallTimeout         time.Duration
	SimilarityThreshold float64
	QualityThreshold    float64
	CacheEnabled        bool
}

// SettingsFromConfig reads the comparison settings loaded by configs.LoadConfig
func SettingsFromConfig() Settings {
	return Settings{
		CallTimeout:         time.Duration(configs.API_TIMEOUT) * time.Second,
		SimilarityThreshold: configs.SIMILARITY_THRESHOLD,
		QualityThreshold:    configs.QUALITY_THRESHOLD,
		CacheEnabled:        configs.CACHE_ENABLED,
	}
}

// Comparison is the outcome of asking a set of models the same question
type Comparison struct {
	Responses    []processor.ProviderResponse       `json:"-"`
	Answers      map[string]string                  `json:"answers"`
	Scores       map[string]processor.QualityReport `json:"quality_scores"`
	Summary      processor.ResponseSummary          `json:"summary"`
	Similarities []processor.SimilarityPair         `json:"similarities"`
	LowQuality   []string                           `json:"low_quality"`
	Best         string                             `json:"best_provider,omitempty"`
	Verdict      processor.AnswerVerdict            `json:"verdict"`
	Confidence   processor.ConfidenceResult         `json:"confidence"`
	CacheHits    []string                           `json:"cache_hits"`
	Tokens       common.TokenUsage                  `json:"token_usage"`
}

// Comparer fans a question out to the configured answer providers one by one
type Comparer struct {
	providers []ai.AnswerProvider
	cache     *storage.ResponseCache
	limiter   *ratelimit.Limiter
	settings  Settings

	// inflight collapses concurrent cache misses for the same (text, model)
	inflight singleflight.Group
}

// NewComparer creates a Comparer. cache and limiter may be nil.
func NewComparer(providers []ai.AnswerProvider, cache *storage.ResponseCache, limiter *ratelimit.Limiter, settings Settings) *Comparer {
	return &Comparer{
		providers: providers,
		cache:     cache,
		limiter:   limiter,
		settings:  settings,
	}
}

// ProviderNames lists the configured providers in order
func (c *Comparer) ProviderNames() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Compare asks each selected provider about text and compares the answers.
// models filters providers by name (case-insensitive); empty means all.
// A failing provider becomes a failed response and never aborts the run.
func (c *Comparer) Compare(ctx context.Context, text string, models []string, reqCtx *common.RequestContext) (*Comparison, error) {
	selected := c.selectProviders(models)
	if len(selected) == 0 {
		return nil, ErrNoModels
	}

	start := time.Now()
	comparison := &Comparison{CacheHits: []string{}}

	reqCtx.StartStep("ask_models")
	for _, provider := range selected {
		response, tokens, cached := c.ask(ctx, provider, text, reqCtx)
		comparison.Responses = append(comparison.Responses, response)
		if cached {
			comparison.CacheHits = append(comparison.CacheHits, provider.Name())
		}
		if tokens != nil {
			comparison.Tokens.InputTokens += tokens.InputTokens
			comparison.Tokens.OutputTokens += tokens.OutputTokens
			comparison.Tokens.TotalTokens += tokens.TotalTokens
			comparison.Tokens.CostUSD += tokens.CostUSD
		}
	}
	usage := comparison.Tokens
	reqCtx.EndStep("success", &usage, nil)

	reqCtx.StartStep("compare_answers")
	c.analyze(comparison, reqCtx)
	reqCtx.EndStep("success", nil, nil)

	reqCtx.LogAnalysis(len([]rune(text)), len(selected), time.Since(start))
	return comparison, nil
}

// ask calls one provider, going through the cache and the rate limiter.
// With caching on, concurrent requests for the same (text, model) share one call.
func (c *Comparer) ask(ctx context.Context, provider ai.AnswerProvider, text string, reqCtx *common.RequestContext) (processor.ProviderResponse, *common.TokenUsage, bool) {
	name := provider.Name()

	if !c.cacheEnabled() {
		answer, tokens, err := c.call(ctx, provider, text, reqCtx)
		if err != nil {
			return failure(name, err), nil, false
		}
		return processor.NewSuccess(name, answer), tokens, false
	}

	if answer, ok := c.cache.Get(text, name); ok {
		reqCtx.LogInfo("💾 Cache hit: %s", name)
		return processor.NewSuccess(name, answer), nil, true
	}

	var tokens *common.TokenUsage
	leader, cached := false, false
	v, err, shared := c.inflight.Do(storage.CacheKey(text, name), func() (interface{}, error) {
		leader = true
		// A call that finished between our miss and Do has already filled the cache
		if answer, ok := c.cache.Get(text, name); ok {
			cached = true
			return answer, nil
		}
		answer, usage, err := c.call(ctx, provider, text, reqCtx)
		if err != nil {
			return "", err
		}
		c.cache.Set(text, name, answer)
		tokens = usage
		return answer, nil
	})
	if err != nil {
		return failure(name, err), nil, false
	}

	answer := v.(string)
	if shared && !leader {
		reqCtx.LogInfo("💾 Joined in-flight call: %s", name)
		return processor.NewSuccess(name, answer), nil, true
	}
	return processor.NewSuccess(name, answer), tokens, cached
}

func (c *Comparer) cacheEnabled() bool {
	return c.settings.CacheEnabled && c.cache != nil
}

// call waits for the rate limiter and asks the provider under the per-call timeout.
// Empty answers and "Error:" marked answers count as failures.
func (c *Comparer) call(ctx context.Context, provider ai.AnswerProvider, text string, reqCtx *common.RequestContext) (string, *common.TokenUsage, error) {
	name := provider.Name()
	reqCtx.StartSubStep(fmt.Sprintf("ask_%s", strings.ToLower(name)))

	if err := c.limiter.Wait(ctx, name); err != nil {
		reqCtx.EndSubStep("❌ rate limited")
		reqCtx.LogAPICall(name, false, err.Error())
		return "", nil, err
	}

	callCtx := ctx
	if c.settings.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.settings.CallTimeout)
		defer cancel()
	}

	answer, tokens, err := provider.Answer(callCtx, text)
	if err == nil {
		switch {
		case strings.TrimSpace(answer) == "":
			err = fmt.Errorf("%s returned an empty answer", name)
		case processor.IsErrorMarker(answer):
			err = errors.New(strings.TrimSpace(strings.TrimPrefix(answer, processor.ErrorMarkerPrefix)))
		}
	}
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		reqCtx.LogAPICall(name, false, err.Error())
		return "", nil, err
	}

	reqCtx.EndSubStep(fmt.Sprintf("%d chars", len([]rune(answer))))
	reqCtx.LogAPICall(name, true, "")
	return answer, tokens, nil
}

// failure turns a provider error into a failed response carrying a user facing message
func failure(name string, err error) processor.ProviderResponse {
	return processor.NewFailure(name, &processor.UpstreamError{
		Message: ai.UserMessage(ai.CategorizeError(name, err)),
	})
}

// analyze fills every derived field of a comparison from its responses
func (c *Comparer) analyze(comparison *Comparison, reqCtx *common.RequestContext) {
	responses := comparison.Responses

	comparison.Answers = WireAnswers(responses)
	comparison.Scores = processor.AnalyzeResponseQuality(responses)
	comparison.Summary = processor.GenerateSummary(responses)
	comparison.Similarities = processor.CompareResponses(responses, c.settings.SimilarityThreshold)
	comparison.LowQuality = lowQuality(responses, comparison.Scores, c.settings.QualityThreshold)
	comparison.Best = bestResponse(responses, comparison.Scores)
	comparison.Verdict = processor.MatchAnswers(responses)
	comparison.Confidence = processor.CalculateAnswerConfidence(
		comparison.Best,
		comparison.Scores,
		comparison.Similarities,
		comparison.Summary,
		c.settings.SimilarityThreshold,
		reqCtx,
	)

	reqCtx.LogInfo("📊 %d/%d answered | consensus: %s | best: %s",
		comparison.Summary.SuccessfulResponses, comparison.Summary.TotalModels,
		comparison.Summary.ConsensusLevel, comparison.Best)
	if len(comparison.LowQuality) > 0 {
		reqCtx.LogWarning("Low quality answers: %s", strings.Join(comparison.LowQuality, ", "))
	}
}

func (c *Comparer) selectProviders(models []string) []ai.AnswerProvider {
	if len(models) == 0 {
		return c.providers
	}

	wanted := make(map[string]bool, len(models))
	for _, m := range models {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			wanted[m] = true
		}
	}
	if len(wanted) == 0 {
		return c.providers
	}

	var selected []ai.AnswerProvider
	for _, p := range c.providers {
		if wanted[strings.ToLower(p.Name())] {
			selected = append(selected, p)
		}
	}
	return selected
}

// Summarize scores and summarizes a wire-format answer map.
// Providers are processed in name order so the result is deterministic.
func Summarize(raw map[string]string) (map[string]processor.QualityReport, processor.ResponseSummary) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	responses := make([]processor.ProviderResponse, 0, len(names))
	for _, name := range names {
		responses = append(responses, processor.ParseProviderResponse(name, raw[name]))
	}
	return processor.AnalyzeResponseQuality(responses), processor.GenerateSummary(responses)
}

// WireAnswers renders responses in the provider → text form, failures as "Error: ..."
func WireAnswers(responses []processor.ProviderResponse) map[string]string {
	answers := make(map[string]string, len(responses))
	for _, r := range responses {
		answers[r.Provider] = r.WireText()
	}
	return answers
}

// lowQuality lists successful providers scoring under threshold, in response order
func lowQuality(responses []processor.ProviderResponse, scores map[string]processor.QualityReport, threshold float64) []string {
	names := []string{}
	for _, r := range responses {
		if r.Succeeded() && scores[r.Provider].Score < threshold {
			names = append(names, r.Provider)
		}
	}
	return names
}

// bestResponse picks the highest scoring successful provider; ties go to the earlier one
func bestResponse(responses []processor.ProviderResponse, scores map[string]processor.QualityReport) string {
	best := ""
	bestScore := -1.0
	for _, r := range responses {
		if !r.Succeeded() {
			continue
		}
		if score := scores[r.Provider].Score; score > bestScore {
			best, bestScore = r.Provider, score
		}
	}
	return best
}
