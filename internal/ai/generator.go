// Package ai provides the LLM-backed review generation collaborator.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kurslab/reviewd/internal/types"
)

// Model constants. The service uses one model for the whole review; the
// analysis and the question candidates come back in a single response.
const (
	// ModelDefault is used unless REVIEWD_MODEL overrides it
	ModelDefault = "claude-sonnet-4-5-20250929"
)

// GetModel returns the review model, checking REVIEWD_MODEL env var first
func GetModel() string {
	if model := os.Getenv("REVIEWD_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// Request carries the text context a review run draws upon. Empty fields
// mean the source was unavailable; the generator reports which sources it
// actually used through Result.Coverage.
type Request struct {
	SubmissionText string
	FileText       string
	ModuleText     string
	TrailText      string
}

// Result is the raw generator output before filtering
type Result struct {
	Analysis   *types.Analysis
	Candidates []*types.CandidateQuestion
	Coverage   *types.Coverage
}

// Generator produces a raw review for a submission's text context.
// Implementations must be safe for concurrent use.
type Generator interface {
	GenerateReview(ctx context.Context, req *Request) (*Result, error)
}

// AnthropicGenerator implements Generator on the Anthropic API
type AnthropicGenerator struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// Config holds generator configuration
type Config struct {
	APIKey string      // Anthropic API key (if empty, reads from ANTHROPIC_API_KEY env var)
	Model  string      // Model to use (default: GetModel())
	Retry  RetryConfig // Retry behavior (default: DefaultRetryConfig())
}

// NewAnthropicGenerator creates a generator backed by the Anthropic API
func NewAnthropicGenerator(cfg *Config) (*AnthropicGenerator, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set ANTHROPIC_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = GetModel()
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.Timeout == 0 {
		retryCfg = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	g := &AnthropicGenerator{
		client: &client,
		model:  model,
		retry:  retryCfg,
	}
	if retryCfg.MaxConcurrentCalls > 0 {
		g.sem = semaphore.NewWeighted(int64(retryCfg.MaxConcurrentCalls))
	}
	if retryCfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(retryCfg.RequestsPerMinute)/60, 1)
	}

	return g, nil
}

// GenerateReview runs one analysis + question generation call and parses the
// structured response
func (g *AnthropicGenerator) GenerateReview(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.SubmissionText) == "" && strings.TrimSpace(req.FileText) == "" {
		return nil, fmt.Errorf("no submission or file text to review")
	}

	prompt := buildReviewPrompt(req)

	var response *anthropic.Message
	err := g.retryWithBackoff(ctx, "review", func(attemptCtx context.Context) error {
		resp, apiErr := g.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(g.model),
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	result, err := parseReviewResponse(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse review response: %w", err)
	}

	result.Coverage = &types.Coverage{
		SubmissionTextUsed: strings.TrimSpace(req.SubmissionText) != "",
		FileUsed:           strings.TrimSpace(req.FileText) != "",
		ModuleUsed:         strings.TrimSpace(req.ModuleText) != "",
		TrailUsed:          strings.TrimSpace(req.TrailText) != "",
	}

	return result, nil
}
