package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/ipv4-deal-os/internal/logger"
	"github.com/timmy/ipv4-deal-os/internal/prompts"
)

// UnconfiguredMessage is returned when no API key is configured.
const UnconfiguredMessage = "AI Engine Unconfigured (OPENROUTER_API_KEY missing)"

// MalformedMessage is returned when the upstream reply carries no choices.
const MalformedMessage = "AI response malformed"

// AnalysisService forwards block descriptions to an OpenAI-compatible
// chat-completions API and relays the answer.
type AnalysisService struct {
	client   *resty.Client
	model    string
	apiKey   string
	endpoint string
}

// AnalysisConfig holds configuration for AnalysisService.
type AnalysisConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer is sent as HTTP-Referer, which OpenRouter uses for attribution.
	Referer string
	Timeout time.Duration
}

// AnalyzeRequest identifies the block to analyze.
type AnalyzeRequest struct {
	CIDR    string `json:"cidr"`
	OrgName string `json:"orgName"`
}

// AnalysisResult is either Text or Error (with optional Details), never both.
type AnalysisResult struct {
	Text    string      `json:"text,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewAnalysisService creates a new AnalysisService.
// Parameters:
//   - cfg: API key, endpoint and model settings.
//
// Returns:
//   - *AnalysisService: initialized client wrapper.
func NewAnalysisService(cfg *AnalysisConfig) *AnalysisService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Referer != "" {
		client.SetHeader("HTTP-Referer", cfg.Referer)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}

	return &AnalysisService{
		client:   client,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: baseURL + "/chat/completions",
	}
}

// IsConfigured reports whether an API key is available.
func (s *AnalysisService) IsConfigured() bool {
	return strings.TrimSpace(s.apiKey) != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze asks the model for a brokerage analysis of one block.
// Failures are reported in the result, never as an error, so callers can
// relay them to the frontend unchanged.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) *AnalysisResult {
	if !s.IsConfigured() {
		return &AnalysisResult{Error: UnconfiguredMessage}
	}

	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.AnalystSystemPrompt},
			{Role: "user", Content: prompts.BlockAnalysisPrompt(req.CIDR, req.OrgName)},
		},
	}

	start := time.Now()
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(s.endpoint)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("AI request failed")
		return &AnalysisResult{Error: err.Error()}
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldStatus:     httpResp.StatusCode(),
	}).Info(ctx, "AI analysis response received: model=%s", s.model)

	raw := httpResp.Body()
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.FromContext(ctx).WithError(err).Error("AI response is not JSON")
		return &AnalysisResult{Error: fmt.Sprintf("decode AI response (HTTP %d): %v", httpResp.StatusCode(), err)}
	}

	if len(resp.Choices) == 0 {
		var details interface{}
		if err := json.Unmarshal(raw, &details); err != nil {
			details = string(raw)
		}
		return &AnalysisResult{Error: MalformedMessage, Details: details}
	}

	return &AnalysisResult{Text: resp.Choices[0].Message.Content}
}
