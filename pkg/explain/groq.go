// Package explain generates clinician-readable narratives for annotation
// reports through a Groq-hosted LLM. The model only rephrases facts already
// computed by the pipeline, it never decides risk.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pgx-risk-server/internal/domain"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "openai/gpt-oss-120b"
	defaultTimeout = 30 * time.Second

	systemPrompt = "You are a clinical pharmacogenomics assistant. You receive a " +
		"structured CPIC-based drug risk report and must explain it in plain " +
		"language. Only restate facts present in the input. Do not invent " +
		"genotypes, risks, or recommendations. Respond with a JSON object with " +
		"keys: summary, clinician_summary, limitations, recommended_next_steps."
)

// Config controls the Groq client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RatePerSec float64
	RateBurst  int
}

// Client calls the Groq chat completions API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewClient builds a Groq client. Returns nil when no API key is configured,
// callers treat a nil client as explanation disabled.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 2
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "GroqExplain",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from,
				"to_state":        to,
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		breaker: breaker,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Explain produces the narrative explanation for a report. Failures never
// propagate, they degrade to an error payload inside the explanation map.
func (c *Client) Explain(ctx context.Context, rpt *domain.Report) map[string]any {
	explanation, err := c.explain(ctx, rpt)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"report_id": rpt.ID,
			"drug":      rpt.Drug,
		}).Warn("LLM explanation failed")
		return map[string]any{"error": err.Error()}
	}
	return explanation
}

func (c *Client) explain(ctx context.Context, rpt *domain.Report) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	grounded, err := json.Marshal(groundedInput(rpt))
	if err != nil {
		return nil, fmt.Errorf("failed to encode report facts: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, string(grounded))
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]any), nil
}

// groundedInput is the subset of report fields the model is allowed to see.
func groundedInput(rpt *domain.Report) map[string]any {
	return map[string]any{
		"patient_id": rpt.PatientID,
		"drug":       rpt.Drug,
		"risk_assessment": map[string]any{
			"risk_label":       rpt.RiskAssessment.RiskLabel,
			"confidence_score": rpt.RiskAssessment.ConfidenceScore,
			"severity":         rpt.RiskAssessment.Severity,
		},
		"pharmacogenomic_profile": map[string]any{
			"primary_gene": rpt.Profile.PrimaryGene,
			"diplotype":    rpt.Profile.Diplotype,
			"phenotype":    rpt.Profile.Phenotype,
			"flags":        rpt.Profile.Flags,
			"notes":        rpt.Profile.Notes,
		},
		"clinical_recommendation": map[string]any{
			"action":             rpt.Recommendation.Action,
			"cpic_guideline":     rpt.Recommendation.CPICGuideline,
			"data_quality_notes": rpt.Recommendation.DataQualityNotes,
		},
	}
}

func (c *Client) complete(ctx context.Context, groundedJSON string) (map[string]any, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Explain this pharmacogenomic drug risk report:\n" + groundedJSON},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	var explanation map[string]any
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &explanation); err != nil {
		return nil, fmt.Errorf("model output was not valid JSON: %w", err)
	}
	return explanation, nil
}
