package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jdjkelly/snowdoge/internal/domain"
	"github.com/jdjkelly/snowdoge/internal/logger"
	"github.com/jdjkelly/snowdoge/internal/prompts"
	"github.com/jdjkelly/snowdoge/internal/retry"
)

// ClassifierConfig holds configuration for the classifier service.
type ClassifierConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	MaxRetries int
	RetryDelay time.Duration
	Sleep      retry.SleepFunc // nil uses time.Sleep
}

// ClassifierService submits candidate contracts to an OpenAI-compatible
// chat completion API and parses the flagged results. The judgment of what
// makes a contract risky belongs entirely to the model; this adapter owns
// only transport, retries, and response parsing.
type ClassifierService struct {
	client   *resty.Client
	model    string
	endpoint string
	policy   retry.Policy
}

// NewClassifierService creates a new classifier service.
// Parameters:
//   - cfg: classifier configuration including provider, model, and API key.
//
// Returns:
//   - *ClassifierService: initialized classifier adapter.
func NewClassifierService(cfg *ClassifierConfig) *ClassifierService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	// Default to OpenAI compatible endpoint if not specified
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	endpoint := baseURL + "/chat/completions"

	return &ClassifierService{
		client:   client,
		model:    cfg.Model,
		endpoint: endpoint,
		policy: retry.Policy{
			MaxRetries: cfg.MaxRetries,
			Delay:      cfg.RetryDelay,
			Sleep:      cfg.Sleep,
		},
	}
}

// Model returns the model name being used.
func (s *ClassifierService) Model() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
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
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// verdict is the top-level shape the classifier is instructed to return.
type verdict struct {
	Contracts []domain.FlaggedContract `json:"contracts"`
}

// Classify submits a batch of candidate contracts and returns those the
// classifier flagged, zero to len(candidates) of them. Transport and
// non-2xx failures are retried with linear backoff; exhausting retries is
// degraded, not fatal: the failure is logged and the batch yields no
// flags. Malformed responses are treated the same way.
func (s *ClassifierService) Classify(ctx context.Context, candidates []domain.Contract) []domain.FlaggedContract {
	if len(candidates) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	userMsg, err := buildUserMessage(candidates)
	if err != nil {
		log.WithError(err).Error("Failed to serialize candidate batch")
		return nil
	}

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.ClassifierSystemPrompt},
			{Role: "user", Content: userMsg},
		},
		MaxTokens:   4000,
		Temperature: 0.1,
	}

	var resp chatResponse
	err = s.policy.Do(ctx, func() error {
		httpResp, err := s.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&resp).
			Post(s.endpoint)
		if err != nil {
			return fmt.Errorf("classifier request failed: %w", err)
		}
		if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
			if resp.Error != nil {
				return fmt.Errorf("classifier returned HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
			}
			return fmt.Errorf("classifier returned HTTP %d", httpResp.StatusCode())
		}
		return nil
	})
	if err != nil {
		// Degraded, not fatal: prefer dropped coverage over pipeline death.
		log.WithError(err).WithField(logger.FieldCount, len(candidates)).
			Error("Classifier unavailable, dropping batch coverage")
		return nil
	}

	if resp.Error != nil {
		log.WithField("api_error", resp.Error.Message).Warn("Classifier API error, treating as zero results")
		return nil
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn("Classifier returned no content, treating as zero results")
		return nil
	}

	flagged, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		log.WithError(err).Warn("Unparsable classifier response, treating as zero results")
		return nil
	}

	return sanitize(flagged, candidates)
}

// buildUserMessage renders the task description plus the serialized batch.
func buildUserMessage(candidates []domain.Contract) (string, error) {
	payloads := make([]json.RawMessage, 0, len(candidates))
	for _, c := range candidates {
		p, err := c.MarshalPayload()
		if err != nil {
			return "", fmt.Errorf("failed to marshal contract %s: %w", c.ReferenceNumber, err)
		}
		payloads = append(payloads, p)
	}

	batch, err := json.Marshal(payloads)
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch: %w", err)
	}

	return prompts.ClassifierUserPrompt + "\n\n" + string(batch), nil
}

// parseVerdict extracts the verdict JSON object from the model's reply,
// tolerating markdown fences and surrounding prose.
func parseVerdict(content string) (*verdict, error) {
	jsonStart := strings.Index(content, "{")
	if jsonStart == -1 {
		return nil, fmt.Errorf("no JSON found in response")
	}

	// Find matching closing brace
	braceCount := 0
	jsonEnd := -1
findJSON:
	for i := jsonStart; i < len(content); i++ {
		switch content[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				jsonEnd = i + 1
				break findJSON
			}
		}
	}
	if jsonEnd == -1 {
		return nil, fmt.Errorf("incomplete JSON in response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(content[jsonStart:jsonEnd]), &v); err != nil {
		return nil, fmt.Errorf("failed to parse verdict JSON: %w", err)
	}

	return &v, nil
}

// sanitize drops results that do not correspond to a submitted candidate
// or carry an unknown risk level, and stamps the flag time. Descriptive
// fields missing from the verdict are filled from the source record.
func sanitize(v *verdict, candidates []domain.Contract) []domain.FlaggedContract {
	byRef := make(map[string]domain.Contract, len(candidates))
	for _, c := range candidates {
		byRef[c.ReferenceNumber] = c
	}

	now := time.Now().UTC()
	results := make([]domain.FlaggedContract, 0, len(v.Contracts))
	seen := make(map[string]struct{}, len(v.Contracts))

	for _, flagged := range v.Contracts {
		flagged.RiskLevel = domain.RiskLevel(strings.ToLower(string(flagged.RiskLevel)))
		if !flagged.RiskLevel.Valid() {
			continue
		}
		candidate, ok := byRef[flagged.ReferenceNumber]
		if !ok {
			continue
		}
		if _, dup := seen[flagged.ReferenceNumber]; dup {
			continue
		}
		seen[flagged.ReferenceNumber] = struct{}{}

		if flagged.VendorName == "" {
			flagged.VendorName = candidate.VendorName
		}
		if flagged.Description == "" {
			flagged.Description = candidate.Description
		}
		if flagged.ContractValue == 0 {
			if parsed := ParseMoney(candidate.ContractValue); !math.IsNaN(parsed) {
				flagged.ContractValue = parsed
			}
		}
		flagged.FlaggedAt = now

		results = append(results, flagged)
	}

	return results
}
