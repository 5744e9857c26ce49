package distill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/tenetdb/tenet/pkg/types"
)

const (
	// DefaultModel is used when the config names none.
	DefaultModel = "gpt-4o-mini"

	modelMaxRetries = 2
)

const systemPrompt = `You extract durable facts from development conversation transcripts.
A durable fact is a stable statement about a project or a person: tools and libraries in use, languages, databases, deployment targets, conventions, preferences.
Ignore transient task chatter, speculation and questions.
For each fact include the exact quote it came from. Mark supersession=true only when the text explicitly signals a change of state ("switched to", "no longer", "migrated to").`

const userPromptFormat = `Extract facts from the following text.

Respond with a JSON object in the following format:

{
  "entities": [{"type": "...", "name": "...", "aliases": ["..."]}],
  "facts": [{
    "subject_type": "...", "subject": "...", "predicate": "...",
    "object_type": "", "object": "...",
    "polarity": "positive|negative", "strength": "stated|inferred",
    "confidence": 0.0, "quote": "...", "attribution": "...",
    "supersession": false
  }],
  "signals": ["..."]
}

Text:
%s`

// ModelConfig configures the model-backed distiller.
type ModelConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Model distills with a chat model behind a circuit breaker. When the
// upstream degrades, the breaker opens and calls fail fast so ingestion can
// fall back to the heuristic distiller instead of stalling.
type Model struct {
	client *openai.Client
	cb     *gobreaker.CircuitBreaker
	config ModelConfig
	logger *slog.Logger
}

// NewModel creates a model distiller.
func NewModel(cfg ModelConfig, logger *slog.Logger) *Model {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	st := gobreaker.Settings{
		Name:     "distill-model",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("distill circuit breaker opened", "breaker", name, "from", from.String())
			}
		},
	}

	return &Model{
		client: openai.NewClientWithConfig(clientCfg),
		cb:     gobreaker.NewCircuitBreaker(st),
		config: cfg,
		logger: logger,
	}
}

// Distill implements Distiller.
func (m *Model) Distill(ctx context.Context, text string) (*types.Extraction, error) {
	content, err := m.complete(ctx, text)
	if err != nil {
		return nil, err
	}
	return parseExtraction(content)
}

func (m *Model) complete(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.config.Model,
		Temperature: m.config.Temperature,
		MaxTokens:   m.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptFormat, text)},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= modelMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := m.cb.Execute(func() (any, error) {
			resp, err := m.client.CreateChatCompletion(ctx, req)
			if err != nil {
				return nil, err
			}
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("empty completion")
			}
			return resp.Choices[0].Message.Content, nil
		})
		if err != nil {
			lastErr = err
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return "", fmt.Errorf("distill model unavailable: %w", err)
			}
			if !isRetriable(err) {
				return "", fmt.Errorf("distill completion failed: %w", err)
			}
			continue
		}
		return result.(string), nil
	}
	return "", fmt.Errorf("distill retries exhausted: %w", lastErr)
}

// parseExtraction decodes the model output, repairing malformed JSON once
// before giving up.
func parseExtraction(content string) (*types.Extraction, error) {
	content = stripFences(content)

	ex := &types.Extraction{}
	if err := json.Unmarshal([]byte(content), ex); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return nil, fmt.Errorf("failed to parse extraction: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), ex); err != nil {
			return nil, fmt.Errorf("failed to parse repaired extraction: %w", err)
		}
	}
	return ex, nil
}

// stripFences removes a markdown code fence the model sometimes wraps JSON
// in despite the response format hint.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isRetriable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{"timeout", "connection", "rate limit", "rate_limit", "internal server error", "service unavailable", "bad gateway", "gateway timeout"} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
