package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"
)

// LLMService extracts placements through langchaingo's Gemini client.
type LLMService struct {
	// Held so the client is not recreated for every request.
	Client  llms.Model
	Timeout time.Duration
	log     *zap.Logger
}

func NewLLMService(ctx context.Context, apiKey, model string, timeout time.Duration, log *zap.Logger) (*LLMService, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewLLMServiceWithModel(llm, timeout, log), nil
}

// NewLLMServiceWithModel wraps any langchaingo model, e.g. a fake in tests.
func NewLLMServiceWithModel(model llms.Model, timeout time.Duration, log *zap.Logger) *LLMService {
	return &LLMService{Client: model, Timeout: timeout, log: logging.OrNop(log)}
}

func (s *LLMService) Extract(ctx context.Context, emailText, hint string) (models.Candidate, error) {
	return runExtraction(ctx, s.log, "langchain", s.Timeout, func(ctx context.Context, prompt string) (string, error) {
		return llms.GenerateFromSinglePrompt(ctx, s.Client, prompt, llms.WithTemperature(0))
	}, emailText, hint)
}
