package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GenAIExtractor calls Gemini through the google.golang.org/genai SDK and asks
// for a JSON response directly.
type GenAIExtractor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func NewGenAIExtractor(ctx context.Context, apiKey, model string, timeout time.Duration, log *zap.Logger) (*GenAIExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIExtractor{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     logging.OrNop(log),
	}, nil
}

func (g *GenAIExtractor) Extract(ctx context.Context, emailText, hint string) (models.Candidate, error) {
	return runExtraction(ctx, g.log, "genai", g.timeout, g.generate, emailText, hint)
}

func (g *GenAIExtractor) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0),
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}
