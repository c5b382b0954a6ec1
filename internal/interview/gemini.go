package interview

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"github.com/ashureev/mockdy/internal/config"
	"github.com/ashureev/mockdy/internal/domain"
)

// GeminiModel implements Model with the Gemini API. The client is stateless;
// the full history is replayed on every turn.
type GeminiModel struct {
	client      *genai.Client
	model       string
	temperature float32
}

// Ensure GeminiModel implements Model.
var _ Model = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini-backed model.
func NewGeminiModel(ctx context.Context, cfg config.GeminiConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	slog.Info("Gemini model initialized", "model", cfg.Model, "temperature", cfg.Temperature)
	return &GeminiModel{client: client, model: cfg.Model, temperature: cfg.Temperature}, nil
}

// Stream sends the conversation and yields reply text as it arrives.
func (m *GeminiModel) Stream(ctx context.Context, req ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		temperature := m.temperature
		cfg := &genai.GenerateContentConfig{Temperature: &temperature}
		if req.SystemInstruction != "" {
			cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
		}

		for resp, err := range m.client.Models.GenerateContentStream(ctx, m.model, toContents(req), cfg) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// GenerateJSON asks for a JSON response constrained by schema.
func (m *GeminiModel) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

func toContents(req ChatRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		var role genai.Role = genai.RoleUser
		if t.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))
}
