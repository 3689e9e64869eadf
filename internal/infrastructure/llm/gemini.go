package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// GeminiRewriter implements ports.Rewriter with the Gemini API.
type GeminiRewriter struct {
	client *genai.Client
	model  string
}

var _ ports.Rewriter = (*GeminiRewriter)(nil)

// NewGeminiRewriter creates the genai client. httpClient may be nil.
func NewGeminiRewriter(ctx context.Context, cfg config.GeminiConfig, httpClient *http.Client) (*GeminiRewriter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiRewriter{client: client, model: model}, nil
}

// Rewrite asks the model for a cleaned caption.
func (g *GeminiRewriter) Rewrite(ctx context.Context, text string, kind domain.MediaKind) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(text, kind)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", domain.ErrEmptyRewrite
	}
	return out, nil
}
