package identify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
)

// DefaultModel is used when GeminiConfig.Model is empty
const DefaultModel = "gemini-2.5-flash"

// GeminiConfig configures GeminiIdentifier
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string       // overrides the API endpoint, for tests
	HTTPClient *http.Client // optional
}

// GeminiIdentifier identifies birds with a Gemini model.
type GeminiIdentifier struct {
	client *genai.Client
	model  string
	log    logger.Logger
}

// NewGeminiIdentifier creates a Gemini client
func NewGeminiIdentifier(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*GeminiIdentifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.Newf("gemini API key is required").
			Component("identify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create gemini client: %w", err)).
			Component("identify").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &GeminiIdentifier{client: client, model: cfg.Model, log: log.Module("identify")}, nil
}

// Identify sends the image and prompt in one user turn. Every failure is
// reported as a network error; quota, auth and transport problems are not
// told apart.
func (g *GeminiIdentifier) Identify(ctx context.Context, img Image, prompt Prompt) (string, error) {
	start := time.Now()
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.ContentType()),
		genai.NewPartFromText(prompt.Text),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		g.log.Warn("identification request failed",
			logger.String("image", img.Name),
			logger.String("model", g.model),
			logger.Error(err))
		return "", errors.New(fmt.Errorf("gemini request failed: %w", err)).
			Component("identify").
			Category(errors.CategoryNetwork).
			Context("model", g.model).
			Timing("generate_content", time.Since(start)).
			Build()
	}

	text := resp.Text()
	g.log.Debug("identification reply received",
		logger.String("image", img.Name),
		logger.Int("chars", len(text)),
		logger.Duration("elapsed", time.Since(start)))
	return text, nil
}
