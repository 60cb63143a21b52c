package advisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zappabad/agriflow/internal/logging"
)

// Config configures a GenAIAdvisor.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults and no key.
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-2.5-flash",
		Timeout: 30 * time.Second,
	}
}

// Generator turns a prompt into text using a named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
}

func (g genaiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenAIAdvisor writes briefs with a Gemini model.
type GenAIAdvisor struct {
	cfg    Config
	gen    Generator
	logger *zap.Logger
}

// NewGenAIAdvisor creates an advisor backed by the genai client. It returns
// ErrDisabled when cfg has no API key.
func NewGenAIAdvisor(ctx context.Context, cfg Config, logger *zap.Logger) (*GenAIAdvisor, error) {
	if cfg.APIKey == "" {
		return nil, ErrDisabled
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewAdvisor(genaiGenerator{client: client}, cfg, logger), nil
}

// NewAdvisor creates an advisor over an arbitrary generator.
func NewAdvisor(gen Generator, cfg Config, logger *zap.Logger) *GenAIAdvisor {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &GenAIAdvisor{
		cfg:    cfg,
		gen:    gen,
		logger: logging.OrNop(logger).Named("advisor"),
	}
}

// Brief implements Briefer.
func (a *GenAIAdvisor) Brief(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.gen.Generate(ctx, a.cfg.Model, BuildPrompt(req))
	if err != nil {
		a.logger.Warn("brief failed", zap.String("model", a.cfg.Model), zap.Error(err))
		return "", fmt.Errorf("generate brief: %w", err)
	}

	text = CleanOutput(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	a.logger.Debug("brief generated",
		zap.String("model", a.cfg.Model),
		zap.Duration("took", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
