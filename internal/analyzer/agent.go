package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agent-api/core/pkg/agent"
	"github.com/agent-api/core/types"
	"github.com/agent-api/ollama"

	"github.com/bespokepunks/traitsampler/internal/classifier"
	"github.com/bespokepunks/traitsampler/internal/config"
	"github.com/bespokepunks/traitsampler/internal/extractor"
	"github.com/bespokepunks/traitsampler/internal/sampler"
)

// reviewSize is the edge length sprites are upscaled to before review.
const reviewSize = 384

const reviewPrompt = "This is an upscaled 24x24 pixel art portrait. " +
	"The pixel rule set guessed %q for the eyes. " +
	"Answer with one short phrase naming the eye color (for example \"blue eyes\"), " +
	"or \"covered\" if glasses or shades hide the eyes."

// Reviewer produces a second-opinion note for traits the rules were unsure of.
type Reviewer interface {
	Review(ctx context.Context, s *sampler.Sprite, traits classifier.Traits) (string, error)
}

// VisionReviewer asks a local Ollama vision model about uncertain eye labels.
type VisionReviewer struct {
	agent   *agent.DefaultAgent
	tempDir string
}

// NewVisionReviewer initializes the vision agent after checking that Ollama
// answers on the configured address.
func NewVisionReviewer(ctx context.Context, cfg config.OllamaConfig, logger *slog.Logger) (*VisionReviewer, error) {
	if err := pingOllama(ctx, cfg); err != nil {
		return nil, err
	}

	provider := ollama.NewProvider(&ollama.ProviderOpts{
		Logger:  logger,
		BaseURL: cfg.BaseURL,
		Port:    cfg.Port,
	})
	provider.UseModel(ctx, &types.Model{ID: cfg.Model})

	a := agent.NewAgent(&agent.NewAgentConfig{
		Provider:     provider,
		Logger:       logger,
		SystemPrompt: "You are a pixel art reviewer. You answer with a single short phrase and never explain.",
	})

	return &VisionReviewer{agent: a, tempDir: os.TempDir()}, nil
}

func pingOllama(ctx context.Context, cfg config.OllamaConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s:%d/api/tags", strings.TrimRight(cfg.BaseURL, "/"), cfg.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build ollama request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned %s from %s", resp.Status, url)
	}
	return nil
}

// Review upscales s into a temporary PNG and asks the model for the eye color.
func (r *VisionReviewer) Review(ctx context.Context, s *sampler.Sprite, traits classifier.Traits) (string, error) {
	factor := reviewSize / s.Width
	if factor < 1 {
		factor = 1
	}

	f, err := os.CreateTemp(r.tempDir, s.Stem+"-review-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create review image: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := extractor.SaveSprite(path, s.Upscale(factor)); err != nil {
		return "", err
	}

	response := r.agent.Run(
		ctx,
		agent.WithInput(fmt.Sprintf(reviewPrompt, traits.Eyes.Text)),
		agent.WithImagePath(filepath.Clean(path)),
	)
	if response.Err != nil {
		return "", response.Err
	}
	if len(response.Messages) == 0 {
		return "", fmt.Errorf("no response messages received from model")
	}

	content := response.Messages[len(response.Messages)-1].Content
	return strings.TrimSpace(content), nil
}
