package extract

import (
	"fmt"

	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/pkg/models"
)

// NewExtractor constructs the appropriate document extractor based on config.
// Called once at worker startup.
func NewExtractor(cfg config.ExtractionConfig) (models.DocumentExtractor, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicExtractor(cfg.Anthropic, cfg.Timeout), nil
	case "openai":
		return NewOpenAIExtractor(cfg.OpenAI, cfg.Timeout), nil
	case "mock":
		return NewMockExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider %q: must be one of anthropic, openai, mock", cfg.Provider)
	}
}
