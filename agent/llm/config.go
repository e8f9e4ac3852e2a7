package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
)

// Config maps model tiers to concrete backend models. LightModel serves
// routine calls; HeavyModel serves long or high-reasoning queries.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	LightModel         string        `envconfig:"LIGHT_MODEL" split_words:"true" default:"google/gemini-2.0-flash-001"`
	HeavyModel         string        `envconfig:"HEAVY_MODEL" split_words:"true" default:"google/gemini-2.5-pro"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.LightModel) == "" {
		return fmt.Errorf("%w: light model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.HeavyModel) == "" {
		return fmt.Errorf("%w: heavy model is required", contractx.ErrValidation)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", contractx.ErrValidation)
	}
	return nil
}

// Configured reports whether a backend credential is present at all.
// Without one, every generation call must degrade, not fail hard.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ModelFor resolves a tier to a backend model name.
func (c Config) ModelFor(tier contractx.Tier) string {
	if tier == contractx.TierHeavy {
		return strings.TrimSpace(c.HeavyModel)
	}
	return strings.TrimSpace(c.LightModel)
}
