package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	llmx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/llm"
)

// NewClient creates an OpenAI SDK client configured for OpenRouter.
// Returns nil when no API key is configured; callers treat a nil client as
// "backend offline", never as a fatal condition.
func NewClient(cfg llmx.Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}

	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	// OpenRouter attribution headers
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// Generator adapts the OpenRouter chat completion API to the
// contract.Generator interface, with tier-to-model resolution and a bounded
// per-call timeout.
type Generator struct {
	client *openaisdk.Client
	cfg    llmx.Config
}

func NewGenerator(cfg llmx.Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		client: NewClient(cfg),
		cfg:    cfg,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, req contractx.GenerateRequest) (contractx.GenerateResponse, error) {
	if g == nil || g.client == nil {
		return contractx.GenerateResponse{}, fmt.Errorf("%w: no api key configured", contractx.ErrModelUnavailable)
	}

	timeout := g.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaisdk.SystemMessage(req.System))
	}
	messages = append(messages, openaisdk.UserMessage(req.Prompt))

	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.cfg.ModelFor(req.Tier)),
		Messages:    messages,
		MaxTokens:   openaisdk.Int(int64(g.cfg.MaxCompletionToken)),
		Temperature: openaisdk.Float(float64(g.cfg.Temperature)),
	}
	if req.Structured {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return contractx.GenerateResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelTimeout, err)
		}
		return contractx.GenerateResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return contractx.GenerateResponse{}, fmt.Errorf("%w: empty completion", contractx.ErrMalformedOutput)
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return contractx.GenerateResponse{}, fmt.Errorf("%w: blank completion text", contractx.ErrMalformedOutput)
	}

	return contractx.GenerateResponse{Text: text}, nil
}
