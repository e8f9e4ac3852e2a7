// Package gemini provides the Google GenAI embedding provider used by the
// retrieval store.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	retrievalx "github.com/nawinto99/Helia-Clinical-Agent-Core/retrieval"
)

type Config struct {
	APIKey     string `envconfig:"API_KEY" split_words:"true"`
	Model      string `envconfig:"MODEL" split_words:"true" default:"text-embedding-004"`
	Dimensions int    `envconfig:"DIMENSIONS" split_words:"true" default:"768"`
}

// Embedder calls the Gemini embedding models. Dimensions are fixed per
// instance; the retrieval store rejects vectors of any other size.
type Embedder struct {
	client *genai.Client
	model  string
	ndim   int
}

// NewEmbedder returns nil without error when no API key is configured,
// which the retrieval store treats as "lexical mode".
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "text-embedding-004"
	}
	ndim := cfg.Dimensions
	if ndim <= 0 {
		ndim = retrievalx.DefaultDimensions
	}

	return &Embedder{
		client: client,
		model:  model,
		ndim:   ndim,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string, task string) ([]float32, error) {
	taskType := "RETRIEVAL_DOCUMENT"
	if task == retrievalx.TaskQuery {
		taskType = "RETRIEVAL_QUERY"
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: taskType,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrEmbeddingUnavailable, err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", contractx.ErrEmbeddingUnavailable)
	}

	return result.Embeddings[0].Values, nil
}

func (e *Embedder) Dimensions() int {
	return e.ndim
}
