package store

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
	"google.golang.org/genai"
)

// NewGeminiEmbedding creates a chromem-go EmbeddingFunc backed by the Gemini
// embedContent API. The returned function bridges the genai client with
// chromem-go's requirements.
//
// Note: chromem-go normalizes vectors itself, so no manual normalization is
// needed here.
func NewGeminiEmbedding(ctx context.Context, apiKey, model string) (chromem.EmbeddingFunc, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.Models.EmbedContent(ctx, model, genai.Text(text), nil)
		if err != nil {
			return nil, fmt.Errorf("embed failed: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		return resp.Embeddings[0].Values, nil
	}, nil
}
