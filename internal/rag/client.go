package rag

import (
	"context"
	"fmt"

	"workspace-service/pkg/config"

	"github.com/go-resty/resty/v2"
)

// Embedder turns text chunks into embedding vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer from a question and retrieved context
type Generator interface {
	Generate(ctx context.Context, query string, retrieved []string) (string, error)
}

// Client talks to the external embedding/generation service over HTTP.
// Chunking, vector search and model internals live on the other side of this
// interface; this service only stores and retrieves the results.
type Client struct {
	http *resty.Client
}

func NewClient(cfg *config.RAGConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: client}
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out embedResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(embedRequest{Texts: texts}).
		SetResult(&out).
		Post("/v1/embed")
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embedding service returned %s", resp.Status())
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

type generateRequest struct {
	Query   string   `json:"query"`
	Context []string `json:"context"`
}

type generateResponse struct {
	Answer string `json:"answer"`
}

func (c *Client) Generate(ctx context.Context, query string, retrieved []string) (string, error) {
	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{Query: query, Context: retrieved}).
		SetResult(&out).
		Post("/v1/generate")
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("generation service returned %s", resp.Status())
	}
	return out.Answer, nil
}
