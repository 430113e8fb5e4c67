// Package retrieval is the client for the hosted document-retrieval
// service: named corpora of indexed merchant documents, queried by
// similarity. The service owns chunking and embedding; this client only
// manages corpora and fetches ranked chunks.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	BaseURL           string        `envconfig:"BASE_URL" split_words:"true" required:"true"`
	APIKey            string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	DefaultCorpus     string        `envconfig:"DEFAULT_CORPUS" split_words:"true"`
	TopK              int           `envconfig:"TOP_K" split_words:"true" default:"10"`
	DistanceThreshold float64       `envconfig:"DISTANCE_THRESHOLD" split_words:"true" default:"0.6"`
	Timeout           time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
}

// Chunk is one ranked retrieval hit. Title identifies the source document;
// chunks from the same document share a Title.
type Chunk struct {
	Title    string  `json:"title"`
	Source   string  `json:"source,omitempty"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

type Corpus struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type Client struct {
	baseURL           string
	apiKey            string
	defaultCorpus     string
	topK              int
	distanceThreshold float64
	httpClient        *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("retrieval base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid retrieval url: %w", err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("retrieval api key is required")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 10
	}
	threshold := cfg.DistanceThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		baseURL:           baseURL,
		apiKey:            strings.TrimSpace(cfg.APIKey),
		defaultCorpus:     strings.TrimSpace(cfg.DefaultCorpus),
		topK:              topK,
		distanceThreshold: threshold,
		httpClient:        &http.Client{Timeout: timeout},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// DefaultCorpus is the fallback corpus for sessions without a merchant-
// specific one. May be empty.
func (c *Client) DefaultCorpus() string {
	return c.defaultCorpus
}

// HasCorpus reports whether a corpus with the given display name exists.
func (c *Client) HasCorpus(ctx context.Context, name string) (bool, error) {
	var out struct {
		Corpora []Corpus `json:"corpora"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/corpora", nil, &out); err != nil {
		return false, err
	}
	for _, corpus := range out.Corpora {
		if corpus.DisplayName == name || corpus.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCorpus creates the corpus when it does not exist yet. Creation is
// idempotent on the service side.
func (c *Client) EnsureCorpus(ctx context.Context, name string, description string) error {
	body := map[string]string{
		"display_name": name,
		"description":  description,
	}
	return c.do(ctx, http.MethodPost, "/v1/corpora", body, nil)
}

// ImportDocument submits an already-uploaded file for indexing into the
// corpus. Indexing is asynchronous on the service side.
func (c *Client) ImportDocument(ctx context.Context, corpus string, fileName string, fileURL string) error {
	body := map[string]string{
		"corpus":       corpus,
		"display_name": fileName,
		"file_url":     fileURL,
	}
	return c.do(ctx, http.MethodPost, "/v1/corpora/import", body, nil)
}

// Query runs a similarity search and returns ranked chunks with document-
// identifying titles. TopK and the distance threshold come from Config.
func (c *Client) Query(ctx context.Context, corpus string, query string) ([]Chunk, error) {
	corpus = strings.TrimSpace(corpus)
	if corpus == "" {
		return nil, errors.New("corpus is required")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}

	body := map[string]any{
		"corpus":             corpus,
		"query":              query,
		"similarity_top_k":   c.topK,
		"distance_threshold": c.distanceThreshold,
	}
	var out struct {
		Chunks []Chunk `json:"chunks"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/query", body, &out); err != nil {
		return nil, err
	}
	return out.Chunks, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal retrieval request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build retrieval request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute retrieval request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read retrieval response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("retrieval http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode retrieval response: %w", err)
		}
	}
	return nil
}
