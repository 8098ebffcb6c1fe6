// Package analyze extracts structured producer data from free text or a web
// page using an external chat-completion API. The feature is optional: the
// server only constructs a Client when an API key is configured, and its
// absence degrades this endpoint alone.
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/source"
)

// DefaultURL is the chat-completions endpoint.
const DefaultURL = "https://api.groq.com/openai/v1/chat/completions"

// DefaultModel is the extraction model.
const DefaultModel = "llama-3.3-70b-versatile"

// maxInputChars bounds how much page text is sent for analysis.
const maxInputChars = 15000

const systemPrompt = `You are a data extraction AI. Extract structured data about a local food producer from unstructured text (website scrape or raw text).

Extract the following fields in strict JSON format:
- name (string): the producer's display name.
- description (string): a summary, max 200 chars, in Norwegian.
- products (array of strings): any of honey, milk, raw_milk, eggs, meat, sausages, vegetables, potatoes, fish, shellfish, cheese, bread, drinks, seasonal.
- address (string): best-effort address.
- location (object or null): { "lat": 59.9139, "lng": 10.7522 }, approximate coords if an address was found.

Return ONLY the JSON object. Do not include markdown formatting.`

// Analysis is the structured extraction result.
type Analysis struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Products    []domain.ProductCategory `json:"products"`
	Address     string                   `json:"address"`
	Location    *domain.Location         `json:"location,omitempty"`
}

// Config configures the client.
type Config struct {
	APIKey string
	URL    string
	Model  string
	Client *http.Client
	Logger *slog.Logger
}

// Client is the typed analysis client. Construct it once at startup, only
// when an API key is present.
type Client struct {
	apiKey string
	url    string
	model  string
	client *http.Client
	log    *slog.Logger
}

// New creates a Client, filling defaults for anything unset.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiKey: cfg.APIKey,
		url:    cfg.URL,
		model:  cfg.Model,
		client: cfg.Client,
		log:    cfg.Logger,
	}
}

// AnalyzeURL fetches a page, flattens it to text, and analyzes it.
func (c *Client) AnalyzeURL(ctx context.Context, pageURL string) (Analysis, error) {
	html, err := source.Get(ctx, c.client, pageURL, nil).Unwrap()
	if err != nil {
		return Analysis{}, fmt.Errorf("fetch page: %w", err)
	}
	text := PageText(string(html))
	if text == "" {
		return Analysis{}, fmt.Errorf("page yielded no text")
	}
	return c.AnalyzeText(ctx, text)
}

// chat-completions request/response wire shapes.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// AnalyzeText runs the extraction prompt over raw text.
func (c *Client) AnalyzeText(ctx context.Context, text string) (Analysis, error) {
	text = domain.Truncate(text, maxInputChars)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return Analysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Analysis{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("analysis api: status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Analysis{}, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Analysis{}, fmt.Errorf("analysis api: empty response")
	}

	content := stripFences(cr.Choices[0].Message.Content)
	var a Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return Analysis{}, fmt.Errorf("parse analysis: %w", err)
	}
	a.Products = domain.UniqueCategories(a.Products)
	return a, nil
}

// noiseBlocks are elements stripped wholesale before text extraction.
var noiseBlocks = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
	regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`),
	regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
}

// PageText flattens a page to its visible running text.
func PageText(html string) string {
	for _, re := range noiseBlocks {
		html = re.ReplaceAllString(html, " ")
	}
	return strings.TrimSpace(domain.StripHTML(html))
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
