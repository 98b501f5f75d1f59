package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yegors/wmo-decoder/internal/ai"
	"github.com/yegors/wmo-decoder/pkg/logger"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the Gemini model used when none is configured
	DefaultModel = "gemini-2.5-flash"
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client represents a Google Gemini API client. The underlying SDK client is
// built on first use so a missing key only surfaces when a request is made.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger

	mu       sync.Mutex
	generate generateFunc
}

// Options tweaks the Client transport
type Options struct {
	BaseURL string        // override the API endpoint (proxies, tests)
	Timeout time.Duration // 0 leaves the transport default in place
}

// NewClient creates a new Gemini Client
func NewClient(apiKey string, opts Options, log *logger.Logger) *Client {
	httpClient := &http.Client{}
	if opts.Timeout > 0 {
		httpClient.Timeout = opts.Timeout
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    opts.BaseURL,
		httpClient: httpClient,
		logger:     log.Named("gemini"),
	}
}

// HasAPIKey reports whether a credential was supplied
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

func (c *Client) generator(ctx context.Context) (generateFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generate != nil {
		return c.generate, nil
	}
	if c.apiKey == "" {
		return nil, ai.ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c.generate = client.Models.GenerateContent
	c.logger.Debug("Gemini client initialised")
	return c.generate, nil
}

// -- GroundedProvider Implementation --

func (c *Client) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	generate, err := c.generator(ctx)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.EnableSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	start := time.Now()
	resp, err := generate(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		c.logger.Error("Gemini generateContent failed",
			logger.String("model", model),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return nil, classify(err)
	}

	out := &ai.GenerateResponse{
		Text:          responseText(resp),
		GroundingURLs: groundingURLs(resp),
	}

	c.logger.Debug("Gemini reply received",
		logger.String("model", model),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("text_length", len(out.Text)),
		logger.Int("grounding_urls", len(out.GroundingURLs)))

	return out, nil
}

// classify marks provider refusals of the credential so callers can show setup help
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("gemini request failed: %w", err)
		}
		apiErr = *ptr
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ai.ErrCredentialRejected, err)
	case apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key"):
		return fmt.Errorf("%w: %w", ai.ErrCredentialRejected, err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// responseText joins the non-thought text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func groundingURLs(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	urls := make([]string, 0, len(meta.GroundingChunks))
	for _, chunk := range meta.GroundingChunks {
		if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
			urls = append(urls, chunk.Web.URI)
		}
	}
	return urls
}
