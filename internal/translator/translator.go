// Package translator turns a free-text query into a parsed weather code
// record by calling a grounded model provider.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/wmo-decoder/internal/ai"
	"github.com/yegors/wmo-decoder/internal/wxcode"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

// User-facing messages. Causes are logged, never shown.
const (
	MsgEmptyQuery       = "Input cannot be empty"
	MsgMissingAPIKey    = "API Key is missing. Please add GEMINI_API_KEY or API_KEY to your environment variables."
	MsgRejectedAPIKey   = "The API key was rejected by the model service. Check that it is valid and allowed to call the Gemini API."
	MsgTransportFailure = "Failed to translate weather code. Please check your connection or try again."
	MsgUnparsedReply    = "The model reply did not follow the expected format."
)

// DefaultTemperature keeps replies repeatable for identical codes
const DefaultTemperature = 0.3

// Prompts renders the fixed instruction and the per-query prompt
type Prompts interface {
	RenderInstruction() (string, error)
	RenderPrompt(query string) (string, error)
}

// ReplyCache stores raw provider replies between requests
type ReplyCache interface {
	Get(ctx context.Context, model, query string) (*ai.GenerateResponse, bool, error)
	Put(ctx context.Context, model, query string, reply *ai.GenerateResponse) error
}

// Config holds request settings
type Config struct {
	Model        string
	Temperature  float64
	EnableSearch bool
	Strict       bool // report unparsable replies as KindParse errors
}

// Service is the translation requester
type Service struct {
	provider ai.GroundedProvider
	prompts  Prompts
	cache    ReplyCache
	config   Config
	logger   *logger.Logger
}

// NewService creates a translator. cache may be nil.
func NewService(provider ai.GroundedProvider, prompts Prompts, cache ReplyCache, config Config, log *logger.Logger) *Service {
	return &Service{
		provider: provider,
		prompts:  prompts,
		cache:    cache,
		config:   config,
		logger:   log.Named("translator"),
	}
}

// Translate sends query to the provider and parses the reply. Errors are
// always *wxcode.Error.
func (s *Service) Translate(ctx context.Context, query string) (*wxcode.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, wxcode.NewError(wxcode.KindInput, MsgEmptyQuery, nil)
	}

	start := time.Now()

	reply, cached := s.cachedReply(ctx, query)
	if !cached {
		var err error
		reply, err = s.request(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	res := wxcode.Parse(reply.Text, reply.GroundingURLs)
	if !res.Parsed {
		s.logger.Warn("Model reply did not match the output format",
			logger.String("query", query),
			logger.Int("reply_length", len(reply.Text)))
		if s.config.Strict {
			return res.Record, wxcode.NewError(wxcode.KindParse, MsgUnparsedReply, nil)
		}
	} else if !cached {
		s.storeReply(ctx, query, reply)
	}

	s.logger.Info("Translated weather query",
		logger.String("query", query),
		logger.String("code", res.Record.Code),
		logger.Bool("parsed", res.Parsed),
		logger.Bool("cached", cached),
		logger.Int("sources", len(res.Record.SourceURLs)),
		logger.Duration("elapsed", time.Since(start)))

	return res.Record, nil
}

func (s *Service) request(ctx context.Context, query string) (*ai.GenerateResponse, error) {
	instruction, err := s.prompts.RenderInstruction()
	if err != nil {
		return nil, wxcode.NewError(wxcode.KindConfiguration, "Failed to render the system instruction", err)
	}
	prompt, err := s.prompts.RenderPrompt(query)
	if err != nil {
		return nil, wxcode.NewError(wxcode.KindConfiguration, "Failed to render the prompt", err)
	}

	temperature := s.config.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	reply, err := s.provider.Generate(ctx, ai.GenerateRequest{
		Model:             s.config.Model,
		SystemInstruction: instruction,
		Prompt:            prompt,
		Temperature:       temperature,
		EnableSearch:      s.config.EnableSearch,
	})
	if err != nil {
		return nil, s.classify(err)
	}
	return reply, nil
}

func (s *Service) classify(err error) *wxcode.Error {
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		s.logger.Warn("Translation refused: no API key configured")
		return wxcode.NewError(wxcode.KindConfiguration, MsgMissingAPIKey, err)
	case errors.Is(err, ai.ErrCredentialRejected):
		s.logger.Warn("Translation refused: API key rejected", logger.Error(err))
		return wxcode.NewError(wxcode.KindConfiguration, MsgRejectedAPIKey, err)
	default:
		s.logger.Error("Model request failed", logger.Error(err))
		return wxcode.NewError(wxcode.KindTransport, MsgTransportFailure, err)
	}
}

// cachedReply treats cache failures as misses
func (s *Service) cachedReply(ctx context.Context, query string) (*ai.GenerateResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	reply, ok, err := s.cache.Get(ctx, s.config.Model, query)
	if err != nil {
		s.logger.Warn("Reply cache read failed", logger.Error(err))
		return nil, false
	}
	return reply, ok
}

func (s *Service) storeReply(ctx context.Context, query string, reply *ai.GenerateResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, s.config.Model, query, reply); err != nil {
		s.logger.Warn("Reply cache write failed", logger.Error(err))
	}
}

// String describes the request settings for logs
func (c Config) String() string {
	return fmt.Sprintf("model=%s temperature=%.2f search=%t strict=%t", c.Model, c.Temperature, c.EnableSearch, c.Strict)
}
