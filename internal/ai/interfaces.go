package ai

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned before any network call when no credential is configured
var ErrMissingAPIKey = errors.New("API key is missing")

// ErrCredentialRejected is wrapped around provider responses that refuse the credential
var ErrCredentialRejected = errors.New("API key was rejected")

// GenerateRequest holds a single-turn grounded generation request
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	Temperature       float64
	EnableSearch      bool // live web-search grounding
}

// GenerateResponse is the provider reply
type GenerateResponse struct {
	Text          string
	GroundingURLs []string // candidate source links, may repeat
}

// GroundedProvider defines the interface for text generation with optional search grounding
type GroundedProvider interface {
	// Generate sends one request and waits for the full reply
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
