package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yegors/wmo-decoder/internal/ai"
	"github.com/yegors/wmo-decoder/pkg/logger"
)

const groundedReply = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "CODE: FG\n"}, {"text": "NAME: Fog"}]},
    "finishReason": "STOP",
    "groundingMetadata": {
      "groundingChunks": [
        {"web": {"uri": "https://codes.wmo.int/49-2", "title": "WMO"}},
        {"web": {"uri": "https://codes.wmo.int/49-2", "title": "WMO"}},
        {"web": {"uri": ""}}
      ]
    }
  }]
}`

func TestGenerateWithoutKeyFailsBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient("   ", Options{BaseURL: srv.URL}, logger.NewNop())
	if c.HasAPIKey() {
		t.Fatal("HasAPIKey() = true for blank key")
	}

	_, err := c.Generate(context.Background(), ai.GenerateRequest{Prompt: "FG"})
	if !errors.Is(err, ai.ErrMissingAPIKey) {
		t.Fatalf("Generate() error = %v, want ErrMissingAPIKey", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("server was called %d times", hits.Load())
	}
}

func TestGenerateSendsGroundedRequest(t *testing.T) {
	var body string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, groundedReply)
	}))
	defer srv.Close()

	c := NewClient("test-key", Options{BaseURL: srv.URL}, logger.NewNop())
	resp, err := c.Generate(context.Background(), ai.GenerateRequest{
		SystemInstruction: "You are an aviation meteorologist.",
		Prompt:            `Translate the following weather notation or name: "FG"`,
		Temperature:       0.3,
		EnableSearch:      true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.Text != "CODE: FG\nNAME: Fog" {
		t.Errorf("Text = %q", resp.Text)
	}
	wantURLs := []string{"https://codes.wmo.int/49-2", "https://codes.wmo.int/49-2"}
	if !reflect.DeepEqual(resp.GroundingURLs, wantURLs) {
		t.Errorf("GroundingURLs = %v, want %v", resp.GroundingURLs, wantURLs)
	}

	if !strings.Contains(path, DefaultModel) {
		t.Errorf("request path %q does not name model %q", path, DefaultModel)
	}
	for _, want := range []string{"googleSearch", "systemInstruction", "aviation meteorologist", "temperature"} {
		if !strings.Contains(body, want) {
			t.Errorf("request body missing %q: %s", want, body)
		}
	}
}

func TestGenerateMarksRejectedCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error": {"code": 403, "message": "Method doesn't allow unregistered callers.", "status": "PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	c := NewClient("bad-key", Options{BaseURL: srv.URL}, logger.NewNop())
	_, err := c.Generate(context.Background(), ai.GenerateRequest{Prompt: "BR"})
	if !errors.Is(err, ai.ErrCredentialRejected) {
		t.Fatalf("Generate() error = %v, want ErrCredentialRejected", err)
	}
}

func TestGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient("test-key", Options{BaseURL: url}, logger.NewNop())
	_, err := c.Generate(context.Background(), ai.GenerateRequest{Prompt: "BR"})
	if err == nil {
		t.Fatal("Generate() error = nil for closed server")
	}
	if errors.Is(err, ai.ErrCredentialRejected) || errors.Is(err, ai.ErrMissingAPIKey) {
		t.Fatalf("transport failure misclassified: %v", err)
	}
}
