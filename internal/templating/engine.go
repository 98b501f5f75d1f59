package templating

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/yegors/wmo-decoder/pkg/logger"
)

//go:embed prompts/*.tmpl
var defaultPrompts embed.FS

// Template names shipped with the binary
const (
	InstructionTemplate = "instruction.tmpl"
	PromptTemplate      = "prompt.tmpl"
)

// Engine handles template loading, caching, and rendering
type Engine struct {
	source        fs.FS
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	logger        *logger.Logger
}

// DefaultFS returns the embedded prompt templates
func DefaultFS() fs.FS {
	sub, err := fs.Sub(defaultPrompts, "prompts")
	if err != nil {
		panic(err) // embedded directory is always present
	}
	return sub
}

// NewEngine creates a new template engine reading from source
func NewEngine(source fs.FS, logger *logger.Logger) *Engine {
	if source == nil {
		source = DefaultFS()
	}
	return &Engine{
		source:        source,
		templateCache: make(map[string]*template.Template),
		logger:        logger.Named("template-engine"),
	}
}

// Render executes the named template with data
func (e *Engine) Render(name string, data any) (string, error) {
	tmpl, err := e.getTemplate(name)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", name, err)
	}

	rendered := strings.TrimSpace(buf.String())
	e.logger.Debug("Template rendered successfully",
		logger.String("template", name),
		logger.Int("rendered_length", len(rendered)))

	return rendered, nil
}

// getTemplate retrieves a template from cache or loads it from the source
func (e *Engine) getTemplate(name string) (*template.Template, error) {
	e.cacheMutex.RLock()
	if tmpl, exists := e.templateCache[name]; exists {
		e.cacheMutex.RUnlock()
		return tmpl, nil
	}
	e.cacheMutex.RUnlock()

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// Double-check in case another goroutine loaded it while we were waiting
	if tmpl, exists := e.templateCache[name]; exists {
		return tmpl, nil
	}

	tmpl, err := e.loadTemplate(name)
	if err != nil {
		return nil, err
	}

	e.templateCache[name] = tmpl
	e.logger.Debug("Template loaded and cached", logger.String("template", name))

	return tmpl, nil
}

func (e *Engine) loadTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(e.source, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", name, err)
	}

	return tmpl, nil
}

// ClearCache drops every cached template so the next render re-reads the source
func (e *Engine) ClearCache() {
	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	templateCount := len(e.templateCache)
	e.templateCache = make(map[string]*template.Template)

	e.logger.Info("Template cache cleared", logger.Int("cleared_count", templateCount))
}
