// Package dialects compiles the canonical chat request into the wire body of
// each supported provider dialect.
package dialects

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Davincible/chat-dialect-router/internal/prompt"
)

var (
	// ErrNilRequest marks a compiler contract violation by the caller.
	ErrNilRequest = errors.New("dialects: nil request")

	// ErrUnknownDialect is returned for lookups that match no compiler.
	ErrUnknownDialect = errors.New("dialects: unknown dialect")
)

// Compiler turns one canonical request into a ready-to-send dialect body.
// Implementations are pure: they never touch the network and never mutate
// the request.
type Compiler interface {
	Name() string
	Compile(req *prompt.Request) ([]byte, error)
}

// Registry manages compiler instances keyed by dialect name.
type Registry struct {
	compilers map[string]Compiler
}

func NewRegistry() *Registry {
	return &Registry{
		compilers: make(map[string]Compiler),
	}
}

func (r *Registry) Register(c Compiler) {
	r.compilers[c.Name()] = c
}

func (r *Registry) Get(name string) (Compiler, bool) {
	c, exists := r.compilers[name]
	return c, exists
}

// GetByDomain resolves a compiler from a provider API base URL.
func (r *Registry) GetByDomain(apiBase string) (Compiler, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	domain := strings.ToLower(u.Hostname())

	domainDialectMap := map[string]string{
		"api.anthropic.com":                 "claude",
		"anthropic.com":                     "claude",
		"generativelanguage.googleapis.com": "gemini",
		"googleapis.com":                    "gemini",
		"api.cohere.com":                    "cohere",
		"api.cohere.ai":                     "cohere",
		"api.openai.com":                    "openai",
		"openai.com":                        "openai",
		"openrouter.ai":                     "openrouter",
		"api.openrouter.ai":                 "openrouter",
		"api.mistral.ai":                    "mistral",
		"api.ai21.com":                      "ai21",
		"api.x.ai":                          "xai",
	}

	name, exists := domainDialectMap[domain]
	if !exists {
		return nil, fmt.Errorf("%w: no compiler for domain %s", ErrUnknownDialect, domain)
	}

	c, found := r.Get(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}

	return c, nil
}

// List returns all registered dialect names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.compilers))
	for name := range r.compilers {
		names = append(names, name)
	}

	return names
}

// Initialize registers all built-in compilers.
func (r *Registry) Initialize() {
	r.Register(NewClaudeCompiler())
	r.Register(NewGeminiCompiler())
	r.Register(NewCohereCompiler())
	r.Register(NewOpenAICompiler())
	r.Register(NewOpenRouterCompiler())
	r.Register(NewMistralCompiler())
	r.Register(NewAI21Compiler())
	r.Register(NewXAICompiler())
}
