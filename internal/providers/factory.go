// Package providers holds the concrete LLM clients behind
// engine.LLMClient.
package providers

import (
	"fmt"
	"os"

	"github.com/wconnell87/drover/internal/engine"
)

// compatProvider describes an OpenAI-compatible endpoint.
type compatProvider struct {
	keyEnv       string
	modelEnv     string
	baseURLEnv   string
	defaultModel string
	defaultURL   string
	keyOptional  bool // local servers accept any key
}

var compatProviders = map[string]compatProvider{
	"openai": {
		keyEnv:       "OPENAI_API_KEY",
		modelEnv:     "OPENAI_MODEL",
		baseURLEnv:   "OPENAI_BASE_URL",
		defaultModel: "gpt-4o-mini",
	},
	"deepseek": {
		keyEnv:       "DEEPSEEK_API_KEY",
		modelEnv:     "DEEPSEEK_MODEL",
		defaultModel: "deepseek-chat",
		defaultURL:   "https://api.deepseek.com/v1",
	},
	"groq": {
		keyEnv:       "GROQ_API_KEY",
		modelEnv:     "GROQ_MODEL",
		defaultModel: "llama-3.1-70b-versatile",
		defaultURL:   "https://api.groq.com/openai/v1",
	},
	"gemini": {
		keyEnv:       "GEMINI_API_KEY",
		modelEnv:     "GEMINI_MODEL",
		defaultModel: "gemini-1.5-flash",
		defaultURL:   "https://generativelanguage.googleapis.com/v1beta/openai",
	},
	"ollama": {
		keyEnv:       "OLLAMA_API_KEY",
		modelEnv:     "OLLAMA_MODEL",
		baseURLEnv:   "OLLAMA_BASE_URL",
		defaultModel: "llama3.1",
		defaultURL:   "http://localhost:11434/v1",
		keyOptional:  true,
	},
}

// NewLLMClientFromEnv builds a client for the named provider from
// environment variables and returns it with the resolved model name.
// An empty provider defaults to anthropic.
func NewLLMClientFromEnv(provider string) (engine.LLMClient, string, error) {
	if provider == "" {
		provider = "anthropic"
	}

	if provider == "anthropic" {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-sonnet-4-20250514"
		}
		client, err := NewAnthropicClient(apiKey)
		if err != nil {
			return nil, "", err
		}
		return client, model, nil
	}

	p, ok := compatProviders[provider]
	if !ok {
		return nil, "", fmt.Errorf("unknown provider %q (supported: anthropic, openai, deepseek, groq, gemini, ollama)", provider)
	}

	apiKey := os.Getenv(p.keyEnv)
	if apiKey == "" {
		if !p.keyOptional {
			return nil, "", fmt.Errorf("%s not set", p.keyEnv)
		}
		apiKey = provider
	}

	model := os.Getenv(p.modelEnv)
	if model == "" {
		model = p.defaultModel
	}

	baseURL := p.defaultURL
	if p.baseURLEnv != "" {
		if v := os.Getenv(p.baseURLEnv); v != "" {
			baseURL = v
		}
	}

	client, err := NewOpenAIClient(apiKey, baseURL)
	if err != nil {
		return nil, "", err
	}
	return client, model, nil
}
