package config

import (
	"fmt"
	"time"

	"cvforge/internal/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultRateLimitBackoff is the wait before retrying a rate-limited call.
const DefaultRateLimitBackoff = 8 * time.Second

// Operation returns the AI configuration for an operation with fallback to
// the global values. Every pointer field of the result is non-nil.
func (c *Config) Operation(name string) OperationAIConfig {
	var op OperationAIConfig
	switch name {
	case OpParse:
		op = c.AI.Parse
	case OpTailor:
		op = c.AI.Tailor
	case OpRefine:
		op = c.AI.Refine
	case OpSkills:
		op = c.AI.Skills
	case OpCoverLetter:
		op = c.AI.CoverLetter
	}
	c.applyOperationDefaults(&op)
	return op
}

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" && opCfg.Provider == c.AI.Provider {
		opCfg.BaseURL = c.AI.BaseURL
	}
	// A key only carries over to an operation that talks to the same endpoint.
	if opCfg.APIKey == "" && opCfg.Provider == c.AI.Provider && opCfg.BaseURL == c.AI.BaseURL {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.MaxTokens == nil {
		maxTokens := c.AI.MaxTokens
		opCfg.MaxTokens = &maxTokens
	}
	if opCfg.UseSystemPrompts == nil {
		useSystem := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &useSystem
	}
	if opCfg.RateLimitBackoff == nil {
		backoff := DefaultRateLimitBackoff
		opCfg.RateLimitBackoff = &backoff
	}
}

// operationRef returns a pointer to the raw operation section, or nil.
func (c *Config) operationRef(name string) *OperationAIConfig {
	switch name {
	case OpParse:
		return &c.AI.Parse
	case OpTailor:
		return &c.AI.Tailor
	case OpRefine:
		return &c.AI.Refine
	case OpSkills:
		return &c.AI.Skills
	case OpCoverLetter:
		return &c.AI.CoverLetter
	}
	return nil
}

// MissingAPIKeyError reports an operation that has no credential.
func MissingAPIKeyError(operation, provider string) error {
	hint := "CVFORGE_AI_APIKEY or GROQ_API_KEY"
	switch {
	case provider == ProviderGemini:
		hint = "CVFORGE_AI_APIKEY or GEMINI_API_KEY"
	case operation == OpTailor:
		hint = "CVFORGE_AI_TAILOR_APIKEY or MISTRAL_API_KEY"
	}
	return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
		fmt.Sprintf("AI API key is required for operation %s (set %s)", operation, hint), nil).
		WithContext("operation", operation)
}
