package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAIKeyFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
	c.applyWriteTimeoutFloor()
}

// writeTimeoutMargin covers extraction, merging and the response itself on
// top of the AI calls of an upload.
const writeTimeoutMargin = 15 * time.Second

// UploadBudget is the longest an upload can spend waiting on AI calls: a
// rate-limited tailoring attempt, the backoff, the retry, then parsing.
func (c *Config) UploadBudget() time.Duration {
	tailor := c.Operation(OpTailor)
	parse := c.Operation(OpParse)
	return *tailor.Timeout + *tailor.RateLimitBackoff + *parse.Timeout
}

// applyWriteTimeoutFloor raises server.writeTimeout so an upload that uses
// its whole AI budget still gets its response written.
func (c *Config) applyWriteTimeoutFloor() {
	floor := c.UploadBudget() + writeTimeoutMargin
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < floor {
		log.Printf("[CONFIG] server.writeTimeout %s is below the upload budget, raised to %s",
			c.Server.WriteTimeout, floor)
		c.Server.WriteTimeout = floor
	}
}

// applyAIKeyFallbacks honours the provider-specific variables people already
// have exported, after the CVFORGE_ prefixed ones.
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey == "" {
		if c.AI.Provider == ProviderGemini {
			c.AI.APIKey = envValue("GEMINI_API_KEY")
		} else {
			c.AI.APIKey = envValue("GROQ_API_KEY", "OPENAI_API_KEY")
		}
	}
	if c.AI.Tailor.APIKey == "" && (c.AI.Tailor.Provider == "" || c.AI.Tailor.Provider == ProviderOpenAI) {
		c.AI.Tailor.APIKey = envValue("MISTRAL_API_KEY")
	}
	for _, op := range Operations {
		ref := c.operationRef(op)
		if ref.APIKey == "" && ref.Provider == ProviderGemini && c.AI.Provider != ProviderGemini {
			ref.APIKey = envValue("GEMINI_API_KEY")
		}
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CVFORGE_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitKeys(apiKeysEnv)
		}
	}
}

// splitKeys splits a comma-separated key list, dropping blanks.
func splitKeys(s string) []string {
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CVFORGE_AI_APIKEY",
		"CVFORGE_AI_PROVIDER",
		"CVFORGE_AI_MODEL",
		"CVFORGE_AI_TAILOR_APIKEY",
		"CVFORGE_SERVER_PORT",
		"CVFORGE_SERVER_HOST",
		"CVFORGE_APP_LOGLEVEL",
		"CVFORGE_VAULT_ENABLED",
		"GROQ_API_KEY",
		"MISTRAL_API_KEY",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	log.Printf("[CONFIG] AI Base URL: %s", c.AI.BaseURL)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	for _, op := range Operations {
		opCfg := c.Operation(op)
		keyState := "***NOT SET***"
		if opCfg.APIKey != "" {
			keyState = "***CONFIGURED***"
		}
		log.Printf("[CONFIG] %s - Provider: %s, Model: %s, API Key: %s", op, opCfg.Provider, opCfg.Model, keyState)
	}

	log.Println("[CONFIG] =====================================")
}
