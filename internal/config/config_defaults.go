package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults target Groq's OpenAI-compatible API
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.model", "llama3-70b-8192")
	v.SetDefault("ai.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxTokens", 0)
	v.SetDefault("ai.useSystemPrompts", true)

	// Parse: low temperature, JSON output
	v.SetDefault("ai.parse.provider", "")
	v.SetDefault("ai.parse.model", "")
	v.SetDefault("ai.parse.apiKey", "")
	v.SetDefault("ai.parse.temperature", 0.1)
	v.SetDefault("ai.parse.timeout", 90*time.Second)

	// Tailor: Mistral, retried once on 429
	v.SetDefault("ai.tailor.provider", ProviderOpenAI)
	v.SetDefault("ai.tailor.model", "mistral-medium")
	v.SetDefault("ai.tailor.baseURL", "https://api.mistral.ai/v1")
	v.SetDefault("ai.tailor.apiKey", "")
	v.SetDefault("ai.tailor.temperature", 0.7)
	v.SetDefault("ai.tailor.timeout", 120*time.Second)
	v.SetDefault("ai.tailor.rateLimitBackoff", DefaultRateLimitBackoff)

	v.SetDefault("ai.refine.provider", "")
	v.SetDefault("ai.refine.model", "")
	v.SetDefault("ai.refine.apiKey", "")
	v.SetDefault("ai.refine.temperature", 0.6)

	// Skills use the smaller model
	v.SetDefault("ai.skills.provider", "")
	v.SetDefault("ai.skills.model", "llama3-8b-8192")
	v.SetDefault("ai.skills.apiKey", "")
	v.SetDefault("ai.skills.temperature", 0.5)

	v.SetDefault("ai.coverLetter.provider", "")
	v.SetDefault("ai.coverLetter.model", "")
	v.SetDefault("ai.coverLetter.apiKey", "")
	v.SetDefault("ai.coverLetter.temperature", 0.7)

	for _, op := range Operations {
		prefix := "ai." + op + "."
		v.SetDefault(prefix+"prompts.system", "")
		v.SetDefault(prefix+"prompts.systemFile", "")
		v.SetDefault(prefix+"prompts.user", "")
		v.SetDefault(prefix+"prompts.userFile", "")

		v.SetDefault(prefix+"circuitBreaker.enabled", true)
		v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
	}

	v.SetDefault("ai.promptWatch.enabled", false)
	v.SetDefault("ai.promptWatch.debounceDelay", time.Second)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 240*time.Second) // above tailor + backoff + parse, see UploadBudget
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxUploadSize", 10*1024*1024)
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)
	// Session store defaults
	v.SetDefault("server.sessions.ttl", 2*time.Hour)
	v.SetDefault("server.sessions.cleanupInterval", 5*time.Minute)
	v.SetDefault("server.sessions.maxSessions", 1000)
	// Vault API key rotation
	v.SetDefault("server.keyRotation.enabled", false)
	v.SetDefault("server.keyRotation.pollInterval", 5*time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "yaml", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB, resumes are binary documents

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.tailorKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "cvforge")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackSessions", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
}
