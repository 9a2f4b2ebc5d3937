// Package server exposes the resume builder over HTTP with one resume
// record per session.
package server

import (
	"context"
	"sync"
	"time"

	"cvforge/internal/ai"
	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/render"
	"cvforge/internal/resume"
	"cvforge/internal/session"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ResumeAI is the part of ai.Service the handlers call.
type ResumeAI interface {
	ParseResume(ctx context.Context, text, jobDescription string) (ai.ParseResult, *ai.TokenUsage, error)
	Refine(ctx context.Context, text string, kind resume.FieldKind) (string, *ai.TokenUsage, error)
	SuggestSkills(ctx context.Context, role string) ([]string, *ai.TokenUsage, error)
	CoverLetter(ctx context.Context, resumeText, jobDescription string) (string, *ai.TokenUsage, error)
	ModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

var _ ResumeAI = (*ai.Service)(nil)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// API Authentication, replaced at runtime by the key rotation watcher
	keysMu  sync.RWMutex
	apiKeys map[string]bool

	keyWatcher *VaultWatcher

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	AI       ResumeAI
	Sessions *session.Store
	Renderer *render.Renderer

	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ConfigFromApp derives the server settings from the application config.
func ConfigFromApp(appCfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		APIKeys:        appCfg.Server.APIKeys,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxUploadSize,
		RateLimit:      &appCfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance. The caller owns sessions and
// closes it after Start returns.
func NewServer(appCfg *config.Config, cfg ServerConfig, aiService ResumeAI, sessions *session.Store, logger *errors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(*cfg.RateLimit, logger)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		AI:             aiService,
		Sessions:       sessions,
		Renderer:       render.NewRenderer(),
		Logger:         logger,
	}
	s.SetAPIKeys(cfg.APIKeys)
	return s
}

// SetAPIKeys replaces the accepted API keys. Blank keys are ignored.
func (s *Server) SetAPIKeys(keys []string) {
	keyMap := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key != "" {
			keyMap[key] = true
		}
	}

	s.keysMu.Lock()
	s.apiKeys = keyMap
	s.keysMu.Unlock()
}

func (s *Server) apiKeyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.apiKeys)
}

// checkAPIKey reports whether authentication is on and, if so, whether key
// is accepted.
func (s *Server) checkAPIKey(key string) (required, valid bool) {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	if len(s.apiKeys) == 0 {
		return false, true
	}
	return true, s.apiKeys[key]
}
