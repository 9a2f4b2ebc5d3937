package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"

	"golang.org/x/sync/errgroup"
)

const defaultModelCheckTimeout = 10 * time.Second

// operationClient is the configured completion chain of one operation.
type operationClient struct {
	name      string
	config    config.OperationAIConfig
	completer Completer
	breaker   *AICircuitBreaker
	checker   ModelChecker
}

// Service handles AI operations for resume processing
type Service struct {
	cfg          *config.Config
	clients      map[string]*operationClient
	checkTimeout time.Duration
	logger       *errors.Logger
}

// NewService creates a provider per operation from cfg.
func NewService(cfg *config.Config, logger *errors.Logger) (*Service, error) {
	providers := make(map[string]Completer, len(config.Operations))
	for _, op := range config.Operations {
		opCfg := cfg.Operation(op)

		logger.Debug("Initializing AI service",
			"provider", opCfg.Provider,
			"operation_type", op,
			"model", opCfg.Model,
			"base_url", opCfg.BaseURL,
			"temperature", *opCfg.Temperature,
			"timeout", *opCfg.Timeout,
			"use_system_prompts", *opCfg.UseSystemPrompts)

		switch opCfg.Provider {
		case config.ProviderOpenAI:
			providers[op] = NewOpenAIProvider(opCfg, op, logger)
		case config.ProviderGemini:
			provider, err := NewGeminiProvider(opCfg, op, logger)
			if err != nil {
				return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
					"Failed to create AI provider", err)
			}
			providers[op] = provider
		default:
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("Unsupported AI provider: %s", opCfg.Provider), nil)
		}
	}
	return NewServiceWithCompleters(cfg, providers, logger), nil
}

// NewServiceWithCompleters builds a Service over the given per-operation
// completers, adding the circuit breaker and, for tailoring, the
// rate-limit retry. Operations without a completer fail when called.
func NewServiceWithCompleters(cfg *config.Config, completers map[string]Completer, logger *errors.Logger) *Service {
	s := &Service{
		cfg:          cfg,
		clients:      make(map[string]*operationClient, len(completers)),
		checkTimeout: cfg.Observability.HealthCheck.Timeout,
		logger:       logger,
	}
	if s.checkTimeout <= 0 {
		s.checkTimeout = defaultModelCheckTimeout
	}

	for _, op := range config.Operations {
		next, ok := completers[op]
		if !ok {
			continue
		}
		opCfg := cfg.Operation(op)
		breaker := NewAICircuitBreaker(op, &opCfg, logger)

		var completer Completer = WithCircuitBreaker(next, breaker)
		if op == config.OpTailor {
			completer = NewCallHelper(completer, *opCfg.RateLimitBackoff, logger)
		}

		checker, _ := next.(ModelChecker)
		s.clients[op] = &operationClient{
			name:      op,
			config:    opCfg,
			completer: completer,
			breaker:   breaker,
			checker:   checker,
		}
	}
	return s
}

// prompts resolves the system prompt and user template of an operation.
func (s *Service) prompts(client *operationClient) (string, string) {
	loaded := s.cfg.Prompts.Get(client.name)
	defaultSystem, defaultUser := defaultPrompts(client.name)
	return resolvePrompt(loaded.System, client.config.Prompts.System, defaultSystem),
		resolvePrompt(loaded.User, client.config.Prompts.User, defaultUser)
}

// complete formats the operation's prompt with args and runs one completion
// within the operation timeout.
func (s *Service) complete(ctx context.Context, operation string, jsonOutput bool, args ...any) (*Completion, error) {
	client, ok := s.clients[operation]
	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"No AI client configured for operation "+operation, nil)
	}

	system, userTemplate := s.prompts(client)
	user := fmt.Sprintf(userTemplate, args...)

	var messages []Message
	if system != "" {
		if *client.config.UseSystemPrompts {
			messages = append(messages, Message{Role: RoleSystem, Content: system})
		} else {
			user = system + "\n\n" + user
		}
	}
	messages = append(messages, Message{Role: RoleUser, Content: user})

	ctx, cancel := context.WithTimeout(ctx, *client.config.Timeout)
	defer cancel()

	return client.completer.Complete(ctx, ChatRequest{
		Model:       client.config.Model,
		Temperature: *client.config.Temperature,
		MaxTokens:   *client.config.MaxTokens,
		Messages:    messages,
		JSONOutput:  jsonOutput,
	})
}

// completionFailed wraps a completion failure into an AppError whose message
// names the operation.
func completionFailed(message string, err error) error {
	code := errors.ErrCodeAIServiceFailed
	var ce *CompletionError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code = errors.ErrCodeAITimeout
	case stderrors.As(err, &ce) && ce.StatusCode == http.StatusTooManyRequests:
		code = errors.ErrCodeRateLimited
	}
	return errors.NewAIError(code, message, err)
}

// ModelInfo checks every operation's model concurrently.
func (s *Service) ModelInfo(ctx context.Context) map[string]*ModelInfo {
	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	results := make([]*ModelInfo, len(config.Operations))
	var g errgroup.Group
	for i, op := range config.Operations {
		client, ok := s.clients[op]
		if !ok {
			continue
		}
		g.Go(func() error {
			results[i] = s.checkModel(ctx, client)
			return nil
		})
	}
	_ = g.Wait()

	infos := make(map[string]*ModelInfo, len(results))
	for i, op := range config.Operations {
		if results[i] != nil {
			infos[op] = results[i]
		}
	}
	return infos
}

func (s *Service) checkModel(ctx context.Context, client *operationClient) *ModelInfo {
	if client.checker == nil {
		return &ModelInfo{
			Name:      client.config.Model,
			Provider:  client.config.Provider,
			Available: client.breaker.IsHealthy(),
		}
	}

	info, err := client.checker.CheckModel(ctx)
	if err != nil {
		s.logger.Warn("Model availability check failed",
			"operation", client.name,
			"model", client.config.Model,
			"provider", client.config.Provider,
			"error", err.Error())
		return &ModelInfo{
			Name:     client.config.Model,
			Provider: client.config.Provider,
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}

	s.logger.Debug("Model availability check successful",
		"operation", client.name,
		"model", client.config.Model,
		"display_name", info.DisplayName)
	return info
}

// CircuitBreakerStats returns breaker statistics per operation.
func (s *Service) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any, len(s.clients))
	for op, client := range s.clients {
		stats[op] = client.breaker.GetStats()
	}
	return stats
}

// Healthy reports whether no operation's breaker is open.
func (s *Service) Healthy() bool {
	for _, client := range s.clients {
		if !client.breaker.IsHealthy() {
			return false
		}
	}
	return true
}
