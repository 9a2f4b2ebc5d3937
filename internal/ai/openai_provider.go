package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"cvforge/internal/config"
	"cvforge/internal/errors"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIProvider talks to any OpenAI-compatible chat completion endpoint
// (Groq, Mistral, OpenAI).
type OpenAIProvider struct {
	client       *openai.Client
	config       config.OperationAIConfig
	operation    string
	modelBreaker *ModelCircuitBreaker
	logger       *errors.Logger
}

var (
	_ Completer    = (*OpenAIProvider)(nil)
	_ ModelChecker = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider creates a provider for one operation.
func NewOpenAIProvider(cfg config.OperationAIConfig, operation string, logger *errors.Logger) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: *cfg.Timeout}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       cfg,
		operation:    operation,
		modelBreaker: NewModelCircuitBreaker(operation, &cfg, logger),
		logger:       logger,
	}
}

// Complete implements Completer.
func (p *OpenAIProvider) Complete(ctx context.Context, req ChatRequest) (*Completion, error) {
	tracer := otel.Tracer("cvforge.ai.openai")
	ctx, span := tracer.Start(ctx, "openai."+p.operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", config.ProviderOpenAI),
		attribute.String("ai.model", req.Model),
		attribute.Float64("ai.temperature", float64(req.Temperature)),
		attribute.Bool("ai.json_output", req.JSONOutput),
	)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOutput {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		cerr := openAIError(err)
		span.RecordError(cerr)
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.Int("http.status_code", cerr.StatusCode),
		)
		return nil, cerr
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, &CompletionError{StatusCode: http.StatusOK, Body: "no choices in response"}
	}

	usage := &TokenUsage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
		TotalTokens:  int64(resp.Usage.TotalTokens),
	}
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
		attribute.Bool("success", true),
	)

	return &Completion{Text: resp.Choices[0].Message.Content, Usage: usage}, nil
}

// CheckModel asks the endpoint for the configured model.
func (p *OpenAIProvider) CheckModel(ctx context.Context) (*ModelInfo, error) {
	return p.modelBreaker.Execute(func() (*ModelInfo, error) {
		model, err := p.client.GetModel(ctx, p.config.Model)
		if err != nil {
			return nil, openAIError(err)
		}
		return &ModelInfo{
			Name:        p.config.Model,
			Provider:    config.ProviderOpenAI,
			DisplayName: model.ID,
			Version:     model.OwnedBy,
			Available:   true,
		}, nil
	})
}

// openAIError maps go-openai failures to a CompletionError carrying the
// HTTP status and body of the reply.
func openAIError(err error) *CompletionError {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return &CompletionError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &CompletionError{StatusCode: reqErr.HTTPStatusCode, Body: body, Err: err}
	}
	return &CompletionError{Body: fmt.Sprintf("request failed: %v", err), Err: err}
}
