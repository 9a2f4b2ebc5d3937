package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"cvforge/internal/config"
	"cvforge/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements Completer for Google Gemini
type GeminiProvider struct {
	client       *genai.Client
	config       config.OperationAIConfig
	operation    string
	modelBreaker *ModelCircuitBreaker
	logger       *errors.Logger
}

var (
	_ Completer    = (*GeminiProvider)(nil)
	_ ModelChecker = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg config.OperationAIConfig, operation string, logger *errors.Logger) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		operation:    operation,
		modelBreaker: NewModelCircuitBreaker(operation, &cfg, logger),
		logger:       logger,
	}, nil
}

// Complete implements Completer.
func (g *GeminiProvider) Complete(ctx context.Context, req ChatRequest) (*Completion, error) {
	tracer := otel.Tracer("cvforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+g.operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", config.ProviderGemini),
		attribute.String("ai.model", req.Model),
		attribute.Float64("ai.temperature", float64(req.Temperature)),
		attribute.Bool("ai.json_output", req.JSONOutput),
	)

	genaiConfig := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temperature := req.Temperature
		genaiConfig.Temperature = &temperature
	}
	if req.MaxTokens > 0 {
		genaiConfig.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONOutput {
		genaiConfig.ResponseMIMEType = "application/json"
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			genaiConfig.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, req.Model, contents, genaiConfig)
	if err != nil {
		cerr := geminiError(err)
		span.RecordError(cerr)
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.Int("http.status_code", cerr.StatusCode),
		)
		return nil, cerr
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	return &Completion{Text: result.Text(), Usage: usage}, nil
}

// CheckModel checks the readiness and availability of the configured model
func (g *GeminiProvider) CheckModel(ctx context.Context) (*ModelInfo, error) {
	return g.modelBreaker.Execute(func() (*ModelInfo, error) {
		model, err := g.client.Models.Get(ctx, g.config.Model, &genai.GetModelConfig{})
		if err != nil {
			return nil, geminiError(err)
		}
		return &ModelInfo{
			Name:        g.config.Model,
			Provider:    config.ProviderGemini,
			DisplayName: model.DisplayName,
			Version:     model.Version,
			Available:   true,
		}, nil
	})
}

// geminiError maps genai and googleapi failures to a CompletionError.
func geminiError(err error) *CompletionError {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return &CompletionError{StatusCode: apiErr.Code, Body: apiErr.Message, Err: err}
	}
	var gErr *googleapi.Error
	if stderrors.As(err, &gErr) {
		body := gErr.Message
		if body == "" {
			body = gErr.Body
		}
		return &CompletionError{StatusCode: gErr.Code, Body: body, Err: err}
	}
	return &CompletionError{Body: fmt.Sprintf("request failed: %v", err), Err: err}
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
