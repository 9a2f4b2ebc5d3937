package common

import (
	"context"
	"fmt"
	"os"

	"cvforge/internal/ai"
	"cvforge/internal/errors"
)

// CreateInputFunc defines how to create the specific AI input from the
// documents named on the command line.
type CreateInputFunc[Input any] func(docs []Document) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// AIOperationFunc is a generic function signature for any AI operation with context and token usage.
type AIOperationFunc[Input, Output any] func(context.Context, Input) (Output, *ai.TokenUsage, error)

// Runner carries what every file-based command needs.
type Runner struct {
	Logger      *errors.Logger
	MaxFileSize int64
	Output      *OutputHandler
}

// NewRunner creates a runner printing to stdout.
func NewRunner(logger *errors.Logger, maxFileSize int64) *Runner {
	return &Runner{Logger: logger, MaxFileSize: maxFileSize, Output: NewOutputHandler(logger)}
}

// Files returns a file processor using the runner's size limit.
func (r *Runner) Files() *FileProcessor {
	return NewFileProcessor(r.Logger, r.MaxFileSize)
}

// RunAICommand reads the documents in args, builds the input, runs the
// operation and prints the result in the configured format.
func RunAICommand[Input, Output any](
	ctx context.Context,
	r *Runner,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	docs, err := r.Files().ReadDocuments(args...)
	if err != nil {
		return err
	}

	input, err := createInput(docs)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	return RunOperation(ctx, r, cmdConfig, input, aiOperation, logDetails)
}

// RunOperation runs an AI operation on a prepared input and prints the
// result in the configured format.
func RunOperation[Input, Output any](
	ctx context.Context,
	r *Runner,
	cmdConfig CommandConfig,
	input Input,
	aiOperation AIOperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	logDetails(input, cmdConfig)

	result, tokenUsage, err := aiOperation(ctx, input)
	if err != nil {
		return err
	}

	ReportTokenUsage(r.Logger, tokenUsage)

	return r.Output.HandleOutput(result, cmdConfig)
}

// ReportTokenUsage logs token usage when the provider reported it.
func ReportTokenUsage(logger *errors.Logger, tokenUsage *ai.TokenUsage) {
	if tokenUsage == nil {
		return
	}
	if logger != nil {
		logger.Info("AI token usage", "input_tokens", tokenUsage.InputTokens, "output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
	} else {
		fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n", tokenUsage.InputTokens, tokenUsage.OutputTokens, tokenUsage.TotalTokens)
	}
}
