package common

import (
	"fmt"
	"io"
	"os"

	"cvforge/internal/errors"
	"cvforge/internal/formatters"
	"cvforge/internal/utils"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        os.Stdout,
	}
}

// WithStdout returns a copy of oh that prints to w instead of os.Stdout.
func (oh *OutputHandler) WithStdout(w io.Writer) *OutputHandler {
	cp := *oh
	cp.stdout = w
	return &cp
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	// Validate output file
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	// Format output using the registry
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	// Write output
	if config.OutputFile != "" {
		err = oh.fileProcessor.WriteFile(config.OutputFile, output)
		if err != nil {
			return err // Error already wrapped by WriteFile
		}

		if oh.logger != nil {
			oh.logger.Info("Output written successfully",
				"file", config.OutputFile, "format", config.OutputFormat)
		}
	} else {
		fmt.Fprint(oh.stdout, output)
	}

	return nil
}

// WriteArtifact writes a generated file such as a PDF. output follows
// utils.ResolveOutputPath; the path written is returned.
func (oh *OutputHandler) WriteArtifact(data []byte, output, defaultName string) (string, error) {
	path := utils.ResolveOutputPath(output, defaultName)
	if err := oh.fileProcessor.ValidateOutputFile(path); err != nil {
		return "", err
	}
	if err := oh.fileProcessor.WriteBytes(path, data); err != nil {
		return "", err
	}
	if oh.logger != nil {
		oh.logger.Info("Artifact written",
			"file", path, "size", utils.FormatFileSize(int64(len(data))))
	}
	return path, nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
