package cli

import (
	"context"
	"fmt"

	"cvforge/internal/ai"
	"cvforge/internal/common"
	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/resume"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var configFile string

var rootCmd = &cobra.Command{
	Use:   "cvforge",
	Short: "Build structured resumes and PDFs from existing documents using AI",
	Long: `cvforge turns an existing resume (PDF or DOCX) into a structured record,
optionally tailored to a job description, lets you refine fields and pick
suggested skills with AI, and renders the record as an A4 PDF. It can also
write a cover letter and serve everything over an HTTP API.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyConfigFile,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// applyConfigFile replaces the startup configuration when --config is set.
func applyConfigFile(cmd *cobra.Command, _ []string) error {
	if configFile == "" {
		return nil
	}
	cfg, err := config.LoadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	cmd.SetContext(context.WithValue(ctx, loggerKey, logger))
	return nil
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// newRunner builds the file and output helpers for cmd, printing to the
// command's output stream.
func newRunner(cmd *cobra.Command) *common.Runner {
	cfg := getConfigFromContext(cmd.Context())
	runner := common.NewRunner(getLoggerFromContext(cmd.Context()), cfg.App.MaxFileSize)
	runner.Output = runner.Output.WithStdout(cmd.OutOrStdout())
	return runner
}

// newAIService is replaced in tests.
var newAIService = func(cfg *config.Config, logger *errors.Logger) (aiService, error) {
	svc, err := ai.NewService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	return svc, nil
}

var _ aiService = (*ai.Service)(nil)

// aiService is the part of ai.Service the commands call.
type aiService interface {
	ParseResume(ctx context.Context, text, jobDescription string) (ai.ParseResult, *ai.TokenUsage, error)
	Refine(ctx context.Context, text string, kind resume.FieldKind) (string, *ai.TokenUsage, error)
	SuggestSkills(ctx context.Context, role string) ([]string, *ai.TokenUsage, error)
	CoverLetter(ctx context.Context, resumeText, jobDescription string) (string, *ai.TokenUsage, error)
}

// addFormatFlags registers --output and --format on cmd and validates the
// format before the command runs.
func addFormatFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig, outputUsage string) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", outputUsage)
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if cmdConfig.OutputFormat == "" {
			cmdConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(cmdConfig.OutputFormat, cfg.App.SupportedFormats)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: config.yaml in /etc/cvforge, $HOME/.cvforge or .)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(coverLetterCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
