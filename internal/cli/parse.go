package cli

import (
	"context"
	"fmt"
	"strings"

	"cvforge/internal/ai"
	"cvforge/internal/common"
	"cvforge/internal/errors"
	"cvforge/internal/resume"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [resume-file]",
	Short: "Parse a resume into a structured record",
	Long: `Parse a PDF, DOCX or plain text resume into a structured record using AI.

With --job-description the text is first rewritten for that job and the
rewrite is parsed instead. The rewrite may add content that is not in the
original document; review the result before using it.

Save the output as JSON or YAML to edit it, refine it, or render it.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

var (
	parseConfig         common.CommandConfig
	parseJobDescription string
)

func init() {
	addFormatFlags(parseCmd, &parseConfig, "Output file path (default: stdout)")
	parseCmd.Flags().StringVarP(&parseJobDescription, "job-description", "j", "", "Job description file to tailor the resume to before parsing")
}

type parseInput struct {
	Document       common.Document
	JobDescription string
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	runner := newRunner(cmd)

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}

	jobDescription, err := readJobDescription(runner, parseJobDescription)
	if err != nil {
		return err
	}

	createInput := func(docs []common.Document) (parseInput, error) {
		if len(docs) != 1 {
			return parseInput{}, fmt.Errorf("expected 1 file path, got %d", len(docs))
		}
		return parseInput{Document: docs[0], JobDescription: jobDescription}, nil
	}

	logDetails := func(input parseInput, cfg common.CommandConfig) {
		logger.Info("Starting resume parsing",
			"file", input.Document.File,
			"resume_chars", len(input.Document.Text),
			"job_chars", len(input.JobDescription),
			"output_format", cfg.OutputFormat)
	}

	// The record itself is printed so the output can be fed to refine,
	// render and cover-letter.
	parseOperation := func(ctx context.Context, input parseInput) (resume.Record, *ai.TokenUsage, error) {
		if strings.TrimSpace(input.Document.Text) == "" {
			return resume.Record{}, nil, errors.NewValidationError(errors.ErrCodeExtractionFailed,
				fmt.Sprintf("No text could be extracted from %s", input.Document.File), nil)
		}
		res, usage, err := aiService.ParseResume(ctx, input.Document.Text, input.JobDescription)
		if err == nil && input.JobDescription != "" && !res.Tailored {
			logger.Warn("Tailoring was not applied, the record was parsed from the original text")
		}
		return res.Record, usage, err
	}

	err = common.RunAICommand(
		cmd.Context(),
		runner,
		parseConfig,
		args,
		createInput,
		parseOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to parse resume: %w", err)
	}

	logger.Info("Resume parsing completed successfully")
	return nil
}

// readJobDescription reads the optional job description file.
func readJobDescription(runner *common.Runner, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return runner.Files().ReadTextFile(path)
}
