package cli

import (
	"context"
	"fmt"
	"strings"

	"cvforge/internal/ai"
	"cvforge/internal/common"
	"cvforge/internal/errors"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [resume-file]",
	Short: "Turn a PDF or DOCX resume into a rendered PDF in one step",
	Long: `Extract the text of a resume, optionally tailor it to a job description,
parse it into a record and render the record as an A4 PDF.

Use --record-out to keep the parsed record (JSON or YAML by extension) for
later refine and render runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var (
	buildConfig         common.CommandConfig
	buildJobDescription string
	buildRecordOut      string
)

func init() {
	addFormatFlags(buildCmd, &buildConfig, "PDF file or directory (default: <Name>_CV.pdf)")
	buildCmd.Flags().StringVarP(&buildJobDescription, "job-description", "j", "", "Job description file to tailor the resume to")
	buildCmd.Flags().StringVar(&buildRecordOut, "record-out", "", "Also write the parsed record to this file")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	runner := newRunner(cmd)

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}

	jobDescription, err := readJobDescription(runner, buildJobDescription)
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
		logger.Info("Starting resume build",
			"file", input.Document.File,
			"resume_chars", len(input.Document.Text),
			"tailored", input.JobDescription != "",
			"report_format", cfg.OutputFormat)
	}

	buildOperation := func(ctx context.Context, input parseInput) (types.ArtifactOutput, *ai.TokenUsage, error) {
		if strings.TrimSpace(input.Document.Text) == "" {
			return types.ArtifactOutput{}, nil, errors.NewValidationError(errors.ErrCodeExtractionFailed,
				fmt.Sprintf("No text could be extracted from %s", input.Document.File), nil)
		}
		res, usage, err := aiService.ParseResume(ctx, input.Document.Text, input.JobDescription)
		if err != nil {
			return types.ArtifactOutput{}, usage, err
		}
		rec := res.Record
		logger.Debug("Resume parsed", "tailored", res.Tailored)
		if buildRecordOut != "" {
			if err := saveRecord(runner, buildRecordOut, rec); err != nil {
				return types.ArtifactOutput{}, usage, err
			}
		}
		report, err := writePDF(runner, rec, buildConfig.OutputFile)
		if err != nil {
			return types.ArtifactOutput{}, usage, err
		}
		report.Record = &rec
		return report, usage, nil
	}

	// -o names the PDF, so the report always goes to stdout.
	reportConfig := common.CommandConfig{OutputFormat: buildConfig.OutputFormat}
	if err := common.RunAICommand(cmd.Context(), runner, reportConfig, args, createInput, buildOperation, logDetails); err != nil {
		return fmt.Errorf("failed to build resume: %w", err)
	}

	logger.Info("Resume build completed successfully")
	return nil
}
