package cli

import (
	"context"
	"fmt"
	"strings"

	"cvforge/internal/ai"
	"cvforge/internal/common"
	"cvforge/internal/errors"
	"cvforge/internal/resume"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [record-file] [job-description-file]",
	Short: "Write a cover letter for a job",
	Long: `Write a cover letter of roughly 300 to 400 words from a resume record and a
job description.

With --output the letter is written as plain text to that file or directory
(default name <Name>_Cover_Letter.txt). Without it the letter is printed in
--format.`,
	Args: cobra.ExactArgs(2),
	RunE: runCoverLetter,
}

var coverLetterConfig common.CommandConfig

func init() {
	addFormatFlags(coverLetterCmd, &coverLetterConfig, "Letter file or directory (default: stdout)")
}

type coverLetterInput struct {
	Record         resume.Record
	JobDescription string
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	runner := newRunner(cmd)

	rec, err := runner.Files().LoadRecord(args[0])
	if err != nil {
		return err
	}
	if rec.IsEmpty() {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Resume record is empty, nothing to write a cover letter from", nil)
	}
	jobDescription, err := runner.Files().ReadTextFile(args[1])
	if err != nil {
		return err
	}
	if strings.TrimSpace(jobDescription) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Job description is empty", nil)
	}

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}

	logDetails := func(input coverLetterInput, cfg common.CommandConfig) {
		logger.Info("Starting cover letter generation",
			"name", input.Record.PersonalInfo.Name,
			"job_chars", len(input.JobDescription),
			"output", cfg.OutputFile)
	}

	letterOperation := func(ctx context.Context, input coverLetterInput) (types.CoverLetterOutput, *ai.TokenUsage, error) {
		text, usage, err := aiService.CoverLetter(ctx, input.Record.PlainText(), input.JobDescription)
		if err != nil {
			return types.CoverLetterOutput{}, usage, err
		}
		return types.CoverLetterOutput{Filename: input.Record.CoverLetterFilename(), Letter: text}, usage, nil
	}

	input := coverLetterInput{Record: rec, JobDescription: jobDescription}
	if coverLetterConfig.OutputFile == "" {
		if err := common.RunOperation(cmd.Context(), runner, coverLetterConfig, input, letterOperation, logDetails); err != nil {
			return fmt.Errorf("failed to write cover letter: %w", err)
		}
		return nil
	}

	// A letter written to a file is plain text rather than formatted output.
	logDetails(input, coverLetterConfig)
	letter, usage, err := letterOperation(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("failed to write cover letter: %w", err)
	}
	common.ReportTokenUsage(logger, usage)

	path, err := runner.Output.WriteArtifact([]byte(letter.Letter+"\n"), coverLetterConfig.OutputFile, letter.Filename)
	if err != nil {
		return err
	}
	logger.Info("Cover letter written", "file", path)
	return nil
}
