package cli

import (
	"context"
	"fmt"
	"strings"

	"cvforge/internal/ai"
	"cvforge/internal/common"
	"cvforge/internal/errors"
	"cvforge/internal/formatters"
	"cvforge/internal/resume"
	"cvforge/internal/types"
	"cvforge/internal/utils"

	"github.com/spf13/cobra"
)

var refineCmd = &cobra.Command{
	Use:   "refine [record-file]",
	Short: "Rewrite one field of a resume record with AI",
	Long: `Rewrite the summary, or the description of one experience, project or
achievement entry, in a more professional voice.

The record file is the JSON or YAML written by parse. When the AI call fails
the original text is kept and a warning is logged. With --save the updated
record is written back to the record file in its own format.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

var (
	refineConfig common.CommandConfig
	refineTarget string
	refineIndex  int
	refineSave   bool
)

func init() {
	addFormatFlags(refineCmd, &refineConfig, "Output file path (default: stdout)")
	refineCmd.Flags().StringVarP(&refineTarget, "target", "t", string(resume.FieldSummary),
		"Field to refine: "+strings.Join(common.RefineTargets, ", "))
	refineCmd.Flags().IntVarP(&refineIndex, "index", "i", 0, "Entry index for experience, project and achievement targets")
	refineCmd.Flags().BoolVar(&refineSave, "save", false, "Write the updated record back to the record file")

	_ = refineCmd.RegisterFlagCompletionFunc("target", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.RefineTargets, cobra.ShellCompDirectiveNoFileComp
	})
}

type refineInput struct {
	Record   resume.Record
	Field    resume.Field
	Original string
}

func runRefine(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	runner := newRunner(cmd)

	field, err := common.ParseRefineTarget(refineTarget, refineIndex)
	if err != nil {
		return err
	}

	rec, err := runner.Files().LoadRecord(args[0])
	if err != nil {
		return err
	}
	original, err := rec.FieldText(field)
	if err != nil {
		return err
	}
	if strings.TrimSpace(original) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s is empty, nothing to refine", field), nil)
	}

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}

	logDetails := func(input refineInput, cfg common.CommandConfig) {
		logger.Info("Starting field refinement",
			"file", args[0],
			"field", input.Field.String(),
			"chars", len(input.Original),
			"output_format", cfg.OutputFormat)
	}

	// result is kept for --save.
	var result types.RefineOutput
	refineOperation := func(ctx context.Context, input refineInput) (types.RefineOutput, *ai.TokenUsage, error) {
		out := types.RefineOutput{
			Field:    input.Field.String(),
			Original: input.Original,
			Refined:  input.Original,
			Record:   input.Record,
		}
		refined, usage, err := aiService.Refine(ctx, input.Original, input.Field.Kind)
		if err != nil {
			logger.Warn("AI refinement failed, keeping original text",
				"field", input.Field.String(), "error", errors.Display(err))
			result = out
			return out, usage, nil
		}
		updated, err := input.Record.SetFieldText(input.Field, refined)
		if err != nil {
			return out, usage, err
		}
		out.Refined = refined
		out.Record = updated
		result = out
		return out, usage, nil
	}

	err = common.RunOperation(cmd.Context(), runner, refineConfig,
		refineInput{Record: rec, Field: field, Original: original}, refineOperation, logDetails)
	if err != nil {
		return fmt.Errorf("failed to refine %s: %w", field, err)
	}

	if refineSave && result.Refined != result.Original {
		if err := saveRecord(runner, args[0], result.Record); err != nil {
			return err
		}
		logger.Info("Record updated", "file", args[0], "field", field.String())
	}
	return nil
}

// saveRecord writes rec to path as YAML or JSON depending on its extension.
func saveRecord(runner *common.Runner, path string, rec resume.Record) error {
	format := "json"
	if utils.IsYAMLFile(path) {
		format = "yaml"
	}
	data, err := formatters.GlobalRegistry.Format(rec, format)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to encode record", err)
	}
	return runner.Files().WriteFile(path, data)
}
