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

var skillsCmd = &cobra.Command{
	Use:   "skills [role...]",
	Short: "Suggest skills for a role",
	Long: `Ask the AI for up to ten skills that fit a role, for example:

  cvforge skills senior backend engineer

A failed AI call prints an empty list and logs a warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSkills,
}

var skillsConfig common.CommandConfig

func init() {
	addFormatFlags(skillsCmd, &skillsConfig, "Output file path (default: stdout)")
}

func runSkills(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	runner := newRunner(cmd)

	role := strings.TrimSpace(strings.Join(args, " "))
	if role == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Role must not be empty", nil)
	}

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}

	logDetails := func(role string, cfg common.CommandConfig) {
		logger.Info("Starting skill suggestion", "role", role, "output_format", cfg.OutputFormat)
	}

	suggestOperation := func(ctx context.Context, role string) (types.SkillSuggestionsOutput, *ai.TokenUsage, error) {
		skills, usage, err := aiService.SuggestSkills(ctx, role)
		if err != nil {
			logger.Warn("AI skill suggestion failed", "role", role, "error", errors.Display(err))
			skills = nil
		}
		if skills == nil {
			skills = []string{}
		}
		return types.SkillSuggestionsOutput{Role: role, Skills: skills}, usage, nil
	}

	if err := common.RunOperation(cmd.Context(), runner, skillsConfig, role, suggestOperation, logDetails); err != nil {
		return fmt.Errorf("failed to suggest skills: %w", err)
	}
	return nil
}
