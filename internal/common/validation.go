package common

import (
	"fmt"
	"slices"

	"cvforge/internal/errors"
	"cvforge/internal/resume"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// RefineTargets lists the values accepted by --target.
var RefineTargets = []string{
	string(resume.FieldSummary),
	string(resume.FieldExperience),
	string(resume.FieldProject),
	string(resume.FieldAchievement),
}

// ParseRefineTarget builds the field a refine command addresses. The index
// is ignored for the summary.
func ParseRefineTarget(target string, index int) (resume.Field, error) {
	if !slices.Contains(RefineTargets, target) {
		return resume.Field{}, errors.NewValidationError(errors.ErrCodeInvalidSection,
			fmt.Sprintf("unknown refine target %q, expected one of %v", target, RefineTargets), nil)
	}
	kind := resume.FieldKind(target)
	if kind == resume.FieldSummary {
		index = 0
	}
	if index < 0 {
		return resume.Field{}, errors.NewValidationError(errors.ErrCodeIndexOutOfRange,
			fmt.Sprintf("index must not be negative, got %d", index), nil)
	}
	return resume.Field{Kind: kind, Index: index}, nil
}
