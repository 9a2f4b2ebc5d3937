package formatters

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"cvforge/internal/resume"
	"cvforge/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})

	registry.RegisterFormatter("text", "Record", &RecordTextFormatter{})
	registry.RegisterFormatter("markdown", "Record", &RecordMarkdownFormatter{})
	registry.RegisterFormatter("text", "ExtractOutput", &ExtractTextFormatter{})
	registry.RegisterFormatter("markdown", "ExtractOutput", &ExtractMarkdownFormatter{})
	registry.RegisterFormatter("text", "RefineOutput", &RefineTextFormatter{})
	registry.RegisterFormatter("markdown", "RefineOutput", &RefineMarkdownFormatter{})
	registry.RegisterFormatter("text", "SkillSuggestionsOutput", &SkillsTextFormatter{})
	registry.RegisterFormatter("markdown", "SkillSuggestionsOutput", &SkillsMarkdownFormatter{})
	// A cover letter is plain prose in both formats.
	registry.RegisterFormatter("text", "CoverLetterOutput", &CoverLetterFormatter{})
	registry.RegisterFormatter("markdown", "CoverLetterOutput", &CoverLetterFormatter{})
	registry.RegisterFormatter("text", "ArtifactOutput", &ArtifactTextFormatter{})
	registry.RegisterFormatter("markdown", "ArtifactOutput", &ArtifactTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	return slices.Sorted(maps.Keys(fr.formatters))
}

func getDataType(data any) string {
	switch data.(type) {
	case resume.Record:
		return "Record"
	case types.ExtractOutput:
		return "ExtractOutput"
	case types.RefineOutput:
		return "RefineOutput"
	case types.SkillSuggestionsOutput:
		return "SkillSuggestionsOutput"
	case types.CoverLetterOutput:
		return "CoverLetterOutput"
	case types.ArtifactOutput:
		return "ArtifactOutput"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// RecordTextFormatter prints a record as readable plain text.
type RecordTextFormatter struct{}

func (rtf *RecordTextFormatter) Format(data any) (string, error) {
	rec, ok := data.(resume.Record)
	if !ok {
		return "", fmt.Errorf("expected Record, got %T", data)
	}
	return rec.PlainText(), nil
}

func (rtf *RecordTextFormatter) SupportedType() string {
	return "Record"
}

// RecordMarkdownFormatter prints a record as a markdown document.
type RecordMarkdownFormatter struct{}

func (rmf *RecordMarkdownFormatter) Format(data any) (string, error) {
	rec, ok := data.(resume.Record)
	if !ok {
		return "", fmt.Errorf("expected Record, got %T", data)
	}
	return recordMarkdown(rec, "#"), nil
}

func (rmf *RecordMarkdownFormatter) SupportedType() string {
	return "Record"
}

// recordMarkdown writes the record with its name at heading level h and
// sections one level below.
func recordMarkdown(rec resume.Record, h string) string {
	var output strings.Builder
	info := rec.PersonalInfo

	name := info.Name
	if name == "" {
		name = "Resume"
	}
	output.WriteString(fmt.Sprintf("%s %s\n\n", h, name))

	var contact []string
	for _, part := range []string{info.Email, info.Phone, info.LinkedIn} {
		if part != "" {
			contact = append(contact, part)
		}
	}
	if len(contact) > 0 {
		output.WriteString(strings.Join(contact, " | "))
		output.WriteString("\n\n")
	}

	sub := h + "#"
	if rec.Summary != "" {
		output.WriteString(sub + " Summary\n\n")
		output.WriteString(rec.Summary)
		output.WriteString("\n\n")
	}

	if len(rec.Experience) > 0 {
		output.WriteString(sub + " Experience\n\n")
		for _, e := range rec.Experience {
			output.WriteString(fmt.Sprintf("%s# %s", sub, e.Title))
			if e.Company != "" {
				output.WriteString(" at " + e.Company)
			}
			output.WriteString("\n\n")
			if e.Dates != "" {
				output.WriteString(fmt.Sprintf("*%s*\n\n", e.Dates))
			}
			if e.Description != "" {
				output.WriteString(e.Description)
				output.WriteString("\n\n")
			}
		}
	}

	if len(rec.Projects) > 0 {
		output.WriteString(sub + " Projects\n\n")
		for _, p := range rec.Projects {
			output.WriteString(fmt.Sprintf("%s# %s\n\n", sub, p.Title))
			if p.Dates != "" {
				output.WriteString(fmt.Sprintf("*%s*\n\n", p.Dates))
			}
			if p.Description != "" {
				output.WriteString(p.Description)
				output.WriteString("\n\n")
			}
		}
	}

	if len(rec.Achievements) > 0 {
		output.WriteString(sub + " Achievements\n\n")
		for _, a := range rec.Achievements {
			output.WriteString(fmt.Sprintf("- %s\n", a.Description))
		}
		output.WriteString("\n")
	}

	if len(rec.Education) > 0 {
		output.WriteString(sub + " Education\n\n")
		for _, e := range rec.Education {
			output.WriteString(fmt.Sprintf("- **%s**", e.Degree))
			if e.InstitutionDates != "" {
				output.WriteString(", " + e.InstitutionDates)
			}
			output.WriteString("\n")
		}
		output.WriteString("\n")
	}

	if len(rec.Skills) > 0 {
		output.WriteString(sub + " Skills\n\n")
		output.WriteString(strings.Join(rec.Skills, ", "))
		output.WriteString("\n")
	}

	return output.String()
}

// ExtractTextFormatter prints the extracted text as is.
type ExtractTextFormatter struct{}

func (etf *ExtractTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractOutput)
	if !ok {
		return "", fmt.Errorf("expected ExtractOutput, got %T", data)
	}
	return result.Text + "\n", nil
}

func (etf *ExtractTextFormatter) SupportedType() string {
	return "ExtractOutput"
}

// ExtractMarkdownFormatter handles markdown formatting for extraction results
type ExtractMarkdownFormatter struct{}

func (emf *ExtractMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractOutput)
	if !ok {
		return "", fmt.Errorf("expected ExtractOutput, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# %s\n\n", result.File))
	output.WriteString(fmt.Sprintf("**Type:** %s  \n**Characters:** %d\n\n", result.MIMEType, result.Characters))
	output.WriteString("```text\n")
	output.WriteString(result.Text)
	output.WriteString("\n```\n")
	return output.String(), nil
}

func (emf *ExtractMarkdownFormatter) SupportedType() string {
	return "ExtractOutput"
}

// RefineTextFormatter handles text formatting for refinement results
type RefineTextFormatter struct{}

func (rtf *RefineTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.RefineOutput)
	if !ok {
		return "", fmt.Errorf("expected RefineOutput, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("=== REFINED %s ===\n\n", strings.ToUpper(result.Field)))
	output.WriteString("Before:\n")
	output.WriteString(result.Original)
	output.WriteString("\n\n")
	output.WriteString("After:\n")
	output.WriteString(result.Refined)
	output.WriteString("\n")
	return output.String(), nil
}

func (rtf *RefineTextFormatter) SupportedType() string {
	return "RefineOutput"
}

// RefineMarkdownFormatter handles markdown formatting for refinement results
type RefineMarkdownFormatter struct{}

func (rmf *RefineMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.RefineOutput)
	if !ok {
		return "", fmt.Errorf("expected RefineOutput, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# Refined `%s`\n\n", result.Field))
	output.WriteString("## Before\n\n")
	output.WriteString(result.Original)
	output.WriteString("\n\n## After\n\n")
	output.WriteString(result.Refined)
	output.WriteString("\n")
	return output.String(), nil
}

func (rmf *RefineMarkdownFormatter) SupportedType() string {
	return "RefineOutput"
}

// SkillsTextFormatter handles text formatting for skill suggestions
type SkillsTextFormatter struct{}

func (stf *SkillsTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.SkillSuggestionsOutput)
	if !ok {
		return "", fmt.Errorf("expected SkillSuggestionsOutput, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("=== SUGGESTED SKILLS: %s ===\n\n", result.Role))
	if len(result.Skills) == 0 {
		output.WriteString("No suggestions.\n")
		return output.String(), nil
	}
	for i, skill := range result.Skills {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, skill))
	}
	return output.String(), nil
}

func (stf *SkillsTextFormatter) SupportedType() string {
	return "SkillSuggestionsOutput"
}

// SkillsMarkdownFormatter handles markdown formatting for skill suggestions
type SkillsMarkdownFormatter struct{}

func (smf *SkillsMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.SkillSuggestionsOutput)
	if !ok {
		return "", fmt.Errorf("expected SkillSuggestionsOutput, got %T", data)
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("# Suggested Skills for %s\n\n", result.Role))
	for _, skill := range result.Skills {
		output.WriteString(fmt.Sprintf("- %s\n", skill))
	}
	return output.String(), nil
}

func (smf *SkillsMarkdownFormatter) SupportedType() string {
	return "SkillSuggestionsOutput"
}

type CoverLetterFormatter struct{}

func (cf *CoverLetterFormatter) Format(data any) (string, error) {
	result, ok := data.(types.CoverLetterOutput)
	if !ok {
		return "", fmt.Errorf("expected CoverLetterOutput, got %T", data)
	}
	return result.Letter + "\n", nil
}

func (cf *CoverLetterFormatter) SupportedType() string {
	return "CoverLetterOutput"
}

type ArtifactTextFormatter struct{}

func (af *ArtifactTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ArtifactOutput)
	if !ok {
		return "", fmt.Errorf("expected ArtifactOutput, got %T", data)
	}
	return fmt.Sprintf("Wrote %s (%d bytes)\n", result.Path, result.Bytes), nil
}

func (af *ArtifactTextFormatter) SupportedType() string {
	return "ArtifactOutput"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
