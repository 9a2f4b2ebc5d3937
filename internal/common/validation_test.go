package common

import (
	"testing"

	"cvforge/internal/errors"
	"cvforge/internal/resume"
)

var cliFormats = []string{"json", "yaml", "text", "markdown"}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectError      bool
		expectedError    string
	}{
		{
			name:             "valid format - json",
			format:           "json",
			supportedFormats: cliFormats,
		},
		{
			name:             "valid format - yaml",
			format:           "yaml",
			supportedFormats: cliFormats,
		},
		{
			name:             "valid format - markdown",
			format:           "markdown",
			supportedFormats: cliFormats,
		},
		{
			name:             "invalid format - pdf",
			format:           "pdf",
			supportedFormats: cliFormats,
			expectError:      true,
			expectedError:    "unsupported output format 'pdf'. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "case sensitive - JSON uppercase",
			format:           "JSON",
			supportedFormats: cliFormats,
			expectError:      true,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "empty format string",
			format:           "",
			supportedFormats: cliFormats,
			expectError:      true,
			expectedError:    "unsupported output format ''. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "empty supported formats - should allow all",
			format:           "xml",
			supportedFormats: []string{},
		},
		{
			name:             "single supported format - invalid",
			format:           "text",
			supportedFormats: []string{"json"},
			expectError:      true,
			expectedError:    "unsupported output format 'text'. Supported formats: [json]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.expectedError != "" && err.Error() != tt.expectedError {
					t.Errorf("Expected error '%s', got '%s'", tt.expectedError, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestParseRefineTarget(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		index    int
		want     resume.Field
		wantCode string
	}{
		{name: "experience", target: "experience", index: 2, want: resume.Field{Kind: resume.FieldExperience, Index: 2}},
		{name: "summary ignores index", target: "summary", index: 7, want: resume.Field{Kind: resume.FieldSummary}},
		{name: "plural section name", target: "projects", wantCode: errors.ErrCodeInvalidSection},
		{name: "negative index", target: "achievement", index: -1, wantCode: errors.ErrCodeIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRefineTarget(tt.target, tt.index)
			if tt.wantCode != "" {
				if !errors.HasCode(err, tt.wantCode) {
					t.Fatalf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Benchmark tests to ensure validation is fast
func BenchmarkValidateOutputFormat(b *testing.B) {
	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", cliFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", cliFormats)
		}
	})
}
