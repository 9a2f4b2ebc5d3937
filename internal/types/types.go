// Package types holds the results the CLI commands print.
package types

import "cvforge/internal/resume"

// ExtractOutput is the text pulled out of one document.
type ExtractOutput struct {
	File       string `json:"file" yaml:"file"`
	MIMEType   string `json:"mimeType" yaml:"mimeType"`
	Characters int    `json:"characters" yaml:"characters"`
	Text       string `json:"text" yaml:"text"`
}

// RefineOutput reports one refined field together with the updated record.
type RefineOutput struct {
	Field    string        `json:"field" yaml:"field"`
	Original string        `json:"original" yaml:"original"`
	Refined  string        `json:"refined" yaml:"refined"`
	Record   resume.Record `json:"record" yaml:"record"`
}

// SkillSuggestionsOutput lists skills suggested for a role.
type SkillSuggestionsOutput struct {
	Role   string   `json:"role" yaml:"role"`
	Skills []string `json:"skills" yaml:"skills"`
}

// CoverLetterOutput is a generated cover letter.
type CoverLetterOutput struct {
	Filename string `json:"filename" yaml:"filename"`
	Letter   string `json:"letter" yaml:"letter"`
}

// ArtifactOutput describes a file written by render or build.
type ArtifactOutput struct {
	Path  string `json:"path" yaml:"path"`
	Bytes int    `json:"bytes" yaml:"bytes"`
	// Record is the record the artifact was rendered from, set by build.
	Record *resume.Record `json:"record,omitempty" yaml:"record,omitempty"`
}
