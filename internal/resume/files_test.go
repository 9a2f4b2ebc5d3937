package resume

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilenames(t *testing.T) {
	tests := []struct {
		name       string
		person     string
		wantPDF    string
		wantLetter string
	}{
		{"full name", "Jane Doe", "Jane_Doe_CV.pdf", "Jane_Doe_Cover_Letter.txt"},
		{"empty name", "", "CV.pdf", "Cover_Letter.txt"},
		{"unsafe characters", "A/B: C", "AB_C_CV.pdf", "AB_C_Cover_Letter.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New().WithPersonalInfo(PersonalInfo{Name: tt.person})
			assert.Equal(t, tt.wantPDF, r.PDFFilename())
			assert.Equal(t, tt.wantLetter, r.CoverLetterFilename())
		})
	}
}

func TestPlainText(t *testing.T) {
	r := sampleRecord().AppendAchievement(Achievement{Description: "Shipped X"})

	text := r.PlainText()

	assert.True(t, strings.HasPrefix(text, "Jane Doe\njane@example.com\n"))
	assert.Contains(t, text, "EXPERIENCE\nEngineer | Acme | 2020-2023\nBuilt things")
	assert.Contains(t, text, "- Shipped X")
	assert.Contains(t, text, "SKILLS\nGo, SQL")
	assert.NotContains(t, text, "PROJECTS")
	assert.Equal(t, "", New().PlainText())
}
