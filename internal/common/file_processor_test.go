package common

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvforge/internal/ai"
	"cvforge/internal/errors"
	"cvforge/internal/extract"
	"cvforge/internal/resume"
)

func writeDOCX(t *testing.T, path string, paragraphs ...string) {
	t.Helper()
	var body string
	for _, p := range paragraphs {
		body += "<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>"
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(errors.Discard(), 0)

	docx := filepath.Join(dir, "cv.docx")
	writeDOCX(t, docx, "Jane Doe", "Engineer")
	doc, err := fp.ReadDocument(docx)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer", doc.Text)
	assert.Equal(t, extract.MIMEDOCX, doc.MIMEType)

	txt := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain resume"), 0600))
	doc, err = fp.ReadDocument(txt)
	require.NoError(t, err)
	assert.Equal(t, "plain resume", doc.Text)
	assert.Empty(t, doc.MIMEType)

	odt := filepath.Join(dir, "cv.odt")
	require.NoError(t, os.WriteFile(odt, []byte("x"), 0600))
	_, err = fp.ReadDocument(odt)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat))

	_, err = fp.ReadDocument(filepath.Join(dir, "missing.pdf"))
	assert.True(t, errors.HasCode(err, "INVALID_INPUT_FILE"))
}

func TestReadBytesEnforcesSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 2048), 0600))

	_, err := NewFileProcessor(nil, 1024).ReadBytes(path)
	require.Error(t, err)
	assert.Contains(t, errors.Display(err), "larger than 1.0 KiB")

	data, err := NewFileProcessor(nil, 4096).ReadBytes(path)
	require.NoError(t, err)
	assert.Len(t, data, 2048)
}

func TestLoadRecordJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(errors.Discard(), 0)

	jsonPath := filepath.Join(dir, "record.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"personal_info":{"name":"Jane Doe"},"skills":["Go","Go"]}`), 0600))
	rec, err := fp.LoadRecord(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.PersonalInfo.Name)
	assert.Equal(t, []string{"Go"}, rec.Skills)
	assert.NotNil(t, rec.Experience)

	yamlPath := filepath.Join(dir, "record.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("personal_info:\n  name: Jane Doe\nachievements:\n  - description: Shipped X\n"), 0600))
	rec, err = fp.LoadRecord(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []resume.Achievement{{Description: "Shipped X"}}, rec.Achievements)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"skills":"Go"}`), 0600))
	_, err = fp.LoadRecord(badPath)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}

func TestRunAICommand(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "cv.docx")
	writeDOCX(t, docx, "Jane Doe")

	var out bytes.Buffer
	runner := NewRunner(errors.Discard(), 0)
	runner.Output = runner.Output.WithStdout(&out)

	logged := false
	err := RunAICommand(context.Background(), runner, CommandConfig{OutputFormat: "json"}, []string{docx},
		func(docs []Document) (string, error) { return docs[0].Text, nil },
		func(_ context.Context, text string) (map[string]string, *ai.TokenUsage, error) {
			return map[string]string{"name": text}, &ai.TokenUsage{TotalTokens: 3}, nil
		},
		func(string, CommandConfig) { logged = true },
	)
	require.NoError(t, err)
	assert.True(t, logged)
	assert.JSONEq(t, `{"name":"Jane Doe"}`, out.String())
}

func TestWriteArtifact(t *testing.T) {
	dir := t.TempDir()
	oh := NewOutputHandler(errors.Discard())

	path, err := oh.WriteArtifact([]byte("%PDF-1.3"), dir, "Jane_Doe_CV.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Jane_Doe_CV.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}
