package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cvforge/internal/errors"
	"cvforge/internal/extract"
	"cvforge/internal/resume"
	"cvforge/internal/utils"

	"gopkg.in/yaml.v3"
)

// Document is the text of one input file.
type Document struct {
	File     string
	MIMEType string // empty for plain text files
	Text     string
}

// FileProcessor handles common file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a new file processor instance. maxSize caps the
// size of files it reads; zero means no limit.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadBytes reads a whole file, refusing files above the size limit.
func (fp *FileProcessor) ReadBytes(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			// Log the error but don't override the main operation result
			if fp.logger != nil {
				fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
			}
		}
	}()

	var r io.Reader = file
	if fp.maxSize > 0 {
		r = io.LimitReader(file, fp.maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if fp.maxSize > 0 && int64(len(content)) > fp.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("File %s is larger than %s", filename, utils.FormatFileSize(fp.maxSize)), nil)
	}
	return content, nil
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	content, err := fp.ReadBytes(filename)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ReadDocument returns the text of a PDF or DOCX file, or the content of a
// plain text file. Anything else is UNSUPPORTED_FORMAT.
func (fp *FileProcessor) ReadDocument(filename string) (Document, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return Document{}, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	mimeType := extract.DetectMIME(filename)
	if mimeType == "" {
		if !utils.IsTextFile(filename) {
			return Document{}, errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
				fmt.Sprintf("Unsupported document %s: expected .pdf, .docx or a text file", filepath.Base(filename)), nil)
		}
		text, err := fp.ReadFile(filename)
		if err != nil {
			return Document{}, err
		}
		return Document{File: filename, Text: text}, nil
	}

	data, err := fp.ReadBytes(filename)
	if err != nil {
		return Document{}, err
	}
	text, err := extract.Extract(data, mimeType)
	if err != nil {
		return Document{}, fmt.Errorf("extracting %s: %w", filename, err)
	}
	if fp.logger != nil {
		fp.logger.Debug("Extracted document text",
			"filename", filename,
			"mime_type", mimeType,
			"size", utils.FormatFileSize(int64(len(data))),
			"characters", len(text))
	}
	return Document{File: filename, MIMEType: mimeType, Text: text}, nil
}

// ReadTextFile reads an auxiliary text input such as a job description.
func (fp *FileProcessor) ReadTextFile(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return "", errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	if !utils.IsTextFile(filename) && fp.logger != nil {
		fp.logger.Warn("File may not be a text file", "filename", filename)
	}
	return fp.ReadFile(filename)
}

// LoadRecord reads a record saved as JSON or YAML and checks it against
// the record schema.
func (fp *FileProcessor) LoadRecord(filename string) (resume.Record, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return resume.Record{}, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}
	data, err := fp.ReadBytes(filename)
	if err != nil {
		return resume.Record{}, err
	}

	if utils.IsYAMLFile(filename) {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return resume.Record{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Cannot parse YAML record %s", filename), err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return resume.Record{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("Record %s cannot be represented as JSON", filename), err)
		}
	}

	rec, err := resume.Decode(data)
	if err != nil {
		return resume.Record{}, fmt.Errorf("loading record %s: %w", filename, err)
	}
	return rec, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	return fp.WriteBytes(filename, []byte(content))
}

// WriteBytes writes data to a file, creating its directory when needed.
func (fp *FileProcessor) WriteBytes(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, data, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadDocuments reads each input file as a document.
func (fp *FileProcessor) ReadDocuments(filenames ...string) ([]Document, error) {
	docs := make([]Document, len(filenames))
	for i, filename := range filenames {
		doc, err := fp.ReadDocument(filename)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
