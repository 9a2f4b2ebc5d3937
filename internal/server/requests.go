package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"cvforge/internal/errors"
	"cvforge/internal/resume"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// PersonalInfoRequest replaces the contact block.
type PersonalInfoRequest struct {
	Name     string `json:"name" validate:"max=200"`
	Email    string `json:"email" validate:"max=320"`
	Phone    string `json:"phone" validate:"max=50"`
	LinkedIn string `json:"linkedin" validate:"max=500"`
}

func (r PersonalInfoRequest) toPersonalInfo() resume.PersonalInfo {
	return resume.PersonalInfo{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Phone:    strings.TrimSpace(r.Phone),
		LinkedIn: strings.TrimSpace(r.LinkedIn),
	}
}

type SummaryRequest struct {
	Summary string `json:"summary" validate:"max=10000"`
}

type SkillRequest struct {
	Skill string `json:"skill" validate:"required,notblank,max=100"`
}

// RefineRequest names the field to rewrite, e.g. {"target":"experience","index":0}.
type RefineRequest = resume.Field

type SuggestSkillsRequest struct {
	Role string `json:"role" validate:"required,notblank,max=200"`
}

type CoverLetterRequest struct {
	JobDescription string `json:"jobDescription" validate:"required,notblank,max=50000"`
}

// UploadForm holds the non-file fields of a multipart upload.
type UploadForm struct {
	JobDescription string `validate:"max=50000"`
}

var requestValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
})

// validateRequest runs the struct tags of v and reports the first failure
// as a validation error.
func validateRequest(v any) error {
	err := requestValidator().Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag()), err).
			WithContext("field", ve.Namespace())
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "validation error: invalid request", err)
}

// decodeJSON parses a JSON request body into v and validates it.
func decodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return bodyReadError(err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("failed to parse JSON: %v", err), err)
	}

	return validateRequest(v)
}

func bodyReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
	}
	return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
}
