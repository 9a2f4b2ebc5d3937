package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cvforge/internal/ai"
	"cvforge/internal/errors"
	"cvforge/internal/extract"
	"cvforge/internal/observability"
	"cvforge/internal/resume"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 8 << 20

// SessionResponse is the body of every successful record-returning call.
type SessionResponse struct {
	ID          string        `json:"id"`
	Record      resume.Record `json:"record"`
	Suggestions []string      `json:"suggestions,omitempty"`
	// Warning carries the display message of an AI failure that was
	// answered with a fallback value.
	Warning string `json:"warning,omitempty"`
}

// UploadResponse reports the merged record after an upload.
type UploadResponse struct {
	SessionResponse
	ExtractedCharacters int  `json:"extractedCharacters"`
	Tailored            bool `json:"tailored"`
}

// RefineResponse reports the refined text and the record it was written to.
type RefineResponse struct {
	SessionResponse
	Field string `json:"field"`
	Text  string `json:"text"`
}

type SuggestionsResponse struct {
	ID          string   `json:"id"`
	Suggestions []string `json:"suggestions"`
	Warning     string   `json:"warning,omitempty"`
}

type handlers struct {
	server *Server
	om     *observability.ObservabilityManager
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", string(errorType(err))))
	h.server.writeErrorResponse(w, r, err)
}

func errorType(err error) errors.ErrorType {
	if appErr, ok := errors.As(err); ok {
		return appErr.Type
	}
	return errors.ErrorTypeInternal
}

// trackAI runs one AI call under the AI metrics and its own span.
func (h *handlers) trackAI(ctx context.Context, operation string, call func(context.Context) (*ai.TokenUsage, error)) error {
	return h.om.TrackAI(ctx, operation, func(ctx context.Context) (*observability.TokenUsage, error) {
		usage, err := call(ctx)
		return (*observability.TokenUsage)(usage), err
	})
}

func (h *handlers) record(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue) {
	h.om.Record(ctx, metricType, success, attrs...)
}

func pathIndex(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s must be an integer, got %q", name, raw), err)
	}
	return i, nil
}

func pathSection(r *http.Request) (resume.Section, error) {
	raw := r.PathValue("section")
	section, ok := resume.ParseSection(raw)
	if !ok {
		return "", errors.NewValidationError(errors.ErrCodeInvalidSection,
			fmt.Sprintf("unknown section %q", raw), nil)
	}
	return section, nil
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	snap := h.server.Sessions.Create()
	writeJSON(w, http.StatusCreated, SessionResponse{ID: snap.ID, Record: snap.Record})
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.server.Sessions.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: snap.ID, Record: snap.Record, Suggestions: snap.Suggestions})
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.server.Sessions.Delete(r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// update applies fn to the session record and answers with the new record.
func (h *handlers) update(w http.ResponseWriter, r *http.Request, fn func(resume.Record) (resume.Record, error)) {
	id := r.PathValue("id")
	rec, err := h.server.Sessions.Update(id, fn)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, Record: rec})
}

// upload extracts the document, parses it (tailoring first when a job
// description is given) and merges the result into the session record.
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	// Fail before spending an AI call on a session that does not exist.
	if _, err := h.server.Sessions.Get(id); err != nil {
		h.fail(w, r, err)
		return
	}

	data, mimeType, form, err := readUpload(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("document.mime_type", mimeType),
		attribute.Int("document.size", len(data)),
		attribute.Bool("request.tailor", strings.TrimSpace(form.JobDescription) != ""),
	)

	h.om.RecordSize(ctx, "upload", len(data))
	text, err := extract.Extract(data, mimeType)
	h.record(ctx, observability.MetricDocumentExtracted, err == nil, attribute.String("mime_type", mimeType))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		h.fail(w, r, errors.NewValidationError(errors.ErrCodeExtractionFailed,
			"No text could be extracted from the document", nil))
		return
	}

	var parsed ai.ParseResult
	err = h.trackAI(ctx, "parse", func(ctx context.Context) (*ai.TokenUsage, error) {
		res, usage, err := h.server.AI.ParseResume(ctx, text, form.JobDescription)
		parsed = res
		return usage, err
	})
	h.record(ctx, observability.MetricRecordParsed, err == nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	merged, err := h.server.Sessions.Update(id, func(cur resume.Record) (resume.Record, error) {
		return cur.Merge(parsed.Record), nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		SessionResponse:     SessionResponse{ID: id, Record: merged},
		ExtractedCharacters: len(text),
		Tailored:            parsed.Tailored,
	})
}

// readUpload reads the multipart "file" part and the optional
// jobDescription field.
func readUpload(r *http.Request) ([]byte, string, UploadForm, error) {
	var form UploadForm

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, "", form, bodyReadError(err)
		}
		return nil, "", form, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"expected a multipart/form-data body", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", form, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"file field is required", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", form, bodyReadError(err)
	}

	mimeType := header.Header.Get("Content-Type")
	if !extract.Supported(mimeType) {
		if detected := extract.DetectMIME(header.Filename); detected != "" {
			mimeType = detected
		}
	}

	form.JobDescription = r.FormValue("jobDescription")
	if err := validateRequest(&form); err != nil {
		return nil, "", form, err
	}
	return data, mimeType, form, nil
}

func (h *handlers) setPersonalInfo(w http.ResponseWriter, r *http.Request) {
	var req PersonalInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.update(w, r, func(rec resume.Record) (resume.Record, error) {
		return rec.WithPersonalInfo(req.toPersonalInfo()), nil
	})
}

func (h *handlers) setSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.update(w, r, func(rec resume.Record) (resume.Record, error) {
		return rec.WithSummary(req.Summary), nil
	})
}

func (h *handlers) addSkill(w http.ResponseWriter, r *http.Request) {
	var req SkillRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.update(w, r, func(rec resume.Record) (resume.Record, error) {
		return rec.AddSkill(req.Skill), nil
	})
}

func (h *handlers) appendEntry(w http.ResponseWriter, r *http.Request) {
	section, err := pathSection(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	mutate, err := entryMutation(r, section, -1)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.update(w, r, mutate)
}

func (h *handlers) updateEntry(w http.ResponseWriter, r *http.Request) {
	section, err := pathSection(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	index, err := pathIndex(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	mutate, err := entryMutation(r, section, index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.update(w, r, mutate)
}

func (h *handlers) deleteEntry(w http.ResponseWriter, r *http.Request) {
	section, err := pathSection(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	index, err := pathIndex(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.update(w, r, func(rec resume.Record) (resume.Record, error) {
		return rec.DeleteEntry(section, index)
	})
}

func decodeEntry[T any](r *http.Request) (T, error) {
	var v T
	err := decodeJSON(r, &v)
	return v, err
}

// entryMutation decodes the entry for section from the body. A negative
// index appends; otherwise entry index is replaced. Skills have no entry
// body and are rejected here.
func entryMutation(r *http.Request, section resume.Section, index int) (func(resume.Record) (resume.Record, error), error) {
	switch section {
	case resume.SectionExperience:
		e, err := decodeEntry[resume.Experience](r)
		if err != nil {
			return nil, err
		}
		if index < 0 {
			return func(rec resume.Record) (resume.Record, error) { return rec.AppendExperience(e), nil }, nil
		}
		return func(rec resume.Record) (resume.Record, error) { return rec.UpdateExperience(index, e) }, nil
	case resume.SectionProjects:
		p, err := decodeEntry[resume.Project](r)
		if err != nil {
			return nil, err
		}
		if index < 0 {
			return func(rec resume.Record) (resume.Record, error) { return rec.AppendProject(p), nil }, nil
		}
		return func(rec resume.Record) (resume.Record, error) { return rec.UpdateProject(index, p) }, nil
	case resume.SectionAchievements:
		a, err := decodeEntry[resume.Achievement](r)
		if err != nil {
			return nil, err
		}
		if index < 0 {
			return func(rec resume.Record) (resume.Record, error) { return rec.AppendAchievement(a), nil }, nil
		}
		return func(rec resume.Record) (resume.Record, error) { return rec.UpdateAchievement(index, a) }, nil
	case resume.SectionEducation:
		e, err := decodeEntry[resume.Education](r)
		if err != nil {
			return nil, err
		}
		if index < 0 {
			return func(rec resume.Record) (resume.Record, error) { return rec.AppendEducation(e), nil }, nil
		}
		return func(rec resume.Record) (resume.Record, error) { return rec.UpdateEducation(index, e) }, nil
	}
	return nil, errors.NewValidationError(errors.ErrCodeInvalidSection,
		fmt.Sprintf("section %q has no editable entries here", section), nil)
}

// refine rewrites one field. An AI failure keeps the original text and is
// reported as a warning with status 200.
func (h *handlers) refine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var req RefineRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, err := h.server.Sessions.Get(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	original, err := snap.Record.FieldText(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(original) == "" {
		h.fail(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s is empty, nothing to refine", req), nil))
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("refine.field", req.String()))

	var refined string
	aiErr := h.trackAI(ctx, "refine", func(ctx context.Context) (*ai.TokenUsage, error) {
		text, usage, err := h.server.AI.Refine(ctx, original, req.Kind)
		refined = text
		return usage, err
	})
	h.record(ctx, observability.MetricFieldRefined, aiErr == nil, attribute.String("target", string(req.Kind)))

	resp := RefineResponse{Field: req.String(), Text: refined}
	if aiErr != nil {
		h.server.Logger.LogError(aiErr, "Refinement failed, keeping original text", "session_id", id, "field", req.String())
		resp.SessionResponse = SessionResponse{ID: id, Record: snap.Record, Warning: errors.Display(aiErr)}
		resp.Text = original
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// The AI call runs unlocked; write back only if the field still holds
	// the text that was refined.
	rec, err := h.server.Sessions.Update(id, func(cur resume.Record) (resume.Record, error) {
		now, err := cur.FieldText(req)
		if err != nil || now != original {
			return cur, errors.NewConflictError(errors.ErrCodeRefineConflict,
				fmt.Sprintf("%s changed while it was being refined, try again", req), err)
		}
		return cur.SetFieldText(req, refined)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp.SessionResponse = SessionResponse{ID: id, Record: rec}
	writeJSON(w, http.StatusOK, resp)
}

// suggestSkills replaces the session's suggestion pool. An AI failure
// yields an empty pool and a warning with status 200.
func (h *handlers) suggestSkills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var req SuggestSkillsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.server.Sessions.Get(id); err != nil {
		h.fail(w, r, err)
		return
	}

	var skills []string
	aiErr := h.trackAI(ctx, "skills", func(ctx context.Context) (*ai.TokenUsage, error) {
		list, usage, err := h.server.AI.SuggestSkills(ctx, strings.TrimSpace(req.Role))
		skills = list
		return usage, err
	})
	h.record(ctx, observability.MetricSkillsSuggested, aiErr == nil, attribute.Int("count", len(skills)))

	resp := SuggestionsResponse{ID: id}
	if aiErr != nil {
		h.server.Logger.LogError(aiErr, "Skill suggestion failed", "session_id", id)
		resp.Warning = errors.Display(aiErr)
		skills = []string{}
	}

	pool, err := h.server.Sessions.SetSuggestions(id, skills)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp.Suggestions = pool
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) acceptSuggestion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	index, err := pathIndex(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	state, err := h.server.Sessions.AcceptSuggestion(id, index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, Record: state.Record, Suggestions: state.Suggestions})
}

func (h *handlers) coverLetter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CoverLetterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.server.Sessions.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if snap.Record.IsEmpty() {
		h.fail(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"The resume is empty, add content before writing a cover letter", nil))
		return
	}

	var letter string
	err = h.trackAI(ctx, "coverLetter", func(ctx context.Context) (*ai.TokenUsage, error) {
		text, usage, err := h.server.AI.CoverLetter(ctx, snap.Record.PlainText(), req.JobDescription)
		letter = text
		return usage, err
	})
	h.record(ctx, observability.MetricCoverLetter, err == nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeAttachment(w, "text/plain; charset=utf-8", snap.Record.CoverLetterFilename(), []byte(letter))
}

func (h *handlers) renderPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.server.Sessions.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := h.server.Renderer.Render(snap.Record)
	h.record(ctx, observability.MetricPDFRendered, err == nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.om.RecordSize(ctx, "pdf", len(data))
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("pdf.size", len(data)))
	writeAttachment(w, "application/pdf", snap.Record.PDFFilename(), data)
}
