package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"cvforge/internal/errors"
)

// statusFor maps an error's type to the HTTP status the client sees.
func statusFor(err error) int {
	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorCode(err error) string {
	if appErr, ok := errors.As(err); ok && appErr.Code != "" {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}

// writeErrorResponse reports err as {error: code, message: display text}.
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.Pattern, "status", status)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.Pattern, "status", status, "error", err.Error())
	}
	writeError(w, errorCode(err), errors.Display(err), status)
}

// writeError writes a standardized error response
func writeError(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeAttachment sends data as a download named filename.
func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Failed to write attachment: %v", err)
	}
}
