package server

import (
	"net/http"
	"strings"

	"cvforge/internal/errors"
	"cvforge/internal/observability"
)

const errCodeInvalidAPIKey = "INVALID_API_KEY"

// route is one /sessions endpoint. name labels its span.
type route struct {
	pattern string
	name    string
	summary string
	handle  func(*handlers, http.ResponseWriter, *http.Request)
}

// sessionRoutes lists the protected API. More specific patterns may
// follow the {section} wildcards; ServeMux picks the most specific match.
var sessionRoutes = []route{
	{"POST /sessions", "session.create", "Create a session", (*handlers).createSession},
	{"GET /sessions/{id}", "session.get", "Current record", (*handlers).getSession},
	{"DELETE /sessions/{id}", "session.delete", "Drop a session", (*handlers).deleteSession},

	{"POST /sessions/{id}/upload", "upload", "Upload PDF/DOCX (+ jobDescription)", (*handlers).upload},
	{"PUT /sessions/{id}/personal-info", "personal_info", "Replace personal info", (*handlers).setPersonalInfo},
	{"PUT /sessions/{id}/summary", "summary", "Replace summary", (*handlers).setSummary},

	{"POST /sessions/{id}/skills", "skills.add", "Add skill", (*handlers).addSkill},
	{"POST /sessions/{id}/skills/suggest", "skills.suggest", "Suggest skills for a role", (*handlers).suggestSkills},
	{"POST /sessions/{id}/skills/suggestions/{index}/accept", "skills.accept", "Accept a suggestion", (*handlers).acceptSuggestion},

	{"POST /sessions/{id}/{section}", "entry.append", "Append entry", (*handlers).appendEntry},
	{"PUT /sessions/{id}/{section}/{index}", "entry.update", "Replace entry", (*handlers).updateEntry},
	{"DELETE /sessions/{id}/{section}/{index}", "entry.delete", "Delete entry", (*handlers).deleteEntry},

	{"POST /sessions/{id}/refine", "refine", "Refine one field", (*handlers).refine},
	{"POST /sessions/{id}/cover-letter", "cover_letter", "Generate a cover letter", (*handlers).coverLetter},
	{"GET /sessions/{id}/pdf", "pdf", "Download the PDF", (*handlers).renderPDF},
}

// setupRoutes registers the open health endpoints and every session route
// behind rate limit, then API key auth, then the body size limit.
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	rateLimit := s.rateLimitMiddleware(om)
	sizeLimit := s.requestSizeLimitMiddleware()
	h := &handlers{server: s, om: om}

	for _, rt := range sessionRoutes {
		handle := rt.handle
		next := func(w http.ResponseWriter, r *http.Request) { handle(h, w, r) }
		mux.HandleFunc(rt.pattern,
			rateLimit(s.authMiddleware(sizeLimit(observability.ObservabilityMiddleware(om, rt.name)(next)))))
	}
	return mux
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := requestAPIKey(r)

		required, valid := s.checkAPIKey(apiKey)
		if !required {
			next(w, r)
			return
		}

		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeError(w, errors.ErrCodeMissingAPIKey, "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !valid {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeError(w, errCodeInvalidAPIKey, "Invalid API key", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestAPIKey reads X-API-Key, falling back to a Bearer token.
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
