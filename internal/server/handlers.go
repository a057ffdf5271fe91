package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-enhancer/internal/extraction"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/session"
	"go.uber.org/zap"
)

// AnalyzeRequest is the JSON body for /sessions/{id}/analyze. Exactly one of
// ResumeText or Manual supplies the resume.
type AnalyzeRequest struct {
	ResumeText     string                   `json:"resume_text" validate:"required_without=Manual,excluded_with=Manual"`
	Manual         *extraction.ManualFields `json:"manual,omitempty"`
	JobDescription string                   `json:"job_description" validate:"required"`
}

// AnswerRequest is the JSON body for /sessions/{id}/answers
type AnswerRequest struct {
	Keyword       string `json:"keyword" validate:"required"`
	HasExperience *bool  `json:"has_experience" validate:"required"`
	Description   string `json:"description"`
}

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
}

// AnalyzeResponse is returned after a successful analysis
type AnalyzeResponse struct {
	SessionID       string        `json:"session_id"`
	State           session.State `json:"state"`
	AnalysisReport  string        `json:"analysis_report"`
	MissingKeywords []string      `json:"missing_keywords"`
}

// EnhanceResponse is returned after a successful enhancement
type EnhanceResponse struct {
	SessionID      string        `json:"session_id"`
	State          session.State `json:"state"`
	EnhancedResume string        `json:"enhanced_resume"`
	DownloadURL    string        `json:"download_url"`
	PreviewURL     string        `json:"preview_url"`
}

// handleCreateSession starts a new idle session
func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.store.Create()
	s.jsonResponse(w, http.StatusCreated, SessionResponse{
		SessionID: sess.ID,
		State:     sess.State(),
	})
}

// handleGetSession returns the session snapshot
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Snapshot())
}

// handleDeleteSession discards a session and its state
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.Delete(id) {
		s.failure(w, r, &session.NotFoundError{ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnalyze extracts the resume from an upload, plain text or manual
// fields and runs the gap analysis
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	resumeText, jobDescription, err := s.readAnalyzeInput(w, r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	result, err := sess.Analyze(r.Context(), resumeText, jobDescription, nil)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, AnalyzeResponse{
		SessionID:       sess.ID,
		State:           sess.State(),
		AnalysisReport:  result.Report,
		MissingKeywords: result.Keywords,
	})
}

// readAnalyzeInput returns the resume text and job description from either a
// multipart form or a JSON body
func (s *Server) readAnalyzeInput(w http.ResponseWriter, r *http.Request) (string, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", "", &ErrValidation{Field: "Content-Type", Message: "expected multipart/form-data or application/json"}
	}

	switch mediaType {
	case "multipart/form-data":
		return s.readMultipartInput(w, r)
	case "application/json":
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", "", &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
		}
		if err := s.validator.Struct(req); err != nil {
			return "", "", extractValidationErrors(err)
		}
		if req.Manual != nil {
			return extraction.FromManual(*req.Manual), req.JobDescription, nil
		}
		return req.ResumeText, req.JobDescription, nil
	default:
		return "", "", &ErrValidation{Field: "Content-Type", Message: "expected multipart/form-data or application/json"}
	}
}

func (s *Server) readMultipartInput(w http.ResponseWriter, r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", err
		}
		return "", "", &ErrValidation{Field: "body", Message: "invalid multipart form: " + err.Error()}
	}

	jobDescription := r.FormValue("job_description")

	file, header, err := r.FormFile("resume")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", fmt.Errorf("failed to read uploaded resume: %w", err)
		}
		text, err := extraction.FromUpload(header.Filename, data)
		if err != nil {
			return "", "", err
		}
		s.logger.Debug("resume extracted",
			zap.String("filename", header.Filename),
			zap.Int("bytes", len(data)),
			zap.Int("chars", len(text)))
		return text, jobDescription, nil
	case errors.Is(err, http.ErrMissingFile):
		if text := r.FormValue("resume_text"); text != "" {
			return text, jobDescription, nil
		}
		if !hasManualFields(r) {
			return "", jobDescription, nil
		}
		return extraction.FromManual(extraction.ManualFields{
			Summary:    r.FormValue("summary"),
			Skills:     r.FormValue("skills"),
			Experience: r.FormValue("experience"),
		}), jobDescription, nil
	default:
		return "", "", &ErrValidation{Field: "resume", Message: err.Error()}
	}
}

// hasManualFields reports whether the form chose manual entry by sending at
// least one of the manual fields, even an empty one
func hasManualFields(r *http.Request) bool {
	for _, key := range []string{"summary", "skills", "experience"} {
		if _, ok := r.MultipartForm.Value[key]; ok {
			return true
		}
	}
	return false
}

// handleAnswer records the user's answer for one missing keyword
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.failure(w, r, extractValidationErrors(err))
		return
	}

	if err := sess.Answer(req.Keyword, *req.HasExperience, req.Description); err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Snapshot())
}

// handleConfirm marks the session ready to enhance
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Confirm(); err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess.Snapshot())
}

// handleEnhance rewrites and renders the resume
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	result, err := sess.Enhance(r.Context(), nil)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.enhanceResponse(sess, result))
}

// handleEnhanceStream rewrites and renders the resume, streaming progress as SSE
func (s *Server) handleEnhanceStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := sess.Enhance(r.Context(), func(event session.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.Debug("failed to write progress event", zap.Error(err))
		}
	})
	if err != nil {
		sse.WriteError(HTTPStatus(err), err.Error())
		return
	}

	sse.WriteEvent("result", s.enhanceResponse(sess, result)) //nolint:errcheck
	sse.WriteComplete(sess.ID, string(sess.State()))
}

func (s *Server) enhanceResponse(sess *session.Session, result *session.Result) EnhanceResponse {
	return EnhanceResponse{
		SessionID:      sess.ID,
		State:          sess.State(),
		EnhancedResume: result.EnhancedResume,
		DownloadURL:    fmt.Sprintf("/sessions/%s/download", sess.ID),
		PreviewURL:     fmt.Sprintf("/sessions/%s/preview", sess.ID),
	}
}

// handleDownload serves the rendered PDF as an attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	result := sess.Result()
	if result == nil || len(result.PDF) == 0 {
		s.failure(w, r, &ErrNoArtifact{SessionID: sess.ID})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rendering.PDFFilename}))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(result.PDF)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PDF); err != nil {
		s.logger.Debug("failed to write PDF", zap.Error(err))
	}
}

// handlePreview serves the cleaned HTML rendering
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	result := sess.Result()
	if result == nil {
		s.failure(w, r, &ErrNoArtifact{SessionID: sess.ID})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, result.HTML); err != nil {
		s.logger.Debug("failed to write preview", zap.Error(err))
	}
}

// lookup resolves the {id} path value, writing a 404 when there is no session
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.failure(w, r, err)
		return nil, false
	}
	return sess, true
}

// extractValidationErrors converts the first validator failure into an ErrValidation.
func extractValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "request", Message: "invalid request"}
}
