// Package session holds the per-user state machine that drives one resume
// through analysis, keyword confirmation and enhancement.
package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/resume-enhancer/internal/analysis"
	"github.com/jonathan/resume-enhancer/internal/enhancement"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"go.uber.org/zap"
)

// State is a step of the analysis cycle
type State string

const (
	StateIdle           State = "idle"
	StateAnalyzed       State = "analyzed"
	StateReadyToEnhance State = "ready_to_enhance"
	StateEnhanced       State = "enhanced"
)

// Progress steps reported through ProgressCallback
const (
	StepBuildPrompt = "build_prompt"
	StepGenerate    = "generate"
	StepParse       = "parse"
	StepRender      = "render"
	StepComplete    = "complete"
)

// ProgressEvent represents a progress update during analysis or enhancement
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// ProgressCallback is called when progress occurs
type ProgressCallback func(event ProgressEvent)

// Renderer produces the HTML and PDF artifacts for an enhanced resume
type Renderer interface {
	Render(ctx context.Context, text string) (*rendering.Output, error)
}

// Dependencies are the collaborators shared by every session
type Dependencies struct {
	Client   llm.Client
	Model    string
	Renderer Renderer
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// AnalysisResult is the outcome of a successful analysis
type AnalysisResult struct {
	Report   string   `json:"analysis_report"`
	Keywords []string `json:"missing_keywords"`
}

// Result is the outcome of a successful enhancement
type Result struct {
	EnhancedResume string `json:"enhanced_resume"`
	HTMLPath       string `json:"html_path"`
	PDFPath        string `json:"pdf_path"`
	HTML           string `json:"-"`
	PDF            []byte `json:"-"`
}

// Session is one user's analysis cycle. Analyze and Enhance are serialized;
// reads never wait for an in-flight model call.
type Session struct {
	ID string

	deps Dependencies
	op   sync.Mutex

	mu             sync.Mutex
	state          State
	resumeText     string
	jobDescription string
	report         string
	keywords       []string
	confirmed      map[string]string
	ready          bool
	result         *Result
	createdAt      time.Time
	lastActive     time.Time
}

// New creates a new idle session
func New(id string, deps Dependencies) *Session {
	deps = deps.withDefaults()
	now := deps.Now()
	return &Session{
		ID:         id,
		deps:       deps,
		state:      StateIdle,
		keywords:   []string{},
		confirmed:  map[string]string{},
		createdAt:  now,
		lastActive: now,
	}
}

// Analyze runs the gap analysis. On success the report, keywords, inputs,
// confirmations, readiness and any enhanced output are replaced together.
// On failure the session is left as it was.
func (s *Session) Analyze(ctx context.Context, resumeText, jobDescription string, onProgress ProgressCallback) (*AnalysisResult, error) {
	if resumeText == "" || jobDescription == "" {
		return nil, ErrMissingInput
	}
	if !s.op.TryLock() {
		return nil, ErrBusy
	}
	defer s.op.Unlock()
	s.touch()

	log := s.deps.Logger.With(zap.String("session_id", s.ID), zap.String("action", "analyze"))

	emit(onProgress, StepBuildPrompt, "Building analysis prompt", 10)
	prompt := analysis.BuildAnalysisPrompt(resumeText, jobDescription)

	emit(onProgress, StepGenerate, "Analyzing resume against job description", 30)
	start := s.deps.Now()
	report, err := s.deps.Client.Complete(ctx, prompt, s.deps.Model)
	if err != nil {
		log.Warn("analysis request failed", zap.Error(err))
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	log.Debug("analysis received",
		zap.Int("report_chars", len(report)),
		zap.Duration("elapsed", s.deps.Now().Sub(start)))

	emit(onProgress, StepParse, "Extracting missing keywords", 90)
	keywords := analysis.ExtractMissingKeywords(report)

	s.mu.Lock()
	s.state = StateAnalyzed
	s.resumeText = resumeText
	s.jobDescription = jobDescription
	s.report = report
	s.keywords = keywords
	s.confirmed = map[string]string{}
	s.ready = false
	s.result = nil
	s.lastActive = s.deps.Now()
	s.mu.Unlock()

	log.Info("analysis complete", zap.Int("missing_keywords", len(keywords)))
	emit(onProgress, StepComplete, fmt.Sprintf("Found %d missing keywords", len(keywords)), 100)

	return &AnalysisResult{Report: report, Keywords: slices.Clone(keywords)}, nil
}

// Answer records whether the user has experience with keyword. A yes with a
// non-blank description stores the trimmed description; anything else
// removes a previous answer.
func (s *Session) Answer(keyword string, hasExperience bool, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return &StateError{Action: "answer", State: s.state, Reason: "no analysis has been run"}
	}
	if !slices.Contains(s.keywords, keyword) {
		return &UnknownKeywordError{Keyword: keyword}
	}

	description = strings.TrimSpace(description)
	if hasExperience && description != "" {
		s.confirmed[keyword] = description
	} else {
		delete(s.confirmed, keyword)
	}
	s.lastActive = s.deps.Now()
	return nil
}

// Confirm marks the session ready to enhance. Zero confirmed keywords is valid.
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return &StateError{Action: "confirm", State: s.state, Reason: "no analysis has been run"}
	}
	s.ready = true
	if s.state == StateAnalyzed {
		s.state = StateReadyToEnhance
	}
	s.lastActive = s.deps.Now()
	return nil
}

// Enhance rewrites the analyzed resume with the confirmed experience and
// renders it. It may be called again after a successful enhancement. On
// failure the session is left as it was.
func (s *Session) Enhance(ctx context.Context, onProgress ProgressCallback) (*Result, error) {
	if !s.op.TryLock() {
		return nil, ErrBusy
	}
	defer s.op.Unlock()

	s.mu.Lock()
	if !s.ready {
		state := s.state
		s.mu.Unlock()
		return nil, &StateError{Action: "enhance", State: state, Reason: "confirm the keywords first"}
	}
	resumeText := s.resumeText
	keywords := slices.Clone(s.keywords)
	confirmed := maps.Clone(s.confirmed)
	s.lastActive = s.deps.Now()
	s.mu.Unlock()

	log := s.deps.Logger.With(zap.String("session_id", s.ID), zap.String("action", "enhance"))

	emit(onProgress, StepBuildPrompt, "Building enhancement prompt", 20)
	prompt := enhancement.BuildEnhancementPrompt(resumeText, keywords, confirmed)

	emit(onProgress, StepGenerate, "Rewriting resume", 40)
	enhanced, err := s.deps.Client.Complete(ctx, prompt, s.deps.Model)
	if err != nil {
		log.Warn("enhancement request failed", zap.Error(err))
		return nil, fmt.Errorf("enhancement failed: %w", err)
	}

	emit(onProgress, StepRender, "Rendering HTML and PDF", 80)
	out, err := s.deps.Renderer.Render(ctx, enhanced)
	if err != nil {
		log.Error("rendering failed", zap.Error(err))
		return nil, fmt.Errorf("rendering failed: %w", err)
	}

	result := &Result{
		EnhancedResume: enhanced,
		HTMLPath:       out.HTMLPath,
		PDFPath:        out.PDFPath,
		HTML:           out.HTML,
		PDF:            out.PDF,
	}

	s.mu.Lock()
	s.state = StateEnhanced
	s.result = result
	s.lastActive = s.deps.Now()
	s.mu.Unlock()

	log.Info("enhancement complete",
		zap.Int("confirmed_keywords", len(confirmed)),
		zap.Int("pdf_bytes", len(out.PDF)))
	emit(onProgress, StepComplete, "Enhanced resume ready", 100)

	return result, nil
}

// Snapshot is a read-only copy of the session state
type Snapshot struct {
	ID                  string            `json:"session_id"`
	State               State             `json:"state"`
	AnalysisReport      string            `json:"analysis_report"`
	MissingKeywords     []string          `json:"missing_keywords"`
	ConfirmedExperience map[string]string `json:"confirmed_experience"`
	Ready               bool              `json:"ready"`
	EnhancedResume      string            `json:"enhanced_resume,omitempty"`
	HasPDF              bool              `json:"has_pdf"`
	CreatedAt           time.Time         `json:"created_at"`
	LastActive          time.Time         `json:"last_active"`
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:                  s.ID,
		State:               s.state,
		AnalysisReport:      s.report,
		MissingKeywords:     slices.Clone(s.keywords),
		ConfirmedExperience: maps.Clone(s.confirmed),
		Ready:               s.ready,
		CreatedAt:           s.createdAt,
		LastActive:          s.lastActive,
	}
	if s.result != nil {
		snap.EnhancedResume = s.result.EnhancedResume
		snap.HasPDF = len(s.result.PDF) > 0
	}
	return snap
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the last enhancement result, or nil if there is none for
// the current analysis
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// LastActive returns when the session last handled an action
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.deps.Now()
	s.mu.Unlock()
}

func emit(cb ProgressCallback, step, message string, percent int) {
	if cb != nil {
		cb(ProgressEvent{Step: step, Message: message, Percent: percent})
	}
}
