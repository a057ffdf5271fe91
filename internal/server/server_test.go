package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"baliance.com/gooxml/document"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testReport = "1. Missing Technical/Domain-Specific Keywords:\n- Kubernetes\n- Terraform\n2. Actionable Suggestions\n- Quantify impact\n3. ATS Match Score: 62%"

// scriptedClient answers analysis prompts with testReport and enhancement
// prompts with a fixed rewrite, unless err is set.
type scriptedClient struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (c *scriptedClient) Complete(_ context.Context, prompt, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if strings.Contains(prompt, "resume enhancement expert") {
		return "Summary\n- **Kubernetes** operator", nil
	}
	return testReport, nil
}

func (c *scriptedClient) Close() error { return nil }

func (c *scriptedClient) lastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts[len(c.prompts)-1]
}

type stubRenderer struct {
	err error
}

func (r *stubRenderer) Render(_ context.Context, text string) (*rendering.Output, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &rendering.Output{
		HTML:     "<html><body><pre>" + strings.ReplaceAll(text, "*", "") + "</pre></body></html>",
		HTMLPath: rendering.HTMLFilename,
		PDFPath:  rendering.PDFFilename,
		PDF:      []byte("%PDF-1.4 stub"),
	}, nil
}

type testEnv struct {
	server   *Server
	http     *httptest.Server
	client   *scriptedClient
	renderer *stubRenderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := &scriptedClient{}
	renderer := &stubRenderer{}
	store := session.NewStore(session.Dependencies{Client: client, Renderer: renderer})
	s := New(Config{}, store, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: s, http: ts, client: client, renderer: renderer}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.http.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, "application/json", body)
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, session.StateIdle, created.State)
	return created.SessionID
}

func (e *testEnv) analyze(t *testing.T, id string) {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/sessions/"+id+"/analyze", map[string]any{
		"resume_text":     "Jane Doe\nGo engineer",
		"job_description": "Platform engineer with Kubernetes",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decode[map[string]string](t, resp)["error"]
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodOptions, "/sessions", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.do(t, http.MethodGet, "/sessions/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[session.Snapshot](t, resp)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, session.StateIdle, snap.State)

	resp = env.do(t, http.MethodDelete, "/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/sessions/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyze_JSONResumeText(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/analyze", AnalyzeRequest{
		ResumeText:     "Jane Doe",
		JobDescription: "SRE",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[AnalyzeResponse](t, resp)
	assert.Equal(t, session.StateAnalyzed, body.State)
	assert.Equal(t, testReport, body.AnalysisReport)
	assert.Equal(t, []string{"Kubernetes", "Terraform"}, body.MissingKeywords)
	assert.Contains(t, env.client.lastPrompt(), "Jane Doe")
}

func TestAnalyze_JSONManualFields(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/analyze", map[string]any{
		"manual":          map[string]string{"summary": "Led a team", "skills": "Go", "experience": "5 years"},
		"job_description": "SRE",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, env.client.lastPrompt(), "Professional Summary:\nLed a team\n\nSkills:\nGo\n\nExperience:\n5 years")
}

func TestAnalyze_JSONValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	tests := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{"missing job description", map[string]any{"resume_text": "r"}, http.StatusBadRequest},
		{"missing resume", map[string]any{"job_description": "j"}, http.StatusBadRequest},
		{"both resume sources", map[string]any{"resume_text": "r", "manual": map[string]string{"skills": "Go"}, "job_description": "j"}, http.StatusBadRequest},
		{"empty job description", map[string]any{"resume_text": "r", "job_description": ""}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/analyze", tt.payload)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	assert.Empty(t, env.client.prompts)
}

func TestAnalyze_BlankInputsAreAnalyzed(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/analyze", map[string]any{
		"manual":          map[string]string{"summary": "", "skills": "  ", "experience": ""},
		"job_description": "   ",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, env.client.lastPrompt(), "Professional Summary:\n\n\nSkills:\n  \n\nExperience:\n")

	contentType, body := multipartBody(t, "", nil, map[string]string{
		"summary":         "",
		"job_description": "SRE",
	})
	resp = env.do(t, http.MethodPost, "/sessions/"+id+"/analyze", contentType, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, env.client.lastPrompt(), "Professional Summary:\n\n\nSkills:\n\n\nExperience:\n")
}

func TestAnalyze_MultipartWithoutResume(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	contentType, body := multipartBody(t, "", nil, map[string]string{"job_description": "SRE"})
	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/analyze", contentType, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.client.prompts)
}

func TestAnalyze_UnsupportedContentType(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/analyze", "text/plain", strings.NewReader("resume"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("resume", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), &buf
}

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	doc := document.New()
	for _, p := range paragraphs {
		doc.AddParagraph().AddRun().AddText(p)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Save(&buf))
	return buf.Bytes()
}

func TestAnalyze_MultipartDOCX(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	ct, body := multipartBody(t, "resume.docx", docxBytes(t, "Jane Doe", "", "Kafka pipelines"),
		map[string]string{"job_description": "Data engineer"})
	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/analyze", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	prompt := env.client.lastPrompt()
	assert.Contains(t, prompt, "Jane Doe\nKafka pipelines")
	assert.Contains(t, prompt, "Data engineer")
}

func TestAnalyze_MultipartErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	tests := []struct {
		name     string
		filename string
		data     []byte
		fields   map[string]string
		status   int
	}{
		{"unsupported extension", "resume.txt", []byte("plain"), map[string]string{"job_description": "j"}, http.StatusUnsupportedMediaType},
		{"corrupt pdf", "resume.pdf", []byte("not a pdf"), map[string]string{"job_description": "j"}, http.StatusBadRequest},
		{"no resume at all", "", nil, map[string]string{"job_description": "j"}, http.StatusBadRequest},
		{"no job description", "", nil, map[string]string{"resume_text": "r"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, body := multipartBody(t, tt.filename, tt.data, tt.fields)
			resp := env.do(t, http.MethodPost, "/sessions/"+id+"/analyze", ct, body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	assert.Empty(t, env.client.prompts)
}

func TestAnalyze_MultipartManualFields(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	ct, body := multipartBody(t, "", nil, map[string]string{
		"summary":         "Builder",
		"skills":          "Go",
		"experience":      "Acme",
		"job_description": "j",
	})
	resp := env.do(t, http.MethodPost, "/sessions/"+id+"/analyze", ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, env.client.lastPrompt(), "Professional Summary:\nBuilder")
}

func TestAnalyze_UploadTooLarge(t *testing.T) {
	client := &scriptedClient{}
	store := session.NewStore(session.Dependencies{Client: client, Renderer: &stubRenderer{}})
	s := New(Config{MaxUploadBytes: 1024}, store, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	id := store.Create().ID
	ct, body := multipartBody(t, "resume.pdf", bytes.Repeat([]byte("x"), 4096), map[string]string{"job_description": "j"})

	resp, err := ts.Client().Post(ts.URL+"/sessions/"+id+"/analyze", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAnalyze_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodPost, "/sessions/nope/analyze", AnalyzeRequest{ResumeText: "r", JobDescription: "j"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.client.err = &llm.APIError{Provider: "mistral", StatusCode: 500, Message: "request rejected"}

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/analyze", AnalyzeRequest{ResumeText: "r", JobDescription: "j"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), "mistral API error")
}

func TestAnswer(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	yes := true

	resp := env.doJSON(t, http.MethodPut, "/sessions/"+id+"/answers", AnswerRequest{Keyword: "Kubernetes", HasExperience: &yes, Description: "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	env.analyze(t, id)

	resp = env.doJSON(t, http.MethodPut, "/sessions/"+id+"/answers", AnswerRequest{Keyword: "Kubernetes", HasExperience: &yes, Description: " Ran a 20-node cluster "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[session.Snapshot](t, resp)
	assert.Equal(t, map[string]string{"Kubernetes": "Ran a 20-node cluster"}, snap.ConfirmedExperience)

	resp = env.doJSON(t, http.MethodPut, "/sessions/"+id+"/answers", AnswerRequest{Keyword: "Rust", HasExperience: &yes, Description: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), `"Rust"`)

	resp = env.doJSON(t, http.MethodPut, "/sessions/"+id+"/answers", map[string]any{"keyword": "Kubernetes"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), "HasExperience")

	no := false
	resp = env.doJSON(t, http.MethodPut, "/sessions/"+id+"/answers", AnswerRequest{Keyword: "Kubernetes", HasExperience: &no})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[session.Snapshot](t, resp).ConfirmedExperience)
}

func TestEnhanceFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	env.analyze(t, id)

	resp = env.doJSON(t, http.MethodPost, "/sessions/"+id+"/enhance", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	yes := true
	resp = env.doJSON(t, http.MethodPut, "/sessions/"+id+"/answers", AnswerRequest{Keyword: "Kubernetes", HasExperience: &yes, Description: "Ran a 20-node cluster"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/sessions/"+id+"/download", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, "/sessions/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateReadyToEnhance, decode[session.Snapshot](t, resp).State)

	resp = env.doJSON(t, http.MethodPost, "/sessions/"+id+"/enhance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	enhanced := decode[EnhanceResponse](t, resp)
	assert.Equal(t, session.StateEnhanced, enhanced.State)
	assert.Equal(t, "Summary\n- **Kubernetes** operator", enhanced.EnhancedResume)
	assert.Equal(t, "/sessions/"+id+"/download", enhanced.DownloadURL)
	assert.Contains(t, env.client.lastPrompt(), "- **Kubernetes**: Ran a 20-node cluster")

	resp = env.do(t, http.MethodGet, "/sessions/"+id+"/download", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "enhanced_resume.pdf", params["filename"])
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 stub"), pdf)

	resp = env.do(t, http.MethodGet, "/sessions/"+id+"/preview", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(html), "- Kubernetes operator")

	// A new analysis discards the previous enhancement.
	env.analyze(t, id)
	resp = env.do(t, http.MethodGet, "/sessions/"+id+"/download", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/sessions/"+id, "", nil)
	snap := decode[session.Snapshot](t, resp)
	assert.Empty(t, snap.ConfirmedExperience)
	assert.False(t, snap.Ready)
}

func TestEnhance_RenderFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.analyze(t, id)
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPost, "/sessions/"+id+"/confirm", nil).StatusCode)

	env.renderer.err = &rendering.RenderError{Message: "wkhtmltopdf not found"}
	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/enhance", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), "wkhtmltopdf not found")
}

func readSSE(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestEnhanceStream(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.analyze(t, id)
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPost, "/sessions/"+id+"/confirm", nil).StatusCode)

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/enhance/stream", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := readSSE(t, resp)
	assert.Contains(t, stream, "event: progress\n")
	assert.Contains(t, stream, `"step":"render"`)
	assert.Contains(t, stream, "event: result\n")
	assert.Contains(t, stream, "event: complete\n")
	assert.Contains(t, stream, `"state":"enhanced"`)
	assert.Less(t, strings.Index(stream, "event: progress"), strings.Index(stream, "event: result"))
}

func TestEnhanceStream_Error(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.analyze(t, id)

	resp := env.doJSON(t, http.MethodPost, "/sessions/"+id+"/enhance/stream", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stream := readSSE(t, resp)
	assert.Contains(t, stream, "event: error\n")
	assert.Contains(t, stream, `"status":409`)
	assert.NotContains(t, stream, "event: complete")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", &ErrValidation{Field: "keyword", Message: "required"}, http.StatusBadRequest},
		{"missing input", session.ErrMissingInput, http.StatusBadRequest},
		{"unknown keyword", &session.UnknownKeywordError{Keyword: "Go"}, http.StatusBadRequest},
		{"busy", session.ErrBusy, http.StatusConflict},
		{"state", &session.StateError{Action: "enhance", State: session.StateAnalyzed}, http.StatusConflict},
		{"not found", &session.NotFoundError{ID: "x"}, http.StatusNotFound},
		{"no artifact", &ErrNoArtifact{SessionID: "x"}, http.StatusNotFound},
		{"api error wrapped", errors.Join(errors.New("analysis failed"), &llm.APIError{Provider: "mistral"}), http.StatusBadGateway},
		{"render", &rendering.RenderError{Message: "engine missing"}, http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"model call timed out", fmt.Errorf("analysis failed: %w", &llm.APIError{Provider: "mistral", Message: "request failed", Cause: context.DeadlineExceeded}), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "keyword", Message: "required"}
	assert.Equal(t, "validation error: keyword - required", err.Error())
}
