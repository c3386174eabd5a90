// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeassist/internal/assets"
	"github.com/pdiddy/citeassist/internal/bibtex"
	"github.com/pdiddy/citeassist/internal/compose"
	"github.com/pdiddy/citeassist/internal/fallback"
	"github.com/pdiddy/citeassist/internal/pdf/pdftest"
	"github.com/pdiddy/citeassist/internal/render"
	"github.com/pdiddy/citeassist/internal/sheet"
	"github.com/pdiddy/citeassist/internal/verify"
	"github.com/pdiddy/citeassist/pkg/types"
)

// fakeBackend implements render.Backend.
type fakeBackend struct {
	render func(source []byte) ([]byte, error)
	calls  atomic.Int32
	last   atomic.Value
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Render(_ context.Context, source []byte) ([]byte, *types.RenderJob, error) {
	f.calls.Add(1)
	f.last.Store(string(source))
	job := types.NewRenderJob("fake", source)
	job.JobID = "job-42"
	job.Attempts = 3
	data, err := f.render(source)
	if err != nil {
		job.Finish(types.RenderFailed)
		return nil, job, err
	}
	job.Finish(types.RenderReady)
	return data, job, nil
}

func pdfBytes(t *testing.T, pages int) []byte {
	t.Helper()
	return pdftest.Pages(t, pages)
}

func newServer(t *testing.T, backend *fakeBackend, cfg types.ServerConfig) *Server {
	t.Helper()
	comp, err := compose.New(assets.Button)
	require.NoError(t, err)
	producer := sheet.NewProducer(backend, fallback.New(nil), comp)
	return New(cfg, backend, producer, nil)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestProcess_RawBody(t *testing.T) {
	want := pdfBytes(t, 1)
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return want, nil }}
	srv := newServer(t, backend, types.ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/latex/process", strings.NewReader(`\documentclass{article}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="document.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, want, rec.Body.Bytes())
	assert.Equal(t, `\documentclass{article}`, backend.last.Load())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProcess_JSONBody(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return pdfBytes(t, 1), nil }}
	srv := newServer(t, backend, types.ServerConfig{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"source member", `{"source":"\\section{A}"}`, `\section{A}`},
		{"no source member", `{"other":1}`, `{"other":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/latex/process", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, backend.last.Load())
		})
	}
}

func TestProcess_EmptySource(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return nil, nil }}
	srv := newServer(t, backend, types.ServerConfig{})

	for _, body := range []string{"", "   \n", `{"source":"  "}`} {
		req := httptest.NewRequest(http.MethodPost, "/latex/process", strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, "LaTeX source code is required", decodeError(t, rec).Error)
	}
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestProcess_RenderErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{render.ErrNoJobID, "Failed to get a job id from the LaTeX service"},
		{render.ErrPollTimeout, "PDF generation timed out"},
		{render.ErrRendererUnavailable, "LaTeX service unavailable"},
		{errors.New("boom"), "Failed to process LaTeX source"},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			backend := &fakeBackend{render: func([]byte) ([]byte, error) { return nil, tc.err }}
			srv := newServer(t, backend, types.ServerConfig{})

			req := httptest.NewRequest(http.MethodPost, "/latex/process", strings.NewReader("x"))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tc.want, decodeError(t, rec).Error)
		})
	}
}

func TestProcess_BodyTooLarge(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return nil, nil }}
	srv := newServer(t, backend, types.ServerConfig{MaxUploadBytes: 8})

	req := httptest.NewRequest(http.MethodPost, "/latex/process", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestProcess_MethodNotAllowed(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, types.ServerConfig{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/latex/process", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTestAPI(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, types.ServerConfig{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/testAPI", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "API is working properly", rec.Body.String())
}

type form struct {
	file    []byte
	fields  string
	related string
	tag     string
}

func annotateReq(t *testing.T, f form) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if f.file != nil {
		fw, err := mw.CreateFormFile("file", "paper.pdf")
		require.NoError(t, err)
		_, err = fw.Write(f.file)
		require.NoError(t, err)
	}
	for name, value := range map[string]string{"fields": f.fields, "related": f.related, "tag": f.tag} {
		if value != "" {
			require.NoError(t, mw.WriteField(name, value))
		}
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/annotate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const fieldsJSON = `{"entryType":"article","referenceKey":"roe2023","title":"On Things","author":"Roe, R.","year":2023}`

func TestAnnotate_Rendered(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return pdfBytes(t, 1), nil }}
	srv := newServer(t, backend, types.ServerConfig{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, annotateReq(t, form{
		file:    pdfBytes(t, 2),
		fields:  fieldsJSON,
		related: `[{"title":"Earlier Things","year":"2019"}]`,
		tag:     "ICSE",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="paper-cited.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "done", rec.Header().Get(HeaderStage))
	assert.Equal(t, "false", rec.Header().Get(HeaderDegraded))

	var fields types.CitationFields
	require.NoError(t, json.Unmarshal([]byte(fieldsJSON), &fields))
	wantText, err := bibtex.Format(fields)
	require.NoError(t, err)
	text, err := base64.StdEncoding.DecodeString(rec.Header().Get(HeaderText))
	require.NoError(t, err)
	assert.Equal(t, wantText, string(text))
	assert.Contains(t, wantText, "year={2023}")

	s, err := verify.Inspect(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, verify.Summary{Pages: 3, Links: 1}, s)
	assert.Contains(t, backend.last.Load(), "Earlier Things")
}

func TestAnnotate_Degraded(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return nil, render.ErrPollTimeout }}
	srv := newServer(t, backend, types.ServerConfig{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, annotateReq(t, form{file: pdfBytes(t, 1), fields: fieldsJSON}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get(HeaderDegraded))
	text, err := verify.PageText(rec.Body.Bytes(), 2)
	require.NoError(t, err)
	assert.Contains(t, text, "Citation for this Paper")
}

func TestAnnotate_BadRequests(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { return pdfBytes(t, 1), nil }}
	srv := newServer(t, backend, types.ServerConfig{})

	tests := []struct {
		name      string
		form      form
		wantCode  int
		wantStage string
	}{
		{"missing file", form{fields: fieldsJSON}, http.StatusBadRequest, ""},
		{"missing fields", form{file: pdfBytes(t, 1)}, http.StatusBadRequest, ""},
		{"fields not an object", form{file: pdfBytes(t, 1), fields: `["a"]`}, http.StatusBadRequest, ""},
		{"related not an array", form{file: pdfBytes(t, 1), fields: fieldsJSON, related: `{"title":"x"}`}, http.StatusBadRequest, ""},
		{"not a pdf", form{file: []byte("hello"), fields: fieldsJSON}, http.StatusBadRequest, ""},
		{"missing entry type", form{file: pdfBytes(t, 1), fields: `{"referenceKey":"k","title":"T"}`}, http.StatusBadRequest, "failed"},
		{"encrypted", form{file: pdftest.Build(t, 1, pdftest.Options{UserPassword: "secret"}), fields: fieldsJSON}, http.StatusUnprocessableEntity, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, annotateReq(t, tc.form))

			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tc.wantStage, body.Stage)
			assert.Equal(t, tc.wantStage, rec.Header().Get(HeaderStage))
		})
	}
}

func TestAnnotate_NotMultipart(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, types.ServerConfig{})
	req := httptest.NewRequest(http.MethodPost, "/annotate", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "paper-cited.pdf", outputName("paper.pdf"))
	assert.Equal(t, "paper-cited.pdf", outputName(`C:\Users\me\paper.pdf`))
	assert.Equal(t, "abc-cited.pdf", outputName(`a"b"c.pdf`))
	assert.Equal(t, "document-cited.pdf", outputName(""))
}

func TestCORS(t *testing.T) {
	t.Run("preflight from any origin", func(t *testing.T) {
		srv := newServer(t, &fakeBackend{}, types.ServerConfig{CORSOrigins: []string{"*"}})
		req := httptest.NewRequest(http.MethodOptions, "/annotate", nil)
		req.Header.Set("Origin", "https://app.example.org")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), HeaderText)
	})

	t.Run("listed origin only", func(t *testing.T) {
		srv := newServer(t, &fakeBackend{}, types.ServerConfig{CORSOrigins: []string{"https://ok.example.org"}})

		req := httptest.NewRequest(http.MethodGet, "/testAPI", nil)
		req.Header.Set("Origin", "https://ok.example.org")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "https://ok.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/testAPI", nil)
		req.Header.Set("Origin", "https://evil.example.org")
		rec = httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRecovery(t *testing.T) {
	backend := &fakeBackend{render: func([]byte) ([]byte, error) { panic("renderer exploded") }}
	srv := newServer(t, backend, types.ServerConfig{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/latex/process", strings.NewReader("x")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An unexpected error occurred", decodeError(t, rec).Error)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := newServer(t, &fakeBackend{}, types.ServerConfig{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/testAPI")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
