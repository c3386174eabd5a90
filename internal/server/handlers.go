// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/pdiddy/citeassist/internal/compose"
	"github.com/pdiddy/citeassist/internal/pdf"
	"github.com/pdiddy/citeassist/internal/render"
	"github.com/pdiddy/citeassist/internal/sheet"
)

// Response headers set by POST /annotate.
const (
	HeaderStage    = "X-Citation-Stage"
	HeaderDegraded = "X-Citation-Degraded"
	HeaderText     = "X-Citation-Text"
)

var exposedHeaders = strings.Join([]string{HeaderStage, HeaderDegraded, HeaderText, "Content-Disposition"}, ", ")

// handleProcess relays a typesetting source to the renderer and streams the
// finished PDF back. The body is the raw source, or a JSON object with a
// "source" member.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		s.bodyError(w, err)
		return
	}
	source := sourceFrom(r.Header.Get("Content-Type"), body)
	if strings.TrimSpace(source) == "" {
		writeError(w, http.StatusBadRequest, "LaTeX source code is required")
		return
	}

	data, job, err := s.backend.Render(r.Context(), []byte(source))
	if err != nil {
		status, msg := processError(err)
		attrs := []any{slog.String("backend", s.backend.Name()), slog.Any("error", err)}
		if job != nil {
			attrs = append(attrs, slog.String("job_id", job.JobID), slog.Int("attempts", job.Attempts))
		}
		s.logger.Error("relay render failed", attrs...)
		writeError(w, status, msg)
		return
	}

	writePDF(w, "document.pdf", data)
}

// sourceFrom extracts the typesetting source from a request body. A JSON
// object without a string "source" member is passed through as is.
func sourceFrom(contentType string, body []byte) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/json" {
		var req struct {
			Source *string `json:"source"`
		}
		if err := json.Unmarshal(body, &req); err == nil && req.Source != nil {
			return *req.Source
		}
	}
	return string(body)
}

func processError(err error) (int, string) {
	switch {
	case errors.Is(err, render.ErrSourceMissing):
		return http.StatusBadRequest, "LaTeX source code is required"
	case errors.Is(err, render.ErrNoJobID):
		return http.StatusInternalServerError, "Failed to get a job id from the LaTeX service"
	case errors.Is(err, render.ErrPollTimeout):
		return http.StatusInternalServerError, "PDF generation timed out"
	case errors.Is(err, render.ErrRendererUnavailable):
		return http.StatusInternalServerError, "LaTeX service unavailable"
	default:
		return http.StatusInternalServerError, "Failed to process LaTeX source"
	}
}

// handleAnnotate appends a citation sheet to an uploaded PDF.
//
// Form fields: file (the PDF), fields (JSON object of bibliographic
// fields), related (optional JSON array of papers), tag, sheet_url.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		s.bodyError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a PDF file is required in the \"file\" field")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.bodyError(w, err)
		return
	}

	req, err := annotateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := pdf.Parse(data)
	switch {
	case errors.Is(err, pdf.ErrEncrypted):
		writeError(w, http.StatusUnprocessableEntity, "encrypted documents are not supported")
		return
	case err != nil:
		s.logger.Warn("unreadable upload", slog.String("filename", header.Filename), slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "file is not a readable PDF")
		return
	}

	res, err := s.producer.Produce(r.Context(), doc, req)
	if res != nil {
		w.Header().Set(HeaderStage, string(res.Stage))
	}
	if err != nil {
		status := annotateStatus(err)
		stage := ""
		if res != nil {
			stage = string(res.Stage)
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Stage: stage})
		return
	}

	w.Header().Set(HeaderDegraded, strconv.FormatBool(res.Degraded))
	w.Header().Set(HeaderText, base64.StdEncoding.EncodeToString([]byte(res.Text)))
	writePDF(w, outputName(header.Filename), res.Bytes)
}

// annotateRequest reads the sheet request from the parsed multipart form.
func annotateRequest(r *http.Request) (sheet.Request, error) {
	var req sheet.Request

	raw := r.FormValue("fields")
	if strings.TrimSpace(raw) == "" {
		return req, errors.New("citation fields are required in the \"fields\" field")
	}
	if err := json.Unmarshal([]byte(raw), &req.Fields); err != nil {
		return req, err
	}

	if rel := r.FormValue("related"); strings.TrimSpace(rel) != "" {
		if err := json.Unmarshal([]byte(rel), &req.Related); err != nil {
			return req, errors.New("related papers must be a JSON array")
		}
	}
	req.Tag = strings.TrimSpace(r.FormValue("tag"))
	req.SheetURL = strings.TrimSpace(r.FormValue("sheet_url"))
	return req, nil
}

func annotateStatus(err error) int {
	switch {
	case errors.Is(err, render.ErrSourceMissing):
		return http.StatusBadRequest
	case compose.IsCompositionError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, render.ErrNoJobID):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// outputName derives the download name of an annotated upload.
func outputName(upload string) string {
	base := path.Base(strings.ReplaceAll(upload, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "-cited.pdf"
}

func (s *Server) handleTestAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "API is working properly")
}

// bodyError answers a request whose body could not be read.
func (s *Server) bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
		return
	}
	writeError(w, http.StatusBadRequest, "could not read request body")
}

func writePDF(w http.ResponseWriter, filename string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(data))
}
