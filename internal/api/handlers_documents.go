package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/htmlpath/internal/pipeline"
	"github.com/dgallion1/htmlpath/internal/selector"
	"github.com/dgallion1/htmlpath/internal/source"
)

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !source.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	offsets, err := parseOffsets(r.FormValue("offsets"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(offsets) > s.cfg.MaxOffsets {
		jsonError(w, fmt.Sprintf("too many offsets (%d > %d)", len(offsets), s.cfg.MaxOffsets), http.StatusRequestEntityTooLarge)
		return
	}
	unit, err := selector.ParseUnit(r.FormValue("unit"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	docID := r.FormValue("doc_id")
	if docID == "" {
		docID = pipeline.ContentHashHex(data)[:16]
	}

	job := pipeline.NewJob(docID, filename, r.FormValue("title"), data, offsets, unit)
	if err := s.orchestrator.Submit(job); err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrStopped) {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/documents/%s", job.ID),
	})
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleGetAnchors(w http.ResponseWriter, r *http.Request) {
	if s.anchors == nil {
		jsonError(w, "anchor store not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	rec, err := s.anchors.GetAnchors(r.Context(), docID)
	if err != nil {
		s.log.Error("get anchors failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to read anchors: "+err.Error(), http.StatusBadGateway)
		return
	}
	if rec == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteAnchors(w http.ResponseWriter, r *http.Request) {
	if s.anchors == nil {
		jsonError(w, "anchor store not configured", http.StatusServiceUnavailable)
		return
	}
	docID := chi.URLParam(r, "docID")
	if err := s.anchors.DeleteAnchors(r.Context(), docID); err != nil {
		s.log.Error("delete anchors failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to delete anchors: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

// parseOffsets reads a comma-separated offset list. An empty value returns
// nil so the pipeline chooses offsets itself.
func parseOffsets(v string) ([]int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q", p)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
