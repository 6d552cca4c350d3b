package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dgallion1/htmlpath/internal/selector"
)

type resolveRequest struct {
	HTML   string `json:"html"`
	Offset *int   `json:"offset"`
	Unit   string `json:"unit"`
}

type batchRequest struct {
	HTML    string `json:"html"`
	Offsets []int  `json:"offsets"`
	Unit    string `json:"unit"`
}

type resolveResult struct {
	Offset      int                    `json:"offset"`
	ByteOffset  int                    `json:"byte_offset"`
	Selector    string                 `json:"selector,omitempty"`
	Segments    []selector.PathSegment `json:"segments"`
	Diagnostics []selector.Diagnostic  `json:"diagnostics,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

type verifyRequest struct {
	HTML     string `json:"html"`
	Selector string `json:"selector"`
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// resolveOne converts offset from unit to bytes and resolves it against idx.
func (s *Server) resolveOne(idx *selector.Index, text string, offset int, unit selector.Unit) (resolveResult, error) {
	res := resolveResult{Offset: offset, ByteOffset: -1, Segments: []selector.PathSegment{}}
	b, err := selector.ByteOffset(text, offset, unit)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.ByteOffset = b

	start := time.Now()
	path, err := idx.Resolve(b)
	s.latency.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.Selector = path.Selector()
	if path.Segments != nil {
		res.Segments = path.Segments
	}
	res.Diagnostics = path.Diagnostics
	for _, d := range path.Diagnostics {
		s.log.Debug("resolve diagnostic", "offset", b, "diagnostic", d.String())
	}
	return res, nil
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Offset == nil {
		jsonError(w, "offset is required", http.StatusBadRequest)
		return
	}
	unit, err := selector.ParseUnit(req.Unit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.resolveOne(selector.NewIndex(req.HTML), req.HTML, *req.Offset, unit)
	if errors.Is(err, selector.ErrOffsetOutOfRange) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Offsets) == 0 {
		jsonError(w, "at least one offset is required", http.StatusBadRequest)
		return
	}
	if len(req.Offsets) > s.cfg.MaxOffsets {
		jsonError(w, fmt.Sprintf("too many offsets (%d > %d)", len(req.Offsets), s.cfg.MaxOffsets), http.StatusRequestEntityTooLarge)
		return
	}
	unit, err := selector.ParseUnit(req.Unit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	idx := selector.NewIndex(req.HTML)
	results := make([]resolveResult, len(req.Offsets))
	sem := make(chan struct{}, s.cfg.MaxConcurrentResolve)
	var wg sync.WaitGroup
	for i, off := range req.Offsets {
		sem <- struct{}{}
		wg.Add(1)
		go func(i, off int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], _ = s.resolveOne(idx, req.HTML, off, unit)
		}(i, off)
	}
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"failed":  failed,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	m, err := s.evaluator.Evaluate(req.HTML, req.Selector)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"match":  m,
		"unique": m.Unique(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
