package service

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/mdaudit/history"
	"github.com/hazyhaar/mdaudit/safepath"
	"github.com/hazyhaar/mdaudit/scan"
)

// RegisterHTTP registers the service endpoints on a chi router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/api/v1/scan", s.handleScan)
	r.Post("/api/v1/audit", s.handleAudit)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/api/v1/reports/{scanID}", s.handleReport)
}

type scanRequest struct {
	RootPath string `json:"root_path"`
}

func (s *Service) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.Scan(r.Context(), req.RootPath)
	if err != nil {
		writeScanError(w, err)
		return
	}
	if r.Header.Get("Accept") == "text/csv" {
		writeCSV(w, res.Report.Files)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	audit, err := s.AuditLinks(r.Context(), req.RootPath)
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

type searchRequest struct {
	RootPath   string `json:"root_path"`
	Text       string `json:"text"`
	LinkPrefix string `json:"link_prefix"`
	Language   string `json:"language"`
	Untagged   bool   `json:"untagged"`
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := s.Search(r.Context(), req.RootPath, scan.SearchQuery{
		Text:       req.Text,
		LinkPrefix: req.LinkPrefix,
		Language:   req.Language,
		Untagged:   req.Untagged,
	})
	if err != nil {
		writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.History(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": entries})
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Report(r.Context(), chi.URLParam(r, "scanID"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// writeScanError maps pipeline failures onto status codes the UI can
// distinguish: outside the boundary (403), missing directory (404), other
// invalid roots (400).
func writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, safepath.ErrPathTraversal):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, scan.ErrInvalidPath), errors.Is(err, scan.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// writeCSV streams the per-file detail rows as a CSV attachment.
func writeCSV(w http.ResponseWriter, files []scan.FileRecord) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment;filename=report.csv`)

	cw := csv.NewWriter(w)
	cw.Write([]string{
		"relative_path", "title", "size_bytes", "line_count", "word_count",
		"heading_count", "link_count", "image_count", "code_block_count",
		"table_count", "error",
	})
	for _, f := range files {
		cw.Write([]string{
			f.RelativePath,
			f.Title,
			strconv.FormatInt(f.SizeBytes, 10),
			strconv.Itoa(f.LineCount),
			strconv.Itoa(f.WordCount),
			strconv.Itoa(f.HeadingCount),
			strconv.Itoa(f.LinkCount),
			strconv.Itoa(f.ImageCount),
			strconv.Itoa(f.CodeBlockCount),
			strconv.Itoa(f.TableCount),
			f.Error,
		})
	}
	cw.Flush()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
