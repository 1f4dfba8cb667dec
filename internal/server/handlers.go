package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/WhiteShieldPT/docsearch-pt/internal/export"
	"github.com/WhiteShieldPT/docsearch-pt/internal/history"
	"github.com/WhiteShieldPT/docsearch-pt/internal/ingest"
	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
	"github.com/WhiteShieldPT/docsearch-pt/internal/task"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 200 << 20

type searchHit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Fields   map[string]any `json:"fields"`
	Fragment string         `json:"fragment,omitempty"`
}

type searchResponse struct {
	Total   uint64      `json:"total"`
	Hits    []searchHit `json:"hits"`
	TookMS  int64       `json:"took_ms"`
	Message string      `json:"message,omitempty"`
}

func (s *Server) searchParams(r *http.Request) (query.Plan, int) {
	q := r.URL.Query()

	var filters query.Filters
	filters.Text = strings.TrimSpace(q.Get("q"))
	filters.TaxID = strings.TrimSpace(q.Get("nif"))
	filters.DateFrom = strings.TrimSpace(q.Get("date_from"))
	filters.DateTo = strings.TrimSpace(q.Get("date_to"))
	if v, err := strconv.ParseFloat(q.Get("min_total"), 64); err == nil {
		filters.MinTotal = &v
	}
	if v, err := strconv.ParseFloat(q.Get("max_total"), 64); err == nil {
		filters.MaxTotal = &v
	}

	opts := query.Options{
		Mode:      query.ModeFuzzy,
		Folder:    s.cfg.NormalizeFolder(q.Get("folder")),
		ForceText: q.Get("force_text") == "1",
	}
	if q.Get("exact") == "1" {
		opts.Mode = query.ModeExact
	}

	cls := s.classifier.Classify(q.Get("universal"))
	plan := query.BuildPlan(cls, filters, opts)

	size := s.cfg.Search.MaxResults
	if v, err := strconv.Atoi(q.Get("size")); err == nil && v > 0 && v < size {
		size = v
	}
	return plan, size
}

// handleSearch answers queries. Index failures degrade to an empty
// result set with a message rather than an error status, so the UI
// stays usable while the index recovers.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	plan, size := s.searchParams(r)

	res, err := s.store.Search(r.Context(), plan, size)
	if err != nil {
		s.logger.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, searchResponse{
			Hits:    []searchHit{},
			Message: "search is temporarily unavailable",
		})
		return
	}

	out := searchResponse{
		Total:  res.Total,
		Hits:   make([]searchHit, 0, len(res.Hits)),
		TookMS: res.Took.Milliseconds(),
	}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, searchHit{
			ID:       h.ID,
			Score:    h.Score,
			Fields:   h.Fields,
			Fragment: h.Fragment,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExport runs the same query as handleSearch and streams the
// hits as a spreadsheet download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	plan, size := s.searchParams(r)

	res, err := s.store.Search(r.Context(), plan, size)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search is temporarily unavailable"})
		return
	}

	data, err := export.ResultsXLSX(res.Hits, s.logger)
	if err != nil {
		s.logger.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(time.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

type ingestRequest struct {
	Folder  string `json:"folder"`
	NewOnly bool   `json:"new_only"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if r.Body != nil {
		_ = decodeJSON(r.Body, &req)
	}
	dir := s.cfg.NormalizeFolder(req.Folder)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("folder %q does not exist", dir),
		})
		return
	}

	id := s.StartRun(dir, req.NewOnly)
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	snap, ok := s.tasks.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "task_id": id})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleProgressMissing keeps the bare /api/progress path answering
// the not_found shape instead of a router 404.
func (s *Server) handleProgressMissing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskID")
	if !s.tasks.Cancel(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "task_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(task.StateCancelled), "task_id": id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count()
	status := "ok"
	if err != nil {
		status = "degraded"
	}
	// Local file count lets the UI show how far behind the index is.
	local, err := ingest.NewRunner(s.cfg, s.store, s.extractor, nil, s.logger).
		Count(s.cfg.Paths.DefaultFolder)
	if err != nil {
		local = -1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"documents":      count,
		"local_files":    local,
		"default_folder": s.cfg.Paths.DefaultFolder,
		"active_tasks":   s.tasks.Active(),
	})
}

// handleView streams the original file for one indexed document. The
// path comes from the index, never from the client, and must still sit
// under the configured folder.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "docID")
	hit, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "index unavailable"})
		return
	}
	if hit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}
	path, _ := hit.Fields[query.FieldPath].(string)
	root := filepath.Clean(s.cfg.Paths.DefaultFolder) + string(filepath.Separator)
	if path == "" || !strings.HasPrefix(filepath.Clean(path), root) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file outside the document folder"})
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file no longer exists"})
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	total, removed, err := ingest.Cleanup(r.Context(), s.store, s.logger)
	if err != nil {
		s.logger.Error("cleanup failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"scanned": total, "removed": removed})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"folders": subfolders(s.cfg.Paths.DefaultFolder),
	})
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	s.settingsMu.Lock()
	folder := s.cfg.Paths.DefaultFolder
	s.settingsMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"default_folder": folder})
}

type folderRequest struct {
	Folder string `json:"folder"`
}

// handleSetFolder changes the default folder and persists it so the
// choice survives restarts.
func (s *Server) handleSetFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := decodeJSON(r.Body, &req); err != nil || strings.TrimSpace(req.Folder) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "folder is required"})
		return
	}
	folder := filepath.Clean(strings.TrimSpace(req.Folder))
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("folder %q does not exist", folder),
		})
		return
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.cfg.Paths.DefaultFolder = folder
	if s.cfgPath != "" {
		if err := s.cfg.Save(s.cfgPath); err != nil {
			s.logger.Warn("failed to persist settings", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"default_folder": folder})
}

// handleUpload stores the posted files under the target folder and
// kicks off a new-only ingestion run covering them.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart request"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	dir := s.cfg.NormalizeFolder(r.FormValue("folder"))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("folder %q does not exist", dir),
		})
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no files in request"})
		return
	}

	var saved, rejected []string
	for _, fh := range files {
		name := safeUploadName(fh.Filename)
		if name == "" || !s.cfg.Supported(name) {
			rejected = append(rejected, fh.Filename)
			continue
		}
		if err := saveUpload(fh, filepath.Join(dir, name)); err != nil {
			s.logger.Warn("failed to save upload",
				slog.String("file", fh.Filename), slog.String("error", err.Error()))
			rejected = append(rejected, fh.Filename)
			continue
		}
		saved = append(saved, name)
	}

	resp := map[string]any{"saved": saved, "rejected": rejected}
	if len(saved) > 0 {
		resp["task_id"] = s.StartRun(dir, true)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []any{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// safeUploadName strips any path component from a client-supplied
// filename, caps its length, and adds a random suffix so concurrent
// uploads of the same name never clobber each other.
func safeUploadName(raw string) string {
	// Browsers on Windows may send backslash paths.
	base := filepath.Base(strings.ReplaceAll(raw, `\`, "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		return ""
	}
	runes := []rune(stem)
	if len(runes) > 80 {
		stem = string(runes[:80])
	}
	return fmt.Sprintf("%s__%s%s", stem, uuid.NewString()[:8], strings.ToLower(ext))
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
