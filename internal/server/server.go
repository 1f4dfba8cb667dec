// Package server exposes the HTTP control surface: search, ingestion
// control with polled progress, maintenance sweeps, uploads, and
// settings. It orchestrates the collaborators; all document logic
// lives in the other packages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
	"github.com/WhiteShieldPT/docsearch-pt/internal/history"
	"github.com/WhiteShieldPT/docsearch-pt/internal/ingest"
	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
	"github.com/WhiteShieldPT/docsearch-pt/internal/task"
)

// Server wires the HTTP API to the ingestion and search machinery.
type Server struct {
	cfg        *config.Config
	cfgPath    string
	store      *store.Store
	extractor  ingest.Extractor
	classifier *query.Classifier
	tasks      *task.Registry
	journal    *history.Journal
	logger     *slog.Logger

	// settingsMu guards default-folder changes and their persistence.
	settingsMu sync.Mutex
}

// New assembles a server. journal may be nil; run history is then
// simply not recorded.
func New(cfg *config.Config, cfgPath string, st *store.Store, extractor ingest.Extractor,
	journal *history.Journal, logger *slog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		cfgPath:    cfgPath,
		store:      st,
		extractor:  extractor,
		classifier: query.NewClassifier(0),
		tasks:      task.NewRegistry(),
		journal:    journal,
		logger:     logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/export", s.handleExport)
		r.Post("/ingest", s.handleIngest)
		r.Get("/progress", s.handleProgressMissing)
		r.Get("/progress/{taskID}", s.handleProgress)
		r.Post("/cancel/{taskID}", s.handleCancel)
		r.Get("/status", s.handleStatus)
		r.Post("/cleanup", s.handleCleanup)
		r.Get("/folders", s.handleFolders)
		r.Get("/view/{docID}", s.handleView)
		r.Get("/settings/folder", s.handleGetFolder)
		r.Post("/settings/folder", s.handleSetFolder)
		r.Post("/upload", s.handleUpload)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// StartRun launches one background ingestion run and returns its task
// id. Progress flows from the runner's output lines into the task
// table; the final state is recorded in the run journal.
func (s *Server) StartRun(dir string, newOnly bool) string {
	id, ctx := s.tasks.Begin(context.Background())

	monitor := task.NewLineMonitor(func(indexed, skipped, failed int) {
		s.tasks.Update(id, func(sn task.Snapshot) task.Snapshot {
			sn.State = task.StateRunning
			sn.Indexed, sn.Skipped, sn.Failed = indexed, skipped, failed
			sn.Current = indexed + skipped + failed
			return sn
		})
	})

	go func() {
		started := time.Now()
		runner := ingest.NewRunner(s.cfg, s.store, s.extractor, monitor, s.logger)
		sum, err := runner.Run(ctx, ingest.Options{
			Dir:     dir,
			NewOnly: newOnly,
			OnTotal: func(total int) {
				s.tasks.Update(id, func(sn task.Snapshot) task.Snapshot {
					sn.State = task.StateRunning
					sn.Total = total
					return sn
				})
			},
		})

		final := task.StateCompleted
		msg := ""
		switch {
		case errors.Is(err, context.Canceled):
			final = task.StateCancelled
		case err != nil:
			final = task.StateError
			msg = err.Error()
		}
		s.tasks.Update(id, func(sn task.Snapshot) task.Snapshot {
			sn.State = final
			sn.Error = msg
			return sn
		})

		s.recordRun(id, dir, newOnly, sum, started, msg)
	}()

	return id
}

func (s *Server) recordRun(id, dir string, newOnly bool, sum *ingest.Summary, started time.Time, msg string) {
	if s.journal == nil {
		return
	}
	snap, _ := s.tasks.Get(id)
	run := history.Run{
		TaskID:     id,
		Dir:        dir,
		NewOnly:    newOnly,
		Status:     string(snap.State),
		Error:      msg,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if sum != nil {
		run.Total = sum.Total
		run.Indexed = sum.Indexed
		run.Skipped = sum.Skipped
		run.Failed = sum.Failed
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record run", slog.String("error", err.Error()))
	}
}

// subfolders lists base plus its directories up to two levels deep,
// skipping hidden entries.
func subfolders(base string) []string {
	var folders []string
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return folders
	}
	folders = append(folders, base)

	level1, err := os.ReadDir(base)
	if err != nil {
		return folders
	}
	for _, e := range level1 {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sub := filepath.Join(base, e.Name())
		folders = append(folders, sub)
		level2, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, e2 := range level2 {
			if e2.IsDir() && !strings.HasPrefix(e2.Name(), ".") {
				folders = append(folders, filepath.Join(sub, e2.Name()))
			}
		}
	}
	return folders
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
