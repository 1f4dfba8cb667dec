package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
	"github.com/WhiteShieldPT/docsearch-pt/internal/extract"
	"github.com/WhiteShieldPT/docsearch-pt/internal/history"
	"github.com/WhiteShieldPT/docsearch-pt/internal/ingest"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
	"github.com/WhiteShieldPT/docsearch-pt/internal/task"
	"github.com/WhiteShieldPT/docsearch-pt/internal/ui"
)

func newIngestCmd() *cobra.Command {
	var folder string
	var newOnly bool
	var plain bool
	var showHistory bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index documents from a folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogging(cfg)
			if err != nil {
				return err
			}

			if showHistory {
				return printRunHistory(cmd.Context(), cfg.HistoryPath())
			}

			dir := cfg.NormalizeFolder(folder)

			lock := ingest.NewLock(cfg.Paths.DataDir)
			acquired, err := lock.TryAcquire()
			if err != nil {
				return err
			}
			if !acquired {
				return fmt.Errorf("another ingestion run is already in progress")
			}
			defer func() { _ = lock.Release() }()

			st, err := store.Open(cfg.IndexPath(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			orch := extract.NewOrchestrator(cfg.Extraction, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIngest(ctx, cfg, st, orch, logger, dir, newOnly, plain)
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Folder to index (default: configured folder)")
	cmd.Flags().BoolVar(&newOnly, "new-only", false, "Skip files that are already indexed")
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain text output instead of the TUI")
	cmd.Flags().BoolVar(&showHistory, "history", false, "List recent ingestion runs and exit")
	return cmd
}

func printRunHistory(ctx context.Context, path string) error {
	journal, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	runs, err := journal.Recent(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-9s  indexed=%d skipped=%d failed=%d  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status, r.Indexed, r.Skipped, r.Failed, r.Dir)
		if r.Error != "" {
			fmt.Printf("    %s\n", r.Error)
		}
	}
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, st *store.Store, orch *extract.Orchestrator,
	logger *slog.Logger, dir string, newOnly, plain bool) error {

	// The TUI swallows ctrl-c as a key event, so it gets a callback
	// into the run context instead of relying on SIGINT.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := ui.NewRenderer(ui.Config{
		Output:     os.Stdout,
		ForcePlain: plain,
		Folder:     dir,
		OnCancel:   cancel,
	})
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	// Counter callbacks run on the ingestion goroutine, so total needs
	// no synchronization.
	total := 0
	monitor := task.NewLineMonitor(func(indexed, skipped, failed int) {
		renderer.Update(ui.Progress{
			Total:   total,
			Indexed: indexed,
			Skipped: skipped,
			Failed:  failed,
		})
	})

	started := time.Now()
	runner := ingest.NewRunner(cfg, st, orch, monitor, logger)
	sum, err := runner.Run(ctx, ingest.Options{
		Dir:     dir,
		NewOnly: newOnly,
		OnTotal: func(n int) {
			total = n
			renderer.Update(ui.Progress{Total: n})
		},
	})

	recordJournalRun(ctx, cfg, logger, dir, newOnly, sum, started, err)

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Cancelled.")
		return nil
	case err != nil:
		return err
	}

	renderer.Complete(ui.Summary{
		Total:    sum.Total,
		Indexed:  sum.Indexed,
		Skipped:  sum.Skipped,
		Failed:   sum.Failed,
		Duration: sum.Duration,
	})
	return nil
}

func recordJournalRun(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	dir string, newOnly bool, sum *ingest.Summary, started time.Time, runErr error) {

	journal, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Warn("history journal unavailable", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = journal.Close() }()

	status := "completed"
	msg := ""
	switch {
	case errors.Is(runErr, context.Canceled):
		status = "cancelled"
	case runErr != nil:
		status = "error"
		msg = runErr.Error()
	}

	run := history.Run{
		Dir:        dir,
		NewOnly:    newOnly,
		Status:     status,
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

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := journal.Record(recCtx, run); err != nil {
		logger.Warn("failed to record run", slog.String("error", err.Error()))
	}
}
