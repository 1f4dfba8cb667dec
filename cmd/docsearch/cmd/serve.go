package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WhiteShieldPT/docsearch-pt/internal/extract"
	"github.com/WhiteShieldPT/docsearch-pt/internal/history"
	"github.com/WhiteShieldPT/docsearch-pt/internal/server"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
	"github.com/WhiteShieldPT/docsearch-pt/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var host string
	var port int
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server. When folder watching is enabled, new
files dropped into the document folder are indexed automatically
after a short quiet period.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			st, err := store.Open(cfg.IndexPath(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			journal, err := history.Open(cfg.HistoryPath())
			if err != nil {
				logger.Warn("history journal unavailable", slog.String("error", err.Error()))
				journal = nil
			} else {
				defer func() { _ = journal.Close() }()
			}

			orch := extract.NewOrchestrator(cfg.Extraction, logger)
			srv := server.New(cfg, cfgPath, st, orch, journal, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx)
			})

			if cfg.Watch.Enabled && !noWatch {
				w, err := watcher.New(cfg.Paths.DefaultFolder, cfg.Watch.Debounce,
					cfg.Supported, func(dir string) {
						id := srv.StartRun(dir, true)
						logger.Info("watch triggered ingestion",
							slog.String("dir", dir), slog.String("task_id", id))
					}, logger)
				if err != nil {
					logger.Warn("folder watching disabled", slog.String("error", err.Error()))
				} else {
					g.Go(func() error {
						defer func() { _ = w.Stop() }()
						err := w.Start(gctx)
						if gctx.Err() != nil {
							return nil
						}
						return err
					})
				}
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default: configured host)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: configured port)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable folder watching")
	return cmd
}
