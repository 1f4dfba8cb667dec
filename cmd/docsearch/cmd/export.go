package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/WhiteShieldPT/docsearch-pt/internal/export"
	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
)

func newExportCmd() *cobra.Command {
	var folder string
	var out string
	var size int

	cmd := &cobra.Command{
		Use:   "export [query]",
		Short: "Export search results to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogging(cfg)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.IndexPath(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			cls := query.NewClassifier(0).Classify(strings.Join(args, " "))
			plan := query.BuildPlan(cls, query.Filters{}, query.Options{
				Mode:   query.ModeFuzzy,
				Folder: cfg.NormalizeFolder(folder),
			})

			if size <= 0 || size > cfg.Search.MaxResults {
				size = cfg.Search.MaxResults
			}
			res, err := st.Search(cmd.Context(), plan, size)
			if err != nil {
				return err
			}

			data, err := export.ResultsXLSX(res.Hits, logger)
			if err != nil {
				return err
			}

			if out == "" {
				out = export.Filename(time.Now())
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Wrote %d document(s) to %s\n", len(res.Hits), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Restrict to a folder")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: documentos_<timestamp>.xlsx)")
	cmd.Flags().IntVar(&size, "size", 0, "Maximum number of results")
	return cmd
}
