package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WhiteShieldPT/docsearch-pt/internal/ingest"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
)

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove index entries whose files no longer exist",
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

			total, removed, err := ingest.Cleanup(cmd.Context(), st, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Scanned %d documents, removed %d orphan(s).\n", total, removed)
			return nil
		},
	}
}
