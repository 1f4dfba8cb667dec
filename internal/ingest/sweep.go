package ingest

import (
	"context"
	"log/slog"
	"os"
)

// SweepStore is the index slice the orphan sweep needs.
type SweepStore interface {
	WalkPaths(ctx context.Context, fn func(id, path string) error) error
	Delete(ctx context.Context, id string) error
}

// Cleanup removes index documents whose file no longer exists on
// disk. Per-document delete failures are logged and the sweep
// continues. Returns how many documents were visited and removed.
func Cleanup(ctx context.Context, st SweepStore, logger *slog.Logger) (total, removed int, err error) {
	var orphans []string
	err = st.WalkPaths(ctx, func(id, path string) error {
		total++
		if path == "" {
			orphans = append(orphans, id)
			return nil
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			orphans = append(orphans, id)
		}
		return nil
	})
	if err != nil {
		return total, 0, err
	}

	for _, id := range orphans {
		if delErr := st.Delete(ctx, id); delErr != nil {
			logger.Warn("failed to delete orphan document",
				slog.String("id", id),
				slog.String("error", delErr.Error()))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("orphan sweep finished",
			slog.Int("visited", total),
			slog.Int("removed", removed))
	}
	return total, removed, nil
}
