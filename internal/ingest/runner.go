// Package ingest drives one ingestion run: walk a directory tree,
// extract text from each supported file, derive entities, and upsert
// the resulting record. Runs are sequential per directory; progress is
// reported one line per completed file on the output stream.
package ingest

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/WhiteShieldPT/docsearch-pt/internal/config"
	"github.com/WhiteShieldPT/docsearch-pt/internal/entity"
	docerr "github.com/WhiteShieldPT/docsearch-pt/internal/errors"
	"github.com/WhiteShieldPT/docsearch-pt/internal/extract"
	"github.com/WhiteShieldPT/docsearch-pt/internal/record"
	"github.com/WhiteShieldPT/docsearch-pt/internal/task"
)

// Store is the slice of the index the runner needs.
type Store interface {
	Upsert(ctx context.Context, rec record.IndexRecord) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Extractor produces text for one file. Extraction failures degrade
// inside the extractor; it never returns an error.
type Extractor interface {
	Extract(ctx context.Context, path string) extract.Result
}

// Options control one run.
type Options struct {
	// Dir is the target directory. Missing or not a directory is the
	// only run-fatal condition.
	Dir string

	// NewOnly skips files whose id is already indexed.
	NewOnly bool

	// OnTotal is called once with the file count before processing
	// starts. Optional.
	OnTotal func(total int)
}

// Summary are the totals for one finished run.
type Summary struct {
	Total    int
	Indexed  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Runner executes ingestion runs against one store.
type Runner struct {
	cfg       *config.Config
	store     Store
	extractor Extractor
	out       io.Writer
	logger    *slog.Logger
}

// NewRunner wires a runner. Progress lines go to out; pass the task
// line monitor there to feed a progress table.
func NewRunner(cfg *config.Config, store Store, extractor Extractor, out io.Writer, logger *slog.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{cfg: cfg, store: store, extractor: extractor, out: out, logger: logger}
}

// Run ingests opts.Dir. Cancellation is honored between documents,
// never mid-document; the summary covers everything processed up to
// the stop. Per-file failures are counted and reported, not fatal.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	info, err := os.Stat(opts.Dir)
	if err != nil || !info.IsDir() {
		return nil, docerr.New(docerr.ErrCodeFolderNotFound,
			fmt.Sprintf("target directory %q does not exist", opts.Dir), err).
			WithDetail("dir", opts.Dir)
	}

	files, err := r.collect(opts.Dir)
	if err != nil {
		return nil, err
	}
	if opts.OnTotal != nil {
		opts.OnTotal(len(files))
	}
	r.logger.Info("ingestion started",
		slog.String("dir", opts.Dir),
		slog.Int("files", len(files)),
		slog.Bool("new_only", opts.NewOnly))

	sum := &Summary{Total: len(files)}
	for _, path := range files {
		// Cooperative cancellation at the document boundary.
		if ctx.Err() != nil {
			sum.Duration = time.Since(start)
			r.logger.Info("ingestion cancelled",
				slog.String("dir", opts.Dir),
				slog.Int("indexed", sum.Indexed))
			return sum, ctx.Err()
		}
		if err := r.ingestFile(ctx, path, opts.NewOnly, sum); err != nil {
			sum.Duration = time.Since(start)
			r.logger.Error("ingestion aborted",
				slog.String("dir", opts.Dir),
				slog.String("error", err.Error()))
			return sum, err
		}
	}

	sum.Duration = time.Since(start)
	r.logger.Info("ingestion finished",
		slog.String("dir", opts.Dir),
		slog.Int("indexed", sum.Indexed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Duration("took", sum.Duration))
	return sum, nil
}

// collect walks the tree and returns supported files in stable order.
// Walk errors on single entries are logged and skipped.
func (r *Runner) collect(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Warn("walk error, skipping entry",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if r.cfg.Supported(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, docerr.New(docerr.ErrCodeFolderNotFound,
			fmt.Sprintf("cannot walk %q", dir), err)
	}
	sort.Strings(files)
	return files, nil
}

// ingestFile processes one document. Failures count against the
// summary and the run continues, except for fatal store errors, which
// are returned to abort the run.
func (r *Runner) ingestFile(ctx context.Context, path string, newOnly bool, sum *Summary) error {
	base := filepath.Base(path)

	if newOnly {
		exists, err := r.store.Exists(ctx, record.DocID(path))
		if err != nil {
			r.logger.Warn("existence check failed, ingesting anyway",
				slog.String("file", base),
				slog.String("error", err.Error()))
		} else if exists {
			sum.Skipped++
			fmt.Fprintf(r.out, "%s (already indexed): %s\n", task.LineSkipped, base)
			return nil
		}
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	res := r.extractor.Extract(ctx, path)
	bag := entity.Extract(res.Text)
	rec := record.Build(path, size, res, bag, time.Now())

	if err := r.store.Upsert(ctx, rec); err != nil {
		sum.Failed++
		r.logger.Error("failed to persist document",
			slog.String("file", base),
			slog.String("code", docerr.GetCode(err)),
			slog.String("error", err.Error()))
		fmt.Fprintf(r.out, "%s %s\n", task.LineFailed, base)
		if docerr.IsFatal(err) {
			return fmt.Errorf("persist %s: %w", base, err)
		}
		return nil
	}

	sum.Indexed++
	fmt.Fprintf(r.out, "%s %s\n", task.LineIndexed, base)
	return nil
}

// Count returns how many supported files live under dir, for progress
// totals before a run starts.
func (r *Runner) Count(dir string) (int, error) {
	files, err := r.collect(dir)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
