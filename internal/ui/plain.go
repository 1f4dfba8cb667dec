package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per progress update. Suitable for
// pipes, CI, and logs.
type PlainRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

func (r *PlainRenderer) Update(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := p.Done()
	if done == r.last {
		return
	}
	r.last = done

	if p.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "[%d/%d] indexed=%d skipped=%d failed=%d %s\n",
			done, p.Total, p.Indexed, p.Skipped, p.Failed, p.CurrentFile)
		return
	}
	_, _ = fmt.Fprintf(r.out, "[%d] %s\n", done, p.CurrentFile)
}

func (r *PlainRenderer) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Done: %d indexed, %d skipped, %d failed of %d files in %s\n",
		s.Indexed, s.Skipped, s.Failed, s.Total, s.Duration.Round(100*time.Millisecond))
}

func (r *PlainRenderer) Stop() error {
	return nil
}

var _ Renderer = (*PlainRenderer)(nil)
