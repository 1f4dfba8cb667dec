// Package ui renders ingestion progress in the terminal: a live TUI on
// interactive terminals, plain line output for pipes and CI.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Progress is one ingestion progress update.
type Progress struct {
	Total       int
	Indexed     int
	Skipped     int
	Failed      int
	CurrentFile string
}

// Done returns the number of files handled so far.
func (p Progress) Done() int {
	return p.Indexed + p.Skipped + p.Failed
}

// Summary is the final run result.
type Summary struct {
	Total    int
	Indexed  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Renderer displays one ingestion run.
type Renderer interface {
	Start(ctx context.Context) error
	Update(p Progress)
	Complete(s Summary)
	Stop() error
}

// Config configures the renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool

	// Folder is shown in the header.
	Folder string

	// OnCancel runs when the user quits the TUI mid-run. The TUI puts
	// the terminal in raw mode, so ctrl-c arrives as a key event and
	// never raises SIGINT; this callback is how the run context gets
	// cancelled. Optional.
	OnCancel func()
}

// NewRenderer picks a renderer for the environment: TUI on interactive
// terminals, plain output otherwise.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether we are running under a CI system.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
