package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer drives a bubbletea program showing live ingestion
// progress.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *ingestModel
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. Fails when output is not a
// terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a terminal")
	}
	model := newIngestModel(cfg.Folder, cfg.OnCancel)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) Update(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(p))
	}
}

func (r *TUIRenderer) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(s))
	}
}

func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program == nil {
		return nil
	}
	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}

type progressMsg Progress
type completeMsg Summary

type ingestModel struct {
	folder   string
	onCancel func()
	progress Progress
	summary  Summary
	complete bool
	quitting bool
	width    int

	spinner spinner.Model
	bar     progress.Model
	styles  Styles
}

func newIngestModel(folder string, onCancel func()) *ingestModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAmber))

	b := progress.New(
		progress.WithSolidFill(ColorAmber),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &ingestModel{
		folder:   folder,
		onCancel: onCancel,
		spinner:  s,
		bar:      b,
		styles:   DefaultStyles(),
		width:    80,
	}
}

func (m *ingestModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 20
		if m.bar.Width < 20 {
			m.bar.Width = 20
		}

	case progressMsg:
		m.progress = Progress(msg)
		return m, nil

	case completeMsg:
		m.complete = true
		m.summary = Summary(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ingestModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	var lines []string
	title := "docsearch"
	if m.folder != "" {
		title += "  " + m.styles.Label.Render(m.folder)
	}
	lines = append(lines, m.styles.Header.Render(title))

	p := m.progress
	if p.Total == 0 {
		lines = append(lines, fmt.Sprintf("%s %s", m.spinner.View(),
			m.styles.Dim.Render("scanning folder...")))
	} else {
		pct := float64(p.Done()) / float64(p.Total)
		lines = append(lines, fmt.Sprintf("%s  %s",
			m.bar.ViewAs(pct),
			m.styles.Active.Render(fmt.Sprintf("%3.0f%%", pct*100))))
		lines = append(lines, m.renderCounts(p))
	}

	if p.CurrentFile != "" {
		lines = append(lines, m.styles.Dim.Render(truncatePath(p.CurrentFile, width-2)))
	}
	lines = append(lines, m.styles.Dim.Render("q to quit"))

	return strings.Join(lines, "\n") + "\n"
}

func (m *ingestModel) renderCounts(p Progress) string {
	parts := []string{
		m.styles.Success.Render(fmt.Sprintf("%d indexed", p.Indexed)),
		m.styles.Label.Render(fmt.Sprintf("%d skipped", p.Skipped)),
	}
	if p.Failed > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("%d failed", p.Failed)))
	}
	sep := m.styles.Dim.Render("  |  ")
	return strings.Join(parts, sep) +
		m.styles.Label.Render(fmt.Sprintf("   %d / %d files", p.Done(), p.Total))
}

func (m *ingestModel) renderComplete() string {
	s := m.summary
	var lines []string
	lines = append(lines, m.styles.Success.Render("Ingestion complete"))
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Indexed:"), m.styles.Active.Render(fmt.Sprintf("%d", s.Indexed))))
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Skipped:"), m.styles.Active.Render(fmt.Sprintf("%d", s.Skipped))))
	if s.Failed > 0 {
		lines = append(lines, fmt.Sprintf("%s  %s",
			m.styles.Label.Render("Failed:"), m.styles.Error.Render(fmt.Sprintf("%d", s.Failed))))
	}
	lines = append(lines, fmt.Sprintf("%s %s",
		m.styles.Label.Render("Duration:"), m.styles.Active.Render(formatDuration(s.Duration))))

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAmberDim)).
		Padding(1, 2)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		mm := int(d.Minutes())
		ss := int(d.Seconds()) % 60
		if ss == 0 {
			return fmt.Sprintf("%dm", mm)
		}
		return fmt.Sprintf("%dm %ds", mm, ss)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncatePath shortens a path from the left, keeping the filename.
func truncatePath(path string, maxLen int) string {
	if path == "" || len(path) <= maxLen {
		return path
	}
	parts := strings.Split(path, "/")
	filename := parts[len(parts)-1]
	if len(filename)+4 >= maxLen {
		if maxLen < 4 {
			return "..."
		}
		return "..." + filename[len(filename)-maxLen+3:]
	}
	remaining := maxLen - len(filename) - 4
	prefix := strings.Join(parts[:len(parts)-1], "/")
	if len(prefix) <= remaining {
		return path
	}
	return "..." + prefix[len(prefix)-remaining:] + "/" + filename
}

var _ Renderer = (*TUIRenderer)(nil)
