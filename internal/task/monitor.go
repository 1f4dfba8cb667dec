package task

import (
	"bytes"
	"strings"
	"sync"
)

// Progress line prefixes emitted by the ingester, one line per
// completed file. The monitor counts on these literally.
const (
	LineIndexed = "INDEXED:"
	LineSkipped = "SKIP"
	LineFailed  = "FAIL:"
)

// LineMonitor is an io.Writer that parses the ingester's output
// stream and reports one progress unit per indexed or skipped file.
type LineMonitor struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	onEvent func(indexed, skipped, failed int)

	indexed int
	skipped int
	failed  int
}

// NewLineMonitor creates a monitor that invokes onEvent with running
// counters after every progress line.
func NewLineMonitor(onEvent func(indexed, skipped, failed int)) *LineMonitor {
	return &LineMonitor{onEvent: onEvent}
}

// Write consumes a chunk of ingester output. Partial lines are
// buffered until their newline arrives.
func (m *LineMonitor) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf.Write(p)
	for {
		line, err := m.buf.ReadString('\n')
		if err != nil {
			// Not a full line yet; keep the remainder buffered.
			m.buf.WriteString(line)
			break
		}
		m.consume(strings.TrimSpace(line))
	}
	return len(p), nil
}

func (m *LineMonitor) consume(line string) {
	switch {
	case strings.HasPrefix(line, LineIndexed):
		m.indexed++
	case strings.HasPrefix(line, LineSkipped):
		m.skipped++
	case strings.HasPrefix(line, LineFailed):
		m.failed++
	default:
		return
	}
	if m.onEvent != nil {
		m.onEvent(m.indexed, m.skipped, m.failed)
	}
}

// Counts returns the totals seen so far.
func (m *LineMonitor) Counts() (indexed, skipped, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexed, m.skipped, m.failed
}
