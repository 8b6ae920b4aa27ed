package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ProgressReporter reports progress over a batch of item files.
type ProgressReporter interface {
	Start(total int)
	Done(name string, err error)
	Finish()
}

// SimpleProgress draws a one-line bar followed by a pass/fail summary.
type SimpleProgress struct {
	mu      sync.Mutex
	writer  io.Writer
	total   int
	done    int
	failed  []string
	barSize int
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) *SimpleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{writer: w, barSize: 30}
}

// Start resets the reporter for total files.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.failed = nil
	p.render("")
}

// Done records one finished file. A non-nil err marks it failed.
func (p *SimpleProgress) Done(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if err != nil {
		p.failed = append(p.failed, name)
	}
	p.render(name)
}

// Finish ends the bar and prints the summary.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return
	}
	fmt.Fprintln(p.writer)
	fmt.Fprintf(p.writer, "%d/%d items compiled", p.done-len(p.failed), p.total)
	if len(p.failed) > 0 {
		fmt.Fprintf(p.writer, ", failed: %s", strings.Join(p.failed, ", "))
	}
	fmt.Fprintln(p.writer)
}

// Failed returns the names of the files reported with an error.
func (p *SimpleProgress) Failed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.failed...)
}

func (p *SimpleProgress) render(current string) {
	if p.total == 0 {
		return
	}
	filled := p.barSize * p.done / p.total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", p.barSize-filled)
	fmt.Fprintf(p.writer, "\r[%s] %d/%d %s", bar, p.done, p.total, current)
}
