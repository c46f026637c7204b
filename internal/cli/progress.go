package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// analyzeProgressReporter draws a one-line spinner on a terminal. Update is
// called from worker goroutines.
type analyzeProgressReporter struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	label   string
	start   time.Time
	spinner int
	lastLen int
}

func newAnalyzeProgressReporter(w io.Writer, label string, disabled bool) *analyzeProgressReporter {
	enabled := false
	if f, ok := w.(*os.File); ok && !disabled {
		stat, err := f.Stat()
		enabled = err == nil && (stat.Mode()&os.ModeCharDevice) != 0
	}
	return &analyzeProgressReporter{
		w:       w,
		enabled: enabled,
		label:   label,
		start:   time.Now(),
	}
}

func (r *analyzeProgressReporter) Update(done, total int, function string) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	function = strings.TrimSpace(function)
	if len(function) > 60 {
		function = function[:57] + "..."
	}

	status := fmt.Sprintf("%s %s %d analyzing %s", frame, r.label, done, function)
	if total > 0 {
		status = fmt.Sprintf("%s %s %d/%d analyzing %s", frame, r.label, done, total, function)
	}
	r.printStatus(status)
}

func (r *analyzeProgressReporter) Done(count int) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.start).Round(time.Millisecond)
	status := fmt.Sprintf("%s complete (%d functions in %s)", r.label, count, elapsed)
	r.printStatus(status)
	fmt.Fprintln(r.w)
}

func (r *analyzeProgressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(r.w, "\r%s", status)
}
