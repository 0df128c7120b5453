package statuslog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrorLogName returns the per-run error log file name for a run started at t.
func ErrorLogName(t time.Time) string {
	return "errors-" + t.Format("20060102-150405") + ".log"
}

// OpenErrorLog creates the error log for a run started at t inside dir,
// truncating any previous file of the same name.
func OpenErrorLog(dir string, t time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}

	path := filepath.Join(dir, ErrorLogName(t))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log: %w", err)
	}
	return f, nil
}
