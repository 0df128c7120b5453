// Package statuslog writes the append-only status timeline: a header naming
// each device by letter, then one fixed-width row per poll round.
package statuslog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

const (
	// MaxDevices is the number of single-letter labels available.
	MaxDevices = 26

	// TimestampFormat is the row timestamp layout (YYYY-MM-DD HH:MM:SS).
	TimestampFormat = "2006-01-02 15:04:05"

	rowGap = "   "
)

var (
	// ErrTooManyDevices is returned for registries that cannot be labelled A-Z.
	ErrTooManyDevices = fmt.Errorf("status log supports at most %d devices", MaxDevices)
	// ErrClosed is returned when writing to a closed Writer.
	ErrClosed = errors.New("status log closed")

	gutter = strings.Repeat(" ", len(TimestampFormat)+len(rowGap))
)

// Label returns the column letter of the i-th device.
func Label(i int) string {
	return string(rune('A' + i))
}

// Header renders the header block for the devices, in order.
func Header(devices []models.Device) (string, error) {
	if len(devices) > MaxDevices {
		return "", fmt.Errorf("%w: got %d", ErrTooManyDevices, len(devices))
	}

	var b strings.Builder
	labels := make([]string, len(devices))
	for i, d := range devices {
		labels[i] = Label(i)
		fmt.Fprintf(&b, "%s = %s\n", labels[i], d)
	}
	b.WriteString("\n")
	b.WriteString(gutter)
	b.WriteString(strings.Join(labels, " "))
	b.WriteString("\n")

	return b.String(), nil
}

// Row renders one status row: the timestamp, three spaces, then an 'x' for
// each healthy device and a space for each unhealthy one, space separated.
func Row(ts time.Time, healthy []bool) string {
	marks := make([]string, len(healthy))
	for i, ok := range healthy {
		if ok {
			marks[i] = "x"
		} else {
			marks[i] = " "
		}
	}
	return ts.Format(TimestampFormat) + rowGap + strings.Join(marks, " ") + "\n"
}

type syncer interface {
	Sync() error
}

// Writer appends header and rows to an underlying sink. Each row is written
// with a single Write followed by a Sync when the sink supports it.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Open opens path for appending, creating it when missing.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open status log: %w", err)
	}
	return NewWriter(f), nil
}

// WriteHeader writes the header block for devices.
func (w *Writer) WriteHeader(devices []models.Device) error {
	header, err := Header(devices)
	if err != nil {
		return err
	}
	return w.write(header)
}

// WriteRow appends the row for one round.
func (w *Writer) WriteRow(ts time.Time, healthy []bool) error {
	return w.write(Row(ts, healthy))
}

func (w *Writer) write(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("failed to write status log: %w", err)
	}
	if f, ok := w.w.(syncer); ok {
		// Pipes and terminals cannot be synced.
		if err := f.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTSUP) {
			return fmt.Errorf("failed to flush status log: %w", err)
		}
	}
	return nil
}

// Close closes the underlying sink when it is closable.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
