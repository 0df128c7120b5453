package models

import (
	"fmt"
	"strings"
)

// ValidationError reports invalid device input. Index is the position of the
// record in a device file, or -1 when not loaded from one.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid device #%d: %s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid device: %s: %s", e.Field, e.Reason)
}

// ProbeError means a probe could not be executed or its output not parsed.
// It is not the same as an unhealthy device.
type ProbeError struct {
	Address string // Address that was probed
	Output  []byte // Raw diagnostic output, if any
	Err     error  // Underlying transport error
}

func (e *ProbeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "probe %s", e.Address)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the raw output when present, the error text otherwise.
func (e *ProbeError) Diagnostic() string {
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		return out
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
