// Package probe implements single-shot reachability checks.
package probe

import (
	"fmt"
	"time"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

// Prober performs exactly one reachability probe against address.
// A transport failure is returned as a *models.ProbeError.
type Prober interface {
	Probe(address string) (models.ProbeResult, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(address string) (models.ProbeResult, error)

// Probe calls f(address).
func (f ProberFunc) Probe(address string) (models.ProbeResult, error) {
	return f(address)
}

// Probe kinds accepted by New.
const (
	KindExec = "exec"
	KindICMP = "icmp"
)

// Options configures the prober built by New.
type Options struct {
	PingPath   string        // ping binary for KindExec
	Timeout    time.Duration // reply wait, zero keeps the transport default
	Privileged bool          // raw ICMP socket for KindICMP
}

// New builds the prober of the given kind.
func New(kind string, opts Options) (Prober, error) {
	switch kind {
	case KindExec, "":
		return NewExecProber(opts.PingPath, opts.Timeout), nil
	case KindICMP:
		return NewICMPProber(opts.Timeout, opts.Privileged), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProber, kind)
	}
}

// Single builds the result of one echo that was answered after rtt.
func Single(destination string, rtt time.Duration) models.ProbeResult {
	return models.ProbeResult{
		Destination:     destination,
		PacketsSent:     1,
		PacketsReceived: 1,
		RTTMin:          rtt,
		RTTAvg:          rtt,
		RTTMax:          rtt,
	}
}
