package probe

import (
	"errors"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

// Runner executes a command and returns its standard output.
type Runner func(name string, args ...string) ([]byte, error)

// runCommand returns stdout, followed by stderr when the command fails. ping
// reports resolver and unreachable errors on stderr.
func runCommand(name string, args ...string) ([]byte, error) {
	out, err := exec.Command(name, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		out = append(out, exitErr.Stderr...)
	}
	return out, err
}

// ExecProber probes with a single "ping -c 1" of the system ping binary.
type ExecProber struct {
	path string
	wait time.Duration
	goos string
	run  Runner
}

// NewExecProber creates a prober running the ping binary at path ("ping" when
// empty). A positive wait is passed as -W, in milliseconds on macOS and
// FreeBSD and in whole seconds elsewhere; zero leaves the reply timeout to
// ping itself.
func NewExecProber(path string, wait time.Duration) *ExecProber {
	if path == "" {
		path = "ping"
	}
	return &ExecProber{
		path: path,
		wait: wait,
		goos: runtime.GOOS,
		run:  runCommand,
	}
}

// WithRunner replaces the command runner, mostly for tests.
func (p *ExecProber) WithRunner(run Runner) *ExecProber {
	p.run = run
	return p
}

// Args returns the ping arguments used for address.
func (p *ExecProber) Args(address string) []string {
	args := []string{"-c", "1"}
	if p.wait > 0 {
		args = append(args, "-W", waitFlag(p.goos, p.wait))
	}
	return append(args, address)
}

// Probe runs ping once. A non-zero exit status or output without statistics
// is reported as a *models.ProbeError carrying the raw output.
func (p *ExecProber) Probe(address string) (models.ProbeResult, error) {
	if address == "" {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: ErrNoAddress}
	}
	if strings.HasPrefix(address, "-") {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: ErrInvalidAddress}
	}

	out, err := p.run(p.path, p.Args(address)...)
	if err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Output: out, Err: err}
	}

	result, err := Parse(out)
	if err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Output: out, Err: err}
	}

	return result, nil
}

func waitFlag(goos string, wait time.Duration) string {
	switch goos {
	case "darwin", "freebsd", "dragonfly":
		return strconv.FormatInt(int64(math.Ceil(float64(wait)/float64(time.Millisecond))), 10)
	default:
		return strconv.Itoa(int(math.Ceil(wait.Seconds())))
	}
}
