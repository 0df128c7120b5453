package probe

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

func TestExecProber_Args(t *testing.T) {
	assert.Equal(t, []string{"-c", "1", "10.0.0.1"}, NewExecProber("", 0).Args("10.0.0.1"))

	tests := []struct {
		goos string
		wait time.Duration
		want string
	}{
		{"linux", 1500 * time.Millisecond, "2"},
		{"linux", 2 * time.Second, "2"},
		{"darwin", 2 * time.Second, "2000"},
		{"freebsd", 1500 * time.Millisecond, "1500"},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.wait.String(), func(t *testing.T) {
			p := NewExecProber("", tt.wait)
			p.goos = tt.goos
			assert.Equal(t, []string{"-c", "1", "-W", tt.want, "10.0.0.1"}, p.Args("10.0.0.1"))
		})
	}
}

func TestExecProber_StderrReachesDiagnostic(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	p := NewExecProber("", 0).WithRunner(func(string, ...string) ([]byte, error) {
		return runCommand("sh", "-c", "echo 'ping: nosuchhost: Name or service not known' >&2; exit 2")
	})

	_, err := p.Probe("nosuchhost")
	var perr *models.ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "ping: nosuchhost: Name or service not known", perr.Diagnostic())

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestExecProber_Success(t *testing.T) {
	var gotName string
	var gotArgs []string
	p := NewExecProber("/bin/ping", 0).WithRunner(func(name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(iputilsReachable), nil
	})

	r, err := p.Probe("192.168.1.20")
	require.NoError(t, err)
	assert.Equal(t, "/bin/ping", gotName)
	assert.Equal(t, []string{"-c", "1", "192.168.1.20"}, gotArgs)
	assert.Equal(t, 0, r.PacketLossCount)
	assert.Equal(t, 1, r.PacketsReceived)
}

func TestExecProber_NonZeroExit(t *testing.T) {
	exitErr := errors.New("exit status 1")
	p := NewExecProber("", 0).WithRunner(func(string, ...string) ([]byte, error) {
		return []byte(iputilsUnreachable), exitErr
	})

	r, err := p.Probe("192.168.1.99")
	require.Error(t, err)
	assert.True(t, r.Empty())

	var perr *models.ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "192.168.1.99", perr.Address)
	assert.Contains(t, perr.Diagnostic(), "Destination Host Unreachable")
	assert.ErrorIs(t, err, exitErr)
}

func TestExecProber_Unparseable(t *testing.T) {
	p := NewExecProber("", 0).WithRunner(func(string, ...string) ([]byte, error) {
		return []byte("garbage"), nil
	})

	_, err := p.Probe("10.0.0.1")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestExecProber_RejectsBadAddresses(t *testing.T) {
	called := false
	p := NewExecProber("", 0).WithRunner(func(string, ...string) ([]byte, error) {
		called = true
		return nil, nil
	})

	_, err := p.Probe("")
	assert.ErrorIs(t, err, ErrNoAddress)

	_, err = p.Probe("-f")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	assert.False(t, called, "ping must not run for rejected addresses")
}

func TestNew(t *testing.T) {
	p, err := New(KindExec, Options{PingPath: "/usr/bin/ping"})
	require.NoError(t, err)
	assert.IsType(t, &ExecProber{}, p)

	p, err = New(KindICMP, Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.IsType(t, &ICMPProber{}, p)

	_, err = New("carrier-pigeon", Options{})
	assert.ErrorIs(t, err, ErrUnknownProber)
}

func TestProberFunc(t *testing.T) {
	var p Prober = ProberFunc(func(address string) (models.ProbeResult, error) {
		return Single(address, time.Millisecond), nil
	})

	r, err := p.Probe("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", r.Destination)
	assert.Equal(t, time.Millisecond, r.RTTAvg)
}
