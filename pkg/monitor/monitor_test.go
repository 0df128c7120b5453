package monitor

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExclusiveAccount/homemon/pkg/home"
	"github.com/ExclusiveAccount/homemon/pkg/models"
	"github.com/ExclusiveAccount/homemon/pkg/probe"
	"github.com/ExclusiveAccount/homemon/pkg/statuslog"
)

var rowRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}   `)

type switchboard struct {
	mu sync.Mutex
	up map[string]bool
}

func (s *switchboard) set(addr string, up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.up[addr] = up
}

func (s *switchboard) Probe(addr string) (models.ProbeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.up[addr] {
		return probe.Single(addr, time.Millisecond), nil
	}
	return models.ProbeResult{}, &models.ProbeError{Address: addr, Output: []byte("Destination Host Unreachable"), Err: probe.ErrNoReply}
}

type recorder struct {
	rounds []Round
}

func (r *recorder) Publish(_ *home.Home, round Round) {
	r.rounds = append(r.rounds, round)
}

func twoDevices(t *testing.T) []models.Device {
	t.Helper()
	a, err := models.NewDevice(models.DeviceSpec{Name: "Router", IP: "10.0.0.1", Location: "Closet"})
	require.NoError(t, err)
	b, err := models.NewDevice(models.DeviceSpec{Name: "Camera", IP: "10.0.0.2", Location: "Porch"})
	require.NoError(t, err)
	return []models.Device{a, b}
}

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

func TestRun_EndToEnd(t *testing.T) {
	devices := twoDevices(t)
	sb := &switchboard{up: map[string]bool{devices[0].Address(): true}}
	h := home.New("MyHome", devices, sb)

	var out, errs bytes.Buffer
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var slept []time.Duration
	sleeper := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		switch len(slept) {
		case 1:
			sb.set(devices[1].Address(), true)
		case 2:
			cancel()
		}
		return ctx.Err()
	}

	m := New(h, statuslog.NewWriter(&out),
		WithInterval(30*time.Second),
		WithErrorSink(&errs),
		WithObserver(rec),
		WithSleeper(sleeper),
		WithClock(fixedClock(time.Date(2026, 10, 16, 10, 0, 0, 0, time.Local), 5*time.Second)),
	)
	assert.Equal(t, Initializing, m.State())

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, Running, m.State())
	assert.Equal(t, 2, m.Rounds())
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, slept)

	lines := strings.Split(out.String(), "\n")
	require.Len(t, lines, 7, "header (4 lines) + 2 rows + trailing newline")
	assert.Equal(t, "A = Router in the Closet", lines[0])
	assert.Equal(t, "B = Camera in the Porch", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, strings.Repeat(" ", 22)+"A B", lines[3])

	assert.Regexp(t, rowRe, lines[4])
	assert.True(t, strings.HasSuffix(lines[4], "   x  "), "row %q", lines[4])
	assert.Regexp(t, rowRe, lines[5])
	assert.True(t, strings.HasSuffix(lines[5], "   x x"), "row %q", lines[5])

	require.Len(t, rec.rounds, 2)
	assert.Equal(t, []bool{true, false}, rec.rounds[0].Healthy)
	assert.Equal(t, []bool{true, true}, rec.rounds[1].Healthy)
	assert.Equal(t, lines[4]+"\n", rec.rounds[0].Row)

	errLines := strings.Split(strings.TrimSpace(errs.String()), "\n")
	require.Len(t, errLines, 1)
	assert.Contains(t, errLines[0], "Error while pinging Camera in the Porch (10.0.0.2)")
}

func TestCycle_TimestampIsTakenAtStart(t *testing.T) {
	devices := twoDevices(t)
	start := time.Date(2026, 10, 16, 10, 0, 0, 0, time.Local)

	h := home.New("MyHome", devices, &switchboard{up: map[string]bool{}})

	var out bytes.Buffer
	m := New(h, statuslog.NewWriter(&out), WithClock(fixedClock(start, time.Hour)))

	round, err := m.Cycle()
	require.NoError(t, err)
	assert.Equal(t, start, round.Time)
	assert.Equal(t, "2026-10-16 10:00:00"+strings.Repeat(" ", 6)+"\n", round.Row)
	assert.Equal(t, round.Row, out.String())
}

func TestCycle_IdempotentRows(t *testing.T) {
	devices := twoDevices(t)
	sb := &switchboard{up: map[string]bool{devices[1].Address(): true}}
	h := home.New("MyHome", devices, sb)

	var out bytes.Buffer
	m := New(h, statuslog.NewWriter(&out))

	first, err := m.Cycle()
	require.NoError(t, err)
	second, err := m.Cycle()
	require.NoError(t, err)

	assert.Equal(t, first.Row[len(statuslog.TimestampFormat):], second.Row[len(statuslog.TimestampFormat):])
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("read-only file system") }

func TestRun_StatusLogFailureIsFatal(t *testing.T) {
	h := home.New("MyHome", twoDevices(t), &switchboard{up: map[string]bool{}})
	m := New(h, statuslog.NewWriter(brokenWriter{}), WithSleeper(func(context.Context, time.Duration) error {
		t.Fatal("must not sleep after a failed write")
		return nil
	}))

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only file system")
}

type failAfter struct {
	n   int
	buf bytes.Buffer
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("disk full")
	}
	f.n--
	return f.buf.Write(p)
}

func TestRun_RowFailureAfterHeader(t *testing.T) {
	h := home.New("MyHome", twoDevices(t), &switchboard{up: map[string]bool{}})
	w := &failAfter{n: 1}
	m := New(h, statuslog.NewWriter(w))

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record round")
	assert.Contains(t, w.buf.String(), "A = Router in the Closet")
}

func TestRun_TooManyDevicesRejected(t *testing.T) {
	var devices []models.Device
	for i := 0; i < statuslog.MaxDevices+1; i++ {
		devices = append(devices, models.MustDevice(models.DeviceSpec{Name: "d", IP: "10.0.2." + statuslog.Label(i%26), Hardware: string(rune('a' + i))}))
	}
	h := home.New("Big", devices, &switchboard{up: map[string]bool{}})
	m := New(h, statuslog.NewWriter(&bytes.Buffer{}))

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, statuslog.ErrTooManyDevices)
	assert.Equal(t, Initializing, m.State())
}

func TestSleep(t *testing.T) {
	require.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "unknown", State(7).String())
}
