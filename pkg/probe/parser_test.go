package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iputilsReachable = `PING 192.168.1.20 (192.168.1.20) 56(84) bytes of data.
64 bytes from 192.168.1.20: icmp_seq=1 ttl=64 time=3.12 ms

--- 192.168.1.20 ping statistics ---
1 packets transmitted, 1 received, 0% packet loss, time 0ms
rtt min/avg/max/mdev = 3.120/3.120/3.120/0.000 ms
`

const iputilsUnreachable = `PING 192.168.1.99 (192.168.1.99) 56(84) bytes of data.
From 192.168.1.10 icmp_seq=1 Destination Host Unreachable

--- 192.168.1.99 ping statistics ---
1 packets transmitted, 0 received, +1 errors, 100% packet loss, time 0ms

`

const darwinReachable = `PING router.local (192.168.1.1): 56 data bytes
64 bytes from 192.168.1.1: icmp_seq=0 ttl=64 time=1.021 ms

--- router.local ping statistics ---
1 packets transmitted, 1 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 1.021/1.021/1.021/0.000 ms
`

const busyboxReachable = `PING 10.0.0.1 (10.0.0.1): 56 data bytes
64 bytes from 10.0.0.1: seq=0 ttl=64 time=0.089 ms

--- 10.0.0.1 ping statistics ---
1 packets transmitted, 1 packets received, 0% packet loss
round-trip min/avg/max = 0.089/0.089/0.089 ms
`

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		dest   string
		rttAvg time.Duration
	}{
		{name: "iputils reachable", output: iputilsReachable, dest: "192.168.1.20", rttAvg: 3120 * time.Microsecond},
		{name: "iputils unreachable", output: iputilsUnreachable, dest: "192.168.1.99"},
		{name: "darwin reachable", output: darwinReachable, dest: "192.168.1.1", rttAvg: 1021 * time.Microsecond},
		{name: "busybox reachable", output: busyboxReachable, dest: "10.0.0.1", rttAvg: 89 * time.Microsecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.output))
			require.NoError(t, err)

			assert.Equal(t, 1, r.PacketsSent)
			assert.Equal(t, tt.dest, r.Destination)
			assert.Equal(t, tt.rttAvg, r.RTTAvg)
			if tt.rttAvg > 0 {
				assert.Equal(t, 1, r.PacketsReceived)
				assert.Equal(t, 0, r.PacketLossCount)
				assert.Zero(t, r.PacketLossRate)
			} else {
				assert.Equal(t, 0, r.PacketsReceived)
				assert.Equal(t, 1, r.PacketLossCount)
				assert.Equal(t, 100.0, r.PacketLossRate)
			}
		})
	}
}

func TestParse_Multiple(t *testing.T) {
	out := `--- 10.0.0.5 ping statistics ---
4 packets transmitted, 3 received, 25% packet loss, time 3004ms
rtt min/avg/max/mdev = 0.500/1.000/1.500/0.250 ms
`
	r, err := Parse([]byte(out))
	require.NoError(t, err)

	assert.Equal(t, 4, r.PacketsSent)
	assert.Equal(t, 3, r.PacketsReceived)
	assert.Equal(t, 1, r.PacketLossCount)
	assert.Equal(t, 25.0, r.PacketLossRate)
	assert.Equal(t, 500*time.Microsecond, r.RTTMin)
	assert.Equal(t, 1500*time.Microsecond, r.RTTMax)
	assert.Equal(t, 250*time.Microsecond, r.RTTMdev)
}

func TestParse_DuplicatesDoNotGoNegative(t *testing.T) {
	out := "1 packets transmitted, 2 received, +1 duplicates, 0% packet loss, time 0ms\n"
	r, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 0, r.PacketLossCount)
}

func TestParse_Unparseable(t *testing.T) {
	for _, out := range []string{"", "ping: unknown host nowhere.invalid\n", "PING 10.0.0.1 (10.0.0.1): 56 data bytes\n"} {
		_, err := Parse([]byte(out))
		assert.ErrorIs(t, err, ErrUnparseable, "output %q", out)
	}
}
