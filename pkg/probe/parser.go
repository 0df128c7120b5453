package probe

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

var (
	// "PING 192.168.1.1 (192.168.1.1) 56(84) bytes of data." (iputils)
	// "PING 192.168.1.1 (192.168.1.1): 56 data bytes" (BSD, BusyBox)
	destinationRe = regexp.MustCompile(`(?m)^PING \S+ \(([^)]+)\)`)

	// "1 packets transmitted, 1 received, 0% packet loss, time 0ms"
	// "1 packets transmitted, 1 packets received, 0.0% packet loss"
	transmittedRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
	lossRe        = regexp.MustCompile(`([\d.]+)% packet loss`)

	// "rtt min/avg/max/mdev = 0.042/0.042/0.042/0.000 ms"
	// "round-trip min/avg/max/stddev = 1.021/1.021/1.021/0.000 ms"
	// "round-trip min/avg/max = 0.089/0.089/0.089 ms"
	rttRe = regexp.MustCompile(`(?:rtt|round-trip) min/avg/max(?:/(?:mdev|stddev))? = ([\d.]+)/([\d.]+)/([\d.]+)(?:/([\d.]+))? ms`)
)

// Parse extracts packet and round-trip statistics from the output of the
// system ping command. Output without a transmitted/received summary yields
// ErrUnparseable.
func Parse(output []byte) (models.ProbeResult, error) {
	var r models.ProbeResult

	m := transmittedRe.FindSubmatch(output)
	if m == nil {
		return r, ErrUnparseable
	}
	r.PacketsSent, _ = strconv.Atoi(string(m[1]))
	r.PacketsReceived, _ = strconv.Atoi(string(m[2]))

	// Duplicate replies can push received above sent.
	if lost := r.PacketsSent - r.PacketsReceived; lost > 0 {
		r.PacketLossCount = lost
	}

	if m := lossRe.FindSubmatch(output); m != nil {
		r.PacketLossRate, _ = strconv.ParseFloat(string(m[1]), 64)
	} else if r.PacketsSent > 0 {
		r.PacketLossRate = float64(r.PacketLossCount) * 100 / float64(r.PacketsSent)
	}

	if m := destinationRe.FindSubmatch(output); m != nil {
		r.Destination = string(m[1])
	}

	if m := rttRe.FindSubmatch(output); m != nil {
		r.RTTMin = millis(m[1])
		r.RTTAvg = millis(m[2])
		r.RTTMax = millis(m[3])
		if len(m[4]) > 0 {
			r.RTTMdev = millis(m[4])
		}
	}

	return r, nil
}

func millis(b []byte) time.Duration {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0
	}
	// ping reports at most microsecond precision
	return time.Duration(math.Round(f*1000)) * time.Microsecond
}
