package models

import (
	"time"
)

// ProbeResult holds the metrics of one reachability probe.
// The zero value is the empty result recorded when no probe succeeded.
type ProbeResult struct {
	Destination     string        `json:"destination,omitempty"` // Resolved address that answered
	PacketsSent     int           `json:"packets_sent"`          // Echo requests sent
	PacketsReceived int           `json:"packets_received"`      // Echo replies received
	PacketLossCount int           `json:"packet_loss_count"`     // Requests left unanswered
	PacketLossRate  float64       `json:"packet_loss_rate"`      // Loss in percent
	RTTMin          time.Duration `json:"rtt_min,omitempty"`     // Round trip minimum
	RTTAvg          time.Duration `json:"rtt_avg,omitempty"`     // Round trip average
	RTTMax          time.Duration `json:"rtt_max,omitempty"`     // Round trip maximum
	RTTMdev         time.Duration `json:"rtt_mdev,omitempty"`    // Round trip deviation
}

// Empty reports whether r carries no probe data.
func (r ProbeResult) Empty() bool {
	return r.PacketsSent == 0
}

// DeviceStatus is the last-known health of one device. It is owned by the
// registry and written by a single worker per round.
type DeviceStatus struct {
	lastProbe ProbeResult
	probed    bool
	checkedAt time.Time
}

// Update records a completed probe.
func (s *DeviceStatus) Update(result ProbeResult) {
	s.lastProbe = result
	s.probed = !result.Empty()
	s.checkedAt = time.Now()
}

// Reset clears the recorded probe after a failed attempt.
func (s *DeviceStatus) Reset() {
	s.lastProbe = ProbeResult{}
	s.probed = false
	s.checkedAt = time.Now()
}

// LastProbe returns the recorded result and whether there is one.
func (s *DeviceStatus) LastProbe() (ProbeResult, bool) {
	return s.lastProbe, s.probed
}

// CheckedAt returns when the status was last written, zero if never.
func (s *DeviceStatus) CheckedAt() time.Time {
	return s.checkedAt
}

// Healthy reports whether the last probe lost no packets. A status without a
// recorded probe is unhealthy.
func (s *DeviceStatus) Healthy() bool {
	if !s.probed {
		return false
	}
	return s.lastProbe.PacketLossCount == 0
}
