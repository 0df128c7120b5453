package probe

import "errors"

var (
	// ErrNoAddress is returned when a device has no address to probe.
	ErrNoAddress = errors.New("no address to probe")
	// ErrInvalidAddress is returned for addresses that cannot be passed to ping.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrNoReply is returned when no echo reply arrived before the deadline.
	ErrNoReply = errors.New("no echo reply")
	// ErrUnparseable is returned when ping output has no statistics summary.
	ErrUnparseable = errors.New("unparseable ping output")
	// ErrUnknownProber is returned by New for an unknown probe kind.
	ErrUnknownProber = errors.New("unknown prober")

	errNotEchoReply = errors.New("not an echo reply")
	errNoICMPLayer  = errors.New("no ICMPv4 layer")
)
