package probe

import (
	"errors"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/icmp"

	"github.com/ExclusiveAccount/homemon/pkg/models"
)

const (
	defaultICMPTimeout = 2 * time.Second
	maxPacketSize      = 1500
)

var echoPayload = []byte("homemon-probe")

// ICMPProber sends one ICMPv4 echo request per probe. Unprivileged probers use
// a datagram ICMP socket ("udp4"); privileged ones a raw socket ("ip4:icmp").
type ICMPProber struct {
	timeout    time.Duration
	privileged bool
	id         uint16
	seq        atomic.Uint32
}

// NewICMPProber creates an ICMP prober. A zero timeout defaults to 2s.
func NewICMPProber(timeout time.Duration, privileged bool) *ICMPProber {
	if timeout <= 0 {
		timeout = defaultICMPTimeout
	}
	return &ICMPProber{
		timeout:    timeout,
		privileged: privileged,
		id:         uint16(os.Getpid() & 0xffff),
	}
}

// Probe sends a single echo request to address and waits for the matching
// reply. Every probe opens its own socket so concurrent probes share nothing.
func (p *ICMPProber) Probe(address string) (models.ProbeResult, error) {
	if address == "" {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: ErrNoAddress}
	}

	dst, err := net.ResolveIPAddr("ip4", address)
	if err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: err}
	}

	network := "udp4"
	if p.privileged {
		network = "ip4:icmp"
	}

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: err}
	}
	defer conn.Close()

	seq := uint16(p.seq.Add(1))
	data, err := marshalEcho(layers.ICMPv4TypeEchoRequest, p.id, seq, echoPayload)
	if err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: err}
	}

	var target net.Addr = dst
	if !p.privileged {
		target = &net.UDPAddr{IP: dst.IP}
	}

	start := time.Now()
	if err := conn.SetDeadline(start.Add(p.timeout)); err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: err}
	}
	if _, err := conn.WriteTo(data, target); err != nil {
		return models.ProbeResult{}, &models.ProbeError{Address: address, Err: err}
	}

	buf := make([]byte, maxPacketSize)
	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				err = ErrNoReply
			}
			return models.ProbeResult{}, &models.ProbeError{Address: address, Err: err}
		}
		if !peerIP(peer).Equal(dst.IP) {
			continue
		}

		reply, err := parseEchoReply(buf[:n])
		if err != nil || reply.Seq != seq {
			continue
		}
		// The kernel rewrites the identifier of datagram ICMP sockets.
		if p.privileged && reply.Id != p.id {
			continue
		}

		return Single(dst.IP.String(), time.Since(start)), nil
	}
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}

// marshalEcho encodes an ICMPv4 echo message with a computed checksum.
func marshalEcho(typ uint8, id, seq uint16, payload []byte) ([]byte, error) {
	msg := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(typ, 0),
		Id:       id,
		Seq:      seq,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, msg, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseEchoReply decodes b as an ICMPv4 message and accepts only echo replies.
func parseEchoReply(b []byte) (*layers.ICMPv4, error) {
	packet := gopacket.NewPacket(b, layers.LayerTypeICMPv4, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}

	layer := packet.Layer(layers.LayerTypeICMPv4)
	if layer == nil {
		return nil, errNoICMPLayer
	}

	msg, ok := layer.(*layers.ICMPv4)
	if !ok || msg.TypeCode.Type() != layers.ICMPv4TypeEchoReply {
		return nil, errNotEchoReply
	}
	return msg, nil
}
