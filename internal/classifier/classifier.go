// Package classifier implements the per-frame accounting logic shared by
// both data-path variants: parse the frame, determine its direction, apply
// the locality and protocol filters, and record TX/RX evidence into a
// tsstore.Store.
package classifier

import (
	"log/slog"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/jonboulle/clockwork"

	"netonl/internal/ackstore"
	"netonl/internal/addrutil"
	"netonl/internal/tsstore"
)

// Direction is the TX/RX classification of a frame.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionTX
	DirectionRX
)

func (d Direction) String() string {
	switch d {
	case DirectionTX:
		return "tx"
	case DirectionRX:
		return "rx"
	default:
		return "unknown"
	}
}

// Config configures the locality/protocol/record rules in Classify.
type Config struct {
	// CountOutboundUDPAsTX, when false (the default), excludes
	// outbound-only UDP from updating last_tx_us: unreplied outbound UDP
	// is not proof the link is up.
	CountOutboundUDPAsTX bool
}

// Classifier holds the shared state a stream of frames is classified
// against: the timestamp store every accounted frame updates, and the
// optional ack cross-check.
type Classifier struct {
	log    *slog.Logger
	clock  clockwork.Clock
	store  tsstore.Store
	acks   *ackstore.Store
	config Config
}

// New constructs a Classifier. acks may be nil to disable the optional ACK
// cross-check.
func New(log *slog.Logger, clock clockwork.Clock, store tsstore.Store, acks *ackstore.Store, config Config) *Classifier {
	return &Classifier{log: log, clock: clock, store: store, acks: acks, config: config}
}

// ClassifyFrame implements the userspace variant: direction is derived by
// comparing the frame's source MAC to ifaceMAC. A nil/empty ifaceMAC
// yields DirectionUnknown and the frame is dropped from accounting.
func (c *Classifier) ClassifyFrame(data []byte, ifaceMAC net.HardwareAddr) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return
	}
	eth, ok := ethLayer.(*layers.Ethernet)
	if !ok {
		return
	}

	direction := directionFromMAC(eth.SrcMAC, ifaceMAC)
	if direction == DirectionUnknown {
		return
	}

	c.classify(pkt, direction)
}

// ClassifyKernel implements the kernel variant: direction is known from
// the attach point (egress=TX, ingress=RX), and data is the raw L3 payload
// (no Ethernet header) as delivered to a TC classifier.
func (c *Classifier) ClassifyKernel(data []byte, direction Direction) {
	pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	if pkt.Layer(layers.LayerTypeIPv4) == nil {
		pkt = gopacket.NewPacket(data, layers.LayerTypeIPv6, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	}
	c.classify(pkt, direction)
}

func directionFromMAC(srcMAC, ifaceMAC net.HardwareAddr) Direction {
	if len(ifaceMAC) == 0 {
		return DirectionUnknown
	}
	if srcMAC.String() == ifaceMAC.String() {
		return DirectionTX
	}
	return DirectionRX
}

// classify applies the locality filter (step 4), the protocol filter (step
// 5), and the record rules (step 6) to an already-decoded packet.
func (c *Classifier) classify(pkt gopacket.Packet, direction Direction) {
	src, dst, proto, ok := c.addressesAndProtocol(pkt)
	if !ok {
		return
	}

	if localityFiltered(src, dst, direction) {
		c.log.Debug("classifier: dropping local packet", "src", src, "dst", dst, "direction", direction)
		return
	}

	if !allowedProtocol(proto) {
		c.log.Debug("classifier: dropping disallowed protocol", "protocol", proto, "direction", direction)
		return
	}

	c.trackAcks(pkt, direction)
	c.record(proto, direction)
}

// addressesAndProtocol extracts the source/destination IP and the L4
// protocol from whichever of IPv4/IPv6 decoded. ok is false if neither
// decoded (step 2: malformed L3 header, return "pass").
func (c *Classifier) addressesAndProtocol(pkt gopacket.Packet) (src, dst net.IP, proto layers.IPProtocol, ok bool) {
	if ip4Layer := pkt.Layer(layers.LayerTypeIPv4); ip4Layer != nil {
		ip4 := ip4Layer.(*layers.IPv4)
		return ip4.SrcIP, ip4.DstIP, ip4.Protocol, true
	}
	if ip6Layer := pkt.Layer(layers.LayerTypeIPv6); ip6Layer != nil {
		ip6 := ip6Layer.(*layers.IPv6)
		return ip6.SrcIP, ip6.DstIP, ip6.NextHeader, true
	}
	return nil, nil, 0, false
}

// localityFiltered implements step 4: drop local-only traffic and
// broadcast traffic.
func localityFiltered(src, dst net.IP, direction Direction) bool {
	srcLocal := addrutil.IsPrivateOrLinkLocal(src)
	dstLocal := addrutil.IsPrivateOrLinkLocal(dst)

	if srcLocal && direction == DirectionRX {
		return true
	}
	if srcLocal && dstLocal {
		return true
	}
	if addrutil.IsBroadcast(src, nil) || addrutil.IsBroadcast(dst, nil) {
		return true
	}
	return false
}

func allowedProtocol(proto layers.IPProtocol) bool {
	switch proto {
	case layers.IPProtocolTCP, layers.IPProtocolUDP, layers.IPProtocolICMPv4, layers.IPProtocolICMPv6:
		return true
	default:
		return false
	}
}

// record implements step 6, including the configurable outbound-UDP
// exception.
func (c *Classifier) record(proto layers.IPProtocol, direction Direction) {
	now := addrutil.NowTruncatedMicros(c.clock)

	if direction == DirectionTX && proto == layers.IPProtocolUDP && !c.config.CountOutboundUDPAsTX {
		return
	}

	switch direction {
	case DirectionTX:
		c.store.RecordTX(now)
	case DirectionRX:
		c.store.RecordRX(now)
	}
}

// trackAcks feeds the optional AckStore cross-check: outbound ACKs are
// recorded as outstanding, inbound ACKs for the same sequence clear them.
func (c *Classifier) trackAcks(pkt gopacket.Packet, direction Direction) {
	if c.acks == nil {
		return
	}
	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return
	}
	tcp, ok := tcpLayer.(*layers.TCP)
	if !ok || !tcp.ACK {
		return
	}
	switch direction {
	case DirectionTX:
		c.acks.Add(tcp.Seq)
	case DirectionRX:
		c.acks.Remove(tcp.Seq)
	}
}
