package classifier

import (
	"log/slog"
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"netonl/internal/ackstore"
	"netonl/internal/tsstore"
)

var (
	ifaceMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	peerMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func buildEthernetIPv4TCP(t *testing.T, srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP net.IP, ack bool, seq uint32) []byte {
	t.Helper()

	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: srcIP, DstIP: dstIP}
	tcp := &layers.TCP{SrcPort: 1234, DstPort: 443, Seq: seq, ACK: ack, Window: 1024}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload("x")))
	return buf.Bytes()
}

func buildEthernetIPv4UDP(t *testing.T, srcMAC, dstMAC net.HardwareAddr, srcIP, dstIP net.IP) []byte {
	t.Helper()

	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: srcIP, DstIP: dstIP}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 5001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload("x")))
	return buf.Bytes()
}

func newTestClassifier(cfg Config) (*Classifier, *tsstore.MemStore, clockwork.FakeClock) {
	clk := clockwork.NewFakeClock()
	store := tsstore.NewMemStore(clk)
	c := New(slog.Default(), clk, store, nil, cfg)
	return c, store, clk
}

func TestClassifier_PublicTCP_RX_UpdatesBothTimestamps(t *testing.T) {
	t.Parallel()
	c, store, clk := newTestClassifier(Config{})
	clk.Advance(1_000_000) // move clock so the initial seed timestamp differs

	frame := buildEthernetIPv4TCP(t, peerMAC, ifaceMAC, net.IPv4(8, 8, 8, 8), net.IPv4(1, 2, 3, 4), true, 1)
	c.ClassifyFrame(frame, ifaceMAC)

	tx, rx := store.Snapshot()
	require.Equal(t, tx, rx)
	require.NotZero(t, tx)
}

func TestClassifier_PublicTCP_TX_UpdatesOnlyTX(t *testing.T) {
	t.Parallel()
	c, store, _ := newTestClassifier(Config{})
	txBefore, rxBefore := store.Snapshot()

	frame := buildEthernetIPv4TCP(t, ifaceMAC, peerMAC, net.IPv4(1, 2, 3, 4), net.IPv4(8, 8, 8, 8), false, 1)
	c.ClassifyFrame(frame, ifaceMAC)

	tx, rx := store.Snapshot()
	require.Equal(t, rxBefore, rx)
	require.GreaterOrEqual(t, tx, txBefore)
}

func TestClassifier_PrivateSourceRX_IsDropped(t *testing.T) {
	t.Parallel()
	c, store, _ := newTestClassifier(Config{})
	txBefore, rxBefore := store.Snapshot()

	frame := buildEthernetIPv4TCP(t, peerMAC, ifaceMAC, net.IPv4(192, 168, 1, 1), net.IPv4(1, 2, 3, 4), true, 1)
	c.ClassifyFrame(frame, ifaceMAC)

	tx, rx := store.Snapshot()
	require.Equal(t, txBefore, tx)
	require.Equal(t, rxBefore, rx)
}

func TestClassifier_BothPrivate_IsDropped(t *testing.T) {
	t.Parallel()
	c, store, _ := newTestClassifier(Config{})
	txBefore, rxBefore := store.Snapshot()

	frame := buildEthernetIPv4TCP(t, ifaceMAC, peerMAC, net.IPv4(192, 168, 1, 1), net.IPv4(192, 168, 1, 2), false, 1)
	c.ClassifyFrame(frame, ifaceMAC)

	tx, rx := store.Snapshot()
	require.Equal(t, txBefore, tx)
	require.Equal(t, rxBefore, rx)
}

func TestClassifier_OutboundUDP_DefaultConfig_DoesNotUpdateTX(t *testing.T) {
	t.Parallel()
	c, store, _ := newTestClassifier(Config{CountOutboundUDPAsTX: false})
	txBefore, _ := store.Snapshot()

	frame := buildEthernetIPv4UDP(t, ifaceMAC, peerMAC, net.IPv4(1, 2, 3, 4), net.IPv4(8, 8, 8, 8))
	c.ClassifyFrame(frame, ifaceMAC)

	tx, _ := store.Snapshot()
	require.Equal(t, txBefore, tx)
}

func TestClassifier_OutboundUDP_WhenConfigured_UpdatesTX(t *testing.T) {
	t.Parallel()
	c, store, clk := newTestClassifier(Config{CountOutboundUDPAsTX: true})
	clk.Advance(1_000_000)
	txBefore, _ := store.Snapshot()

	frame := buildEthernetIPv4UDP(t, ifaceMAC, peerMAC, net.IPv4(1, 2, 3, 4), net.IPv4(8, 8, 8, 8))
	c.ClassifyFrame(frame, ifaceMAC)

	tx, _ := store.Snapshot()
	require.Greater(t, tx, txBefore)
}

func TestClassifier_InboundUDP_AlwaysUpdatesRX(t *testing.T) {
	t.Parallel()
	c, store, clk := newTestClassifier(Config{CountOutboundUDPAsTX: false})
	clk.Advance(1_000_000)
	_, rxBefore := store.Snapshot()

	frame := buildEthernetIPv4UDP(t, peerMAC, ifaceMAC, net.IPv4(8, 8, 8, 8), net.IPv4(1, 2, 3, 4))
	c.ClassifyFrame(frame, ifaceMAC)

	_, rx := store.Snapshot()
	require.Greater(t, rx, rxBefore)
}

func TestClassifier_UnknownDirection_NoIfaceMAC_DropsFrame(t *testing.T) {
	t.Parallel()
	c, store, _ := newTestClassifier(Config{})
	txBefore, rxBefore := store.Snapshot()

	frame := buildEthernetIPv4TCP(t, peerMAC, ifaceMAC, net.IPv4(8, 8, 8, 8), net.IPv4(1, 2, 3, 4), true, 1)
	c.ClassifyFrame(frame, nil)

	tx, rx := store.Snapshot()
	require.Equal(t, txBefore, tx)
	require.Equal(t, rxBefore, rx)
}

func TestClassifier_AckStore_OutboundAckTracked_InboundAckClears(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClock()
	store := tsstore.NewMemStore(clk)
	acks := ackstore.New()
	c := New(slog.Default(), clk, store, acks, Config{})

	out := buildEthernetIPv4TCP(t, ifaceMAC, peerMAC, net.IPv4(1, 2, 3, 4), net.IPv4(8, 8, 8, 8), true, 77)
	c.ClassifyFrame(out, ifaceMAC)
	require.True(t, acks.Contains(77))

	in := buildEthernetIPv4TCP(t, peerMAC, ifaceMAC, net.IPv4(8, 8, 8, 8), net.IPv4(1, 2, 3, 4), true, 77)
	c.ClassifyFrame(in, ifaceMAC)
	require.False(t, acks.Contains(77))
}

func TestClassifier_ClassifyKernel_EgressIsTX(t *testing.T) {
	t.Parallel()
	c, store, _ := newTestClassifier(Config{})
	txBefore, _ := store.Snapshot()

	eth := &layers.Ethernet{SrcMAC: ifaceMAC, DstMAC: peerMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: net.IPv4(1, 2, 3, 4), DstIP: net.IPv4(8, 8, 8, 8)}
	tcp := &layers.TCP{SrcPort: 1234, DstPort: 443, Seq: 1, ACK: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}, eth, ip, tcp))

	// Kernel TC classifiers see the packet starting at the L3 header.
	pkt := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
	require.NotNil(t, pkt.Layer(layers.LayerTypeIPv4))
	l3 := pkt.LinkLayer().LayerPayload()

	c.ClassifyKernel(l3, DirectionTX)

	tx, _ := store.Snapshot()
	require.GreaterOrEqual(t, tx, txBefore)
}
