package addrutil

import (
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestAddrutil_IsPrivateOrLinkLocal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"rfc1918_10", "10.1.2.3", true},
		{"rfc1918_172_16", "172.16.0.5", true},
		{"rfc1918_192_168", "192.168.1.1", true},
		{"public_v4", "8.8.8.8", false},
		{"v4_link_local", "169.254.1.1", true},
		{"v6_link_local_fe80", "fe80::1", true},
		{"v6_link_local_fe90_in_slash10", "fe90::1", true},
		{"v6_link_local_febf_in_slash10", "febf::ffff", true},
		{"v6_link_local_fec0_out_of_slash10", "fec0::1", false},
		{"v6_public", "2001:db8::1", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ip := net.ParseIP(tt.ip)
			require.NotNil(t, ip)
			require.Equal(t, tt.want, IsPrivateOrLinkLocal(ip))
		})
	}
}

func TestAddrutil_IsBroadcast(t *testing.T) {
	t.Parallel()

	_, ifaceNet, err := net.ParseCIDR("192.168.1.10/24")
	require.NoError(t, err)

	tests := []struct {
		name string
		ip   string
		net  *net.IPNet
		want bool
	}{
		{"limited_broadcast", "255.255.255.255", nil, true},
		{"subnet_broadcast", "192.168.1.255", ifaceNet, true},
		{"subnet_broadcast_no_iface_net", "192.168.1.255", nil, false},
		{"ordinary_host", "192.168.1.42", ifaceNet, false},
		{"different_subnet", "10.0.0.255", ifaceNet, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ip := net.ParseIP(tt.ip)
			require.NotNil(t, ip)
			require.Equal(t, tt.want, IsBroadcast(ip, tt.net))
		})
	}
}

func TestAddrutil_NowTruncatedMicros_Monotonic(t *testing.T) {
	t.Parallel()

	clk := clockwork.NewFakeClock()
	a := NowTruncatedMicros(clk)
	clk.Advance(time.Millisecond)
	b := NowTruncatedMicros(clk)
	require.Greater(t, b, a)
}
