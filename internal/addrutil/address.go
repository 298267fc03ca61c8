package addrutil

import "net"

// IsPrivateOrLinkLocal reports whether ip is an RFC1918 IPv4 address, an
// IPv4 link-local address (169.254/16), an IPv6 unique-local address
// (fc00::/7, which net.IP.IsPrivate also reports), or an IPv6 link-local
// unicast address (fe80::/10).
//
// The /10 boundary matters: fe80::/10 spans fe80:: through febf:: (the first
// 10 bits are 1111111010), so a test that only compares the first 16 bits
// against 0xfe80 silently misses addresses like fe90::1 and febf::1. Go's
// net.IP.IsLinkLocalUnicast does the /10 comparison correctly, so we defer
// to it rather than hand-rolling a segment check.
func IsPrivateOrLinkLocal(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// IsLimitedBroadcast reports whether ip is the IPv4 limited broadcast
// address, 255.255.255.255.
func IsLimitedBroadcast(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	return ip4.Equal(net.IPv4bcast)
}

// IsSubnetBroadcast reports whether ip is the directed (subnet) broadcast
// address for ifaceNet, i.e. every host bit is set. ifaceNet is the local
// interface's configured IPv4 network; callers that don't know it (e.g. a
// kernel classifier with no access to interface addressing) should treat
// this as always false and rely on IsLimitedBroadcast alone, matching the
// pnet/aya reference which only special-cases the limited broadcast address.
func IsSubnetBroadcast(ip net.IP, ifaceNet *net.IPNet) bool {
	if ifaceNet == nil {
		return false
	}
	ip4 := ip.To4()
	maskedNet := ifaceNet.IP.To4()
	if ip4 == nil || maskedNet == nil {
		return false
	}
	ones, bits := ifaceNet.Mask.Size()
	if bits != 32 {
		return false
	}
	hostBits := bits - ones
	if hostBits == 0 {
		return false
	}
	for i := 0; i < 4; i++ {
		if ip4[i]&ifaceNet.Mask[i] != maskedNet[i]&ifaceNet.Mask[i] {
			return false
		}
	}
	broadcast := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		broadcast[i] = maskedNet[i] | ^ifaceNet.Mask[i]
	}
	return ip4.Equal(broadcast)
}

// IsBroadcast reports whether ip is a broadcast address: either the limited
// broadcast address or, when ifaceNet is known, the directed broadcast for
// that subnet.
func IsBroadcast(ip net.IP, ifaceNet *net.IPNet) bool {
	return IsLimitedBroadcast(ip) || IsSubnetBroadcast(ip, ifaceNet)
}
