package netinfo

import (
	"net"
	"testing"
)

func TestResolveIPv4(t *testing.T) {
	if got := resolveIPv4("localhost"); net.ParseIP(got).To4() == nil {
		t.Fatalf("resolveIPv4(localhost) = %q, want an IPv4 address", got)
	}
	if got := resolveIPv4("host.invalid"); got != loopback {
		t.Fatalf("resolveIPv4(invalid) = %q, want %q", got, loopback)
	}
}

func TestLocalIPIsIPv4(t *testing.T) {
	if net.ParseIP(LocalIP()).To4() == nil {
		t.Fatalf("LocalIP() = %q, want an IPv4 address", LocalIP())
	}
}
