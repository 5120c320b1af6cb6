package netinfo

import (
	"net"
	"os"
)

const loopback = "127.0.0.1"

// LocalIP resolves the host name to its first IPv4 address. Any failure
// yields the loopback address.
func LocalIP() string {
	host, err := os.Hostname()
	if err != nil {
		return loopback
	}
	return resolveIPv4(host)
}

func resolveIPv4(host string) string {
	addrs, err := net.LookupIP(host)
	if err != nil {
		return loopback
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4.String()
		}
	}
	return loopback
}
