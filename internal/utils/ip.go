package utils

import (
	"net"
	"strings"
)

// SplitEndpoint separates an endpoint into host and port. A bare host
// returns an empty port; bracketed IPv6 literals are unwrapped.
func SplitEndpoint(endpoint string) (host, port string) {
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		return h, p
	}
	return strings.Trim(endpoint, "[]"), ""
}

// HostIP returns the endpoint host as an IP, or nil when the host is a name.
func HostIP(endpoint string) net.IP {
	host, _ := SplitEndpoint(endpoint)
	return net.ParseIP(host)
}
