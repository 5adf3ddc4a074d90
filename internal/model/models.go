package model

import "time"

type Protocol string // "tcp", "udp"

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// Target is the (protocol, endpoint) pair extracted from one config.
type Target struct {
	Protocol Protocol
	Endpoint string // "host:port" or bare "host"; not validated
}

// Outcome is the result of verifying a single config.
type Outcome struct {
	Config    string // identifier handed out by the enumerator
	Target    Target
	Extracted bool // false when no usable target was found or the content was unreadable
	Reachable bool
	Err       error
	Duration  time.Duration
}

type Tally struct {
	Total      int
	Successful int
}

type Report struct {
	Tally     Tally
	Succeeded []string
}
