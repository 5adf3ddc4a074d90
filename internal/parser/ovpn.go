package parser

import (
	"bufio"
	"io"
	"iter"
	"strings"

	"verify-ovpn/internal/model"
)

const (
	protoKeyword  = "proto"
	remoteKeyword = "remote"
	datagramName  = "udp"
)

// extractState counts directive observations. Any two observations
// complete the extraction, whichever directives they were.
type extractState int

const (
	stateStart extractState = iota
	stateProtocolSeen
	stateRemoteSeen
	stateComplete
)

func (s extractState) advance(seen extractState) extractState {
	if s == stateStart {
		return seen
	}
	return stateComplete
}

// Extract scans lines in order and returns the target once two directives
// have been observed. No line is pulled from the sequence after that point.
// The boolean is false when the sequence ends first.
func Extract(lines iter.Seq[string]) (model.Target, bool) {
	target := model.Target{Protocol: model.TCP}
	state := stateStart

	for line := range lines {
		if strings.Contains(line, protoKeyword) {
			state = state.advance(stateProtocolSeen)
			target.Protocol = parseProto(line)
		}
		if strings.Contains(line, remoteKeyword) {
			state = state.advance(stateRemoteSeen)
			target.Endpoint = parseRemote(line)
		}
		if state == stateComplete {
			return target, true
		}
	}
	return model.Target{}, false
}

// ExtractReader runs Extract over the lines of r. A read error is returned
// as is; an exhausted reader with no target is not an error.
func ExtractReader(r io.Reader) (model.Target, bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	target, ok := Extract(func(yield func(string) bool) {
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	})
	if ok {
		return target, true, nil
	}
	if err := scanner.Err(); err != nil {
		return model.Target{}, false, err
	}
	return model.Target{}, false, nil
}

func parseProto(line string) model.Protocol {
	if directiveArgs(line, protoKeyword) == datagramName {
		return model.UDP
	}
	return model.TCP
}

// parseRemote joins host and optional port with ':'. Extra tokens such as
// an inline protocol are dropped.
func parseRemote(line string) string {
	parts := strings.Fields(directiveArgs(line, remoteKeyword))
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ":")
}

func directiveArgs(line, keyword string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), keyword))
}
