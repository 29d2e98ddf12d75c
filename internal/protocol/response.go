package protocol

import (
	"bytes"
	"strings"
)

const (
	// ShortReadLen is the length under which a reply counts as a link glitch.
	ShortReadLen = 3
	// ErrorMarker flags a rejected command or handshake; matched case-insensitively.
	ErrorMarker = "error"
)

// Kind classifies a reply.
type Kind int

const (
	ShortRead Kind = iota
	Acknowledged
	Rejected
	Data
)

func (k Kind) String() string {
	switch k {
	case Acknowledged:
		return "acknowledged"
	case Rejected:
		return "rejected"
	case Data:
		return "data"
	default:
		return "short-read"
	}
}

// Response is a raw reply together with its classification.
type Response struct {
	Raw  []byte
	Kind Kind
}

// Payload returns the reply text without surrounding whitespace.
func (r Response) Payload() string {
	return strings.TrimSpace(string(r.Raw))
}

// Classify sorts raw into a Kind. An empty expected token means any
// non-error reply is Data.
func Classify(raw []byte, expected string) Kind {
	switch {
	case len(raw) < ShortReadLen:
		return ShortRead
	case expected != "" && bytes.Contains(raw, []byte(expected)):
		return Acknowledged
	case HasErrorMarker(raw):
		return Rejected
	case expected == "":
		return Data
	default:
		return Rejected
	}
}

// HasErrorMarker reports whether raw carries the error marker.
func HasErrorMarker(raw []byte) bool {
	return bytes.Contains(bytes.ToLower(raw), []byte(ErrorMarker))
}

// terminated reports whether raw ends in '\n', i.e. it is a complete reply
// rather than bytes cut off by the deadline.
func terminated(raw []byte) bool {
	return len(raw) > 0 && raw[len(raw)-1] == '\n'
}
