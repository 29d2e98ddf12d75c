// Package parser extracts numeric values from query replies.
//
// Query reply wire format (adapter -> host):
//
//	battery?   85\r\n
//	speed?     10.0\r\n
//	EXT tof?   tof 1234\r\n
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// DistancePrefixLen is the fixed width of the "tof " label in front of a
// range reading.
const DistancePrefixLen = 4

// ParseInt parses a decimal integer reply.
func ParseInt(raw []byte) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("invalid integer reply %q", raw)
	}
	return v, nil
}

// ParseFloat parses a decimal reply such as a speed.
func ParseFloat(raw []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float reply %q", raw)
	}
	return v, nil
}

// ParseDistance drops the first DistancePrefixLen bytes and parses the rest
// as an integer number of millimeters.
func ParseDistance(raw []byte) (int, error) {
	if len(raw) <= DistancePrefixLen {
		return 0, fmt.Errorf("distance reply too short %q", raw)
	}
	return ParseInt(raw[DistancePrefixLen:])
}
