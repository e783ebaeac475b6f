package ppg

import (
	"fmt"
	"strings"
)

// Channel identifies the optical channel a trace was captured on.
type Channel string

const (
	Red      Channel = "red"
	Infrared Channel = "infrared"
)

// ParseChannel accepts "red", "infrared" and the short form "ir", case-insensitively.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "ir", "infrared":
		return Infrared, nil
	default:
		return "", fmt.Errorf("unknown channel %q (must be red, ir or infrared)", s)
	}
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	return c == Red || c == Infrared
}

func (c Channel) String() string {
	return string(c)
}
