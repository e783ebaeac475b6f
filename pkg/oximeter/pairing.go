package oximeter

import "github.com/HatiCode/pulseox/pkg/ppg"

// State is the position of the pairing cycle.
type State int

const (
	// WaitingForFirst means neither channel has contributed to the current cycle.
	WaitingForFirst State = iota
	// WaitingForSecond means exactly one channel has contributed.
	WaitingForSecond
)

func (s State) String() string {
	switch s {
	case WaitingForFirst:
		return "waiting_for_first"
	case WaitingForSecond:
		return "waiting_for_second"
	default:
		return "unknown"
	}
}

// pairing holds the latest measurement per channel for the current cycle.
// A repeated submission of the same channel replaces its slot.
type pairing struct {
	red *ppg.Measurement
	ir  *ppg.Measurement
}

func (p pairing) state() State {
	if p.red == nil && p.ir == nil {
		return WaitingForFirst
	}
	return WaitingForSecond
}

func (p pairing) complete() bool {
	return p.red != nil && p.ir != nil
}

// with returns a copy of p with m stored in its channel's slot.
func (p pairing) with(m ppg.Measurement) pairing {
	switch m.Channel {
	case ppg.Red:
		p.red = &m
	case ppg.Infrared:
		p.ir = &m
	}
	return p
}
