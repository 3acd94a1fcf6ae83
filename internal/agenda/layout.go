package agenda

import (
	"strconv"
	"strings"
)

const (
	// DefaultHourHeight is the height of one hour on the timeline.
	DefaultHourHeight = 60.0
	// HoursPerDay is the length of the timeline, anchored at midnight.
	HoursPerDay = 24
	// DefaultCardPadding is the vertical gap the views leave between a card
	// and the hour lines around it.
	DefaultCardPadding = 9.0
)

// Box is a vertical placement on a single-day timeline.
type Box struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Inset shrinks b by pad, half at the top and half at the bottom. ok is false
// when nothing positive is left to draw.
func (b Box) Inset(pad float64) (Box, bool) {
	out := Box{Top: b.Top + pad/2, Height: b.Height - pad}
	return out, out.Height > 0
}

// Timeline converts "HH:mm - HH:mm" ranges into timeline boxes.
type Timeline struct {
	HourHeight float64
}

// Scale returns the height of one hour, falling back to DefaultHourHeight
// when HourHeight is unset.
func (t Timeline) Scale() float64 {
	if t.HourHeight <= 0 {
		return DefaultHourHeight
	}
	return t.HourHeight
}

// Height is the full 24h timeline height.
func (t Timeline) Height() float64 {
	return HoursPerDay * t.Scale()
}

// Layout places a time range. Unparsable tokens count as 00:00, and an end at
// or before the start gives a zero or negative height; callers decide whether
// to draw those.
func (t Timeline) Layout(timeRange string) Box {
	startStr, endStr := SplitRange(timeRange)
	start := ParseMinutes(startStr)
	end := ParseMinutes(endStr)

	hh := t.Scale()
	return Box{
		Top:    float64(start) / 60 * hh,
		Height: float64(end-start) / 60 * hh,
	}
}

// Offset returns the top position of a clock time, e.g. for a now-line.
func (t Timeline) Offset(clock string) float64 {
	return float64(ParseMinutes(clock)) / 60 * t.Scale()
}

// SplitRange splits "A - B" into its two tokens. A missing separator leaves
// end empty.
func SplitRange(timeRange string) (start, end string) {
	start, end, _ = strings.Cut(timeRange, rangeSep)
	return strings.TrimSpace(start), strings.TrimSpace(end)
}

// ParseMinutes converts "HH:mm" to minutes since midnight. Only the first
// two fields count, so "HH:mm:ss" parses too; anything malformed is 0.
func ParseMinutes(clock string) int {
	fields := strings.Split(strings.TrimSpace(clock), ":")
	if len(fields) < 2 {
		return 0
	}
	hStr, mStr := fields[0], fields[1]
	h, err := strconv.Atoi(hStr)
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(mStr)
	if err != nil {
		return 0
	}
	return h*60 + m
}
