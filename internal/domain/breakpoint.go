package domain

import "fmt"

// Breakpoint names a viewport tier with its own layout/style overrides.
type Breakpoint string

const (
	BreakpointDefault Breakpoint = "default"
	BreakpointTablet  Breakpoint = "tablet"
	BreakpointMobile  Breakpoint = "mobile"
)

// Breakpoints lists every tier in cascade order.
var Breakpoints = []Breakpoint{BreakpointDefault, BreakpointTablet, BreakpointMobile}

// ParseBreakpoint accepts "default", "desktop" (alias of default), "tablet"
// and "mobile". An empty string is the default tier.
func ParseBreakpoint(s string) (Breakpoint, error) {
	switch s {
	case "", "default", "desktop":
		return BreakpointDefault, nil
	case "tablet":
		return BreakpointTablet, nil
	case "mobile":
		return BreakpointMobile, nil
	}
	return "", newError(CodeUnknownBreakpoint, "", "unknown breakpoint %q", s)
}

func (b Breakpoint) Valid() bool {
	switch b {
	case BreakpointDefault, BreakpointTablet, BreakpointMobile:
		return true
	}
	return false
}

func (b Breakpoint) String() string { return string(b) }

type BreakpointWidths struct {
	Tablet int `json:"tablet"`
	Mobile int `json:"mobile"`
}

// ResponsiveConfig holds the breakpoint thresholds of a page.
type ResponsiveConfig struct {
	Breakpoints   BreakpointWidths `json:"breakpoints"`
	DefaultDevice string           `json:"defaultDevice"`
}

// DefaultResponsiveConfig returns the thresholds new pages start with.
func DefaultResponsiveConfig() ResponsiveConfig {
	return ResponsiveConfig{
		Breakpoints:   BreakpointWidths{Tablet: 1024, Mobile: 768},
		DefaultDevice: "desktop",
	}
}

// BreakpointForWidth maps a viewport width to its tier. Widths at or below a
// threshold fall into that tier.
func (r ResponsiveConfig) BreakpointForWidth(width int) Breakpoint {
	switch {
	case r.Breakpoints.Mobile > 0 && width <= r.Breakpoints.Mobile:
		return BreakpointMobile
	case r.Breakpoints.Tablet > 0 && width <= r.Breakpoints.Tablet:
		return BreakpointTablet
	}
	return BreakpointDefault
}

// ActiveBreakpoint returns the tier selected by DefaultDevice.
func (r ResponsiveConfig) ActiveBreakpoint() Breakpoint {
	bp, err := ParseBreakpoint(r.DefaultDevice)
	if err != nil {
		return BreakpointDefault
	}
	return bp
}

func (r ResponsiveConfig) validate() error {
	if r.Breakpoints.Tablet < 0 || r.Breakpoints.Mobile < 0 {
		return newError(CodeMalformedOverride, "", "breakpoint widths must be non-negative")
	}
	if r.Breakpoints.Tablet > 0 && r.Breakpoints.Mobile > r.Breakpoints.Tablet {
		return newError(CodeMalformedOverride, "", "mobile width %d exceeds tablet width %d", r.Breakpoints.Mobile, r.Breakpoints.Tablet)
	}
	if _, err := ParseBreakpoint(r.DefaultDevice); err != nil {
		return fmt.Errorf("default device: %w", err)
	}
	return nil
}
