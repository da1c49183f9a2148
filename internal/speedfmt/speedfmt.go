// Package speedfmt turns raw throughput and latency measurements into display strings.
package speedfmt

import (
	"fmt"
	"math"
	"strings"
)

// PingRounding selects how ping latency is rounded for display
type PingRounding int

const (
	// RoundInteger rounds ping to the nearest whole millisecond
	RoundInteger PingRounding = iota
	// RoundTwoDecimals keeps two decimal places
	RoundTwoDecimals
)

// String returns the config spelling of the policy
func (p PingRounding) String() string {
	switch p {
	case RoundTwoDecimals:
		return "two_decimals"
	default:
		return "integer"
	}
}

// ParsePingRounding parses the config spelling of a rounding policy
func ParsePingRounding(s string) (PingRounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "integer":
		return RoundInteger, nil
	case "two_decimals":
		return RoundTwoDecimals, nil
	default:
		return RoundInteger, fmt.Errorf("unknown ping rounding %q", s)
	}
}

// FormatRate renders a bits/second rate in Mbps, or Kbps below 1 Mbps.
// Exactly 1,000,000 bits/second is "1.0 Mbps".
func FormatRate(bps float64) string {
	if bps < 0 || math.IsNaN(bps) {
		bps = 0
	}
	mbps := bps / 1_000_000
	if mbps >= 1 {
		return fmt.Sprintf("%.1f Mbps", mbps)
	}
	return fmt.Sprintf("%.1f Kbps", bps/1_000)
}

// RoundPing rounds a latency in milliseconds according to the policy
func RoundPing(ms float64, policy PingRounding) float64 {
	if policy == RoundTwoDecimals {
		return math.Round(ms*100) / 100
	}
	return math.Round(ms)
}

// FormatPing renders a rounded latency with its unit
func FormatPing(ms float64, policy PingRounding) string {
	if policy == RoundTwoDecimals {
		return fmt.Sprintf("%.2f ms", RoundPing(ms, policy))
	}
	return fmt.Sprintf("%d ms", int64(RoundPing(ms, policy)))
}
