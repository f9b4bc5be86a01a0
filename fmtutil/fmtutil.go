// Package fmtutil provides round-trip-safe textual formatting for the
// floating-point values that show up at the solver's external surface
// (objective scaling factors, LP relaxation bounds, reduced costs).
package fmtutil

import "strconv"

// RoundTripFloat formats x using the shortest decimal representation that
// parses back to the exact same float64, the same guarantee the original
// hand-rolled fp_roundtrip_conv routine provides.
func RoundTripFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// ParseRoundTripFloat parses a string produced by RoundTripFloat (or any
// other valid float64 literal) back into a float64.
func ParseRoundTripFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
