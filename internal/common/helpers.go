package common

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const (
	XELDecimals = 8 // XEL has 8 decimals (atomic units)
)

// ErrInvalidAmount is returned for amounts that are malformed, zero where a
// positive value is required, or that overflow u64 atomic units.
var ErrInvalidAmount = errors.New("invalid amount")

// FormatAmount converts atomic units to a XEL string without float precision loss
func FormatAmount(atomic uint64) string {
	return formatWithDecimals(atomic, XELDecimals)
}

// ParseAmount converts a XEL string to atomic units without float precision loss.
// Fractional digits beyond the asset precision are rejected, not truncated.
func ParseAmount(s string) (uint64, error) {
	v, err := parseWithDecimals(s, XELDecimals)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return v, nil
}

// ParsePositiveAmount is ParseAmount that also rejects zero.
func ParsePositiveAmount(s string) (uint64, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	return v, nil
}

// formatWithDecimals converts integer to decimal string by inserting decimal point
// Example: formatWithDecimals(2498183600, 8) = "24.98183600"
func formatWithDecimals(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	// Insert decimal point
	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}

// parseWithDecimals converts decimal string to integer by removing decimal point
// Example: parseWithDecimals("24.981836", 8) = 2498183600
func parseWithDecimals(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty string")
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if hasPoint && strings.Contains(frac, ".") {
		return 0, errors.New("invalid decimal format")
	}
	if whole == "" && frac == "" {
		return 0, errors.New("no digits")
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("at most %d decimal places", decimals)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, errors.New("not a number")
	}

	var w uint64
	if whole != "" {
		var err error
		w, err = strconv.ParseUint(whole, 10, 64)
		if err != nil {
			return 0, errors.New("amount too large")
		}
	}

	scale := uint64(1)
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	hi, lo := bits.Mul64(w, scale)
	if hi != 0 {
		return 0, errors.New("amount too large")
	}

	var f uint64
	if frac != "" {
		frac += strings.Repeat("0", decimals-len(frac))
		f, _ = strconv.ParseUint(frac, 10, 64)
	}

	sum, carry := bits.Add64(lo, f, 0)
	if carry != 0 {
		return 0, errors.New("amount too large")
	}
	return sum, nil
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
