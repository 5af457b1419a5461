// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: utils.go — alloc-free string helpers shared across packages
//
// Purpose:
//   - Integer formatting and stderr output without fmt on cold paths.
//   - Parsing for the operator-facing primes and memory-size flags.
//
// Notes:
//   - Itoa/Utoa build into a stack buffer and convert once.
//   - ParseByteSize follows the usual K/M/G/T suffix conventions.
// ─────────────────────────────────────────────────────────────────────────────

package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PrintWarning writes msg directly to stderr. No formatting, no allocation
// beyond the argument itself.
//
//go:inline
func PrintWarning(msg string) {
	os.Stderr.WriteString(msg)
}

// Itoa converts a signed integer to its decimal string.
//
//go:inline
func Itoa(n int) string {
	if n < 0 {
		return "-" + Utoa(uint64(-n))
	}
	return Utoa(uint64(n))
}

// Utoa converts an unsigned integer to its decimal string using a fixed
// stack buffer (20 digits covers the full uint64 range).
func Utoa(n uint64) string {
	var buf [20]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			break
		}
	}
	return string(buf[i:])
}

// ParseU32List parses a comma-separated list of unsigned 32-bit decimals,
// e.g. "4294967291,4294967279". Whitespace around entries is tolerated.
func ParseU32List(s string) ([]uint32, error) {
	parts := strings.Split(s, ",")
	out := make([]uint32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, uint32(v))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list %q", s)
	}
	return out, nil
}

// ParseByteSize parses human memory sizes such as "512MB", "2G" or "1073741824".
func ParseByteSize(s string) (uint64, error) {
	orig := s
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := uint64(1)
	switch {
	case strings.HasSuffix(s, "KB"):
		mult, s = 1<<10, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "MB"):
		mult, s = 1<<20, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "GB"):
		mult, s = 1<<30, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "TB"):
		mult, s = 1<<40, strings.TrimSuffix(s, "TB")
	case strings.HasSuffix(s, "K"):
		mult, s = 1<<10, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1<<20, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = 1<<30, strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		mult, s = 1<<40, strings.TrimSuffix(s, "T")
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", orig, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("negative size %q", orig)
	}
	return uint64(val * float64(mult)), nil
}

// Pct renders completed/total as a fixed one-decimal percentage, e.g. "42.7".
// Used by the coordinator's progress monitor.
func Pct(completed, total uint64) string {
	if total == 0 {
		return "0.0"
	}
	tenths := completed * 1000 / total
	return Utoa(tenths/10) + "." + Utoa(tenths%10)
}
