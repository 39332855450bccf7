// Package parse converts free-text table cells into numeric quantities.
//
// Every function here is total: malformed or empty input yields 0.
// The host page's markup is outside our control, so nothing is reported.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	kbPerGB = 1024 * 1024
	mbPerGB = 1024
)

var (
	separators   = regexp.MustCompile(`[,\s]`)
	signedInt    = regexp.MustCompile(`-?\d+`)
	storageToken = regexp.MustCompile(`([\d.]+)(gb|mb|kb)?`)
	floatPrefix  = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)
)

// RecordCount extracts the first signed integer from text after removing
// thousands separators and whitespace. e.g. "12,345 records" -> 12345.
// Negative values are returned as-is; pricing clamps them.
func RecordCount(text string) int64 {
	clean := separators.ReplaceAllString(text, "")
	m := signedInt.FindString(clean)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// StorageGB parses a storage cell into gigabytes. The unit defaults to GB.
// e.g. "1024 MB" -> 1, "1048576kb" -> 1, "2.5GB" -> 2.5
func StorageGB(text string) float64 {
	clean := strings.ToLower(separators.ReplaceAllString(text, ""))
	m := storageToken.FindStringSubmatch(clean)
	if m == nil {
		return 0
	}

	value := LeadingFloat(m[1])
	switch m[2] {
	case "kb":
		return value / kbPerGB
	case "mb":
		return value / mbPerGB
	default:
		return value
	}
}

// LeadingFloat parses the longest numeric prefix of s, ignoring the rest.
// "1.2.3" -> 1.2, "." -> 0, "-4.5x" -> -4.5
func LeadingFloat(s string) float64 {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// CostText recovers the numeric value of a rendered cost cell by keeping
// only digits, dots and minus signs. "$1,234.50" -> 1234.5, "" -> 0
func CostText(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return LeadingFloat(b.String())
}
