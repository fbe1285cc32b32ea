package format

import (
	"fmt"
	"strconv"
	"strings"
)

var byteUnits = [...]string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes renders a byte count with binary units, e.g. "1.50 GiB".
// Values below 1 KiB are printed as whole bytes.
func FormatBytes(b uint64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[unit])
}

// FormatSignedBytes renders a signed byte rate such as a growth per tick,
// with an explicit sign for non-zero values.
func FormatSignedBytes(b float64) string {
	switch {
	case b > 0:
		return "+" + FormatBytes(uint64(b))
	case b < 0:
		return "-" + FormatBytes(uint64(-b))
	default:
		return "0 B"
	}
}

// FormatPercent renders a ratio in [0, 1] as a percentage with one decimal.
func FormatPercent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
}

// FormatNumberString inserts thousands separators into a decimal string.
// A leading minus sign is preserved.
func FormatNumberString(s string) string {
	if s == "" {
		return ""
	}
	prefix := ""
	if s[0] == '-' {
		prefix = "-"
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		return prefix + s
	}

	var sb strings.Builder
	sb.Grow(n + n/3)
	head := n % 3
	if head == 0 {
		head = 3
	}
	sb.WriteString(s[:head])
	for i := head; i < n; i += 3 {
		sb.WriteByte(',')
		sb.WriteString(s[i : i+3])
	}
	return prefix + sb.String()
}

// FormatCount renders an unsigned counter with thousands separators.
func FormatCount(n uint64) string {
	return FormatNumberString(strconv.FormatUint(n, 10))
}
