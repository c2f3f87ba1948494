package util

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a byte size such as "10MB", "512KB" or "1024".
// Units are binary and case-insensitive.
func ParseSize(s string) (int64, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return 0, fmt.Errorf("empty size")
	}
	factor := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(raw, u.suffix) {
			factor = u.factor
			raw = strings.TrimSpace(strings.TrimSuffix(raw, u.suffix))
			break
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * factor, nil
}

// MaskSecret keeps the first visible runes of s and masks the rest. Values
// no longer than visible are masked entirely.
func MaskSecret(s string, visible int) string {
	r := []rune(s)
	if len(r) <= visible {
		return "***"
	}
	return string(r[:visible]) + "***"
}

// RedactURL masks the password in a connection URL. Unparseable input is
// masked entirely.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
