package billing

import (
	"strings"

	"github.com/google/uuid"
)

// ParseCents parses a decimal money string such as "1,234.56" into integer
// cents. It rejects negative values and more than two decimal places rather
// than rounding them.
func ParseCents(s string) (int64, error) {
	return parseScaled("amount", s)
}

// ParseHours parses a decimal hours string such as "2.5" into seconds.
// At most two decimal places are accepted, which keeps the result exact.
func ParseHours(s string) (int64, error) {
	hundredths, err := parseScaled("hours", s)
	if err != nil {
		return 0, err
	}
	if hundredths > maxScaled/36 {
		return 0, computationErr(uuid.Nil, "hours", "too large")
	}
	return hundredths * (secondsPerHour / 100), nil
}

const maxScaled = int64(1) << 53

// parseScaled parses an unsigned decimal with up to two fractional digits into hundredths
func parseScaled(field, s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, computationErr(uuid.Nil, field, "is empty")
	}
	if strings.HasPrefix(s, "-") {
		return 0, computationErr(uuid.Nil, field, "must not be negative")
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, computationErr(uuid.Nil, field, "is not a number")
	}
	if len(frac) > 2 {
		return 0, computationErr(uuid.Nil, field, "has more than two decimal places")
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var value int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, computationErr(uuid.Nil, field, "is not a number")
		}
		value = value*10 + int64(r-'0')
		if value > maxScaled {
			return 0, computationErr(uuid.Nil, field, "too large")
		}
	}
	return value, nil
}
