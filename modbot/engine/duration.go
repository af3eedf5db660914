package engine

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Longest timeout the platform accepts: 28 days (2,419,200 seconds).
const MaxTimeout = 28 * 24 * time.Hour

var durationUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

var (
	ErrInvalidDuration = &ValidationError{Message: "Format de durée invalide. Utilise 'm' pour minutes, 'h' pour heures, 'd' pour jours (ex: 30m, 1h, 1d)."}
	ErrDurationTooLong = &ValidationError{Message: "La durée du mute ne peut pas dépasser 28 jours."}
)

// Parses a mute duration token: a decimal integer followed by exactly one unit letter,
// "m" (minutes), "h" (hours) or "d" (days). Eg: "30m", "1h", "7d". "0m" is a zero-length
// timeout, which the platform treats as already expired.
func ParseDuration(tok string) (time.Duration, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) < 2 {
		return 0, ErrInvalidDuration
	}
	unit, ok := durationUnits[tok[len(tok)-1]]
	if !ok {
		return 0, ErrInvalidDuration
	}

	digits := tok[:len(tok)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, ErrInvalidDuration
		}
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrDurationTooLong
	} else if err != nil {
		return 0, ErrInvalidDuration
	}
	// compare before multiplying, so huge values can't overflow
	if n > uint64(MaxTimeout/unit) {
		return 0, ErrDurationTooLong
	}
	return time.Duration(n) * unit, nil
}
