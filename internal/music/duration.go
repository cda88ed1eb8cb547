package music

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultBPM is the tempo used to realise symbolic durations.
const DefaultBPM = 120

// ParseDuration converts a symbolic length ("4n", "8n.", "1m", "8t") into a
// time at bpm quarter notes per minute.
func ParseDuration(sym string, bpm int) (time.Duration, error) {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	quarter := time.Minute / time.Duration(bpm)

	s := strings.TrimSpace(sym)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, ok := strings.CutSuffix(s, "m"); ok {
		bars, err := strconv.Atoi(n)
		if err != nil || bars <= 0 {
			return 0, fmt.Errorf("invalid duration %q", sym)
		}
		return time.Duration(bars) * 4 * quarter, nil
	}

	dotted := strings.HasSuffix(s, ".")
	s = strings.TrimSuffix(s, ".")
	triplet := false
	switch {
	case strings.HasSuffix(s, "n"):
		s = strings.TrimSuffix(s, "n")
	case strings.HasSuffix(s, "t"):
		s = strings.TrimSuffix(s, "t")
		triplet = true
	default:
		return 0, fmt.Errorf("invalid duration %q", sym)
	}

	div, err := strconv.Atoi(s)
	if err != nil || div <= 0 {
		return 0, fmt.Errorf("invalid duration %q", sym)
	}
	d := 4 * quarter / time.Duration(div)
	if triplet {
		d = d * 2 / 3
	}
	if dotted {
		d += d / 2
	}
	return d, nil
}
