package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Duration is a plan length in whole minutes. Backends send it as decimal
// hours ("1.5", 2.0); the fractional hour is kept as minutes.
type Duration struct {
	Minutes int
}

func Hours(h float64) Duration {
	return Duration{Minutes: int(math.Round(h * 60))}
}

// ParseDuration reads decimal hours such as "1", "1.0", "1.5" or "2.00".
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Duration{}, nil
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || h < 0 || math.IsInf(h, 0) || math.IsNaN(h) {
		return Duration{}, fmt.Errorf("invalid plan duration %q", s)
	}
	return Hours(h), nil
}

// SpillsOver reports whether a booking of this length also occupies the hour
// slot after the one it starts in. Only a non-zero fractional hour does.
func (d Duration) SpillsOver() bool {
	return d.Minutes%60 != 0
}

func (d Duration) String() string {
	return strconv.FormatFloat(float64(d.Minutes)/60, 'f', -1, 64)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d.Minutes) / 60)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = Duration{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
