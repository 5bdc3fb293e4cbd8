package scheduler

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a wall-clock time of day at minute resolution.
type Clock int

// MinutesPerDay bounds every Clock value.
const MinutesPerDay = 24 * 60

// ParseClock parses HH:MM (24h).
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	value := Clock(hours*60 + minutes)
	if value > MinutesPerDay {
		return 0, fmt.Errorf("time %q is past midnight", raw)
	}
	return value, nil
}

// MustClock is ParseClock for literals.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add shifts the clock by minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeBlock is a contiguous same-day window [Start, End).
type TimeBlock struct {
	Start Clock `json:"start" toml:"start"`
	End   Clock `json:"end" toml:"end"`
}

// NewTimeBlock parses a block from HH:MM strings.
func NewTimeBlock(start, end string) (TimeBlock, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeBlock{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeBlock{}, err
	}
	return TimeBlock{Start: s, End: e}, nil
}

// Block is NewTimeBlock for literals.
func Block(start, end string) TimeBlock {
	b, err := NewTimeBlock(start, end)
	if err != nil {
		panic(err)
	}
	return b
}

// Duration in minutes.
func (b TimeBlock) Duration() int {
	return int(b.End - b.Start)
}

// Valid reports whether start < end.
func (b TimeBlock) Valid() bool {
	return b.Start < b.End
}

// Overlaps is the half-open interval test.
func (b TimeBlock) Overlaps(other TimeBlock) bool {
	return b.Start < other.End && other.Start < b.End
}

func (b TimeBlock) String() string {
	return b.Start.String() + "-" + b.End.String()
}
