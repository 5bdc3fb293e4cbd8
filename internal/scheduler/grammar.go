package scheduler

import (
	"fmt"
	"sort"
)

// DaySlotConfig replaces a shift's default blocks for one day.
type DaySlotConfig struct {
	Blocks              []TimeBlock `json:"blocks"`
	ClassTypeConstraint ClassType   `json:"classTypeConstraint,omitempty"`
}

// ShiftTimeConfig is a shift's default blocks plus per-day exceptions.
type ShiftTimeConfig struct {
	DefaultBlocks []TimeBlock               `json:"defaultBlocks"`
	DayOverrides  map[Weekday]DaySlotConfig `json:"dayOverrides,omitempty"`
}

// Override returns the day's override when one is configured.
func (c ShiftTimeConfig) Override(day Weekday) (DaySlotConfig, bool) {
	override, ok := c.DayOverrides[day]
	return override, ok
}

// TimeSlots holds the configuration for both shifts.
type TimeSlots struct {
	Day     ShiftTimeConfig `json:"day"`
	Evening ShiftTimeConfig `json:"evening"`
}

// For returns the configuration of a shift.
func (t TimeSlots) For(shift Shift) ShiftTimeConfig {
	if shift == ShiftEvening {
		return t.Evening
	}
	return t.Day
}

// ConfigError reports a malformed time-slot configuration.
type ConfigError struct {
	Shift   Shift
	Day     Weekday
	Message string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Day != "":
		return fmt.Sprintf("%s shift, %s: %s", e.Shift, e.Day, e.Message)
	case e.Shift != "":
		return fmt.Sprintf("%s shift: %s", e.Shift, e.Message)
	default:
		return e.Message
	}
}

// Grammar answers which blocks are open for a shift on a given day.
type Grammar struct {
	slots       TimeSlots
	workingDays map[Shift][]Weekday
}

// NewGrammar validates slots and working days. Days missing from workingDays
// default to the full week.
func NewGrammar(slots TimeSlots, workingDays map[Shift][]Weekday) (*Grammar, error) {
	g := &Grammar{slots: slots, workingDays: make(map[Shift][]Weekday, len(Shifts))}
	for _, shift := range Shifts {
		cfg := slots.For(shift)
		if err := checkBlocks(cfg.DefaultBlocks); err != "" {
			return nil, &ConfigError{Shift: shift, Message: "default blocks: " + err}
		}
		for day, override := range cfg.DayOverrides {
			if !day.Valid() {
				return nil, &ConfigError{Shift: shift, Message: fmt.Sprintf("unknown weekday %q in overrides", day)}
			}
			if override.ClassTypeConstraint != "" && !override.ClassTypeConstraint.Valid() {
				return nil, &ConfigError{Shift: shift, Day: day, Message: fmt.Sprintf("unknown class type constraint %q", override.ClassTypeConstraint)}
			}
			if err := checkBlocks(override.Blocks); err != "" {
				return nil, &ConfigError{Shift: shift, Day: day, Message: err}
			}
		}

		days, ok := workingDays[shift]
		if !ok {
			days = WorkingDays(nil)
		}
		normalized := make([]Weekday, 0, len(days))
		seen := make(map[Weekday]bool, len(days))
		for _, d := range days {
			if !d.Valid() {
				return nil, &ConfigError{Shift: shift, Message: fmt.Sprintf("unknown working day %q", d)}
			}
			if seen[d] {
				continue
			}
			seen[d] = true
			normalized = append(normalized, d)
		}
		SortWeekdays(normalized)
		g.workingDays[shift] = normalized
	}
	return g, nil
}

// EffectiveBlocks returns the override for the day if present, else the
// shift's default blocks with no constraint. Blocks come back sorted.
func (g *Grammar) EffectiveBlocks(shift Shift, day Weekday) ([]TimeBlock, ClassType) {
	cfg := g.slots.For(shift)
	if override, ok := cfg.Override(day); ok {
		return sortedBlocks(override.Blocks), override.ClassTypeConstraint
	}
	return sortedBlocks(cfg.DefaultBlocks), ""
}

// WorkingDays returns the working days of a shift in canonical order.
func (g *Grammar) WorkingDays(shift Shift) []Weekday {
	days := g.workingDays[shift]
	out := make([]Weekday, len(days))
	copy(out, days)
	return out
}

// Slots exposes the validated configuration.
func (g *Grammar) Slots() TimeSlots {
	return g.slots
}

func checkBlocks(blocks []TimeBlock) string {
	sorted := sortedBlocks(blocks)
	for i, b := range sorted {
		if !b.Valid() {
			return fmt.Sprintf("block %s must start before it ends", b)
		}
		if b.End > MinutesPerDay {
			return fmt.Sprintf("block %s crosses midnight", b)
		}
		if i > 0 && sorted[i-1].Overlaps(b) {
			return fmt.Sprintf("blocks %s and %s overlap", sorted[i-1], b)
		}
	}
	return ""
}

func sortedBlocks(blocks []TimeBlock) []TimeBlock {
	out := make([]TimeBlock, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start == out[j].Start {
			return out[i].End < out[j].End
		}
		return out[i].Start < out[j].Start
	})
	return out
}
