package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

// Weekday names a day of the teaching week.
type Weekday string

const (
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
)

// Week is the canonical Saturday-first ordering.
var Week = []Weekday{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayOrdinal = func() map[Weekday]int {
	m := make(map[Weekday]int, len(Week))
	for i, d := range Week {
		m[d] = i
	}
	return m
}()

// ParseWeekday accepts any casing of the day name.
func ParseWeekday(raw string) (Weekday, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for _, d := range Week {
		if strings.ToLower(string(d)) == trimmed {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", raw)
}

// ParseWeekdays parses a list, failing on the first unknown name.
func ParseWeekdays(raw []string) ([]Weekday, error) {
	if raw == nil {
		return nil, nil
	}
	days := make([]Weekday, 0, len(raw))
	for _, item := range raw {
		d, err := ParseWeekday(item)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// Ordinal is the position in the canonical week, -1 if unknown.
func (d Weekday) Ordinal() int {
	if i, ok := weekdayOrdinal[d]; ok {
		return i
	}
	return -1
}

// Valid reports whether d is a known weekday.
func (d Weekday) Valid() bool {
	return d.Ordinal() >= 0
}

// UnmarshalText normalises casing.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WorkingDays returns the canonical week minus offDays, order preserved.
func WorkingDays(offDays []Weekday) []Weekday {
	off := make(map[Weekday]struct{}, len(offDays))
	for _, d := range offDays {
		off[d] = struct{}{}
	}
	result := make([]Weekday, 0, len(Week))
	for _, d := range Week {
		if _, skip := off[d]; skip {
			continue
		}
		result = append(result, d)
	}
	return result
}

// SortWeekdays orders days canonically in place.
func SortWeekdays(days []Weekday) {
	sort.Slice(days, func(i, j int) bool { return days[i].Ordinal() < days[j].Ordinal() })
}

// Shift is a daily schedule regime.
type Shift string

const (
	ShiftDay     Shift = "day"
	ShiftEvening Shift = "evening"
)

// Shifts lists supported shifts.
var Shifts = []Shift{ShiftDay, ShiftEvening}

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	return s == ShiftDay || s == ShiftEvening
}

// ParseShift defaults an empty value to the day shift.
func ParseShift(raw string) (Shift, error) {
	switch Shift(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ShiftDay:
		return ShiftDay, nil
	case ShiftEvening:
		return ShiftEvening, nil
	default:
		return "", fmt.Errorf("unknown shift %q", raw)
	}
}

// ClassType is the kind of class session.
type ClassType string

const (
	ClassTheory  ClassType = "theory"
	ClassLab     ClassType = "lab"
	ClassProject ClassType = "project"
)

// Valid reports whether t is a known class type.
func (t ClassType) Valid() bool {
	return t == ClassTheory || t == ClassLab || t == ClassProject
}

// Family folds project into lab.
func (t ClassType) Family() ClassType {
	if t == ClassProject {
		return ClassLab
	}
	return t
}

// IsLab reports whether t belongs to the lab family.
func (t ClassType) IsLab() bool {
	return t.Family() == ClassLab
}

// Allows reports whether a day constrained to t accepts a class of type other.
// An empty constraint accepts everything.
func (t ClassType) Allows(other ClassType) bool {
	if t == "" {
		return true
	}
	return t.Family() == other.Family()
}

// RoomType classifies classrooms.
type RoomType string

const (
	RoomLecture     RoomType = "lecture"
	RoomSeminar     RoomType = "seminar"
	RoomLaboratory  RoomType = "laboratory"
	RoomComputerLab RoomType = "computer_lab"
)

// Serves reports whether a room of this type can host classType.
func (r RoomType) Serves(classType ClassType) bool {
	switch classType.Family() {
	case ClassTheory:
		return r == RoomLecture || r == RoomSeminar
	case ClassLab:
		return r == RoomLaboratory || r == RoomComputerLab
	default:
		return false
	}
}
