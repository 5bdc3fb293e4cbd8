package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/noah-isme/class-scheduler/internal/scheduler"
)

// Scenario is an offline planning input read from a TOML file.
type Scenario struct {
	Durations   DurationsScenario        `toml:"durations"`
	Shifts      map[string]ShiftScenario `toml:"shifts"`
	Options     OptionsScenario          `toml:"options"`
	Rooms       []RoomScenario           `toml:"rooms"`
	Offerings   []OfferingScenario       `toml:"offerings"`
	Unavailable []UnavailableScenario    `toml:"unavailable"`
}

type DurationsScenario struct {
	Theory  int `toml:"theory"`
	Lab     int `toml:"lab"`
	Project int `toml:"project"`
}

type ShiftScenario struct {
	Blocks    []string                    `toml:"blocks"`
	OffDays   []string                    `toml:"off_days"`
	Overrides map[string]OverrideScenario `toml:"overrides"`
}

type OverrideScenario struct {
	Blocks    []string `toml:"blocks"`
	ClassType string   `toml:"class_type"`
}

type OptionsScenario struct {
	GroupLabsTogether bool   `toml:"group_labs_together"`
	TargetShift       string `toml:"target_shift"`
	PreferredTheory   string `toml:"preferred_theory_room"`
	PreferredLab      string `toml:"preferred_lab_room"`
}

type RoomScenario struct {
	ID       string `toml:"id"`
	Number   string `toml:"number"`
	Type     string `toml:"type"`
	Capacity int    `toml:"capacity"`
}

type OfferingScenario struct {
	BatchID         string `toml:"batch_id"`
	BatchCode       string `toml:"batch_code"`
	Shift           string `toml:"shift"`
	CourseID        string `toml:"course_id"`
	CourseCode      string `toml:"course_code"`
	Title           string `toml:"title"`
	ClassType       string `toml:"class_type"`
	SessionsPerWeek int    `toml:"sessions_per_week"`
	TeacherID       string `toml:"teacher_id"`
}

type UnavailableScenario struct {
	TeacherID string `toml:"teacher_id"`
	Day       string `toml:"day"`
	Start     string `toml:"start"`
	End       string `toml:"end"`
}

func defaultScenario() Scenario {
	return Scenario{Durations: DurationsScenario{Theory: 75, Lab: 100, Project: 100}}
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc := defaultScenario()
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// Grammar builds the time grammar. Shifts missing from the file have no blocks.
func (s *Scenario) Grammar() (*scheduler.Grammar, error) {
	var slots scheduler.TimeSlots
	working := make(map[scheduler.Shift][]scheduler.Weekday, len(s.Shifts))
	for name, raw := range s.Shifts {
		shift, err := scheduler.ParseShift(name)
		if err != nil {
			return nil, &scheduler.ConfigError{Message: err.Error()}
		}
		cfg, err := raw.config(shift)
		if err != nil {
			return nil, err
		}
		if shift == scheduler.ShiftEvening {
			slots.Evening = cfg
		} else {
			slots.Day = cfg
		}
		off, err := scheduler.ParseWeekdays(raw.OffDays)
		if err != nil {
			return nil, &scheduler.ConfigError{Shift: shift, Message: "off days: " + err.Error()}
		}
		working[shift] = scheduler.WorkingDays(off)
	}
	return scheduler.NewGrammar(slots, working)
}

func (s ShiftScenario) config(shift scheduler.Shift) (scheduler.ShiftTimeConfig, error) {
	cfg := scheduler.ShiftTimeConfig{}
	blocks, err := parseBlocks(shift, "", s.Blocks)
	if err != nil {
		return cfg, err
	}
	cfg.DefaultBlocks = blocks
	if len(s.Overrides) == 0 {
		return cfg, nil
	}
	cfg.DayOverrides = make(map[scheduler.Weekday]scheduler.DaySlotConfig, len(s.Overrides))
	for rawDay, override := range s.Overrides {
		day, err := scheduler.ParseWeekday(rawDay)
		if err != nil {
			return cfg, &scheduler.ConfigError{Shift: shift, Message: err.Error()}
		}
		blocks, err := parseBlocks(shift, day, override.Blocks)
		if err != nil {
			return cfg, err
		}
		cfg.DayOverrides[day] = scheduler.DaySlotConfig{
			Blocks:              blocks,
			ClassTypeConstraint: scheduler.ClassType(strings.ToLower(override.ClassType)),
		}
	}
	return cfg, nil
}

func parseBlocks(shift scheduler.Shift, day scheduler.Weekday, raw []string) ([]scheduler.TimeBlock, error) {
	blocks := make([]scheduler.TimeBlock, 0, len(raw))
	for _, entry := range raw {
		start, end, ok := strings.Cut(entry, "-")
		if !ok {
			return nil, &scheduler.ConfigError{Shift: shift, Day: day, Message: fmt.Sprintf("block %q must look like HH:MM-HH:MM", entry)}
		}
		block, err := scheduler.NewTimeBlock(strings.TrimSpace(start), strings.TrimSpace(end))
		if err != nil {
			return nil, &scheduler.ConfigError{Shift: shift, Day: day, Message: err.Error()}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (s *Scenario) rooms() []scheduler.Room {
	out := make([]scheduler.Room, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		out = append(out, scheduler.Room{ID: r.ID, Number: r.Number, Type: scheduler.RoomType(strings.ToLower(r.Type)), Capacity: r.Capacity})
	}
	return out
}

func (s *Scenario) offerings() []scheduler.Offering {
	out := make([]scheduler.Offering, 0, len(s.Offerings))
	for _, o := range s.Offerings {
		shift, err := scheduler.ParseShift(o.Shift)
		if err != nil {
			shift = scheduler.Shift(o.Shift)
		}
		out = append(out, scheduler.Offering{
			BatchID:         o.BatchID,
			BatchCode:       firstNonEmpty(o.BatchCode, o.BatchID),
			BatchShift:      shift,
			CourseID:        firstNonEmpty(o.CourseID, o.CourseCode),
			CourseCode:      o.CourseCode,
			CourseTitle:     o.Title,
			ClassType:       scheduler.ClassType(strings.ToLower(o.ClassType)),
			SessionsPerWeek: o.SessionsPerWeek,
			TeacherID:       o.TeacherID,
		})
	}
	return out
}

func (s *Scenario) batches() []scheduler.BatchScope {
	seen := make(map[string]bool)
	var out []scheduler.BatchScope
	for _, o := range s.offerings() {
		if seen[o.BatchID] {
			continue
		}
		seen[o.BatchID] = true
		out = append(out, scheduler.BatchScope{ID: o.BatchID, Code: o.BatchCode, Shift: o.BatchShift})
	}
	return out
}

func (s *Scenario) options() scheduler.Options {
	return scheduler.Options{
		GroupLabsTogether: s.Options.GroupLabsTogether,
		TargetShift:       scheduler.Shift(strings.ToLower(s.Options.TargetShift)),
		PreferredRooms:    scheduler.PreferredRooms{Theory: s.Options.PreferredTheory, Lab: s.Options.PreferredLab},
	}
}

func (s *Scenario) durations() scheduler.Durations {
	return scheduler.Durations{Theory: s.Durations.Theory, Lab: s.Durations.Lab, Project: s.Durations.Project}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
