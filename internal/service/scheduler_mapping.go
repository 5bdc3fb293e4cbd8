package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/models"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	"github.com/noah-isme/class-scheduler/pkg/config"
)

// ScheduleGeneratorConfig carries the operator defaults the generator falls back to.
type ScheduleGeneratorConfig struct {
	Durations scheduler.Durations
	Slots     scheduler.TimeSlots
	OffDays   map[scheduler.Shift][]scheduler.Weekday
}

// GeneratorConfigFromSettings parses the scheduler section of the application config.
func GeneratorConfigFromSettings(cfg config.SchedulerConfig) (ScheduleGeneratorConfig, error) {
	out := ScheduleGeneratorConfig{
		Durations: scheduler.Durations{Theory: cfg.TheoryMinutes, Lab: cfg.LabMinutes, Project: cfg.ProjectMinutes},
		OffDays:   make(map[scheduler.Shift][]scheduler.Weekday, len(scheduler.Shifts)),
	}
	dayBlocks, err := parseBlockList(scheduler.ShiftDay, cfg.DefaultDayBlocks)
	if err != nil {
		return out, err
	}
	eveningBlocks, err := parseBlockList(scheduler.ShiftEvening, cfg.DefaultEvening)
	if err != nil {
		return out, err
	}
	out.Slots = scheduler.TimeSlots{
		Day:     scheduler.ShiftTimeConfig{DefaultBlocks: dayBlocks},
		Evening: scheduler.ShiftTimeConfig{DefaultBlocks: eveningBlocks},
	}
	for shift, raw := range map[scheduler.Shift][]string{scheduler.ShiftDay: cfg.DayOffDays, scheduler.ShiftEvening: cfg.EveningOffDays} {
		days, err := scheduler.ParseWeekdays(raw)
		if err != nil {
			return out, &scheduler.ConfigError{Shift: shift, Message: "off days: " + err.Error()}
		}
		out.OffDays[shift] = days
	}
	if _, err := scheduler.NewGrammar(out.Slots, nil); err != nil {
		return out, err
	}
	return out, nil
}

// parseBlockList reads "HH:MM-HH:MM" entries.
func parseBlockList(shift scheduler.Shift, raw []string) ([]scheduler.TimeBlock, error) {
	blocks := make([]scheduler.TimeBlock, 0, len(raw))
	for _, entry := range raw {
		start, end, ok := strings.Cut(entry, "-")
		if !ok {
			return nil, &scheduler.ConfigError{Shift: shift, Message: fmt.Sprintf("block %q must look like HH:MM-HH:MM", entry)}
		}
		block, err := scheduler.NewTimeBlock(start, end)
		if err != nil {
			return nil, &scheduler.ConfigError{Shift: shift, Message: err.Error()}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func shiftConfigFromRequest(shift scheduler.Shift, req *dto.ShiftTimeConfigRequest) (scheduler.ShiftTimeConfig, error) {
	cfg := scheduler.ShiftTimeConfig{}
	defaults, err := blocksFromRequest(shift, "", req.DefaultBlocks)
	if err != nil {
		return cfg, err
	}
	cfg.DefaultBlocks = defaults
	if len(req.DayOverrides) == 0 {
		return cfg, nil
	}
	cfg.DayOverrides = make(map[scheduler.Weekday]scheduler.DaySlotConfig, len(req.DayOverrides))
	for rawDay, override := range req.DayOverrides {
		day, err := scheduler.ParseWeekday(rawDay)
		if err != nil {
			return cfg, &scheduler.ConfigError{Shift: shift, Message: err.Error()}
		}
		blocks, err := blocksFromRequest(shift, day, override.Blocks)
		if err != nil {
			return cfg, err
		}
		cfg.DayOverrides[day] = scheduler.DaySlotConfig{
			Blocks:              blocks,
			ClassTypeConstraint: scheduler.ClassType(strings.ToLower(override.ClassTypeConstraint)),
		}
	}
	return cfg, nil
}

func blocksFromRequest(shift scheduler.Shift, day scheduler.Weekday, raw []dto.TimeBlockRequest) ([]scheduler.TimeBlock, error) {
	blocks := make([]scheduler.TimeBlock, 0, len(raw))
	for _, b := range raw {
		block, err := scheduler.NewTimeBlock(b.Start, b.End)
		if err != nil {
			return nil, &scheduler.ConfigError{Shift: shift, Day: day, Message: err.Error()}
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// normalizeShift keeps unknown values verbatim so validation can report them.
func normalizeShift(raw string) scheduler.Shift {
	shift, err := scheduler.ParseShift(raw)
	if err != nil {
		return scheduler.Shift(strings.ToLower(strings.TrimSpace(raw)))
	}
	return shift
}

func batchScopes(batches []models.Batch) []scheduler.BatchScope {
	out := make([]scheduler.BatchScope, 0, len(batches))
	for _, b := range batches {
		out = append(out, scheduler.BatchScope{ID: b.ID, Code: b.Code, Shift: normalizeShift(b.Shift)})
	}
	return out
}

func offeringsFromCourses(courses []models.BatchCourse) []scheduler.Offering {
	out := make([]scheduler.Offering, 0, len(courses))
	for _, c := range courses {
		o := scheduler.Offering{
			BatchID:         c.BatchID,
			BatchCode:       c.BatchCode,
			BatchShift:      normalizeShift(c.BatchShift),
			BatchSize:       c.StudentCount,
			CourseID:        c.SessionCourseID,
			CourseCode:      c.CourseCode,
			CourseTitle:     c.CourseTitle,
			Semester:        c.Semester,
			DepartmentID:    c.DepartmentID,
			ClassType:       scheduler.ClassType(strings.ToLower(strings.TrimSpace(c.ClassType))),
			SessionsPerWeek: c.SessionsPerWeek,
		}
		if c.TeacherID != nil {
			o.TeacherID = *c.TeacherID
		}
		if c.TeacherName != nil {
			o.TeacherName = *c.TeacherName
		}
		out = append(out, o)
	}
	return out
}

func roomsFromClassrooms(classrooms []models.Classroom) []scheduler.Room {
	out := make([]scheduler.Room, 0, len(classrooms))
	for _, c := range classrooms {
		out = append(out, scheduler.Room{
			ID:       c.ID,
			Number:   c.RoomNumber,
			Type:     scheduler.RoomType(strings.ToLower(strings.TrimSpace(c.RoomType))),
			Capacity: c.Capacity,
		})
	}
	return out
}

// assignmentsFromSchedules converts live rows for seeding. Rows with malformed
// days or times are skipped and logged.
func assignmentsFromSchedules(rows []models.ClassSchedule, logger *zap.Logger) []scheduler.Assignment {
	out := make([]scheduler.Assignment, 0, len(rows))
	for _, row := range rows {
		a, err := assignmentFromSchedule(row)
		if err != nil {
			logger.Warn("skipping malformed class schedule", zap.String("schedule_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out
}

func assignmentFromSchedule(row models.ClassSchedule) (scheduler.Assignment, error) {
	days, err := scheduler.ParseWeekdays(row.DaysOfWeek)
	if err != nil {
		return scheduler.Assignment{}, err
	}
	block, err := scheduler.NewTimeBlock(row.StartTime, row.EndTime)
	if err != nil {
		return scheduler.Assignment{}, err
	}
	if !block.Valid() {
		return scheduler.Assignment{}, fmt.Errorf("time window %s is empty", block)
	}
	return scheduler.Assignment{
		BatchID:    row.BatchID,
		CourseID:   row.SessionCourseID,
		TeacherID:  row.TeacherID,
		RoomID:     row.ClassroomID,
		DaysOfWeek: days,
		Start:      block.Start,
		End:        block.End,
		ClassType:  scheduler.ClassType(row.ClassType),
	}, nil
}

func schedulesFromAssignments(proposal *models.ScheduleProposal, assignments []scheduler.Assignment) []models.ClassSchedule {
	rows := make([]models.ClassSchedule, 0, len(assignments))
	proposalID := proposal.ID
	for _, a := range assignments {
		days := make([]string, 0, len(a.DaysOfWeek))
		for _, d := range a.DaysOfWeek {
			days = append(days, string(d))
		}
		rows = append(rows, models.ClassSchedule{
			SessionID:       proposal.SessionID,
			BatchID:         a.BatchID,
			SessionCourseID: a.CourseID,
			TeacherID:       a.TeacherID,
			ClassroomID:     a.RoomID,
			DaysOfWeek:      days,
			StartTime:       a.Start.String(),
			EndTime:         a.End.String(),
			ClassType:       string(a.ClassType),
			Status:          models.ClassScheduleActive,
			ProposalID:      &proposalID,
		})
	}
	return rows
}

func decodeAssignments(p *models.ScheduleProposal) ([]scheduler.Assignment, error) {
	assignments := []scheduler.Assignment{}
	if len(p.ScheduleData) == 0 {
		return assignments, nil
	}
	if err := json.Unmarshal(p.ScheduleData, &assignments); err != nil {
		return nil, fmt.Errorf("decode proposal %s schedule data: %w", p.ID, err)
	}
	return assignments, nil
}

func decodeMetadata(raw []byte) (dto.ProposalMetadata, error) {
	var meta dto.ProposalMetadata
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("decode proposal metadata: %w", err)
	}
	return meta, nil
}

func proposalResponse(p *models.ScheduleProposal) (*dto.ProposalResponse, error) {
	assignments, err := decodeAssignments(p)
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(p.Metadata)
	if err != nil {
		return nil, err
	}
	return &dto.ProposalResponse{
		ID:           p.ID,
		SessionID:    p.SessionID,
		Status:       string(p.Status),
		ScheduleData: assignments,
		Metadata:     meta,
		CreatedAt:    p.CreatedAt,
		AppliedAt:    p.AppliedAt,
	}, nil
}
