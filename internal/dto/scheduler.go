package dto

import (
	"time"

	"github.com/noah-isme/class-scheduler/internal/scheduler"
)

// Selection modes for the generation scope.
const (
	SelectionAll         = "all"
	SelectionDepartment  = "department"
	SelectionSingleBatch = "single_batch"
	SelectionMultiBatch  = "multi_batch"
)

// Generation outcomes.
const (
	GenerateModeProposal = "proposal"
	GenerateModeBlocked  = "blocked"
)

// ScopeRequest picks the batches of a session to schedule.
type ScopeRequest struct {
	SessionID     string   `json:"sessionId" validate:"required"`
	SelectionMode string   `json:"selectionMode" validate:"required,oneof=all department single_batch multi_batch"`
	DepartmentID  string   `json:"departmentId" validate:"required_if=SelectionMode department"`
	BatchIDs      []string `json:"batchIds" validate:"omitempty,dive,required"`
}

// PreferredRoomsRequest names classrooms to try first per class family.
type PreferredRoomsRequest struct {
	Theory string `json:"theory"`
	Lab    string `json:"lab"`
}

// ValidateScheduleRequest runs the pre-flight check only.
type ValidateScheduleRequest struct {
	ScopeRequest
	PreferredRooms PreferredRoomsRequest `json:"preferredRooms"`
}

// ClassDurations are class lengths in minutes. Zero falls back to configuration.
type ClassDurations struct {
	Theory  int `json:"theory" validate:"omitempty,min=15,max=480"`
	Lab     int `json:"lab" validate:"omitempty,min=15,max=480"`
	Project int `json:"project" validate:"omitempty,min=15,max=480"`
}

// TimeBlockRequest is an HH:MM window.
type TimeBlockRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// DaySlotRequest overrides one day of a shift.
type DaySlotRequest struct {
	Blocks              []TimeBlockRequest `json:"blocks" validate:"dive"`
	ClassTypeConstraint string             `json:"classTypeConstraint" validate:"omitempty,oneof=theory lab"`
}

// ShiftTimeConfigRequest is a shift's default blocks plus day overrides.
type ShiftTimeConfigRequest struct {
	DefaultBlocks []TimeBlockRequest        `json:"defaultBlocks" validate:"dive"`
	DayOverrides  map[string]DaySlotRequest `json:"dayOverrides" validate:"omitempty,dive"`
}

// CustomTimeSlots replaces configured time slots per shift. A nil shift keeps
// the configured default.
type CustomTimeSlots struct {
	Day     *ShiftTimeConfigRequest `json:"day"`
	Evening *ShiftTimeConfigRequest `json:"evening"`
}

// GenerateScheduleRequest asks for a new proposal.
type GenerateScheduleRequest struct {
	ScopeRequest
	ClassDurations ClassDurations `json:"classDurations"`
	// OffDays nil keeps the per-shift configured off days; an empty list means
	// every day is a working day.
	OffDays           []string              `json:"offDays" validate:"omitempty,dive,required"`
	CustomTimeSlots   CustomTimeSlots       `json:"customTimeSlots"`
	PreferredRooms    PreferredRoomsRequest `json:"preferredRooms"`
	TargetShift       string                `json:"targetShift" validate:"omitempty,oneof=day evening"`
	GroupLabsTogether bool                  `json:"groupLabsTogether"`
}

// GenerationStats summarises a run in units.
type GenerationStats struct {
	Scheduled          int                     `json:"scheduled"`
	Unscheduled        int                     `json:"unscheduled"`
	UnscheduledCourses []scheduler.Unscheduled `json:"unscheduledCourses"`
}

// ProposalMetadata is stored alongside a proposal's assignments.
type ProposalMetadata struct {
	ItemCount        int                     `json:"itemCount"`
	UnscheduledCount int                     `json:"unscheduledCount"`
	ScheduledUnits   int                     `json:"scheduledUnits"`
	BatchIDs         []string                `json:"batchIds"`
	Unscheduled      []scheduler.Unscheduled `json:"unscheduled"`
	Options          scheduler.Options       `json:"options"`
	Durations        scheduler.Durations     `json:"durations"`
	GeneratedBy      string                  `json:"generatedBy,omitempty"`
}

// ProposalResponse is the decoded view of a stored proposal.
type ProposalResponse struct {
	ID           string                 `json:"id"`
	SessionID    string                 `json:"sessionId"`
	Status       string                 `json:"status"`
	ScheduleData []scheduler.Assignment `json:"scheduleData"`
	Metadata     ProposalMetadata       `json:"metadata"`
	CreatedAt    time.Time              `json:"createdAt"`
	AppliedAt    *time.Time             `json:"appliedAt,omitempty"`
}

// GenerateScheduleResponse carries either a proposal or the blocking validation.
type GenerateScheduleResponse struct {
	Mode       string                     `json:"mode"`
	Proposal   *ProposalResponse          `json:"proposal,omitempty"`
	Validation scheduler.ValidationResult `json:"validation"`
	Stats      GenerationStats            `json:"stats"`
}

// ProposalListQuery filters proposals of a session.
type ProposalListQuery struct {
	SessionID string `form:"sessionId" validate:"required"`
	Status    string `form:"status" validate:"omitempty,oneof=pending approved rejected"`
}

// ProposalListItem is the list projection of a proposal.
type ProposalListItem struct {
	ID               string     `json:"id"`
	SessionID        string     `json:"sessionId"`
	Status           string     `json:"status"`
	ItemCount        int        `json:"itemCount"`
	UnscheduledCount int        `json:"unscheduledCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	AppliedAt        *time.Time `json:"appliedAt,omitempty"`
}

// ApplyProposalResponse reports what an apply changed.
type ApplyProposalResponse struct {
	ProposalID string `json:"proposalId"`
	Status     string `json:"status"`
	Created    int    `json:"created"`
	Closed     int64  `json:"closed"`
}

// CloseSchedulesRequest closes live rows by batch or by session.
type CloseSchedulesRequest struct {
	BatchIDs  []string `json:"batchIds" validate:"required_without=SessionID,omitempty,dive,required"`
	SessionID string   `json:"sessionId" validate:"required_without=BatchIDs"`
}

// CloseSchedulesResponse is operator feedback for a close.
type CloseSchedulesResponse struct {
	Message string `json:"message"`
	Closed  int64  `json:"closed"`
}

// StatusSummaryQuery optionally narrows the summary to one session.
type StatusSummaryQuery struct {
	SessionID string `form:"sessionId"`
}

// ExportQuery selects the rendering of a proposal download.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf ics"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
