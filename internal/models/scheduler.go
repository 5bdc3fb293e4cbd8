package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Session is an academic session (e.g. a semester intake).
type Session struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Batch is a cohort of students that attends classes together.
type Batch struct {
	ID           string `db:"id" json:"id"`
	Code         string `db:"code" json:"code"`
	Name         string `db:"name" json:"name"`
	DepartmentID string `db:"department_id" json:"department_id"`
	SessionID    string `db:"session_id" json:"session_id"`
	Shift        string `db:"shift" json:"shift"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// BatchFilter selects batches of a session.
type BatchFilter struct {
	SessionID    string
	DepartmentID string
	BatchIDs     []string
}

// BatchCourse is an enrolled course offering of a batch joined with its
// instructor assignment. TeacherID is nil when no instructor is assigned.
type BatchCourse struct {
	BatchID         string  `db:"batch_id" json:"batch_id"`
	BatchCode       string  `db:"batch_code" json:"batch_code"`
	BatchShift      string  `db:"batch_shift" json:"batch_shift"`
	StudentCount    int     `db:"student_count" json:"student_count"`
	SessionCourseID string  `db:"session_course_id" json:"session_course_id"`
	CourseCode      string  `db:"course_code" json:"course_code"`
	CourseTitle     string  `db:"course_title" json:"course_title"`
	Semester        int     `db:"semester" json:"semester"`
	DepartmentID    string  `db:"department_id" json:"department_id"`
	ClassType       string  `db:"class_type" json:"class_type"`
	SessionsPerWeek int     `db:"sessions_per_week" json:"sessions_per_week"`
	TeacherID       *string `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName     *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// Classroom is a bookable room.
type Classroom struct {
	ID         string `db:"id" json:"id"`
	RoomNumber string `db:"room_number" json:"room_number"`
	RoomType   string `db:"room_type" json:"room_type"`
	Capacity   int    `db:"capacity" json:"capacity"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}

// ClassScheduleStatus is the lifecycle of a live schedule row.
type ClassScheduleStatus string

const (
	ClassScheduleActive   ClassScheduleStatus = "active"
	ClassScheduleClosed   ClassScheduleStatus = "closed"
	ClassScheduleArchived ClassScheduleStatus = "archived"
)

// ClassSchedule is a persisted weekly class.
type ClassSchedule struct {
	ID              string              `db:"id" json:"id"`
	SessionID       string              `db:"session_id" json:"session_id"`
	BatchID         string              `db:"batch_id" json:"batch_id"`
	SessionCourseID string              `db:"session_course_id" json:"session_course_id"`
	TeacherID       string              `db:"teacher_id" json:"teacher_id"`
	ClassroomID     string              `db:"classroom_id" json:"classroom_id"`
	DaysOfWeek      pq.StringArray      `db:"days_of_week" json:"days_of_week"`
	StartTime       string              `db:"start_time" json:"start_time"`
	EndTime         string              `db:"end_time" json:"end_time"`
	ClassType       string              `db:"class_type" json:"class_type"`
	Status          ClassScheduleStatus `db:"status" json:"status"`
	ProposalID      *string             `db:"proposal_id" json:"proposal_id,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// ProposalStatus is the lifecycle of a generated proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// ScheduleProposal is a reviewable generated timetable.
type ScheduleProposal struct {
	ID           string         `db:"id" json:"id"`
	SessionID    string         `db:"session_id" json:"session_id"`
	Status       ProposalStatus `db:"status" json:"status"`
	ScheduleData types.JSONText `db:"schedule_data" json:"schedule_data"`
	Metadata     types.JSONText `db:"metadata" json:"metadata"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
	AppliedAt    *time.Time     `db:"applied_at" json:"applied_at,omitempty"`
}

// ProposalSummary is the list-view projection of a proposal.
type ProposalSummary struct {
	ID        string         `db:"id" json:"id"`
	SessionID string         `db:"session_id" json:"session_id"`
	Status    ProposalStatus `db:"status" json:"status"`
	Metadata  types.JSONText `db:"metadata" json:"metadata"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	AppliedAt *time.Time     `db:"applied_at" json:"applied_at,omitempty"`
}

// TeacherUnavailableSlot describes a blocked teaching window.
type TeacherUnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// TeacherPreference stores availability rules for a teacher.
type TeacherPreference struct {
	ID          string         `db:"id" json:"id"`
	TeacherID   string         `db:"teacher_id" json:"teacher_id"`
	Unavailable types.JSONText `db:"unavailable" json:"unavailable"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleStatusSummary counts live schedule rows per status.
type ScheduleStatusSummary struct {
	Active   int `json:"active"`
	Closed   int `json:"closed"`
	Archived int `json:"archived"`
}

// StatusCount is one row of a GROUP BY status query.
type StatusCount struct {
	Status ClassScheduleStatus `db:"status"`
	Total  int                 `db:"total"`
}
