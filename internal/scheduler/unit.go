package scheduler

import (
	"sort"
	"strconv"
)

// Offering is one enrolled course of a batch together with its instructor.
type Offering struct {
	BatchID         string    `json:"batchId"`
	BatchCode       string    `json:"batchCode"`
	BatchShift      Shift     `json:"batchShift"`
	BatchSize       int       `json:"batchSize,omitempty"`
	CourseID        string    `json:"courseId"`
	CourseCode      string    `json:"courseCode"`
	CourseTitle     string    `json:"courseTitle"`
	Semester        int       `json:"semester,omitempty"`
	DepartmentID    string    `json:"departmentId,omitempty"`
	ClassType       ClassType `json:"classType"`
	SessionsPerWeek int       `json:"sessionsPerWeek"`
	TeacherID       string    `json:"teacherId,omitempty"`
	TeacherName     string    `json:"teacherName,omitempty"`
}

// Durations are class lengths in minutes per class type.
type Durations struct {
	Theory  int `json:"theory"`
	Lab     int `json:"lab"`
	Project int `json:"project"`
}

// For returns the duration of a class type.
func (d Durations) For(t ClassType) int {
	switch t {
	case ClassLab:
		return d.Lab
	case ClassProject:
		if d.Project > 0 {
			return d.Project
		}
		return d.Lab
	default:
		return d.Theory
	}
}

// Unit is one required weekly class session waiting to be placed.
type Unit struct {
	Offering
	Session  int `json:"session"`
	Duration int `json:"duration"`
}

// ExpandUnits turns each offering into SessionsPerWeek units (at least one).
func ExpandUnits(offerings []Offering, durations Durations) []Unit {
	units := make([]Unit, 0, len(offerings))
	for _, o := range offerings {
		sessions := o.SessionsPerWeek
		if sessions <= 0 {
			sessions = 1
		}
		for i := 1; i <= sessions; i++ {
			units = append(units, Unit{Offering: o, Session: i, Duration: durations.For(o.ClassType)})
		}
	}
	return units
}

// Room is a classroom candidate.
type Room struct {
	ID       string   `json:"id"`
	Number   string   `json:"number"`
	Type     RoomType `json:"type"`
	Capacity int      `json:"capacity,omitempty"`
}

// PreferredRooms names room ids to try first per class family.
type PreferredRooms struct {
	Theory string `json:"theory,omitempty"`
	Lab    string `json:"lab,omitempty"`
}

// For returns the preferred room id for a class type.
func (p PreferredRooms) For(t ClassType) string {
	if t.IsLab() {
		return p.Lab
	}
	return p.Theory
}

// Options tune placement.
type Options struct {
	GroupLabsTogether bool           `json:"groupLabsTogether"`
	PreferredRooms    PreferredRooms `json:"preferredRooms"`
	TargetShift       Shift          `json:"targetShift,omitempty"`
}

// Assignment is a placed class, possibly recurring on several days.
type Assignment struct {
	BatchID     string    `json:"batchId"`
	BatchCode   string    `json:"batchCode"`
	CourseID    string    `json:"courseId"`
	CourseCode  string    `json:"courseCode"`
	CourseTitle string    `json:"courseTitle"`
	TeacherID   string    `json:"teacherId"`
	TeacherName string    `json:"teacherName,omitempty"`
	RoomID      string    `json:"roomId"`
	RoomNumber  string    `json:"roomNumber"`
	DaysOfWeek  []Weekday `json:"daysOfWeek"`
	Start       Clock     `json:"startTime"`
	End         Clock     `json:"endTime"`
	ClassType   ClassType `json:"classType"`
}

// Block returns the assignment's time window.
func (a Assignment) Block() TimeBlock {
	return TimeBlock{Start: a.Start, End: a.End}
}

// Reason categorises why a unit could not be placed.
type Reason string

const (
	ReasonNoInstructor       Reason = "no_instructor"
	ReasonNoCompatibleDay    Reason = "no_compatible_day"
	ReasonTeacherConflict    Reason = "teacher_conflict"
	ReasonNoRoom             Reason = "no_room"
	ReasonBatchConflict      Reason = "batch_conflict"
	ReasonWorkingDaysLimited Reason = "working_days_limited"
)

var reasonMessages = map[Reason]string{
	ReasonNoInstructor:       "no instructor assigned",
	ReasonNoCompatibleDay:    "no working day has a block that admits this class",
	ReasonTeacherConflict:    "instructor has no free slot in any compatible block",
	ReasonNoRoom:             "no compatible classroom is free in any compatible block",
	ReasonBatchConflict:      "batch has no free slot in any compatible block",
	ReasonWorkingDaysLimited: "not enough working days for the weekly sessions of this course",
}

// Message is the operator-facing text for a reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Unscheduled is a unit the planner could not place.
type Unscheduled struct {
	BatchID     string    `json:"batchId"`
	BatchCode   string    `json:"batchCode"`
	CourseID    string    `json:"courseId"`
	CourseCode  string    `json:"courseCode"`
	CourseTitle string    `json:"courseTitle"`
	TeacherID   string    `json:"teacherId,omitempty"`
	ClassType   ClassType `json:"classType"`
	Session     int       `json:"session"`
	Duration    int       `json:"duration"`
	Reason      Reason    `json:"reason"`
	Message     string    `json:"message"`
}

// Stats counts placed and unplaced units.
type Stats struct {
	Scheduled   int `json:"scheduled"`
	Unscheduled int `json:"unscheduled"`
}

// Result is the planner output. It is returned even when some units failed.
type Result struct {
	Assignments []Assignment  `json:"assignments"`
	Unscheduled []Unscheduled `json:"unscheduled"`
	Stats       Stats         `json:"stats"`
}

type placement struct {
	unit Unit
	day  Weekday
	at   TimeBlock
	room Room
}

type mergeKey struct {
	batch, course, teacher, room string
	classType                    ClassType
	at                           TimeBlock
}

// mergePlacements folds placements that differ only by day into one assignment.
func mergePlacements(placements []placement) []Assignment {
	index := make(map[mergeKey]int)
	out := make([]Assignment, 0, len(placements))
	for _, p := range placements {
		key := mergeKey{p.unit.BatchID, p.unit.CourseID, p.unit.TeacherID, p.room.ID, p.unit.ClassType, p.at}
		if i, ok := index[key]; ok {
			out[i].DaysOfWeek = append(out[i].DaysOfWeek, p.day)
			continue
		}
		index[key] = len(out)
		out = append(out, Assignment{
			BatchID:     p.unit.BatchID,
			BatchCode:   p.unit.BatchCode,
			CourseID:    p.unit.CourseID,
			CourseCode:  p.unit.CourseCode,
			CourseTitle: p.unit.CourseTitle,
			TeacherID:   p.unit.TeacherID,
			TeacherName: p.unit.TeacherName,
			RoomID:      p.room.ID,
			RoomNumber:  p.room.Number,
			DaysOfWeek:  []Weekday{p.day},
			Start:       p.at.Start,
			End:         p.at.End,
			ClassType:   p.unit.ClassType,
		})
	}
	for i := range out {
		SortWeekdays(out[i].DaysOfWeek)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BatchCode != b.BatchCode {
			return a.BatchCode < b.BatchCode
		}
		if a.BatchID != b.BatchID {
			return a.BatchID < b.BatchID
		}
		if da, db := a.DaysOfWeek[0].Ordinal(), b.DaysOfWeek[0].Ordinal(); da != db {
			return da < db
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.CourseCode < b.CourseCode
	})
	return out
}

// lessRoomNumber compares numerically when both numbers are integers.
func lessRoomNumber(a, b Room) bool {
	if a.Number != b.Number {
		na, errA := strconv.Atoi(a.Number)
		nb, errB := strconv.Atoi(b.Number)
		if errA == nil && errB == nil && na != nb {
			return na < nb
		}
		return a.Number < b.Number
	}
	return a.ID < b.ID
}
