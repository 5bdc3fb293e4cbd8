package scheduler

import "fmt"

// BatchScope identifies a batch selected for generation.
type BatchScope struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Shift Shift  `json:"shift"`
}

// ValidationScope is everything Validate looks at.
type ValidationScope struct {
	Batches        []BatchScope
	Offerings      []Offering
	Rooms          []Room
	PreferredRooms PreferredRooms
}

// UnassignedCourse is a (batch, course) pair without an instructor.
type UnassignedCourse struct {
	BatchID     string    `json:"batchId"`
	BatchCode   string    `json:"batchCode"`
	CourseID    string    `json:"courseId"`
	CourseCode  string    `json:"courseCode"`
	CourseTitle string    `json:"courseTitle"`
	ClassType   ClassType `json:"classType"`
}

// ValidationResult is returned as data, never as an error.
type ValidationResult struct {
	Valid             bool               `json:"valid"`
	Errors            []string           `json:"errors"`
	Warnings          []string           `json:"warnings"`
	UnassignedCourses []UnassignedCourse `json:"unassignedCourses"`
}

// Validate checks that every offering in scope has an instructor. Any miss
// forces Valid to false.
func Validate(scope ValidationScope) ValidationResult {
	result := ValidationResult{
		Errors:            []string{},
		Warnings:          []string{},
		UnassignedCourses: []UnassignedCourse{},
	}

	if len(scope.Batches) == 0 {
		result.Errors = append(result.Errors, "no batches in the selected scope")
	}

	courses := make(map[string]int, len(scope.Batches))
	needsTheory, needsLab := false, false
	for _, o := range scope.Offerings {
		courses[o.BatchID]++
		if o.ClassType.IsLab() {
			needsLab = true
		} else {
			needsTheory = true
		}
		if !o.ClassType.Valid() {
			result.Errors = append(result.Errors, fmt.Sprintf("course %s in batch %s has unknown class type %q", o.CourseCode, o.BatchCode, o.ClassType))
		}
		if o.TeacherID == "" {
			result.UnassignedCourses = append(result.UnassignedCourses, UnassignedCourse{
				BatchID:     o.BatchID,
				BatchCode:   o.BatchCode,
				CourseID:    o.CourseID,
				CourseCode:  o.CourseCode,
				CourseTitle: o.CourseTitle,
				ClassType:   o.ClassType,
			})
		}
	}

	for _, b := range scope.Batches {
		if b.Shift != "" && !b.Shift.Valid() {
			result.Errors = append(result.Errors, fmt.Sprintf("batch %s has unknown shift %q", b.Code, b.Shift))
		}
		if courses[b.ID] == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("batch %s has no enrolled courses", b.Code))
		}
	}

	hasTheoryRoom, hasLabRoom := false, false
	known := make(map[string]bool, len(scope.Rooms))
	for _, r := range scope.Rooms {
		known[r.ID] = true
		hasTheoryRoom = hasTheoryRoom || r.Type.Serves(ClassTheory)
		hasLabRoom = hasLabRoom || r.Type.Serves(ClassLab)
	}
	if needsTheory && !hasTheoryRoom {
		result.Warnings = append(result.Warnings, "no active lecture or seminar room for theory classes")
	}
	if needsLab && !hasLabRoom {
		result.Warnings = append(result.Warnings, "no active laboratory or computer lab for lab classes")
	}
	if id := scope.PreferredRooms.Theory; id != "" && !known[id] {
		result.Warnings = append(result.Warnings, fmt.Sprintf("preferred theory room %s not found", id))
	}
	if id := scope.PreferredRooms.Lab; id != "" && !known[id] {
		result.Warnings = append(result.Warnings, fmt.Sprintf("preferred lab room %s not found", id))
	}

	if len(result.UnassignedCourses) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("%d course(s) have no assigned instructor", len(result.UnassignedCourses)))
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// Blocked renders unassigned courses as unscheduled entries for a blocked run.
func (v ValidationResult) Blocked() []Unscheduled {
	out := make([]Unscheduled, 0, len(v.UnassignedCourses))
	for _, c := range v.UnassignedCourses {
		out = append(out, Unscheduled{
			BatchID:     c.BatchID,
			BatchCode:   c.BatchCode,
			CourseID:    c.CourseID,
			CourseCode:  c.CourseCode,
			CourseTitle: c.CourseTitle,
			ClassType:   c.ClassType,
			Reason:      ReasonNoInstructor,
			Message:     ReasonNoInstructor.Message(),
		})
	}
	return out
}
