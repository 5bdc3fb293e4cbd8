package scheduler

import "sort"

// Planner places units first-fit. One planner serves one generation run.
type Planner struct {
	grammar *Grammar
	index   *Index
	rooms   []Room
	opts    Options
	labDays map[batchDay]bool
}

type batchDay struct {
	batch string
	day   Weekday
}

type courseDay struct {
	batch     string
	course    string
	classType ClassType
	day       Weekday
}

type candidate struct {
	day   Weekday
	block TimeBlock
}

// NewPlanner builds a planner over rooms, which it orders by room number then id.
func NewPlanner(grammar *Grammar, rooms []Room, opts Options) *Planner {
	sorted := make([]Room, len(rooms))
	copy(sorted, rooms)
	sort.SliceStable(sorted, func(i, j int) bool { return lessRoomNumber(sorted[i], sorted[j]) })
	return &Planner{
		grammar: grammar,
		index:   NewIndex(),
		rooms:   sorted,
		opts:    opts,
		labDays: make(map[batchDay]bool),
	}
}

// Seed marks live assignments as occupied for their teacher, room and batch.
func (p *Planner) Seed(existing []Assignment) {
	for _, a := range existing {
		iv := a.Block()
		for _, day := range a.DaysOfWeek {
			p.index.Block(ResourceTeacher, a.TeacherID, day, iv)
			p.index.Block(ResourceRoom, a.RoomID, day, iv)
			p.index.Block(ResourceBatch, a.BatchID, day, iv)
			if a.ClassType.IsLab() {
				p.labDays[batchDay{a.BatchID, day}] = true
			}
		}
	}
}

// BlockTeacher marks a window in which the teacher cannot teach.
func (p *Planner) BlockTeacher(teacherID string, day Weekday, iv TimeBlock) {
	p.index.Block(ResourceTeacher, teacherID, day, iv)
}

// Plan places every unit it can and reports the rest. Units are never placed
// concurrently; the output is a pure function of the inputs and seeds.
func (p *Planner) Plan(units []Unit) Result {
	ordered := make([]Unit, len(units))
	copy(ordered, units)
	p.order(ordered)

	placed := make(map[courseDay]bool)
	placements := make([]placement, 0, len(ordered))
	result := Result{Unscheduled: []Unscheduled{}}

	for _, u := range ordered {
		pl, reason := p.place(u, placed)
		if reason != "" {
			result.Unscheduled = append(result.Unscheduled, Unscheduled{
				BatchID:     u.BatchID,
				BatchCode:   u.BatchCode,
				CourseID:    u.CourseID,
				CourseCode:  u.CourseCode,
				CourseTitle: u.CourseTitle,
				TeacherID:   u.TeacherID,
				ClassType:   u.ClassType,
				Session:     u.Session,
				Duration:    u.Duration,
				Reason:      reason,
				Message:     reason.Message(),
			})
			continue
		}
		placements = append(placements, pl)
		placed[courseDay{u.BatchID, u.CourseID, u.ClassType, pl.day}] = true
		if u.ClassType.IsLab() {
			p.labDays[batchDay{u.BatchID, pl.day}] = true
		}
	}

	result.Assignments = mergePlacements(placements)
	result.Stats = Stats{Scheduled: len(placements), Unscheduled: len(result.Unscheduled)}
	return result
}

func (p *Planner) order(units []Unit) {
	group := p.opts.GroupLabsTogether
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.BatchCode != b.BatchCode {
			return a.BatchCode < b.BatchCode
		}
		if a.BatchID != b.BatchID {
			return a.BatchID < b.BatchID
		}
		if group && a.ClassType.IsLab() != b.ClassType.IsLab() {
			return a.ClassType.IsLab()
		}
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		if a.ClassType != b.ClassType {
			return a.ClassType < b.ClassType
		}
		return a.Session < b.Session
	})
}

func (p *Planner) place(u Unit, placed map[courseDay]bool) (placement, Reason) {
	if u.TeacherID == "" {
		return placement{}, ReasonNoInstructor
	}
	candidates := p.candidates(u)
	if len(candidates) == 0 || u.Duration <= 0 {
		return placement{}, ReasonNoCompatibleDay
	}
	rooms := p.roomsFor(u)
	if len(rooms) == 0 {
		return placement{}, ReasonNoRoom
	}

	var last Reason
	repeated := false
	for _, c := range candidates {
		if placed[courseDay{u.BatchID, u.CourseID, u.ClassType, c.day}] {
			repeated = true
			continue
		}
		start := c.block.Start
		for start.Add(u.Duration) <= c.block.End {
			iv := TimeBlock{Start: start, End: start.Add(u.Duration)}
			next := start

			teacherFree := p.index.IsFree(ResourceTeacher, u.TeacherID, c.day, iv)
			if !teacherFree {
				last = ReasonTeacherConflict
				next = p.skip(next, ResourceTeacher, u.TeacherID, c.day, iv)
			}
			batchFree := p.index.IsFree(ResourceBatch, u.BatchID, c.day, iv)
			if !batchFree {
				last = ReasonBatchConflict
				next = p.skip(next, ResourceBatch, u.BatchID, c.day, iv)
			}
			room, roomFree := p.freeRoom(rooms, c.day, iv)
			if !roomFree {
				last = ReasonNoRoom
				if at := p.roomsReopen(rooms, c.day, iv); at > next {
					next = at
				}
			}

			if teacherFree && batchFree && roomFree {
				if err := p.commit(u, c.day, iv, room); err == nil {
					return placement{unit: u, day: c.day, at: iv, room: room}, ""
				}
			}
			if next <= start {
				next = start + 1
			}
			start = next
		}
	}

	switch {
	case last != "":
		return placement{}, last
	case repeated:
		return placement{}, ReasonWorkingDaysLimited
	default:
		return placement{}, ReasonNoCompatibleDay
	}
}

func (p *Planner) shiftFor(u Unit) Shift {
	if p.opts.TargetShift.Valid() {
		return p.opts.TargetShift
	}
	if u.BatchShift.Valid() {
		return u.BatchShift
	}
	return ShiftDay
}

func (p *Planner) candidates(u Unit) []candidate {
	shift := p.shiftFor(u)
	var out []candidate
	for _, day := range p.grammar.WorkingDays(shift) {
		blocks, constraint := p.grammar.EffectiveBlocks(shift, day)
		if !constraint.Allows(u.ClassType) {
			continue
		}
		for _, b := range blocks {
			if b.Duration() >= u.Duration {
				out = append(out, candidate{day: day, block: b})
			}
		}
	}
	if p.opts.GroupLabsTogether && u.ClassType.IsLab() {
		p.rankForLabs(u.BatchID, out)
	}
	return out
}

// rankForLabs puts days that already hold a lab for the batch first, then
// lighter days, then earlier blocks.
func (p *Planner) rankForLabs(batchID string, candidates []candidate) {
	hasLab := make(map[Weekday]bool)
	load := make(map[Weekday]int)
	for _, c := range candidates {
		hasLab[c.day] = p.labDays[batchDay{batchID, c.day}]
		load[c.day] = p.index.Count(ResourceBatch, batchID, c.day)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if hasLab[a.day] != hasLab[b.day] {
			return hasLab[a.day]
		}
		if load[a.day] != load[b.day] {
			return load[a.day] < load[b.day]
		}
		if a.block.Start != b.block.Start {
			return a.block.Start < b.block.Start
		}
		return a.day.Ordinal() < b.day.Ordinal()
	})
}

// roomsFor returns the preferred room (if known) followed by compatible rooms
// large enough for the batch.
func (p *Planner) roomsFor(u Unit) []Room {
	fits := func(r Room) bool {
		return r.Capacity <= 0 || u.BatchSize <= 0 || r.Capacity >= u.BatchSize
	}
	preferred := p.opts.PreferredRooms.For(u.ClassType)
	out := make([]Room, 0, len(p.rooms))
	if preferred != "" {
		for _, r := range p.rooms {
			if r.ID == preferred && fits(r) {
				out = append(out, r)
				break
			}
		}
	}
	for _, r := range p.rooms {
		if r.ID == preferred || !r.Type.Serves(u.ClassType) || !fits(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p *Planner) freeRoom(rooms []Room, day Weekday, iv TimeBlock) (Room, bool) {
	for _, r := range rooms {
		if p.index.IsFree(ResourceRoom, r.ID, day, iv) {
			return r, true
		}
	}
	return Room{}, false
}

// roomsReopen is the earliest instant any of the rooms could take iv's length.
func (p *Planner) roomsReopen(rooms []Room, day Weekday, iv TimeBlock) Clock {
	earliest := Clock(MinutesPerDay + 1)
	for _, r := range rooms {
		if at, ok := p.index.NextStart(ResourceRoom, r.ID, day, iv); ok && at < earliest {
			earliest = at
		}
	}
	return earliest
}

func (p *Planner) skip(current Clock, kind ResourceKind, id string, day Weekday, iv TimeBlock) Clock {
	if at, ok := p.index.NextStart(kind, id, day, iv); ok && at > current {
		return at
	}
	return current
}

func (p *Planner) commit(u Unit, day Weekday, iv TimeBlock, room Room) error {
	if err := p.index.Reserve(ResourceTeacher, u.TeacherID, day, iv); err != nil {
		return err
	}
	if err := p.index.Reserve(ResourceBatch, u.BatchID, day, iv); err != nil {
		p.index.Release(ResourceTeacher, u.TeacherID, day, iv)
		return err
	}
	if err := p.index.Reserve(ResourceRoom, room.ID, day, iv); err != nil {
		p.index.Release(ResourceBatch, u.BatchID, day, iv)
		p.index.Release(ResourceTeacher, u.TeacherID, day, iv)
		return err
	}
	return nil
}

// Plan is a one-shot helper: seed existing assignments, then place units.
func Plan(grammar *Grammar, rooms []Room, existing []Assignment, units []Unit, opts Options) Result {
	planner := NewPlanner(grammar, rooms, opts)
	planner.Seed(existing)
	return planner.Plan(units)
}
