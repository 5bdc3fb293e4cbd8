package scheduler

import (
	"errors"
	"sort"
)

// ResourceKind is the dimension a reservation is held against.
type ResourceKind string

const (
	ResourceTeacher ResourceKind = "teacher"
	ResourceRoom    ResourceKind = "room"
	ResourceBatch   ResourceKind = "batch"
)

// ErrOverlap is returned by Reserve when the interval is already taken.
var ErrOverlap = errors.New("interval overlaps an existing reservation")

type indexKey struct {
	kind ResourceKind
	id   string
	day  Weekday
}

// Index tracks occupied intervals for one generation run. It is not safe for
// concurrent use.
type Index struct {
	busy map[indexKey][]TimeBlock
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{busy: make(map[indexKey][]TimeBlock)}
}

// IsFree reports whether [iv.Start, iv.End) is unoccupied for the key.
func (x *Index) IsFree(kind ResourceKind, id string, day Weekday, iv TimeBlock) bool {
	if id == "" {
		return true
	}
	return x.firstOverlap(indexKey{kind, id, day}, iv) < 0
}

// Reserve claims the interval, failing with ErrOverlap if any part is taken.
func (x *Index) Reserve(kind ResourceKind, id string, day Weekday, iv TimeBlock) error {
	if id == "" {
		return nil
	}
	key := indexKey{kind, id, day}
	if x.firstOverlap(key, iv) >= 0 {
		return ErrOverlap
	}
	x.insert(key, iv)
	return nil
}

// Release drops an exact reservation. It reports whether one was removed.
func (x *Index) Release(kind ResourceKind, id string, day Weekday, iv TimeBlock) bool {
	key := indexKey{kind, id, day}
	list := x.busy[key]
	for i, existing := range list {
		if existing == iv {
			x.busy[key] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Block marks an interval occupied, merging with anything it overlaps. Used to
// seed live schedule rows and unavailability windows.
func (x *Index) Block(kind ResourceKind, id string, day Weekday, iv TimeBlock) {
	if id == "" || !iv.Valid() {
		return
	}
	key := indexKey{kind, id, day}
	merged := iv
	kept := x.busy[key][:0:0]
	for _, existing := range x.busy[key] {
		if existing.Overlaps(merged) {
			if existing.Start < merged.Start {
				merged.Start = existing.Start
			}
			if existing.End > merged.End {
				merged.End = existing.End
			}
			continue
		}
		kept = append(kept, existing)
	}
	x.busy[key] = kept
	x.insert(key, merged)
}

// NextStart returns the earliest end among reservations overlapping iv, which
// is the first instant a same-length interval could be free again. ok is false
// when iv is already free.
func (x *Index) NextStart(kind ResourceKind, id string, day Weekday, iv TimeBlock) (Clock, bool) {
	key := indexKey{kind, id, day}
	i := x.firstOverlap(key, iv)
	if i < 0 {
		return 0, false
	}
	// reservations never overlap, so ends are sorted too
	return x.busy[key][i].End, true
}

// Count returns how many reservations a key holds on a day.
func (x *Index) Count(kind ResourceKind, id string, day Weekday) int {
	return len(x.busy[indexKey{kind, id, day}])
}

// Reservations returns a copy of a key's reservations in start order.
func (x *Index) Reservations(kind ResourceKind, id string, day Weekday) []TimeBlock {
	list := x.busy[indexKey{kind, id, day}]
	out := make([]TimeBlock, len(list))
	copy(out, list)
	return out
}

func (x *Index) firstOverlap(key indexKey, iv TimeBlock) int {
	list := x.busy[key]
	// first reservation ending after iv starts
	i := sort.Search(len(list), func(i int) bool { return list[i].End > iv.Start })
	if i < len(list) && list[i].Start < iv.End {
		return i
	}
	return -1
}

func (x *Index) insert(key indexKey, iv TimeBlock) {
	list := x.busy[key]
	i := sort.Search(len(list), func(i int) bool { return list[i].Start >= iv.Start })
	list = append(list, TimeBlock{})
	copy(list[i+1:], list[i:])
	list[i] = iv
	x.busy[key] = list
}
