package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/resource"
)

// Overlaps reports whether [s1, e1) and [s2, e2) intersect.
// Touching intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// OverlapQuery selects the blocking bookings of a resource that intersect
// [Start, End), leaving out ExcludeID when set.
type OverlapQuery struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	ExcludeID  string
}

// ResourceCatalog answers whether a resource exists and what state it is in.
type ResourceCatalog interface {
	ResourceStatus(ctx context.Context, id string) (resource.Status, error)
}

// OverlapFinder returns blocking bookings matching an OverlapQuery.
type OverlapFinder interface {
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]*Booking, error)
}

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonResourceOffline Reason = "resource_offline"
	ReasonConflict        Reason = "conflict"
)

// Decision is the outcome of an availability check.
type Decision struct {
	Available      bool
	Reason         Reason
	ResourceStatus resource.Status
	Conflicts      []*Booking
}

// Engine decides whether a resource can take a booking for an interval.
// It only reads; whether its answer still holds at write time depends on the
// catalog and finder it runs against.
type Engine struct {
	resources ResourceCatalog
	bookings  OverlapFinder
}

func NewEngine(resources ResourceCatalog, bookings OverlapFinder) *Engine {
	return &Engine{resources: resources, bookings: bookings}
}

// Check runs the resource gate and then the conflict scan.
func (e *Engine) Check(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (Decision, error) {
	if !start.Before(end) {
		return Decision{}, ErrInvalidInterval
	}

	status, err := e.resources.ResourceStatus(ctx, resourceID)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return Decision{}, ErrResourceNotFound
		}
		return Decision{}, err
	}
	if status != resource.StatusAvailable {
		return Decision{Reason: ReasonResourceOffline, ResourceStatus: status}, nil
	}

	candidates, err := e.bookings.FindOverlapping(ctx, OverlapQuery{
		ResourceID: resourceID,
		Start:      start,
		End:        end,
		ExcludeID:  excludeID,
	})
	if err != nil {
		return Decision{}, err
	}

	var conflicts []*Booking
	for _, b := range candidates {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if b.Status.Blocks() && Overlaps(start, end, b.StartTime, b.EndTime) {
			conflicts = append(conflicts, b)
		}
	}
	if len(conflicts) > 0 {
		return Decision{Reason: ReasonConflict, ResourceStatus: status, Conflicts: conflicts}, nil
	}

	return Decision{Available: true, ResourceStatus: status}, nil
}

// IsAvailable is Check reduced to a boolean.
func (e *Engine) IsAvailable(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (bool, error) {
	d, err := e.Check(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return d.Available, nil
}

// FreeSlots returns the gaps of [from, to) not covered by blocking bookings.
// Input may be unsorted and overlapping; non-blocking bookings are ignored.
// A fully covered window yields nil.
func FreeSlots(from, to time.Time, bookings []*Booking) []TimeSlot {
	if !from.Before(to) {
		return nil
	}

	busy := make([]TimeSlot, 0, len(bookings))
	for _, b := range bookings {
		if !b.Status.Blocks() || !Overlaps(from, to, b.StartTime, b.EndTime) {
			continue
		}
		s, e := b.StartTime, b.EndTime
		if s.Before(from) {
			s = from
		}
		if e.After(to) {
			e = to
		}
		busy = append(busy, TimeSlot{StartTime: s, EndTime: e})
	}
	sort.Slice(busy, func(i, j int) bool {
		return busy[i].StartTime.Before(busy[j].StartTime)
	})

	var slots []TimeSlot
	cursor := from
	for _, b := range busy {
		if cursor.Before(b.StartTime) {
			slots = append(slots, TimeSlot{StartTime: cursor, EndTime: b.StartTime})
		}
		if b.EndTime.After(cursor) {
			cursor = b.EndTime
		}
	}
	if cursor.Before(to) {
		slots = append(slots, TimeSlot{StartTime: cursor, EndTime: to})
	}
	return slots
}
