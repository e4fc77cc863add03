package booking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nekogravitycat/resource-booking-backend/internal/resource"
	"github.com/nekogravitycat/resource-booking-backend/internal/setting"
)

const (
	defaultUpcomingLimit = 5
	maxUpcomingLimit     = 50
	defaultPendingLimit  = 10
	maxPendingLimit      = 100
)

// PolicySource provides the site-wide booking rules.
type PolicySource interface {
	Get(ctx context.Context) (*setting.Settings, error)
}

type CreateRequest struct {
	UserID      string
	ResourceID  string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
}

// UpdateRequest changes the details of a booking. Status is not part of it:
// status only moves through Approve, Reject, Cancel and Complete.
type UpdateRequest struct {
	ResourceID  *string
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
}

func (r UpdateRequest) retimes() bool {
	return r.StartTime != nil || r.EndTime != nil
}

type Service interface {
	IsAvailable(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (bool, error)
	CheckAvailability(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (Decision, error)

	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	Approve(ctx context.Context, id string) (*Booking, error)
	Reject(ctx context.Context, id string) (*Booking, error)
	Cancel(ctx context.Context, id string, actorID string, isAdmin bool) (*Booking, error)
	Update(ctx context.Context, id string, req UpdateRequest, actorID string, isAdmin bool) (*Booking, error)
	Complete(ctx context.Context, id string) (*Booking, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	ListUpcoming(ctx context.Context, userID string, limit int) ([]*Booking, error)
	ListPending(ctx context.Context, limit int) ([]*Booking, error)
	Schedule(ctx context.Context, resourceID string, from, to time.Time) (*Schedule, error)
}

type service struct {
	repo      Repository
	resources ResourceCatalog
	policy    PolicySource
	engine    *Engine
	now       func() time.Time
}

func NewService(repo Repository, resources ResourceCatalog, policy PolicySource) Service {
	return &service{
		repo:      repo,
		resources: resources,
		policy:    policy,
		engine:    NewEngine(resources, repo),
		now:       time.Now,
	}
}

// lockedCatalog answers resource status from rows locked in the current
// transaction. Each resource is locked at most once.
type lockedCatalog struct {
	tx     Tx
	status map[string]resource.Status
}

func newLockedCatalog(tx Tx) *lockedCatalog {
	return &lockedCatalog{tx: tx, status: make(map[string]resource.Status)}
}

// lock takes the resource locks in ascending id order.
func (c *lockedCatalog) lock(ctx context.Context, ids ...string) error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, err := c.ResourceStatus(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *lockedCatalog) ResourceStatus(ctx context.Context, id string) (resource.Status, error) {
	if st, ok := c.status[id]; ok {
		return st, nil
	}
	st, err := c.tx.LockResource(ctx, id)
	if err != nil {
		return "", err
	}
	c.status[id] = st
	return st, nil
}

// admit runs the availability check against the locked catalog and turns a
// negative decision into ErrResourceUnavailable.
func admit(ctx context.Context, tx Tx, catalog *lockedCatalog, resourceID string, start, end time.Time, excludeID string) error {
	d, err := NewEngine(catalog, tx).Check(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return err
	}
	if !d.Available {
		return ErrResourceUnavailable
	}
	return nil
}

func authorize(b *Booking, actorID string, isAdmin bool) error {
	if isAdmin || b.UserID == actorID {
		return nil
	}
	return ErrPermissionDenied
}

// checkPolicy applies the time rules every new booking must meet.
func checkPolicy(p *setting.Settings, start, end, now time.Time) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}
	if start.Before(now) {
		return ErrStartTimePast
	}
	return checkLimits(p, start, end, now)
}

// checkLimits applies the duration and lead time limits. A value of zero in
// the settings disables the matching limit.
func checkLimits(p *setting.Settings, start, end, now time.Time) error {
	if longest := p.MaxDuration(); longest > 0 && end.Sub(start) > longest {
		return ErrDurationExceeded
	}
	if latest := p.LatestStart(now); !latest.IsZero() && start.After(latest) {
		return ErrTooFarAhead
	}
	return nil
}

func (s *service) IsAvailable(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (bool, error) {
	return s.engine.IsAvailable(ctx, resourceID, start, end, excludeID)
}

func (s *service) CheckAvailability(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (Decision, error) {
	return s.engine.Check(ctx, resourceID, start, end, excludeID)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	policy, err := s.policy.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkPolicy(policy, req.StartTime, req.EndTime, s.now()); err != nil {
		return nil, err
	}

	status := StatusPending
	if !policy.BookingApprovalRequired {
		status = StatusConfirmed
	}

	var id string
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		catalog := newLockedCatalog(tx)
		if err := admit(ctx, tx, catalog, req.ResourceID, req.StartTime, req.EndTime, ""); err != nil {
			return err
		}

		b := &Booking{
			ResourceID:  req.ResourceID,
			UserID:      req.UserID,
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Status:      status,
		}
		if err := tx.Insert(ctx, b); err != nil {
			return err
		}
		id = b.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "booking created",
		"booking_id", id,
		"resource_id", req.ResourceID,
		"user_id", req.UserID,
		"status", status)

	return s.repo.FindByID(ctx, id)
}

// transition moves a booking from one of the allowed source statuses to target.
// When recheck is set the booking must still be admissible on its resource.
func (s *service) transition(ctx context.Context, id string, target Status, recheck bool, guard func(*Booking) error) (*Booking, error) {
	var from Status
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(b); err != nil {
				return err
			}
		}
		if !b.Status.CanTransitionTo(target) {
			return ErrInvalidState
		}
		if recheck {
			if err := admit(ctx, tx, newLockedCatalog(tx), b.ResourceID, b.StartTime, b.EndTime, b.ID); err != nil {
				return err
			}
		}

		from = b.Status
		b.Status = target
		return tx.UpdateStatus(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "booking status changed", "booking_id", id, "from", from, "to", target)
	return s.repo.FindByID(ctx, id)
}

func requireStatus(status Status) func(*Booking) error {
	return func(b *Booking) error {
		if b.Status != status {
			return ErrInvalidState
		}
		return nil
	}
}

func (s *service) Approve(ctx context.Context, id string) (*Booking, error) {
	return s.transition(ctx, id, StatusConfirmed, true, requireStatus(StatusPending))
}

func (s *service) Reject(ctx context.Context, id string) (*Booking, error) {
	return s.transition(ctx, id, StatusCancelled, false, requireStatus(StatusPending))
}

func (s *service) Cancel(ctx context.Context, id string, actorID string, isAdmin bool) (*Booking, error) {
	return s.transition(ctx, id, StatusCancelled, false, func(b *Booking) error {
		return authorize(b, actorID, isAdmin)
	})
}

func (s *service) Complete(ctx context.Context, id string) (*Booking, error) {
	return s.transition(ctx, id, StatusCompleted, false, nil)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, actorID string, isAdmin bool) (*Booking, error) {
	var policy *setting.Settings
	if req.retimes() {
		p, err := s.policy.Get(ctx)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	now := s.now()

	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(b, actorID, isAdmin); err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return ErrInvalidState
		}

		oldResourceID, oldStart := b.ResourceID, b.StartTime
		if req.Title != nil {
			b.Title = strings.TrimSpace(*req.Title)
			if b.Title == "" {
				return ErrTitleRequired
			}
		}
		if req.Description != nil {
			b.Description = strings.TrimSpace(*req.Description)
		}
		if req.ResourceID != nil {
			b.ResourceID = *req.ResourceID
		}
		if req.StartTime != nil {
			b.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			b.EndTime = *req.EndTime
		}

		if !b.StartTime.Before(b.EndTime) {
			return ErrInvalidInterval
		}
		if req.retimes() {
			// A booking already under way may still be extended or shortened.
			if !b.StartTime.Equal(oldStart) && b.StartTime.Before(now) {
				return ErrRescheduleIntoPast
			}
			if err := checkLimits(policy, b.StartTime, b.EndTime, now); err != nil {
				return err
			}
		}

		catalog := newLockedCatalog(tx)
		if err := catalog.lock(ctx, oldResourceID, b.ResourceID); err != nil {
			if errors.Is(err, resource.ErrNotFound) {
				return ErrResourceNotFound
			}
			return err
		}
		if err := admit(ctx, tx, catalog, b.ResourceID, b.StartTime, b.EndTime, b.ID); err != nil {
			return err
		}

		return tx.UpdateFields(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "booking updated", "booking_id", id, "actor_id", actorID)
	return s.repo.FindByID(ctx, id)
}

func (s *service) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.CompleteElapsed(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "completed elapsed bookings", "count", n)
	}
	return n, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "booking deleted", "booking_id", id)
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, ErrInvalidStatus
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, ErrInvalidInterval
	}
	return s.repo.List(ctx, filter)
}

func clampLimit(limit, def, upper int) int {
	if limit <= 0 {
		return def
	}
	if limit > upper {
		return upper
	}
	return limit
}

func (s *service) ListUpcoming(ctx context.Context, userID string, limit int) ([]*Booking, error) {
	return s.repo.ListUpcoming(ctx, userID, s.now(), clampLimit(limit, defaultUpcomingLimit, maxUpcomingLimit))
}

func (s *service) ListPending(ctx context.Context, limit int) ([]*Booking, error) {
	return s.repo.ListPending(ctx, clampLimit(limit, defaultPendingLimit, maxPendingLimit))
}

// Schedule lists the blocking bookings intersecting [from, to) and the gaps
// between them. A resource that is not available has no free slots.
func (s *service) Schedule(ctx context.Context, resourceID string, from, to time.Time) (*Schedule, error) {
	if !from.Before(to) {
		return nil, ErrInvalidInterval
	}

	status, err := s.resources.ResourceStatus(ctx, resourceID)
	if err != nil {
		if errors.Is(err, resource.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}

	bookings, err := s.repo.FindOverlapping(ctx, OverlapQuery{ResourceID: resourceID, Start: from, End: to})
	if err != nil {
		return nil, err
	}

	sched := &Schedule{
		ResourceID:     resourceID,
		ResourceStatus: string(status),
		From:           from,
		To:             to,
		Bookings:       bookings,
	}
	if status == resource.StatusAvailable {
		sched.FreeSlots = FreeSlots(from, to, bookings)
	}
	return sched, nil
}
