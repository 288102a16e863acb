package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
)

type leaveRepository struct {
	mu      sync.RWMutex
	records map[string]leave.Record
}

func NewLeaveRepository() leave.LeaveRepository {
	return &leaveRepository{records: make(map[string]leave.Record)}
}

func (r *leaveRepository) overlaps(employeeID string, start, end time.Time) bool {
	for _, rec := range r.records {
		if rec.EmployeeID == employeeID && rec.Active() &&
			calendar.RangesOverlap(rec.StartDate, rec.EndDate, start, end) {
			return true
		}
	}
	return false
}

// Create implements leave.LeaveRepository.
func (r *leaveRepository) Create(ctx context.Context, record leave.Record) (leave.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.overlaps(record.EmployeeID, record.StartDate, record.EndDate) {
		return leave.Record{}, leave.ErrOverlappingLeave
	}

	if record.ID == "" {
		record.ID = newID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now()
	}
	record.UpdatedAt = record.CreatedAt

	r.records[record.ID] = record
	return record, nil
}

// GetByID implements leave.LeaveRepository.
func (r *leaveRepository) GetByID(ctx context.Context, id string) (leave.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return leave.Record{}, leave.ErrLeaveNotFound
	}
	return rec, nil
}

// List implements leave.LeaveRepository.
func (r *leaveRepository) List(ctx context.Context, filter leave.Filter) ([]leave.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []leave.Record
	for _, rec := range r.records {
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && rec.Type != *filter.Type {
			continue
		}
		if filter.Year != nil && rec.Year() != *filter.Year {
			continue
		}
		if filter.From != nil && rec.EndDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.StartDate.After(*filter.To) {
			continue
		}
		out = append(out, rec)
	}

	sortByCreated(out)
	return out, nil
}

// HasOverlap implements leave.LeaveRepository.
func (r *leaveRepository) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overlaps(employeeID, start, end), nil
}

// Transition implements leave.LeaveRepository.
func (r *leaveRepository) Transition(ctx context.Context, t leave.Transition) (leave.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[t.ID]
	if !ok {
		return leave.Record{}, leave.ErrLeaveNotFound
	}
	if rec.Status != t.From {
		return leave.Record{}, leave.ErrInvalidState
	}

	actor, at := t.ActorID, t.At
	switch t.To {
	case leave.StatusApproved:
		rec.ApprovedBy, rec.ApprovedAt = &actor, &at
	case leave.StatusRejected:
		rec.RejectedBy, rec.RejectionReason = &actor, t.Reason
	case leave.StatusCancelled:
		rec.CancelledBy, rec.CancelledAt = &actor, &at
	default:
		return leave.Record{}, fmt.Errorf("unsupported leave transition to %q", t.To)
	}
	rec.Status = t.To
	rec.UpdatedAt = at

	r.records[rec.ID] = rec
	return rec, nil
}

// ListPendingAfter implements leave.LeaveRepository.
func (r *leaveRepository) ListPendingAfter(ctx context.Context, cursor leave.Cursor, limit int) ([]leave.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []leave.Record
	for _, rec := range r.records {
		if rec.Status != leave.StatusPending {
			continue
		}
		if !cursor.CreatedAt.IsZero() || cursor.ID != "" {
			if rec.CreatedAt.Before(cursor.CreatedAt) ||
				(rec.CreatedAt.Equal(cursor.CreatedAt) && rec.ID <= cursor.ID) {
				continue
			}
		}
		pending = append(pending, rec)
	}

	sortByCreated(pending)
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// SumApprovedDays implements leave.LeaveRepository.
func (r *leaveRepository) SumApprovedDays(ctx context.Context, employeeID string, year int) (map[leave.Type]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	used := make(map[leave.Type]int)
	for _, rec := range r.records {
		if rec.EmployeeID == employeeID && rec.Status == leave.StatusApproved && rec.Year() == year {
			used[rec.Type] += rec.Days
		}
	}
	return used, nil
}

func sortByCreated(records []leave.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

type entitlementRepository struct {
	mu   sync.RWMutex
	rows map[string]leave.Entitlement
}

func NewEntitlementRepository() leave.EntitlementRepository {
	return &entitlementRepository{rows: make(map[string]leave.Entitlement)}
}

func entitlementKey(employeeID string, year int) string {
	return fmt.Sprintf("%s|%d", employeeID, year)
}

// Get implements leave.EntitlementRepository.
func (r *entitlementRepository) Get(ctx context.Context, employeeID string, year int) (leave.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.rows[entitlementKey(employeeID, year)]
	if !ok {
		return leave.Entitlement{}, leave.ErrEntitlementNotFound
	}
	return e, nil
}

// Lock implements leave.EntitlementRepository. Mutual exclusion comes from
// the Transactor; this only seeds the row.
func (r *entitlementRepository) Lock(ctx context.Context, employeeID string, year int, defaultDays int) (leave.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entitlementKey(employeeID, year)
	e, ok := r.rows[key]
	if !ok {
		e = leave.Entitlement{EmployeeID: employeeID, Year: year, AnnualDays: defaultDays, UpdatedAt: now()}
		r.rows[key] = e
	}
	return e, nil
}

// Upsert implements leave.EntitlementRepository.
func (r *entitlementRepository) Upsert(ctx context.Context, entitlement leave.Entitlement) (leave.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entitlement.UpdatedAt.IsZero() {
		entitlement.UpdatedAt = now()
	}
	r.rows[entitlementKey(entitlement.EmployeeID, entitlement.Year)] = entitlement
	return entitlement, nil
}
