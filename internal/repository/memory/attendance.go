package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
)

type attendanceRepository struct {
	mu      sync.RWMutex
	records map[string]attendance.Record
	byDay   map[string]string // employee|date -> id
}

func NewAttendanceRepository() attendance.AttendanceRepository {
	return &attendanceRepository{
		records: make(map[string]attendance.Record),
		byDay:   make(map[string]string),
	}
}

func dayKey(employeeID string, date time.Time) string {
	return employeeID + "|" + calendar.Date(date).Format(calendar.DateLayout)
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dayKey(record.EmployeeID, record.Date)
	if _, exists := r.byDay[key]; exists {
		return attendance.Record{}, attendance.ErrRecordAlreadyExist
	}

	if record.ID == "" {
		record.ID = newID()
	}
	record.Date = calendar.Date(record.Date)
	ts := now()
	record.CreatedAt, record.UpdatedAt = ts, ts

	r.records[record.ID] = record
	r.byDay[key] = record.ID
	return record, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDay[dayKey(employeeID, date)]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	return r.records[id], nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[record.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	if stored.Finalized {
		return attendance.Record{}, attendance.ErrRecordFinalized
	}

	stored.CheckIn = record.CheckIn
	stored.CheckOut = record.CheckOut
	stored.BreakStart = record.BreakStart
	stored.BreakEnd = record.BreakEnd
	stored.TotalHours = record.TotalHours
	stored.OvertimeHours = record.OvertimeHours
	stored.Status = record.Status
	stored.Finalized = record.Finalized
	stored.UpdatedAt = now()

	r.records[stored.ID] = stored
	return stored, nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []attendance.Record
	for _, rec := range r.records {
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.From != nil && rec.Date.Before(calendar.Date(*filter.From)) {
			continue
		}
		if filter.To != nil && rec.Date.After(calendar.Date(*filter.To)) {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.OpenOnly && !rec.IsOpen() {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}
