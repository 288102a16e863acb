package leave

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/tx"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
)

const pendingPageSize = 100

type LeaveServiceImpl struct {
	db           tx.Transactor
	records      leave.LeaveRepository
	entitlements leave.EntitlementRepository
	clock        clock.Clock
	policy       leave.Policy
	pageSize     int
}

func NewLeaveService(
	db tx.Transactor,
	records leave.LeaveRepository,
	entitlements leave.EntitlementRepository,
	clk clock.Clock,
	policy leave.Policy,
) *LeaveServiceImpl {
	return &LeaveServiceImpl{
		db:           db,
		records:      records,
		entitlements: entitlements,
		clock:        clk,
		policy:       policy,
		pageSize:     pendingPageSize,
	}
}

// Request implements leave.LeaveService.
func (s *LeaveServiceImpl) Request(ctx context.Context, actor identity.Actor, req leave.CreateRequest) (leave.Record, error) {
	if err := identity.Require(actor); err != nil {
		return leave.Record{}, err
	}
	start, end, err := req.Parse()
	if err != nil {
		return leave.Record{}, err
	}

	days, err := s.policy.RuleFor(req.Type).Count(start, end, s.policy.Calendar)
	if err != nil {
		return leave.Record{}, apperror.New(apperror.KindValidation, err.Error())
	}
	if days == 0 {
		return leave.Record{}, leave.ErrNoChargeableDays
	}

	var created leave.Record
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		overlap, err := s.records.HasOverlap(ctx, req.EmployeeID, start, end)
		if err != nil {
			return apperror.Collaborator("failed to check overlapping leave", err)
		}
		if overlap {
			return leave.ErrOverlappingLeave
		}

		now := s.clock.Now()
		created, err = s.records.Create(ctx, leave.Record{
			EmployeeID: req.EmployeeID,
			Type:       req.Type,
			StartDate:  start,
			EndDate:    end,
			Days:       days,
			Status:     leave.StatusPending,
			Reason:     strings.TrimSpace(req.Reason),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		return leave.Record{}, err
	}

	return created, nil
}

// Approve implements leave.LeaveService.
func (s *LeaveServiceImpl) Approve(ctx context.Context, actor identity.Actor, leaveID string) (leave.Record, error) {
	if err := identity.Require(actor); err != nil {
		return leave.Record{}, err
	}

	var approved leave.Record
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.records.GetByID(ctx, leaveID)
		if err != nil {
			return err
		}
		if record.Status != leave.StatusPending {
			return leave.ErrInvalidState
		}

		// Serializes approvals per employee and year.
		entitlement, err := s.entitlements.Lock(ctx, record.EmployeeID, record.Year(), s.policy.DefaultAnnualDays)
		if err != nil {
			return apperror.Collaborator("failed to lock leave entitlement", err)
		}

		// Re-read under the lock: a concurrent approval may have won.
		record, err = s.records.GetByID(ctx, leaveID)
		if err != nil {
			return err
		}
		if record.Status != leave.StatusPending {
			return leave.ErrInvalidState
		}

		if record.Type == leave.TypeAnnual {
			used, err := s.records.SumApprovedDays(ctx, record.EmployeeID, record.Year())
			if err != nil {
				return apperror.Collaborator("failed to sum approved leave", err)
			}
			if used[leave.TypeAnnual]+record.Days > entitlement.AnnualDays {
				return leave.ErrInsufficientBalance
			}
		}

		approved, err = s.records.Transition(ctx, leave.Transition{
			ID:      record.ID,
			From:    leave.StatusPending,
			To:      leave.StatusApproved,
			ActorID: actor.UserID,
			At:      s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return leave.Record{}, err
	}

	return approved, nil
}

// Reject implements leave.LeaveService.
func (s *LeaveServiceImpl) Reject(ctx context.Context, actor identity.Actor, leaveID string, reason string) (leave.Record, error) {
	if err := identity.Require(actor); err != nil {
		return leave.Record{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return leave.Record{}, leave.ErrRejectionReasonRequired
	}

	return s.records.Transition(ctx, leave.Transition{
		ID:      leaveID,
		From:    leave.StatusPending,
		To:      leave.StatusRejected,
		ActorID: actor.UserID,
		At:      s.clock.Now(),
		Reason:  &reason,
	})
}

// Cancel implements leave.LeaveService.
func (s *LeaveServiceImpl) Cancel(ctx context.Context, actor identity.Actor, leaveID string) (leave.Record, error) {
	if err := identity.Require(actor); err != nil {
		return leave.Record{}, err
	}

	return s.records.Transition(ctx, leave.Transition{
		ID:      leaveID,
		From:    leave.StatusPending,
		To:      leave.StatusCancelled,
		ActorID: actor.UserID,
		At:      s.clock.Now(),
	})
}

// Get implements leave.LeaveService.
func (s *LeaveServiceImpl) Get(ctx context.Context, leaveID string) (leave.Record, error) {
	return s.records.GetByID(ctx, leaveID)
}

// List implements leave.LeaveService.
func (s *LeaveServiceImpl) List(ctx context.Context, filter leave.Filter) ([]leave.Record, error) {
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, apperror.Collaborator("failed to list leave", err)
	}
	return records, nil
}

// ListPending implements leave.LeaveService.
func (s *LeaveServiceImpl) ListPending(ctx context.Context) iter.Seq2[leave.Record, error] {
	return func(yield func(leave.Record, error) bool) {
		var cursor leave.Cursor
		for {
			page, err := s.records.ListPendingAfter(ctx, cursor, s.pageSize)
			if err != nil {
				yield(leave.Record{}, apperror.Collaborator("failed to list pending leave", err))
				return
			}
			for _, record := range page {
				if !yield(record, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1]
			cursor = leave.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

// GetBalance implements leave.LeaveService.
func (s *LeaveServiceImpl) GetBalance(ctx context.Context, employeeID string, year int) (leave.Balance, error) {
	total := s.policy.DefaultAnnualDays
	entitlement, err := s.entitlements.Get(ctx, employeeID, year)
	switch {
	case err == nil:
		total = entitlement.AnnualDays
	case errors.Is(err, leave.ErrEntitlementNotFound):
	default:
		return leave.Balance{}, apperror.Collaborator("failed to get leave entitlement", err)
	}

	used, err := s.records.SumApprovedDays(ctx, employeeID, year)
	if err != nil {
		return leave.Balance{}, apperror.Collaborator("failed to sum approved leave", err)
	}

	balance := leave.Balance{
		EmployeeID: employeeID,
		Year:       year,
		Annual: leave.AnnualBalance{
			Total: total,
			Used:  used[leave.TypeAnnual],
		},
		Used: make(map[leave.Type]int, len(leave.AllTypes())-1),
	}
	balance.Annual.Remaining = balance.Annual.Total - balance.Annual.Used
	for _, t := range leave.AllTypes() {
		if t != leave.TypeAnnual {
			balance.Used[t] = used[t]
		}
	}

	if balance.Annual.Remaining < 0 {
		slog.Warn("Annual leave balance is negative",
			"employee_id", employeeID,
			"year", year,
			"total", balance.Annual.Total,
			"used", balance.Annual.Used)
	}

	return balance, nil
}

// SetEntitlement implements leave.LeaveService.
func (s *LeaveServiceImpl) SetEntitlement(ctx context.Context, actor identity.Actor, req leave.SetEntitlementRequest) (leave.Entitlement, error) {
	if err := identity.Require(actor); err != nil {
		return leave.Entitlement{}, err
	}
	if err := req.Validate(); err != nil {
		return leave.Entitlement{}, err
	}

	var saved leave.Entitlement
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.entitlements.Lock(ctx, req.EmployeeID, req.Year, s.policy.DefaultAnnualDays); err != nil {
			return apperror.Collaborator("failed to lock leave entitlement", err)
		}
		used, err := s.records.SumApprovedDays(ctx, req.EmployeeID, req.Year)
		if err != nil {
			return apperror.Collaborator("failed to sum approved leave", err)
		}
		if req.AnnualDays < used[leave.TypeAnnual] {
			return fmt.Errorf("%w: %d days used", leave.ErrEntitlementBelowUsed, used[leave.TypeAnnual])
		}

		saved, err = s.entitlements.Upsert(ctx, leave.Entitlement{
			EmployeeID: req.EmployeeID,
			Year:       req.Year,
			AnnualDays: req.AnnualDays,
			UpdatedAt:  s.clock.Now(),
		})
		return err
	})
	if err != nil {
		return leave.Entitlement{}, err
	}

	return saved, nil
}
