package leave

import (
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/calendar"
)

type Type string

const (
	TypeAnnual    Type = "annual"
	TypeSick      Type = "sick"
	TypeMaternity Type = "maternity"
	TypePaternity Type = "paternity"
	TypeUnpaid    Type = "unpaid"
	TypeOther     Type = "other"
)

// AllTypes returns every leave type in display order.
func AllTypes() []Type {
	return []Type{TypeAnnual, TypeSick, TypeMaternity, TypePaternity, TypeUnpaid, TypeOther}
}

func (t Type) Valid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Record is a leave request over [StartDate, EndDate].
type Record struct {
	ID         string
	EmployeeID string
	Type       Type
	StartDate  time.Time
	EndDate    time.Time
	Days       int
	Status     Status
	Reason     string

	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectedBy      *string
	RejectionReason *string
	CancelledBy     *string
	CancelledAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Year is the balance year the leave is charged to.
func (r Record) Year() int {
	return r.StartDate.Year()
}

// Active reports whether the record still blocks its date range.
func (r Record) Active() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// Transition is a conditional status change: it only applies while the stored
// status still equals From.
type Transition struct {
	ID      string
	From    Status
	To      Status
	ActorID string
	At      time.Time
	Reason  *string
}

// Entitlement is the annual leave allowance of one employee for one year.
type Entitlement struct {
	EmployeeID string
	Year       int
	AnnualDays int
	UpdatedAt  time.Time
}

type AnnualBalance struct {
	Total     int
	Used      int
	Remaining int
}

// Balance is derived from approved records on every read.
type Balance struct {
	EmployeeID string
	Year       int
	Annual     AnnualBalance
	// Used holds the approved days of every non-annual type.
	Used map[Type]int
}

// Policy configures how leave days are counted and the fallback entitlement.
type Policy struct {
	DefaultAnnualDays int
	Counting          map[Type]calendar.CountingRule
	Calendar          calendar.WeekendPolicy
}

// DefaultPolicy counts annual leave in business days and everything else in
// calendar days.
func DefaultPolicy() Policy {
	return Policy{
		DefaultAnnualDays: 12,
		Counting: map[Type]calendar.CountingRule{
			TypeAnnual:    calendar.CountBusinessDays,
			TypeSick:      calendar.CountCalendarDays,
			TypeMaternity: calendar.CountCalendarDays,
			TypePaternity: calendar.CountCalendarDays,
			TypeUnpaid:    calendar.CountCalendarDays,
			TypeOther:     calendar.CountCalendarDays,
		},
		Calendar: calendar.DefaultWeekendPolicy(),
	}
}

// RuleFor returns the counting rule of t, calendar days when unconfigured.
func (p Policy) RuleFor(t Type) calendar.CountingRule {
	if rule, ok := p.Counting[t]; ok {
		return rule
	}
	return calendar.CountCalendarDays
}
