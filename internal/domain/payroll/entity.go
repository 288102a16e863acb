package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places amounts, hours and rates are
// stored with.
const MoneyScale = 2

// LineItem is one named allowance, deduction or bonus.
type LineItem struct {
	Type   string
	Amount decimal.Decimal
}

// Sum totals the amounts of items.
func Sum(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

func roundItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = LineItem{Type: item.Type, Amount: item.Amount.Round(MoneyScale)}
	}
	return out
}

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft    PayrollStatus = "draft"
	PayrollStatusPending  PayrollStatus = "pending"
	PayrollStatusApproved PayrollStatus = "approved"
	PayrollStatusPaid     PayrollStatus = "paid"
)

// Next returns the only status s may advance to.
func (s PayrollStatus) Next() (PayrollStatus, bool) {
	switch s {
	case PayrollStatusDraft:
		return PayrollStatusPending, true
	case PayrollStatusPending:
		return PayrollStatusApproved, true
	case PayrollStatusApproved:
		return PayrollStatusPaid, true
	default:
		return "", false
	}
}

// Locked reports whether amounts may no longer be recomputed.
func (s PayrollStatus) Locked() bool {
	return s == PayrollStatusApproved || s == PayrollStatusPaid
}

// PayrollRecord - one employee, one period
type PayrollRecord struct {
	ID            string
	EmployeeID    string
	PeriodYear    int
	PeriodMonth   int
	BaseSalary    decimal.Decimal
	Allowances    []LineItem
	Deductions    []LineItem
	Bonuses       []LineItem
	OvertimeHours decimal.Decimal
	OvertimeRate  decimal.Decimal

	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	NetSalary       decimal.Decimal

	Status     PayrollStatus
	ApprovedBy *string
	ApprovedAt *time.Time
	PaidAt     *time.Time
	PaidBy     *string
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OvertimeAmount is OvertimeHours x OvertimeRate rounded to MoneyScale.
func (r PayrollRecord) OvertimeAmount() decimal.Decimal {
	return r.OvertimeHours.Mul(r.OvertimeRate).Round(MoneyScale)
}

// Rounded returns a copy of r with every amount, hour count and rate at
// MoneyScale, the precision the store keeps.
func (r PayrollRecord) Rounded() PayrollRecord {
	r.BaseSalary = r.BaseSalary.Round(MoneyScale)
	r.Allowances = roundItems(r.Allowances)
	r.Deductions = roundItems(r.Deductions)
	r.Bonuses = roundItems(r.Bonuses)
	r.OvertimeHours = r.OvertimeHours.Round(MoneyScale)
	r.OvertimeRate = r.OvertimeRate.Round(MoneyScale)
	r.TotalGross = r.TotalGross.Round(MoneyScale)
	r.TotalDeductions = r.TotalDeductions.Round(MoneyScale)
	r.NetSalary = r.NetSalary.Round(MoneyScale)
	return r
}

// Calculate rounds the inputs to MoneyScale and fills the derived totals.
// Totals are sums of rounded terms, so a stored record reconciles exactly.
func (r *PayrollRecord) Calculate() {
	*r = r.Rounded()
	r.TotalGross = r.BaseSalary.
		Add(Sum(r.Allowances)).
		Add(Sum(r.Bonuses)).
		Add(r.OvertimeAmount())
	r.TotalDeductions = Sum(r.Deductions)
	r.NetSalary = r.TotalGross.Sub(r.TotalDeductions)
}

// Reconciles reports whether the stored totals match the inputs and no input
// amount is negative.
func (r PayrollRecord) Reconciles() bool {
	if r.BaseSalary.IsNegative() || r.OvertimeHours.IsNegative() || r.OvertimeRate.IsNegative() {
		return false
	}
	for _, items := range [][]LineItem{r.Allowances, r.Deductions, r.Bonuses} {
		for _, item := range items {
			if item.Amount.IsNegative() {
				return false
			}
		}
	}

	expected := r
	expected.Calculate()
	return expected.TotalGross.Equal(r.TotalGross) &&
		expected.TotalDeductions.Equal(r.TotalDeductions) &&
		expected.NetSalary.Equal(r.NetSalary)
}

// Transition is a conditional status change applied only while the stored
// status equals From.
type Transition struct {
	ID      string
	From    PayrollStatus
	To      PayrollStatus
	ActorID string
	At      time.Time
}

// Failure is a record a bulk operation could not transition.
type Failure struct {
	RecordID   string
	EmployeeID string
	Err        error
}

// PeriodResult reports the outcome of a bulk period transition.
type PeriodResult struct {
	PeriodYear   int
	PeriodMonth  int
	Transitioned []PayrollRecord
	Failed       []Failure
}

// PayrollSummary aggregates every record of a period regardless of status.
type PayrollSummary struct {
	PeriodYear      int
	PeriodMonth     int
	TotalEmployees  int
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
	AverageSalary   decimal.Decimal
	DraftCount      int
	PendingCount    int
	ApprovedCount   int
	PaidCount       int
}

// Policy holds payroll defaults.
type Policy struct {
	DefaultOvertimeRate decimal.Decimal
}
