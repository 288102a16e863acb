package payroll

import "github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"

var (
	ErrPayrollRecordNotFound      = apperror.New(apperror.KindNotFound, "payroll record not found")
	ErrPayrollRecordAlreadyExists = apperror.New(apperror.KindInvalidState, "payroll record already exists for this period")
	ErrImmutableRecord            = apperror.New(apperror.KindImmutableRecord, "payroll record is approved or paid, cannot recompute")
	ErrInvalidState               = apperror.New(apperror.KindInvalidState, "payroll record is not in the required status")
	ErrInvalidPeriod              = apperror.New(apperror.KindValidation, "invalid payroll period")
	ErrReconciliationFailed       = apperror.New(apperror.KindInvalidState, "payroll totals do not reconcile with their inputs")
)
