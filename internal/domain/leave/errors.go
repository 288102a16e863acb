package leave

import "github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"

var (
	ErrLeaveNotFound       = apperror.New(apperror.KindNotFound, "leave request not found")
	ErrEntitlementNotFound = apperror.New(apperror.KindNotFound, "leave entitlement not found")

	ErrInvalidState        = apperror.New(apperror.KindInvalidState, "leave request is not pending")
	ErrInsufficientBalance = apperror.New(apperror.KindInsufficientBalance, "insufficient annual leave balance")

	ErrOverlappingLeave        = apperror.New(apperror.KindValidation, "leave overlaps an existing pending or approved request")
	ErrNoChargeableDays        = apperror.New(apperror.KindValidation, "leave range contains no chargeable days")
	ErrRejectionReasonRequired = apperror.New(apperror.KindValidation, "rejection reason is required")
	ErrEntitlementBelowUsed    = apperror.New(apperror.KindValidation, "entitlement is below the days already used")
)
