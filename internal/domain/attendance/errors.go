package attendance

import "github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"

// Attendance domain errors
var (
	// Sequencing errors
	ErrDuplicateCheckIn   = apperror.New(apperror.KindDuplicateCheckIn, "employee already has an open check-in today")
	ErrNoOpenCheckIn      = apperror.New(apperror.KindNoOpenCheckIn, "employee has no open check-in")
	ErrAlreadyCheckedOut  = apperror.New(apperror.KindInvalidState, "employee has already checked out today")
	ErrBreakAlreadyTaken  = apperror.New(apperror.KindInvalidState, "break has already been taken today")
	ErrNoOpenBreak        = apperror.New(apperror.KindInvalidState, "no break in progress")
	ErrTimestampTooEarly  = apperror.New(apperror.KindValidation, "timestamp is before the check-in")
	ErrRecordFinalized    = apperror.New(apperror.KindInvalidState, "attendance record is finalized")
	ErrRecordAlreadyExist = apperror.New(apperror.KindDuplicateCheckIn, "attendance record already exists for this date")

	// General errors
	ErrAttendanceNotFound = apperror.New(apperror.KindNotFound, "attendance record not found")
)
