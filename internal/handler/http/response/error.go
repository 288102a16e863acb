package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses. Server errors are logged
// and reported without their cause.
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, "", validationErrs.ToMap())
		return
	}

	if errors.Is(err, identity.ErrInsufficientPermissions) {
		Forbidden(w, "Insufficient permissions")
		return
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		ValidationError(w, appErr.Message, nil)
	case apperror.KindNotFound:
		NotFound(w, appErr.Message)
	case apperror.KindInsufficientBalance:
		writeError(w, http.StatusUnprocessableEntity, ErrorDetail{
			Code:    string(appErr.Kind),
			Message: appErr.Message,
		})
	case apperror.KindInvalidState,
		apperror.KindDuplicateCheckIn,
		apperror.KindNoOpenCheckIn,
		apperror.KindImmutableRecord:
		Conflict(w, string(appErr.Kind), appErr.Message)
	default:
		slog.Error("Request failed", "error", err, "retryable", appErr.Retryable())
		if appErr.Retryable() {
			ServiceUnavailable(w, "A dependency is temporarily unavailable")
			return
		}
		InternalServerError(w, "An unexpected error occurred")
	}
}
