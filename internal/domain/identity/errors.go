package identity

import (
	"errors"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/apperror"
)

var (
	ErrMissingIdentity         = apperror.New(apperror.KindValidation, "actor identity is required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)

// Require returns ErrMissingIdentity when actor carries no identity.
func Require(actor Actor) error {
	if !actor.Valid() {
		return ErrMissingIdentity
	}
	return nil
}
