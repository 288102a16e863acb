package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// actorFrom returns the actor stored by RequirePermission, writing 401 when
// the route was mounted without it.
func actorFrom(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return identity.Actor{}, false
	}
	return actor, true
}

// decode reads a JSON body. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// scopeEmployee pins callers without the broader permission to their own
// employee record. An empty request resolves to the caller.
func scopeEmployee(actor identity.Actor, requested string, broader identity.Permission) (string, error) {
	if requested == "" {
		requested = actor.EmployeeID
	}
	if identity.HasPermission(actor.Role, broader) {
		return requested, nil
	}
	if !actor.IsSelf(requested) {
		return "", identity.ErrInsufficientPermissions
	}
	return requested, nil
}

// periodParams parses the {year}/{month} route parameters.
func periodParams(r *http.Request) (int, int, error) {
	var errs validator.ValidationErrors

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		errs.Add("year", "must be a number")
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		errs.Add("month", "must be a number")
	}

	if len(errs) > 0 {
		return 0, 0, errs
	}
	return year, month, nil
}
