package http

import (
	"net/http"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/leave"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/clock"
	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/workforce-engine/internal/service/workforce"
	"github.com/go-chi/chi/v5"
)

type LeaveHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Pending(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Balance(w http.ResponseWriter, r *http.Request)
	SetEntitlement(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	engine *workforce.Service
	clock  clock.Clock
}

func NewLeaveHandler(engine *workforce.Service, clk clock.Clock) LeaveHandler {
	return &LeaveHandlerImpl{engine: engine, clock: clk}
}

// Create implements LeaveHandler.
func (l *LeaveHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req leave.CreateRequest
	if !decode(w, r, &req) {
		return
	}

	employeeID, err := scopeEmployee(actor, req.EmployeeID, identity.PermissionLeaveViewAll)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.EmployeeID = employeeID

	record, err := l.engine.RequestLeave(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Leave request submitted", leave.NewRecordResponse(record))
}

// List implements LeaveHandler.
func (l *LeaveHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	employeeID := query.Get("employee_id")
	if !identity.HasPermission(actor.Role, identity.PermissionLeaveViewAll) {
		scoped, err := scopeEmployee(actor, employeeID, identity.PermissionLeaveViewAll)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		employeeID = scoped
	}

	filter, err := leave.ListRequest{
		EmployeeID: employeeID,
		Status:     query.Get("status"),
		Type:       query.Get("leave_type"),
		Year:       query.Get("year"),
	}.ToFilter()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	records, err := l.engine.ListLeave(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := make([]leave.RecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, leave.NewRecordResponse(record))
	}
	response.Success(w, resp)
}

// Pending implements LeaveHandler. It drains the paginated pending sequence.
func (l *LeaveHandlerImpl) Pending(w http.ResponseWriter, r *http.Request) {
	resp := make([]leave.RecordResponse, 0)
	for record, err := range l.engine.PendingLeave(r.Context()) {
		if err != nil {
			response.HandleError(w, err)
			return
		}
		resp = append(resp, leave.NewRecordResponse(record))
	}
	response.Success(w, resp)
}

// load fetches a leave record the actor is allowed to see.
func (l *LeaveHandlerImpl) load(w http.ResponseWriter, r *http.Request, actor identity.Actor) (leave.Record, bool) {
	record, err := l.engine.GetLeave(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return leave.Record{}, false
	}
	if _, err := scopeEmployee(actor, record.EmployeeID, identity.PermissionLeaveViewAll); err != nil {
		response.HandleError(w, err)
		return leave.Record{}, false
	}
	return record, true
}

// Get implements LeaveHandler.
func (l *LeaveHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	record, ok := l.load(w, r, actor)
	if !ok {
		return
	}
	response.Success(w, leave.NewRecordResponse(record))
}

// Approve implements LeaveHandler.
func (l *LeaveHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	record, err := l.engine.ApproveLeave(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave request approved", leave.NewRecordResponse(record))
}

// Reject implements LeaveHandler.
func (l *LeaveHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req leave.RejectRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := l.engine.RejectLeave(r.Context(), actor, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave request rejected", leave.NewRecordResponse(record))
}

// Cancel implements LeaveHandler. Employees may only cancel their own requests.
func (l *LeaveHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	record, ok := l.load(w, r, actor)
	if !ok {
		return
	}

	cancelled, err := l.engine.CancelLeave(r.Context(), actor, record.ID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave request cancelled", leave.NewRecordResponse(cancelled))
}

// Balance serves GET /leaves/balance?employee_id&year. Year defaults to the
// current one.
func (l *LeaveHandlerImpl) Balance(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	employeeID, err := scopeEmployee(actor, query.Get("employee_id"), identity.PermissionLeaveViewAll)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if validator.IsEmpty(employeeID) {
		response.HandleError(w, validator.ValidationErrors{{Field: "employee_id", Message: "employee_id is required"}})
		return
	}

	year := l.clock.Now().Year()
	if raw := query.Get("year"); raw != "" {
		var errs validator.ValidationErrors
		year, _ = errs.Year("year", raw)
		if err := errs.Err(); err != nil {
			response.HandleError(w, err)
			return
		}
	}

	balance, err := l.engine.LeaveBalance(r.Context(), employeeID, year)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, leave.NewBalanceResponse(balance))
}

// SetEntitlement implements LeaveHandler.
func (l *LeaveHandlerImpl) SetEntitlement(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req leave.SetEntitlementRequest
	if !decode(w, r, &req) {
		return
	}

	entitlement, err := l.engine.SetLeaveEntitlement(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Leave entitlement updated", leave.NewEntitlementResponse(entitlement))
}
