package http

import (
	"net/http"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/workforce-engine/internal/service/workforce"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	Summary(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	engine *workforce.Service
}

func NewAttendanceHandler(engine *workforce.Service) AttendanceHandler {
	return &attendanceHandlerImpl{engine: engine}
}

// clockRequest is the shared body of the check-in, check-out and break routes.
type clockRequest struct {
	EmployeeID string `json:"employee_id"`
}

func (h *attendanceHandlerImpl) resolve(w http.ResponseWriter, r *http.Request) (identity.Actor, string, bool) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return identity.Actor{}, "", false
	}

	var req clockRequest
	if !decode(w, r, &req) {
		return identity.Actor{}, "", false
	}

	employeeID, err := scopeEmployee(actor, req.EmployeeID, identity.PermissionAttendanceViewAll)
	if err != nil {
		response.HandleError(w, err)
		return identity.Actor{}, "", false
	}
	return actor, employeeID, true
}

func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	req := attendance.CheckInRequest{EmployeeID: employeeID}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.engine.CheckIn(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Checked in", attendance.NewRecordResponse(record))
}

func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	req := attendance.CheckOutRequest{EmployeeID: employeeID}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.engine.CheckOut(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Checked out", attendance.NewRecordResponse(record))
}

func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	req := attendance.BreakRequest{EmployeeID: employeeID}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.engine.StartBreak(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Break started", attendance.NewRecordResponse(record))
}

func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	actor, employeeID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	req := attendance.BreakRequest{EmployeeID: employeeID}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	record, err := h.engine.EndBreak(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Break ended", attendance.NewRecordResponse(record))
}

// Summary serves GET /attendance/summary?employee_id&start&end.
func (h *attendanceHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	employeeID, err := scopeEmployee(actor, query.Get("employee_id"), identity.PermissionAttendanceViewAll)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	req := attendance.SummaryRequest{
		EmployeeID: employeeID,
		StartDate:  query.Get("start"),
		EndDate:    query.Get("end"),
	}
	start, end, err := req.Parse()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.engine.SummarizeAttendance(r.Context(), employeeID, start, end)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, attendance.NewSummaryResponse(summary))
}
