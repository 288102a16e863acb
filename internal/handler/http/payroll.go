package http

import (
	"net/http"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/workforce-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/workforce-engine/internal/service/workforce"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	Compute(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	MarkAsPaid(w http.ResponseWriter, r *http.Request)

	ApprovePeriod(w http.ResponseWriter, r *http.Request)
	MarkPeriodAsPaid(w http.ResponseWriter, r *http.Request)
	PeriodSummary(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	engine *workforce.Service
}

func NewPayrollHandler(engine *workforce.Service) PayrollHandler {
	return &payrollHandlerImpl{engine: engine}
}

func (h *payrollHandlerImpl) Compute(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req payroll.ComputeRequest
	if !decode(w, r, &req) {
		return
	}

	record, err := h.engine.ComputePayroll(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Payroll computed", payroll.NewPayrollRecordResponse(record))
}

func (h *payrollHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := payroll.ListRequest{
		EmployeeID:  query.Get("employee_id"),
		PeriodYear:  query.Get("period_year"),
		PeriodMonth: query.Get("period_month"),
		Status:      query.Get("status"),
	}.ToFilter()
	if err != nil {
		response.HandleError(w, err)
		return
	}

	records, err := h.engine.ListPayroll(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := make([]payroll.PayrollRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, payroll.NewPayrollRecordResponse(record))
	}
	response.Success(w, resp)
}

func (h *payrollHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.engine.GetPayroll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, payroll.NewPayrollRecordResponse(record))
}

func (h *payrollHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	record, err := h.engine.SubmitPayroll(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Payroll submitted for approval", payroll.NewPayrollRecordResponse(record))
}

func (h *payrollHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	record, err := h.engine.ApprovePayroll(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Payroll approved", payroll.NewPayrollRecordResponse(record))
}

func (h *payrollHandlerImpl) MarkAsPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	record, err := h.engine.MarkPayrollAsPaid(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Payroll marked as paid", payroll.NewPayrollRecordResponse(record))
}

// ApprovePeriod approves every pending record of the period. Per-record
// failures are reported in the body, not as an error status.
func (h *payrollHandlerImpl) ApprovePeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	year, month, err := periodParams(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.engine.ApprovePayrollPeriod(r.Context(), actor, year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, payroll.NewPeriodResultResponse(result))
}

func (h *payrollHandlerImpl) MarkPeriodAsPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	year, month, err := periodParams(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.engine.MarkPayrollPeriodAsPaid(r.Context(), actor, year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, payroll.NewPeriodResultResponse(result))
}

func (h *payrollHandlerImpl) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := periodParams(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.engine.PayrollSummary(r.Context(), year, month)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, payroll.NewPayrollSummaryResponse(summary))
}
