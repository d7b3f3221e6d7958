package employeehandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/employee"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
)

type Handler struct {
	Employees  *employee.Service
	Attendance *attendance.Service
}

func NewHandler(employees *employee.Service, att *attendance.Service) *Handler {
	return &Handler{Employees: employees, Attendance: att}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Get("/record.pdf", h.handleRecordPDF)
			r.Get("/personal-data", h.handleGetPersonalData)
			r.Put("/personal-data", h.handleUpdatePersonalData)
			r.Get("/contact-info", h.handleGetContactInfo)
			r.Put("/contact-info", h.handleUpdateContactInfo)
			r.Get("/contract-details", h.handleGetContractDetails)
			r.Put("/contract-details", h.handleUpdateContractDetails)
			r.Post("/attendance", h.handleCreateAttendance)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var input employee.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	employeeID, err := h.Employees.Create(r.Context(), input)
	if err != nil {
		var verr *employee.ValidationError
		switch {
		case errors.As(err, &verr):
			api.Fail(w, http.StatusBadRequest, "validation_failed", verr.Error(), reqID)
		case errors.Is(err, employee.ErrAlreadyExists):
			api.Fail(w, http.StatusConflict, "conflict", "an employee with this ID already exists", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", reqID)
		}
		return
	}

	api.Created(w, map[string]string{"employeeId": employeeID}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	emp, err := h.Employees.Get(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to get employee", reqID)
		return
	}

	api.Success(w, emp, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var input employee.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	if err := h.Employees.Update(r.Context(), employeeID, input); err != nil {
		h.writeUpdateError(w, err, reqID)
		return
	}

	api.Success(w, map[string]string{"employeeId": employeeID}, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	if err := h.Employees.Deactivate(r.Context(), employeeID); err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_delete_failed", "failed to delete employee", reqID)
		return
	}

	api.Success(w, map[string]string{"employeeId": employeeID, "status": employee.StatusInactive}, reqID)
}

func (h *Handler) handleRecordPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	emp, err := h.Employees.Get(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to get employee", reqID)
		return
	}

	pdf, err := employee.RenderRecordPDF(employeeID, emp)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "pdf_render_failed", "failed to render employee record", reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="employee-record.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (h *Handler) handleGetPersonalData(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	data, err := h.Employees.GetPersonalData(r.Context(), chi.URLParam(r, "employeeID"))
	h.writeSectionGet(w, data, err, reqID)
}

func (h *Handler) handleGetContactInfo(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	data, err := h.Employees.GetContactInfo(r.Context(), chi.URLParam(r, "employeeID"))
	h.writeSectionGet(w, data, err, reqID)
}

func (h *Handler) handleGetContractDetails(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	data, err := h.Employees.GetContractDetails(r.Context(), chi.URLParam(r, "employeeID"))
	h.writeSectionGet(w, data, err, reqID)
}

func (h *Handler) writeSectionGet(w http.ResponseWriter, data any, err error, reqID string) {
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to get employee section", reqID)
		return
	}
	api.Success(w, data, reqID)
}

func (h *Handler) handleUpdatePersonalData(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var input employee.PersonalDataInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}
	if err := h.Employees.UpdatePersonalData(r.Context(), employeeID, input); err != nil {
		h.writeUpdateError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"employeeId": employeeID}, reqID)
}

func (h *Handler) handleUpdateContactInfo(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var input employee.ContactInfoInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}
	if err := h.Employees.UpdateContactInfo(r.Context(), employeeID, input); err != nil {
		h.writeUpdateError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"employeeId": employeeID}, reqID)
}

func (h *Handler) handleUpdateContractDetails(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var input employee.ContractDetailsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}
	if err := h.Employees.UpdateContractDetails(r.Context(), employeeID, input); err != nil {
		h.writeUpdateError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"employeeId": employeeID}, reqID)
}

// writeUpdateError maps service errors for every update variant. A failed
// active-status precondition surfaces as 404; the handler never reveals
// whether the record is missing or inactive.
func (h *Handler) writeUpdateError(w http.ResponseWriter, err error, reqID string) {
	var verr *employee.ValidationError
	switch {
	case errors.As(err, &verr):
		api.Fail(w, http.StatusBadRequest, "validation_failed", verr.Error(), reqID)
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", reqID)
	}
}

func (h *Handler) handleCreateAttendance(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var input attendance.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	entry, err := h.Attendance.Create(r.Context(), employeeID, input)
	if err != nil {
		var rerr *attendance.RuleError
		switch {
		case errors.As(err, &rerr):
			api.Fail(w, http.StatusBadRequest, "validation_failed", rerr.Error(), reqID)
		case errors.Is(err, attendance.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
		case errors.Is(err, attendance.ErrEmployeeInactive):
			api.Fail(w, http.StatusForbidden, "employee_inactive", "cannot create attendance for an inactive employee", reqID)
		case errors.Is(err, attendance.ErrDuplicateEntry):
			api.Fail(w, http.StatusConflict, "conflict", "an attendance entry for this date already exists", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "attendance_create_failed", "failed to create attendance entry", reqID)
		}
		return
	}

	api.Created(w, entry, reqID)
}
