package orghandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/org"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
)

type Handler struct {
	Org *org.Service
}

func NewHandler(service *org.Service) *Handler {
	return &Handler{Org: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/departments", func(r chi.Router) {
		r.Post("/", h.handleCreateDepartment)
		r.Get("/", h.handleListDepartments)
		r.Get("/{departmentID}", h.handleGetDepartment)
		r.Post("/{departmentID}/org-units", h.handleCreateOrgUnit)
	})
	r.Route("/positions", func(r chi.Router) {
		r.Post("/", h.handleCreatePosition)
		r.Get("/", h.handleListPositions)
		r.Get("/{positionID}", h.handleGetPosition)
	})
	r.Route("/org-units", func(r chi.Router) {
		r.Get("/", h.handleListOrgUnits)
		r.Get("/{unitID}", h.handleGetOrgUnit)
	})
	r.Route("/job-classifications", func(r chi.Router) {
		r.Post("/", h.handleCreateJobClassification)
		r.Get("/", h.handleListJobClassifications)
		r.Get("/{jobClassificationID}", h.handleGetJobClassification)
	})
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var input org.DepartmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	departmentID, err := h.Org.CreateDepartment(r.Context(), input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeCreateError(w, err, "department_create_failed", reqID)
		return
	}
	api.Created(w, map[string]string{"departmentId": departmentID}, reqID)
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	dept, err := h.Org.GetDepartment(r.Context(), chi.URLParam(r, "departmentID"))
	if err != nil {
		h.writeGetError(w, err, "department", reqID)
		return
	}
	api.Success(w, dept, reqID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	departments, err := h.Org.ListDepartments(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", reqID)
		return
	}
	api.Success(w, map[string]any{"departments": departments, "count": len(departments)}, reqID)
}

func (h *Handler) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var input org.PositionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	positionID, err := h.Org.CreatePosition(r.Context(), input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeCreateError(w, err, "position_create_failed", reqID)
		return
	}
	api.Created(w, map[string]string{"positionId": positionID}, reqID)
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	position, err := h.Org.GetPosition(r.Context(), chi.URLParam(r, "positionID"))
	if err != nil {
		h.writeGetError(w, err, "position", reqID)
		return
	}
	api.Success(w, position, reqID)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	positions, err := h.Org.ListPositions(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "position_list_failed", "failed to list positions", reqID)
		return
	}
	api.Success(w, map[string]any{"positions": positions, "count": len(positions)}, reqID)
}

func (h *Handler) handleCreateOrgUnit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	var input org.OrgUnitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	unitID, err := h.Org.CreateOrgUnit(r.Context(), departmentID, input, middleware.Actor(r.Context()))
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "department not found", reqID)
			return
		}
		h.writeCreateError(w, err, "org_unit_create_failed", reqID)
		return
	}
	api.Created(w, map[string]string{"unitId": unitID}, reqID)
}

func (h *Handler) handleGetOrgUnit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	unit, err := h.Org.GetOrgUnit(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		h.writeGetError(w, err, "org unit", reqID)
		return
	}
	api.Success(w, unit, reqID)
}

func (h *Handler) handleListOrgUnits(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	units, err := h.Org.ListOrgUnits(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "org_unit_list_failed", "failed to list org units", reqID)
		return
	}
	api.Success(w, map[string]any{"orgUnits": units, "count": len(units)}, reqID)
}

func (h *Handler) handleCreateJobClassification(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var input org.JobClassificationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.Fail(w, http.StatusBadRequest, "bad_request", "invalid request body", reqID)
		return
	}

	id, err := h.Org.CreateJobClassification(r.Context(), input, middleware.Actor(r.Context()))
	if err != nil {
		h.writeCreateError(w, err, "job_classification_create_failed", reqID)
		return
	}
	api.Created(w, map[string]string{"jobClassificationId": id}, reqID)
}

func (h *Handler) handleGetJobClassification(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	jc, err := h.Org.GetJobClassification(r.Context(), chi.URLParam(r, "jobClassificationID"))
	if err != nil {
		h.writeGetError(w, err, "job classification", reqID)
		return
	}
	api.Success(w, jc, reqID)
}

func (h *Handler) handleListJobClassifications(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	jcs, err := h.Org.ListJobClassifications(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_classification_list_failed", "failed to list job classifications", reqID)
		return
	}
	api.Success(w, map[string]any{"jobClassifications": jcs, "count": len(jcs)}, reqID)
}

func (h *Handler) writeCreateError(w http.ResponseWriter, err error, code, reqID string) {
	var verr *org.ValidationError
	var refErr *org.ReferenceError
	switch {
	case errors.As(err, &verr):
		api.Fail(w, http.StatusBadRequest, "validation_failed", verr.Error(), reqID)
	case errors.As(err, &refErr):
		api.Fail(w, http.StatusBadRequest, "invalid_reference", refErr.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, "request failed", reqID)
	}
}

func (h *Handler) writeGetError(w http.ResponseWriter, err error, entity, reqID string) {
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", entity+" not found", reqID)
		return
	}
	api.Fail(w, http.StatusInternalServerError, "org_get_failed", "failed to get "+entity, reqID)
}
