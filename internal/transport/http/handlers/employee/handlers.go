package employeehandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/audit"
	"hrsync/internal/domain/employee"
	"hrsync/internal/domain/reconcile"
	"hrsync/internal/transport/http/api"
	"hrsync/internal/transport/http/middleware"
	"hrsync/internal/transport/http/shared"
)

type Directory interface {
	EmployeesWithFallback(ctx context.Context) ([]employee.Employee, reconcile.Provenance, error)
	CreateEmployee(ctx context.Context, in reconcile.NewEmployee) (reconcile.EmployeeWrite, error)
	DeleteEmployee(ctx context.Context, id string) (reconcile.EmployeeWrite, error)
}

type Getter interface {
	GetByID(ctx context.Context, id string) (employee.Employee, error)
}

type Syncer interface {
	SyncEmployeesNow(ctx context.Context) reconcile.SyncResult
}

type Handler struct {
	Directory Directory
	Store     Getter
	Syncer    Syncer
	Audit     audit.Recorder
}

func NewHandler(directory Directory, store Getter, syncer Syncer, recorder audit.Recorder) *Handler {
	return &Handler{Directory: directory, Store: store, Syncer: syncer, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Post("/sync", h.handleSync)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleDelete)
		})
	})
}

type listResponse struct {
	Items  []employee.Employee  `json:"items"`
	Total  int                  `json:"total"`
	Source reconcile.Provenance `json:"source"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	list, source, err := h.Directory.EmployeesWithFallback(r.Context())
	if err != nil {
		slog.Error("list employees failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "store_failure", "employee store is unavailable", reqID)
		return
	}
	if list == nil {
		list = []employee.Employee{}
	}
	api.Success(w, listResponse{Items: list, Total: len(list), Source: source}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	emp, err := h.Store.GetByID(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

type createRequest struct {
	UserID       string `json:"user_id"`
	LastName     string `json:"last_name"`
	FirstName    string `json:"first_name"`
	BirthDate    string `json:"birth_date"`
	Type         string `json:"type"`
	LoginMethod  string `json:"login_method"`
	DepartmentID string `json:"department_id"`
	PlanningID   string `json:"planning_id"`
	Card         int    `json:"card"`
	GroupID      string `json:"group_id"`
	Password     string `json:"password"`
	Privilege    int    `json:"privilege"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("user_id", payload.UserID, "is required")
	v.Required("last_name", payload.LastName, "is required")
	v.Enum("login_method", payload.LoginMethod, employee.LoginMethods(), "must be one of "+strings.Join(employee.LoginMethods(), ", "))
	if payload.Card < 0 {
		v.Add("card", "must not be negative")
	}
	if id := strings.TrimSpace(payload.DepartmentID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			v.Add("department_id", "must be a UUID")
		}
	}
	var emp employee.Employee
	if strings.TrimSpace(payload.BirthDate) != "" {
		if birth, ok := v.Date("birth_date", payload.BirthDate); ok {
			emp.BirthDate = birth
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	method, err := employee.ParseLoginMethod(payload.LoginMethod)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	emp.UserID = strings.TrimSpace(payload.UserID)
	emp.LastName = strings.TrimSpace(payload.LastName)
	emp.FirstName = strings.TrimSpace(payload.FirstName)
	emp.Type = strings.TrimSpace(payload.Type)
	emp.LoginMethod = method
	emp.DepartmentID = strings.TrimSpace(payload.DepartmentID)
	emp.PlanningID = strings.TrimSpace(payload.PlanningID)

	out, err := h.Directory.CreateEmployee(r.Context(), reconcile.NewEmployee{
		Employee:  emp,
		Card:      payload.Card,
		GroupID:   payload.GroupID,
		Password:  payload.Password,
		Privilege: payload.Privilege,
	})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	h.record(r, audit.ActionEmployeeCreate, out.Employee.ID, nil, out.Employee)
	api.Created(w, out, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	out, err := h.Directory.DeleteEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	h.record(r, audit.ActionEmployeeDelete, out.Employee.ID, out.Employee, nil)
	api.Success(w, out, reqID)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	result := h.Syncer.SyncEmployeesNow(context.WithoutCancel(r.Context()))
	switch {
	case result.Skipped:
		api.Accepted(w, result, reqID)
	case result.OK:
		h.record(r, audit.ActionEmployeeSync, "", nil, result)
		api.Success(w, result, reqID)
	case errors.Is(result.Err(), attendance.ErrStoreFailure):
		api.FailWithDetails(w, http.StatusInternalServerError, "store_failure", "employees could not be saved", result, reqID)
	default:
		api.FailWithDetails(w, http.StatusServiceUnavailable, "remote_unavailable", "attendance device is unreachable", result, reqID)
	}
}

func (h *Handler) record(r *http.Request, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), action, "employee", entityID, middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, after)
	if err != nil {
		slog.Warn("audit log failed", "action", action, "err", err)
	}
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", reqID)
	case errors.Is(err, employee.ErrAlreadyExists):
		api.Fail(w, http.StatusConflict, "already_exists", "an employee with this user_id already exists", reqID)
	case errors.Is(err, employee.ErrDepartmentNotFound):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "department_id", Reason: "does not exist"}})
	case errors.Is(err, employee.ErrInvalidLoginMethod):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "login_method", Reason: "is not supported"}})
	default:
		slog.Error("employee request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "unexpected error", reqID)
	}
}
