package devicehandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrsync/internal/platform/deviceapi"
	"hrsync/internal/platform/devices"
	"hrsync/internal/transport/http/api"
	"hrsync/internal/transport/http/middleware"
)

type Prober interface {
	DeviceID() string
	Status(ctx context.Context) (deviceapi.Status, error)
}

type Handler struct {
	Registry *devices.Registry
	Prober   Prober
}

func NewHandler(registry *devices.Registry, prober Prober) *Handler {
	return &Handler{Registry: registry, Prober: prober}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/status", h.handleStatus)
	})
}

type deviceView struct {
	devices.Device
	Active bool `json:"active"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	active := h.Prober.DeviceID()
	list := h.Registry.List()
	out := make([]deviceView, 0, len(list))
	for _, d := range list {
		out = append(out, deviceView{Device: d, Active: d.ID == active})
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

// handleStatus answers 200 either way; a down device is data, not an error.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, _ := h.Prober.Status(r.Context())
	api.Success(w, status, middleware.GetRequestID(r.Context()))
}
