package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/paramsync/internal/gcs/vehicles"
	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/internal/pkg/metrics"
	"github.com/autopeer-io/paramsync/pkg/log"
)

// VehicleService is the part of vehicles.Manager the API exposes.
type VehicleService interface {
	Running() bool
	Sessions() []paramsync.Snapshot
	Session(key paramsync.VehicleKey) (paramsync.Snapshot, map[string]float64, error)
	Refresh(key paramsync.VehicleKey) error
	RefreshAll() error
	DeleteCache(ctx context.Context, key paramsync.VehicleKey) error
}

var _ VehicleService = (*vehicles.Manager)(nil)

const apiPrefix = "/api/v1"

type handler struct {
	svc VehicleService
}

// NewHandler routes the probes, metrics and the vehicle API.
func NewHandler(svc VehicleService) http.Handler {
	h := &handler{svc: svc}
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Routes stay on the root router so a method mismatch answers 405.
	r.HandleFunc(apiPrefix+"/vehicles", h.listVehicles).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/vehicles/{key}", h.getVehicle).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/vehicles/{key}/refresh", h.refreshVehicle).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/refresh", h.refreshAll).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/cache/{key}", h.deleteCache).Methods(http.MethodDelete)

	return r
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) readyz(w http.ResponseWriter, _ *http.Request) {
	if !h.svc.Running() {
		http.Error(w, "vehicle manager not running", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type vehicleResponse struct {
	paramsync.Snapshot
	Params map[string]float64 `json:"params,omitempty"`
}

func (h *handler) listVehicles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions())
}

func (h *handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	snap, params, err := h.svc.Session(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleResponse{Snapshot: snap, Params: params})
}

func (h *handler) refreshVehicle(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	if err := h.svc.Refresh(key); err != nil {
		writeError(w, err)
		return
	}
	log.Info("Parameter refresh requested", "vehicle", key.String(), "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) refreshAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefreshAll(); err != nil {
		writeError(w, err)
		return
	}
	log.Info("Parameter refresh requested for all vehicles", "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) deleteCache(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCache(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	log.Info("Parameter cache deleted", "vehicle", key.String(), "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func parseKey(w http.ResponseWriter, r *http.Request) (paramsync.VehicleKey, bool) {
	key, err := cache.ParseVehicleKey(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return key, false
	}
	return key, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vehicles.ErrVehicleNotFound), errors.Is(err, cache.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, paramsync.ErrSessionClosed):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "Failed to encode response")
	}
}
