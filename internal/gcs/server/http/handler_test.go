package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/autopeer-io/paramsync/internal/gcs/vehicles"
	"github.com/autopeer-io/paramsync/internal/paramsync"
	"github.com/autopeer-io/paramsync/internal/paramsync/cache"
	"github.com/autopeer-io/paramsync/pkg/mavlink"
)

type fakeService struct {
	running   bool
	sessions  []paramsync.Snapshot
	params    map[string]float64
	refreshed []paramsync.VehicleKey
	all       int
	deleted   []paramsync.VehicleKey
	deleteErr error
}

func (f *fakeService) Running() bool { return f.running }

func (f *fakeService) Sessions() []paramsync.Snapshot { return f.sessions }

func (f *fakeService) find(key paramsync.VehicleKey) (paramsync.Snapshot, bool) {
	for _, s := range f.sessions {
		if s.Key == key {
			return s, true
		}
	}
	return paramsync.Snapshot{}, false
}

func (f *fakeService) Session(key paramsync.VehicleKey) (paramsync.Snapshot, map[string]float64, error) {
	s, ok := f.find(key)
	if !ok {
		return s, nil, vehicles.ErrVehicleNotFound
	}
	return s, f.params, nil
}

func (f *fakeService) Refresh(key paramsync.VehicleKey) error {
	if _, ok := f.find(key); !ok {
		return vehicles.ErrVehicleNotFound
	}
	f.refreshed = append(f.refreshed, key)
	return nil
}

func (f *fakeService) RefreshAll() error {
	f.all++
	return nil
}

func (f *fakeService) DeleteCache(_ context.Context, key paramsync.VehicleKey) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

var px4 = paramsync.VehicleKey{SystemID: 1, ComponentID: 1, Autopilot: mavlink.AutopilotPX4}

func newFake() *fakeService {
	return &fakeService{
		running: true,
		sessions: []paramsync.Snapshot{{
			Key:        px4,
			State:      paramsync.StateReady,
			Ready:      true,
			ParamCount: 2,
		}},
		params: map[string]float64{"A": 1, "B": 2},
	}
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestProbes(t *testing.T) {
	svc := newFake()
	h := NewHandler(svc)

	if rec := do(h, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := do(h, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("GET /readyz = %d, want %d", rec.Code, http.StatusOK)
	}
	svc.running = false
	if rec := do(h, http.MethodGet, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz while stopped = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec := do(h, http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestVehicleAPI(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list", http.MethodGet, "/api/v1/vehicles", http.StatusOK},
		{"get", http.MethodGet, "/api/v1/vehicles/1_1_12", http.StatusOK},
		{"get unknown", http.MethodGet, "/api/v1/vehicles/9_1_12", http.StatusNotFound},
		{"get bad key", http.MethodGet, "/api/v1/vehicles/nope", http.StatusBadRequest},
		{"refresh", http.MethodPost, "/api/v1/vehicles/1_1_12/refresh", http.StatusAccepted},
		{"refresh unknown", http.MethodPost, "/api/v1/vehicles/9_1_12/refresh", http.StatusNotFound},
		{"refresh all", http.MethodPost, "/api/v1/refresh", http.StatusAccepted},
		{"delete cache", http.MethodDelete, "/api/v1/cache/1_1_12", http.StatusNoContent},
		{"wrong method", http.MethodGet, "/api/v1/refresh", http.StatusMethodNotAllowed},
		{"wrong method on vehicle", http.MethodDelete, "/api/v1/vehicles/1_1_12", http.StatusMethodNotAllowed},
		{"wrong method on cache", http.MethodPost, "/api/v1/cache/1_1_12", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/api/v1/nothing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(NewHandler(newFake()), tt.method, tt.path)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (body %q)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestGetVehicleBody(t *testing.T) {
	rec := do(NewHandler(newFake()), http.MethodGet, "/api/v1/vehicles/1_1_12")

	var got struct {
		State      string             `json:"state"`
		Ready      bool               `json:"ready"`
		ParamCount int                `json:"paramCount"`
		Params     map[string]float64 `json:"params"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if !got.Ready || got.ParamCount != 2 || got.Params["B"] != 2 {
		t.Errorf("unexpected body: %+v", got)
	}
	if got.State != string(paramsync.StateReady) {
		t.Errorf("state = %q, want %q", got.State, paramsync.StateReady)
	}
}

func TestRefreshAndDeleteReachService(t *testing.T) {
	svc := newFake()
	h := NewHandler(svc)

	do(h, http.MethodPost, "/api/v1/vehicles/1_1_12/refresh")
	do(h, http.MethodPost, "/api/v1/refresh")
	do(h, http.MethodDelete, "/api/v1/cache/1_1_12")

	if len(svc.refreshed) != 1 || svc.refreshed[0] != px4 {
		t.Errorf("refreshed = %v, want [%v]", svc.refreshed, px4)
	}
	if svc.all != 1 {
		t.Errorf("RefreshAll calls = %d, want 1", svc.all)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != px4 {
		t.Errorf("deleted = %v, want [%v]", svc.deleted, px4)
	}

	svc.deleteErr = cache.ErrNotFound
	if rec := do(h, http.MethodDelete, "/api/v1/cache/1_1_12"); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE missing cache = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
