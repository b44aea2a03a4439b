package devicehandler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"hrsync/internal/platform/deviceapi"
	"hrsync/internal/platform/devices"
)

func TestListMarksActiveDevice(t *testing.T) {
	reg, err := devices.Parse([]byte(`
devices:
  - id: A8N5230560263
    name: Front door
    inet: 192.168.1.201
    port: 4370
  - id: B2
    name: Warehouse
`))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	router := chi.NewRouter()
	NewHandler(reg, deviceapi.New("http://127.0.0.1:1", "A8N5230560263", time.Second)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices", nil))
	var body struct {
		Data []deviceView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 || !body.Data[0].Active || body.Data[1].Active {
		t.Fatalf("unexpected devices: %+v", body.Data)
	}
}

func TestStatusReportsDownDevice(t *testing.T) {
	bridge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bridge.Close()

	router := chi.NewRouter()
	NewHandler(&devices.Registry{}, deviceapi.New(bridge.URL, "dev", time.Second)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data deviceapi.Status `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.State != deviceapi.StateDown {
		t.Fatalf("expected down state, got %+v", body.Data)
	}
}
