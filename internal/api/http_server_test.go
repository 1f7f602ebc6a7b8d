package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"hubbook/internal/config"
	"hubbook/internal/database"
	"hubbook/internal/events"
	"hubbook/internal/models"
	"hubbook/internal/repository"
	"hubbook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvisioner struct {
	calls []string
	err   error
}

func (s *stubProvisioner) EnqueueProvision(ctx context.Context, hubID int64, startDate, endDate string) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, startDate+".."+endDate)
	return nil
}

func setupServer(t *testing.T) (*HTTPServer, *stubProvisioner) {
	t.Helper()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	db.SetHubs([]*models.Hub{
		{ID: 1, Name: "Central Hub", DefaultSlots: []string{"09:00", "09:30"}, Active: true},
		{ID: 2, Name: "North Hub", DefaultSlots: []string{"08:00"}, Active: true},
	})

	svc := service.NewAvailabilityService(db, repository.NewMemoryAvailabilityCache(),
		events.NewEventBus(), config.BookingConfig{DefaultCapacity: 2}, &logger)

	provisioner := &stubProvisioner{}
	srv := NewHTTPServer(&config.APIConfig{Port: 0}, svc, provisioner, &logger)
	return srv, provisioner
}

func doRequest(t *testing.T, srv *HTTPServer, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetAvailabilityValidation(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("missing date", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/availability?hubId=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/availability?hubId=1&date=tomorrow", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing hub", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/availability?date=2026-09-15", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad hub id", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/availability?hubId=abc&date=2026-09-15", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown hub", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/availability?hubId=99&date=2026-09-15", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetAvailabilitySingleHub(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/availability?hubId=1&date=2026-09-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Central Hub", data["hubName"])
	assert.Len(t, data["slots"], 2)
}

func TestGetAvailabilityMultiHub(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/availability?hubIds=1,99,2&date=2026-09-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].([]any)
	// The unknown hub is silently omitted.
	require.Len(t, data, 2)
}

func TestBookAction(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "book", HubID: 1, Date: "2026-09-15", Time: "09:00", UserID: 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	// The booking shows up in the next read.
	rec = doRequest(t, srv, http.MethodGet, "/availability?hubId=1&date=2026-09-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	slots := data["slots"].([]any)
	first := slots[0].(map[string]any)
	assert.Equal(t, float64(1), first["booked"])
	assert.Equal(t, float64(1), first["available"])
}

func TestBookActionConflicts(t *testing.T) {
	srv, _ := setupServer(t)

	book := func(userID int64, slot string) *httptest.ResponseRecorder {
		return doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
			Action: "book", HubID: 1, Date: "2026-09-15", Time: slot, UserID: userID,
		})
	}

	require.Equal(t, http.StatusOK, book(100, "09:00").Code)
	require.Equal(t, http.StatusOK, book(101, "09:00").Code)

	t.Run("slot full", func(t *testing.T) {
		rec := book(102, "09:00")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "fully booked")
	})

	t.Run("duplicate user", func(t *testing.T) {
		rec := book(100, "09:30")
		require.Equal(t, http.StatusOK, rec.Code)
		rec = book(100, "09:30")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "already booked")
	})

	t.Run("slot not offered", func(t *testing.T) {
		rec := book(103, "23:00")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCancelAction(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "book", HubID: 1, Date: "2026-09-15", Time: "09:00", UserID: 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "cancel", HubID: 1, Date: "2026-09-15", Time: "09:00", UserID: 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Cancelling again fails: there is no active appointment left.
	rec = doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "cancel", HubID: 1, Date: "2026-09-15", Time: "09:00", UserID: 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDayOffActions(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "markDayOff", HubID: 1, Date: "2026-09-15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/availability?hubId=1&date=2026-09-15", nil)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, true, data["isDayOff"])

	rec = doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "markDayOpen", HubID: 1, Date: "2026-09-15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/availability?hubId=1&date=2026-09-15", nil)
	data = decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, false, data["isDayOff"])
}

func TestUpdateSlotsAction(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "updateSlots", HubID: 1, Date: "2026-09-15", Slots: []string{"14:00", "15:00"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/availability?hubId=1&date=2026-09-15", nil)
	data := decodeBody(t, rec)["data"].(map[string]any)
	slots := data["slots"].([]any)
	require.Len(t, slots, 2)
	assert.Equal(t, "14:00", slots[0].(map[string]any)["time"])

	rec = doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "updateSlots", HubID: 1, Date: "2026-09-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreGenerateAction(t *testing.T) {
	srv, provisioner := setupServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "preGenerate", HubID: 1, Date: "2026-09-15", EndDate: "2026-09-30",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, provisioner.calls, 1)
	assert.Equal(t, "2026-09-15..2026-09-30", provisioner.calls[0])

	rec = doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
		Action: "preGenerate", HubID: 1, Date: "2026-09-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionValidation(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("unknown action", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
			Action: "explode", HubID: 1, Date: "2026-09-15",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid action", decodeBody(t, rec)["error"])
	})

	t.Run("missing hub and date", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{Action: "book"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("book missing time", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
			Action: "book", HubID: 1, Date: "2026-09-15", UserID: 100,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("book bad time label", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/availability", actionRequest{
			Action: "book", HubID: 1, Date: "2026-09-15", Time: "9am", UserID: 100,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/availability", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHubsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/hubs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "Central Hub", data[0].(map[string]any)["name"])

	rec = doRequest(t, srv, http.MethodPost, "/hubs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
