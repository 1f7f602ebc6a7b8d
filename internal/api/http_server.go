package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hubbook/internal/config"
	"hubbook/internal/database"
	"hubbook/internal/domain"
	"hubbook/internal/metrics"
	"hubbook/internal/models"
	"hubbook/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the availability and booking API consumed by the UI
// and admin layers.
type HTTPServer struct {
	cfg         *config.APIConfig
	svc         *service.AvailabilityService
	provisioner domain.Provisioner
	server      *http.Server
	auth        *HTTPAuth
	logger      *zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, svc *service.AvailabilityService, provisioner domain.Provisioner, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, svc: svc, provisioner: provisioner, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/availability", srv.handleAvailability)
	mux.HandleFunc("/hubs", srv.handleHubs)
	mux.HandleFunc("/health", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	switch r.Method {
	case http.MethodGet:
		s.handleGetAvailability(w, r)
	case http.MethodPost:
		s.handleAvailabilityAction(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if !models.ValidDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	hubIDsRaw := strings.TrimSpace(r.URL.Query().Get("hubIds"))
	hubIDRaw := strings.TrimSpace(r.URL.Query().Get("hubId"))

	switch {
	case hubIDsRaw != "":
		hubIDs, err := parseHubIDs(hubIDsRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		views, err := s.svc.GetMultiHubAvailability(r.Context(), hubIDs, date)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		writeSuccess(w, views)

	case hubIDRaw != "":
		hubID, err := strconv.ParseInt(hubIDRaw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hubId")
			return
		}
		view, err := s.svc.GetAvailability(r.Context(), hubID, date)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		writeSuccess(w, view)

	default:
		writeError(w, http.StatusBadRequest, "hubId or hubIds is required")
	}
}

type actionRequest struct {
	Action  string   `json:"action"`
	HubID   int64    `json:"hubId"`
	Date    string   `json:"date"`
	Time    string   `json:"time,omitempty"`
	UserID  int64    `json:"userId,omitempty"`
	Slots   []string `json:"slots,omitempty"`
	EndDate string   `json:"endDate,omitempty"`
}

func (s *HTTPServer) handleAvailabilityAction(w http.ResponseWriter, r *http.Request) {
	var body actionRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.HubID == 0 || body.Date == "" {
		writeError(w, http.StatusBadRequest, "hubId and date are required")
		return
	}
	if !models.ValidDate(body.Date) {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	var err error

	switch body.Action {
	case "book":
		if body.Time == "" || body.UserID == 0 {
			writeError(w, http.StatusBadRequest, "time and userId are required")
			return
		}
		if !models.ValidSlotLabel(body.Time) {
			writeError(w, http.StatusBadRequest, "invalid time format; expected HH:MM")
			return
		}
		_, err = s.svc.BookSlot(ctx, body.HubID, body.Date, body.Time, body.UserID)

	case "cancel":
		if body.Time == "" || body.UserID == 0 {
			writeError(w, http.StatusBadRequest, "time and userId are required")
			return
		}
		err = s.svc.CancelBooking(ctx, body.HubID, body.Date, body.Time, body.UserID)

	case "markDayOff":
		err = s.svc.MarkDayOff(ctx, body.HubID, body.Date)

	case "markDayOpen":
		err = s.svc.MarkDayOpen(ctx, body.HubID, body.Date)

	case "updateSlots":
		if len(body.Slots) == 0 {
			writeError(w, http.StatusBadRequest, "slots is required")
			return
		}
		err = s.svc.UpdateDaySlots(ctx, body.HubID, body.Date, body.Slots)

	case "preGenerate":
		if body.EndDate == "" {
			writeError(w, http.StatusBadRequest, "endDate is required")
			return
		}
		if !models.ValidDate(body.EndDate) {
			writeError(w, http.StatusBadRequest, "invalid endDate format; expected YYYY-MM-DD")
			return
		}
		// Fire-and-forget: the worker picks the range up off the request path.
		err = s.provisioner.EnqueueProvision(ctx, body.HubID, body.Date, body.EndDate)

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleHubs(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("hubs")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeSuccess(w, s.svc.GetHubs())
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError maps engine errors to the boundary taxonomy: unknown hub
// is a 404, business-rule conflicts are 400 with their actionable reason,
// anything else is a 500.
func (s *HTTPServer) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrHubNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotFull),
		errors.Is(err, database.ErrDayOff),
		errors.Is(err, database.ErrSlotNotOffered),
		errors.Is(err, database.ErrDuplicateBooking),
		errors.Is(err, database.ErrAppointmentNotFound),
		errors.Is(err, database.ErrSlotHasBookings),
		errors.Is(err, database.ErrCapacityBelowBooked),
		errors.Is(err, database.ErrInvalidDate),
		errors.Is(err, database.ErrInvalidSlotLabel):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("availability request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseHubIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid hub id: %s", trimmed)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("hubIds is empty")
	}
	return ids, nil
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
