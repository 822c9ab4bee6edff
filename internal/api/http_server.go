package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"xparking/internal/config"
	"xparking/internal/database"
	"xparking/internal/metrics"
	"xparking/internal/models"
	"xparking/internal/report"
	"xparking/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer exposes the facility API: bookings, gate transactions, exit
// verification, payments and slot management.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	gate     *service.GateService
	payments *service.PaymentService
	exits    *service.ExitService
	slots    *service.SlotService
	exporter *report.Exporter
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, gate *service.GateService, payments *service.PaymentService, exits *service.ExitService, slots *service.SlotService, exporter *report.Exporter) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		gate:     gate,
		payments: payments,
		exits:    exits,
		slots:    slots,
		exporter: exporter,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/cancel", srv.handleBookingCancel)
	mux.HandleFunc("/api/v1/gate/checkin", srv.handleCheckIn)
	mux.HandleFunc("/api/v1/gate/checkout", srv.handleCheckOut)
	mux.HandleFunc("/api/v1/exit/verify", srv.handleExitVerify)
	mux.HandleFunc("/api/v1/payments", srv.handlePaymentCreate)
	mux.HandleFunc("/api/v1/payments/status", srv.handlePaymentStatus)
	mux.HandleFunc("/api/v1/payments/reconcile", srv.handlePaymentReconcile)
	mux.HandleFunc("/api/v1/payments/cancel", srv.handlePaymentCancel)
	mux.HandleFunc("/api/v1/slots", srv.handleSlots)
	mux.HandleFunc("/api/v1/slots/update", srv.handleSlotUpdate)
	mux.HandleFunc("/api/v1/reports/bookings", srv.handleReport(srv.exportBookings))
	mux.HandleFunc("/api/v1/reports/revenue", srv.handleReport(srv.exportRevenue))

	root := http.NewServeMux()
	root.Handle("/api/v1/", loggingMiddleware(srv.auth.Wrap(mux)))
	root.Handle("/metrics", promhttp.Handler())
	root.HandleFunc("/healthz", srv.handleHealth)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	log.Printf("HTTP API listening on %s", s.server.Addr)
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

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)
		metrics.IncHTTP(r.URL.Path)
		log.Printf("http method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, recorder.status, dur)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{"error": message, "code": code})
}

// writeServiceError maps domain errors to HTTP statuses and reason codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var denied *service.ExitDeniedError
	if errors.As(err, &denied) {
		writeError(w, http.StatusConflict, err.Error(), denied.Reason)
		return
	}

	switch {
	case errors.Is(err, database.ErrNoCapacity):
		writeError(w, http.StatusConflict, err.Error(), "NO_CAPACITY")
	case errors.Is(err, database.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, err.Error(), "SLOT_UNAVAILABLE")
	case errors.Is(err, database.ErrSlotOccupied):
		writeError(w, http.StatusConflict, err.Error(), "SLOT_OCCUPIED")
	case errors.Is(err, database.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, err.Error(), "ALREADY_IN_PARKING")
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error(), "INVALID_STATUS")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, database.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error(), "NOT_OWNER")
	case errors.Is(err, database.ErrSlotNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrVehicleNotFound),
		errors.Is(err, database.ErrTicketNotFound),
		errors.Is(err, database.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, models.ErrInvalidPlate),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrPastStart),
		errors.Is(err, service.ErrIntentTarget):
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
