package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID       int64  `json:"user_id"`
		LicensePlate string `json:"license_plate"`
		StartTime    string `json:"start_time"`
		EndTime      string `json:"end_time"`
	}

	var body request
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}

	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time; expected RFC3339", "BAD_REQUEST")
		return
	}
	end, err := time.Parse(time.RFC3339, body.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time; expected RFC3339", "BAD_REQUEST")
		return
	}

	created, err := s.bookings.CreateBooking(r.Context(), body.UserID, body.LicensePlate, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required", "BAD_REQUEST")
		return
	}

	bookings, err := s.bookings.ListUserBookings(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleBookingCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		BookingID int64 `json:"booking_id"`
		UserID    int64 `json:"user_id"`
		Version   int64 `json:"version"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BookingID == 0 {
		writeError(w, http.StatusBadRequest, "booking_id is required", "BAD_REQUEST")
		return
	}

	if err := s.bookings.CancelBooking(r.Context(), body.BookingID, body.UserID, body.Version); err != nil {
		writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), body.BookingID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		LicensePlate string `json:"license_plate"`
		SlotCode     string `json:"slot_code"`
		BookingID    int64  `json:"booking_id,omitempty"`
		TicketCode   string `json:"ticket_code,omitempty"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
		return
	}
	if body.LicensePlate == "" || body.SlotCode == "" {
		writeError(w, http.StatusBadRequest, "license_plate and slot_code are required", "BAD_REQUEST")
		return
	}

	result, err := s.gate.CheckIn(r.Context(), body.LicensePlate, body.SlotCode, body.BookingID, body.TicketCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"vehicle": result.Vehicle,
		"booking": result.Booking,
		"ticket":  result.Ticket,
	})
}

func (s *HTTPServer) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		TicketCode   string `json:"ticket_code"`
		LicensePlate string `json:"license_plate,omitempty"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TicketCode == "" {
		writeError(w, http.StatusBadRequest, "ticket_code is required", "BAD_REQUEST")
		return
	}

	result, err := s.gate.CheckOut(r.Context(), body.TicketCode, body.LicensePlate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vehicle": result.Vehicle,
		"ticket":  result.Ticket,
	})
}

func (s *HTTPServer) handleExitVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	plate := strings.TrimSpace(r.URL.Query().Get("license_plate"))
	if plate == "" {
		writeError(w, http.StatusBadRequest, "license_plate is required", "BAD_REQUEST")
		return
	}

	v, err := s.exits.Verify(r.Context(), plate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *HTTPServer) handlePaymentCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		Amount    int64 `json:"amount"`
		BookingID int64 `json:"booking_id"`
		VehicleID int64 `json:"vehicle_id"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}

	intent, err := s.payments.CreateIntent(r.Context(), body.Amount, body.BookingID, body.VehicleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

func (s *HTTPServer) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	ref := strings.TrimSpace(r.URL.Query().Get("ref"))
	if ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required", "BAD_REQUEST")
		return
	}

	payment, err := s.payments.Status(r.Context(), ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *HTTPServer) handlePaymentReconcile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		Ref string `json:"ref"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required", "BAD_REQUEST")
		return
	}

	payment, settled, err := s.payments.Reconcile(r.Context(), body.Ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payment": payment,
		"settled": settled,
	})
}

func (s *HTTPServer) handlePaymentCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		Ref string `json:"ref"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Ref == "" {
		writeError(w, http.StatusBadRequest, "ref is required", "BAD_REQUEST")
		return
	}

	payment, err := s.payments.Cancel(r.Context(), body.Ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *HTTPServer) handleReport(export func(ctx context.Context, start, end time.Time) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
			return
		}
		if s.exporter == nil {
			writeError(w, http.StatusNotImplemented, "reports are not configured", "NOT_CONFIGURED")
			return
		}

		type request struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		var body request
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body", "BAD_REQUEST")
			return
		}

		start, err := time.Parse("2006-01-02", body.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from; expected YYYY-MM-DD", "BAD_REQUEST")
			return
		}
		end, err := time.Parse("2006-01-02", body.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD", "BAD_REQUEST")
			return
		}
		// Include the whole last day.
		end = end.AddDate(0, 0, 1)

		path, err := export(r.Context(), start, end)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"file_path": path})
	}
}

func (s *HTTPServer) exportBookings(ctx context.Context, start, end time.Time) (string, error) {
	return s.exporter.ExportBookings(ctx, start, end)
}

func (s *HTTPServer) exportRevenue(ctx context.Context, start, end time.Time) (string, error) {
	return s.exporter.ExportRevenue(ctx, start, end)
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	slots, err := s.slots.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *HTTPServer) handleSlotUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
		return
	}

	type request struct {
		SlotCode    string `json:"slot_code"`
		Maintenance bool   `json:"maintenance"`
	}
	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SlotCode == "" {
		writeError(w, http.StatusBadRequest, "slot_code is required", "BAD_REQUEST")
		return
	}

	slot, err := s.slots.SetMaintenance(r.Context(), body.SlotCode, body.Maintenance)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}
