package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/arkasetia/go-room-reserve.git/internal/booking"
	kafkax "github.com/arkasetia/go-room-reserve.git/internal/kafka"
	"github.com/arkasetia/go-room-reserve.git/internal/redisx"
)

type BookingsHandler struct {
	Arbiter        *booking.Arbiter
	ProducerCreate *kafkax.Producer // booking.created
	ProducerStatus *kafkax.Producer // booking.status.changed
	ProducerDelete *kafkax.Producer // booking.deleted
	Redis          *redis.Client
	Validate       *validator.Validate
	Service        string
}

type CreateBookingReq struct {
	ExternalID string `json:"external_id" validate:"required"`
	RoomID     string `json:"room_id" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	TotalCents int    `json:"total_cents" validate:"required,gt=0"`
}

type ReservationResp struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	CustomerID    string `json:"customer_id"`
	Date          string `json:"date"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Status        string `json:"status"`
	TotalCents    int    `json:"total_cents"`
	Idempotent    bool   `json:"idempotent,omitempty"`
}

type UpdateStatusReq struct {
	Status string `json:"status" validate:"required,oneof=approved declined cancelled"`
}

func (h *BookingsHandler) Register(r *chi.Mux) {
	r.Post("/bookings", h.createBooking)
	r.Get("/bookings/{id}", h.getBooking)
	r.Get("/bookings/{id}/status", h.getBookingStatus)
	r.Patch("/bookings/{id}/status", h.updateStatus)
	r.Delete("/bookings/{id}", h.deleteBooking)
	r.Get("/rooms/{id}/availability", h.availability)
	r.Get("/rooms/{id}/deletion-check", h.roomDeletionCheck)
	r.Get("/clients/{id}/deletion-check", h.clientDeletionCheck)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Taxonomy -> HTTP. SlotConflict sengaja 409: satu-satunya error yang pantas
// di-retry caller dengan window lain, jangan ketuker sama 400/422.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrMalformedRequest), errors.Is(err, booking.ErrPastDate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrRoomUnavailable),
		errors.Is(err, booking.ErrOutsideOperatingHours),
		errors.Is(err, booking.ErrInvalidTransition):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrSlotConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		if be, ok := booking.IsBlockedDeletion(err); ok {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": be.Error(), "active_count": be.ActiveCount,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// Principal di-inject gateway yang sudah meng-autentikasi; core tinggal baca.
func principalFrom(r *http.Request) booking.Principal {
	return booking.Principal{
		UserID: r.Header.Get("X-User-Id"),
		Role:   r.Header.Get("X-User-Role"),
	}
}

func toResp(res *booking.Reservation, idem bool) ReservationResp {
	return ReservationResp{
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		CustomerID:    res.CustomerID,
		Date:          res.Date.Format("2006-01-02"),
		CheckIn:       res.CheckIn.String(),
		CheckOut:      res.CheckOut.String(),
		Status:        string(res.Status),
		TotalCents:    res.TotalCents,
		Idempotent:    idem,
	}
}

func (h *BookingsHandler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeErr(w, booking.ErrMalformedRequest)
		return
	}
	checkIn, err := booking.ParseClock(req.CheckIn)
	if err != nil {
		writeErr(w, booking.ErrMalformedRequest)
		return
	}
	checkOut, err := booking.ParseClock(req.CheckOut)
	if err != nil {
		writeErr(w, booking.ErrMalformedRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis: hit => langsung balikin record lama
	// tanpa nyentuh arbiter. Miss atau cache down => lanjut jalur normal,
	// DB tetap kebenaran (arbiter nge-probe external_id lagi di sana).
	idemKey := fmt.Sprintf(redisx.KeyIdemBookingCreate, req.ExternalID)
	if id, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && id != "" {
		if prev, perr := h.Arbiter.Store.ReservationByID(ctx, id); perr == nil {
			writeJSON(w, http.StatusCreated, toResp(prev, true))
			return
		}
		// cache nunjuk record yang sudah hilang; buang, jangan dipercaya
		_ = h.Redis.Del(ctx, idemKey).Err()
	}

	res, existed, err := h.Arbiter.RequestBooking(ctx, booking.BookingRequest{
		ExternalID: req.ExternalID,
		RoomID:     req.RoomID,
		CustomerID: req.CustomerID,
		Date:       date,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		TotalCents: req.TotalCents,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	_ = h.Redis.Set(ctx, idemKey, res.ID, redisx.TTLIdempotency).Err()
	statusKey := fmt.Sprintf(redisx.KeyBookingStatus, res.ID)
	_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, res.Status), redisx.TTLStatusCache).Err()
	h.invalidateAvail(ctx, res.RoomID, res.Date)

	if !existed {
		h.publishCreated(r, res)
	}
	writeJSON(w, http.StatusCreated, toResp(res, existed))
}

func (h *BookingsHandler) publishCreated(r *http.Request, res *booking.Reservation) {
	ev := booking.Envelope{
		EventID:       uuid.NewString(),
		EventType:     booking.EventBookingCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.ID,
	}
	ev.Payload = kafkax.MustMarshal(booking.BookingCreatedPayload{
		ReservationID: res.ID,
		ExternalID:    res.ExternalID,
		RoomID:        res.RoomID,
		CustomerID:    res.CustomerID,
		Date:          res.Date.Format("2006-01-02"),
		CheckIn:       res.CheckIn.String(),
		CheckOut:      res.CheckOut.String(),
		TotalCents:    res.TotalCents,
	})
	h.ProducerCreate.Publish(booking.PartitionKey(res.RoomID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(booking.EventBookingCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *BookingsHandler) getBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Arbiter.Store.ReservationByID(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(res, false))
}

// getBookingStatus: cache-first biar GET status murah; DB tetap kebenaran.
func (h *BookingsHandler) getBookingStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyBookingStatus, id)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s))
		return
	}

	// 2) fallback DB
	res, err := h.Arbiter.Store.ReservationByID(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	body := fmt.Sprintf(`{"status":%q}`, res.Status)
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (h *BookingsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := principalFrom(r)
	res, err := h.Arbiter.UpdateStatus(ctx, id, booking.Status(req.Status), p)
	if err != nil {
		writeErr(w, err)
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyBookingStatus, res.ID)
	_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, res.Status), redisx.TTLStatusCache).Err()
	h.invalidateAvail(ctx, res.RoomID, res.Date)

	ev := booking.Envelope{
		EventID:       uuid.NewString(),
		EventType:     booking.EventBookingStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.ID,
		Payload: kafkax.MustMarshal(booking.BookingStatusChangedPayload{
			ReservationID: res.ID,
			RoomID:        res.RoomID,
			CustomerID:    res.CustomerID,
			NewStatus:     string(res.Status),
			ActorID:       p.UserID,
			ActorRole:     p.Role,
		}),
	}
	h.ProducerStatus.Publish(booking.PartitionKey(res.RoomID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(booking.EventBookingStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusOK, toResp(res, false))
}

func (h *BookingsHandler) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := principalFrom(r)
	res, err := h.Arbiter.Store.ReservationByID(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Arbiter.DeleteReservation(ctx, id, p); err != nil {
		writeErr(w, err)
		return
	}

	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyBookingStatus, id)).Err()
	h.invalidateAvail(ctx, res.RoomID, res.Date)

	ev := booking.Envelope{
		EventID:       uuid.NewString(),
		EventType:     booking.EventBookingDeleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.ID,
		Payload: kafkax.MustMarshal(booking.BookingDeletedPayload{
			ReservationID: res.ID,
			RoomID:        res.RoomID,
			CustomerID:    res.CustomerID,
			LastStatus:    string(res.Status),
			ActorID:       p.UserID,
		}),
	}
	h.ProducerDelete.Publish(booking.PartitionKey(res.RoomID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(booking.EventBookingDeleted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingsHandler) availability(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyRoomAvail, roomID, dateStr)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s))
		return
	}

	// 2) fallback DB
	list, err := h.Arbiter.Availability(ctx, roomID, date)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]ReservationResp, 0, len(list))
	for i := range list {
		out = append(out, toResp(&list[i], false))
	}
	body, _ := json.Marshal(map[string]any{"room_id": roomID, "date": dateStr, "active": out})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLAvailCache).Err()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (h *BookingsHandler) invalidateAvail(ctx context.Context, roomID string, date time.Time) {
	key := fmt.Sprintf(redisx.KeyRoomAvail, roomID, date.Format("2006-01-02"))
	_ = h.Redis.Del(ctx, key).Err()
}

func (h *BookingsHandler) roomDeletionCheck(w http.ResponseWriter, r *http.Request) {
	h.deletionCheck(w, r, "room", h.Arbiter.CanDeleteRoom)
}

func (h *BookingsHandler) clientDeletionCheck(w http.ResponseWriter, r *http.Request) {
	h.deletionCheck(w, r, "client", h.Arbiter.CanDeleteClient)
}

// Guard dipanggil directory layer SEBELUM hapus room/client. Bukan endpoint
// delete — room/client CRUD bukan urusan core ini.
func (h *BookingsHandler) deletionCheck(w http.ResponseWriter, r *http.Request, entity string,
	check func(context.Context, string) (bool, int, error)) {

	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, n, err := check(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeErr(w, &booking.BlockedDeletionError{Entity: entity, EntityID: id, ActiveCount: n})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"can_delete": true, "active_count": 0})
}
