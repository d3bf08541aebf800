package booking

import (
	"encoding/json"
	"time"
)

const (
	EventBookingCreated       = "BookingCreated"
	EventBookingStatusChanged = "BookingStatusChanged"
	EventBookingDeleted       = "BookingDeleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "booking-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya reservation_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type BookingCreatedPayload struct {
	ReservationID string `json:"reservation_id"`
	ExternalID    string `json:"external_id"`
	RoomID        string `json:"room_id"`
	CustomerID    string `json:"customer_id"`
	Date          string `json:"date"`      // YYYY-MM-DD
	CheckIn       string `json:"check_in"`  // HH:MM
	CheckOut      string `json:"check_out"` // HH:MM
	TotalCents    int    `json:"total_cents"`
}

type BookingStatusChangedPayload struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	CustomerID    string `json:"customer_id"`
	NewStatus     string `json:"new_status"`
	ActorID       string `json:"actor_id"`
	ActorRole     string `json:"actor_role"`
}

type BookingDeletedPayload struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	CustomerID    string `json:"customer_id"`
	LastStatus    string `json:"last_status"`
	ActorID       string `json:"actor_id"`
}
