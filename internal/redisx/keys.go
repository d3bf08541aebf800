package redisx

import "time"

const (
	// Idempotency create booking: idem:booking:create:{external_id} -> reservation_id
	KeyIdemBookingCreate = "idem:booking:create:%s"

	// Cache status reservation: booking_status:{reservation_id} -> {"status": "..."}
	KeyBookingStatus = "booking_status:%s"

	// Cache availability per slot-day: room_avail:{room_id}:{YYYY-MM-DD} -> JSON list.
	// Di-invalidate tiap ada write di (room, date) tsb.
	KeyRoomAvail = "room_avail:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLAvailCache  = 60 * time.Second
	TTLDedup       = 48 * time.Hour
)
