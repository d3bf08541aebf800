package booking

import "time"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
	RoomInactive    RoomStatus = "inactive"
)

// Room immutable dari sisi core, kecuali status yang di-toggle directory layer.
// Core tidak pernah transisi room status, cuma baca.
type Room struct {
	ID          string
	ClientID    string
	OwnerUserID string // user di balik client, buat authorization check
	Capacity    int
	PriceCents  int
	Status      RoomStatus
	Hours       OperatingHours // jam buka owner, ikut ke-load bareng room
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Reservation struct {
	ID         string
	ExternalID string // idempotency key dari client
	RoomID     string
	CustomerID string
	Date       time.Time // calendar date, jam diabaikan
	CheckIn    Clock
	CheckOut   Clock
	Status     Status
	TotalCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Principal sudah ter-autentikasi di gateway; core tinggal percaya
// {userId, role} yang di-inject.
type Principal struct {
	UserID string
	Role   string
}

const (
	RoleCustomer = "customer"
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
)

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
func (p Principal) IsOwner() bool { return p.Role == RoleOwner }
