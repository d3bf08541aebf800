package booking

import (
	"context"
	"errors"
	"time"
)

// Store: kontrak persistence yang arbiter butuhkan. Implementasi pgx ada di
// repo.go; test pakai in-memory store dengan kontrak yang sama.
//
// InsertIfFree HARUS atomic terhadap InsertIfFree lain untuk room yang sama:
// read active reservations + overlap check + insert tidak boleh di-interleave.
// Yang kalah race wajib dapat ErrSlotConflict, bukan silently sukses.
type Store interface {
	RoomByID(ctx context.Context, roomID string) (*Room, error)
	ReservationByID(ctx context.Context, id string) (*Reservation, error)
	ReservationByExternalID(ctx context.Context, externalID string) (*Reservation, error)

	// InsertIfFree commit res hanya kalau tidak ada reservation aktif yang
	// overlap di (room, date). Gagal => ErrSlotConflict. Kalah race di
	// unique constraint external_id => ErrDuplicateExternalID.
	InsertIfFree(ctx context.Context, res *Reservation) error

	// UpdateStatus lock per-record, cek transition table, lalu update.
	// Transisi ilegal => ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, to Status) (*Reservation, error)

	DeleteReservation(ctx context.Context, id string) error

	ActiveByRoomDate(ctx context.Context, roomID string, date time.Time) ([]Reservation, error)
	ActiveCountByRoom(ctx context.Context, roomID string) (int, error)
	ActiveCountByClient(ctx context.Context, clientID string) (int, error)
}

// Arbiter: satu-satunya gerbang pembuatan reservation. Validation order fail
// fast, first failure wins; insert atomik paling akhir.
type Arbiter struct {
	Store Store
	Now   func() time.Time // overridable di test
}

func NewArbiter(s Store) *Arbiter {
	return &Arbiter{Store: s, Now: time.Now}
}

type BookingRequest struct {
	ExternalID string
	RoomID     string
	CustomerID string
	Date       time.Time
	CheckIn    Clock
	CheckOut   Clock
	TotalCents int
}

// RequestBooking menjalankan pipeline §arbiter:
//  1. field validation (checkIn < checkOut, harga positif)
//  2. tanggal tidak boleh lampau
//  3. room ada & status available
//  4. operating hours owner
//  5. conditional insert atomik (kalah race => ErrSlotConflict)
//
// existed=true kalau external_id sudah pernah dipakai — balikin record lama,
// tidak insert ulang (idempotent create, gaya yang sama dengan order API).
func (a *Arbiter) RequestBooking(ctx context.Context, req BookingRequest) (res *Reservation, existed bool, err error) {
	if req.ExternalID == "" || req.RoomID == "" || req.CustomerID == "" || req.Date.IsZero() {
		return nil, false, ErrMalformedRequest
	}
	if !req.CheckIn.Valid() || !req.CheckOut.Valid() || req.CheckIn >= req.CheckOut {
		return nil, false, ErrMalformedRequest
	}
	if req.TotalCents <= 0 {
		return nil, false, ErrMalformedRequest
	}
	if BeforeToday(req.Date, a.Now()) {
		return nil, false, ErrPastDate
	}

	// idempotency probe dulu, sebelum nyentuh slot
	if prev, err := a.Store.ReservationByExternalID(ctx, req.ExternalID); err == nil {
		return prev, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	room, err := a.Store.RoomByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, ErrRoomUnavailable
		}
		return nil, false, err
	}
	if room.Status != RoomAvailable {
		return nil, false, ErrRoomUnavailable
	}
	if !room.Hours.Allows(req.CheckIn, req.CheckOut) {
		return nil, false, ErrOutsideOperatingHours
	}

	now := a.Now().UTC()
	r := &Reservation{
		ExternalID: req.ExternalID,
		RoomID:     req.RoomID,
		CustomerID: req.CustomerID,
		Date:       DateOnly(req.Date),
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Status:     StatusPending,
		TotalCents: req.TotalCents,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.Store.InsertIfFree(ctx, r); err != nil {
		// dua request dengan external_id sama bisa dua-duanya lolos probe di
		// atas; yang kalah mendarat di unique constraint. Itu tetap idempotent
		// replay, bukan conflict — ambil record milik pemenangnya.
		if errors.Is(err, ErrDuplicateExternalID) {
			if prev, perr := a.Store.ReservationByExternalID(ctx, req.ExternalID); perr == nil {
				return prev, true, nil
			}
		}
		return nil, false, err
	}
	return r, false, nil
}

// UpdateStatus: state machine entry point. Cuma admin atau owner dari room
// reservation-nya yang boleh — role owner saja tidak cukup, owner lain tidak
// punya hak atas booking di room orang. Target harus salah satu dari
// approved/declined/cancelled. Cek transisi sebenarnya terjadi di store,
// di dalam lock per-record.
func (a *Arbiter) UpdateStatus(ctx context.Context, reservationID string, to Status, p Principal) (*Reservation, error) {
	if !ValidStatus(to) || to == StatusPending {
		return nil, ErrInvalidTransition
	}
	res, err := a.Store.ReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !a.actsForRoom(ctx, res, p) {
		return nil, ErrForbidden
	}
	return a.Store.UpdateStatus(ctx, reservationID, to)
}

// DeleteReservation: owner room boleh hapus booking apapun (termasuk aktif)
// sebagai override; customer tidak punya hak hapus sama sekali. Policy ini
// sengaja terpisah dari deletion guard — dua aturan beda yang kebetulan
// nyentuh entity yang sama.
func (a *Arbiter) DeleteReservation(ctx context.Context, reservationID string, p Principal) error {
	res, err := a.Store.ReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if !a.actsForRoom(ctx, res, p) {
		return ErrForbidden
	}
	return a.Store.DeleteReservation(ctx, reservationID)
}

// actsForRoom: admin, atau principal ber-role owner yang memang pemilik room
// dari reservation tsb. Dipakai moderasi status dan delete.
func (a *Arbiter) actsForRoom(ctx context.Context, res *Reservation, p Principal) bool {
	if p.IsAdmin() {
		return true
	}
	if !p.IsOwner() {
		return false
	}
	room, err := a.Store.RoomByID(ctx, res.RoomID)
	if err != nil {
		return false
	}
	return room.OwnerUserID == p.UserID
}

// CanDeleteRoom / CanDeleteClient: deletion guard. ok=false + count kalau
// masih ada reservation aktif nyantol; caller wajib refuse deletion-nya.
func (a *Arbiter) CanDeleteRoom(ctx context.Context, roomID string) (bool, int, error) {
	n, err := a.Store.ActiveCountByRoom(ctx, roomID)
	if err != nil {
		return false, 0, err
	}
	return n == 0, n, nil
}

func (a *Arbiter) CanDeleteClient(ctx context.Context, clientID string) (bool, int, error) {
	n, err := a.Store.ActiveCountByClient(ctx, clientID)
	if err != nil {
		return false, 0, err
	}
	return n == 0, n, nil
}

// Availability: daftar reservation aktif utk (room, date) — read-only surface
// buat UI nyusun slot kosong.
func (a *Arbiter) Availability(ctx context.Context, roomID string, date time.Time) ([]Reservation, error) {
	return a.Store.ActiveByRoomDate(ctx, roomID, DateOnly(date))
}
