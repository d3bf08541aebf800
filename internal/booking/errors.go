package booking

import (
	"errors"
	"fmt"
)

// Taxonomy error dari arbiter. Hanya ErrSlotConflict yang pantas di-retry
// (itu contention, bukan request salah); sisanya caller harus ubah input dulu.
var (
	ErrMalformedRequest      = errors.New("malformed booking request")
	ErrPastDate              = errors.New("booking date is in the past")
	ErrRoomUnavailable       = errors.New("room not found or not available")
	ErrOutsideOperatingHours = errors.New("requested window outside operating hours")
	ErrSlotConflict          = errors.New("slot already taken by an active reservation")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrNotFound              = errors.New("reservation not found")
	ErrForbidden             = errors.New("principal not allowed to perform this action")
)

// ErrDuplicateExternalID: insert kena unique constraint external_id. Tidak
// pernah sampai ke caller — arbiter nangkep ini dan re-read record
// pemenangnya supaya request kembar yang kalah race tetap dapat balasan
// idempotent, bukan 500.
var ErrDuplicateExternalID = errors.New("external id already used")

// BlockedDeletionError: deletion guard nemu dependent aktif. Bawa count-nya
// supaya caller bisa memutuskan mau cascade-cancel dulu atau tidak.
type BlockedDeletionError struct {
	Entity      string // "room" | "client"
	EntityID    string
	ActiveCount int
}

func (e *BlockedDeletionError) Error() string {
	return fmt.Sprintf("%s %s has %d active reservation(s)", e.Entity, e.EntityID, e.ActiveCount)
}

func IsBlockedDeletion(err error) (*BlockedDeletionError, bool) {
	var be *BlockedDeletionError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
