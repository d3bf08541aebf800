package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo: implementasi Store di atas Postgres. Lihat scripts/schema.sql.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) RoomByID(ctx context.Context, roomID string) (*Room, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT r.id, r.client_id, c.user_id, r.capacity, r.price_cents, r.status,
		       c.opening_min, c.closing_min, r.created_at, r.updated_at
		FROM rooms r
		JOIN clients c ON c.id = r.client_id
		WHERE r.id = $1`, roomID)

	var rm Room
	var status string
	var opening, closing *int
	err := row.Scan(&rm.ID, &rm.ClientID, &rm.OwnerUserID, &rm.Capacity, &rm.PriceCents,
		&status, &opening, &closing, &rm.CreatedAt, &rm.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rm.Status = RoomStatus(status)
	if opening != nil {
		c := Clock(*opening)
		rm.Hours.Opening = &c
	}
	if closing != nil {
		c := Clock(*closing)
		rm.Hours.Closing = &c
	}
	return &rm, nil
}

const reservationCols = `id, external_id, room_id, customer_id, date,
	check_in_min, check_out_min, status, total_cents, created_at, updated_at`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	var status string
	var in, out int
	err := row.Scan(&res.ID, &res.ExternalID, &res.RoomID, &res.CustomerID, &res.Date,
		&in, &out, &status, &res.TotalCents, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.CheckIn, res.CheckOut, res.Status = Clock(in), Clock(out), Status(status)
	return &res, nil
}

func (r *Repo) ReservationByID(ctx context.Context, id string) (*Reservation, error) {
	return scanReservation(r.DB.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = $1`, id))
}

func (r *Repo) ReservationByExternalID(ctx context.Context, externalID string) (*Reservation, error) {
	return scanReservation(r.DB.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE external_id = $1`, externalID))
}

// InsertIfFree: critical section-nya core. Satu tx:
//  1. lock row room (FOR UPDATE) -> serialisasi per-room, insert lain utk room
//     yang sama nunggu di sini
//  2. hitung reservation aktif yang overlap di (room, date)
//  3. kalau nol, insert; kalau ada, ErrSlotConflict (rollback via defer)
//
// Interval half-open: overlap iff check_in < new_out AND new_in < check_out.
// Yang cuma bersentuhan lolos count ini, sesuai tie-break policy.
func (r *Repo) InsertIfFree(ctx context.Context, res *Reservation) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lockedID string
	if err := tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id=$1 FOR UPDATE`, res.RoomID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoomUnavailable
		}
		return err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = $1 AND date = $2
		  AND status IN ('pending','approved')
		  AND check_in_min < $4 AND $3 < check_out_min`,
		res.RoomID, res.Date, int(res.CheckIn), int(res.CheckOut)).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrSlotConflict
	}

	res.ID = uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO reservations(id, external_id, room_id, customer_id, date,
			check_in_min, check_out_min, status, total_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)`,
		res.ID, res.ExternalID, res.RoomID, res.CustomerID, res.Date,
		int(res.CheckIn), int(res.CheckOut), string(res.Status), res.TotalCents, res.CreatedAt)
	if err != nil {
		// request kembar yang dua-duanya lolos probe external_id: yang kalah
		// mendarat di sini (unique violation), arbiter yang replay.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateExternalID
		}
		return err
	}
	return tx.Commit(ctx)
}

// UpdateStatus: lock per-record cukup — transisi nyentuh kolom status saja,
// tidak ganggu interval, jadi tidak perlu rebutan lock room.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (*Reservation, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cur, err := scanReservation(tx.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, to) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE reservations SET status=$2, updated_at=$3 WHERE id=$1`,
		id, string(to), now); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	cur.Status, cur.UpdatedAt = to, now
	return cur, nil
}

func (r *Repo) DeleteReservation(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ActiveByRoomDate(ctx context.Context, roomID string, date time.Time) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+reservationCols+` FROM reservations
		WHERE room_id = $1 AND date = $2 AND status IN ('pending','approved')
		ORDER BY check_in_min`, roomID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *Repo) ActiveCountByRoom(ctx context.Context, roomID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE room_id = $1 AND status IN ('pending','approved')`, roomID).Scan(&n)
	return n, err
}

// ActiveCountByClient: transitif lewat rooms milik client tsb.
func (r *Repo) ActiveCountByClient(ctx context.Context, clientID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations res
		JOIN rooms rm ON rm.id = res.room_id
		WHERE rm.client_id = $1 AND res.status IN ('pending','approved')`, clientID).Scan(&n)
	return n, err
}
