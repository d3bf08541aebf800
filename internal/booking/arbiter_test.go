package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memStore: Store in-memory dengan satu mutex — kontrak isolasi yang sama
// dengan Repo (check-then-insert tidak pernah interleave), biar arbiter dan
// property konkurensi bisa diuji tanpa Postgres.
type memStore struct {
	mu    sync.Mutex
	seq   int
	rooms map[string]*Room
	res   map[string]*Reservation
}

func newMemStore() *memStore {
	return &memStore{rooms: map[string]*Room{}, res: map[string]*Reservation{}}
}

func (s *memStore) addRoom(r *Room) { s.rooms[r.ID] = r }

func (s *memStore) RoomByID(_ context.Context, roomID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ReservationByID(_ context.Context, id string) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ReservationByExternalID(_ context.Context, externalID string) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.res {
		if r.ExternalID == externalID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) InsertIfFree(_ context.Context, res *Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.res {
		if other.RoomID != res.RoomID || !other.Date.Equal(res.Date) || !other.Status.Active() {
			continue
		}
		if Overlaps(res.CheckIn, res.CheckOut, other.CheckIn, other.CheckOut) {
			return ErrSlotConflict
		}
	}
	// unique constraint external_id, cek terakhir seperti di Postgres:
	// baru kena waktu insert, setelah overlap check lolos
	for _, other := range s.res {
		if other.ExternalID == res.ExternalID {
			return ErrDuplicateExternalID
		}
	}
	s.seq++
	res.ID = fmt.Sprintf("res-%d", s.seq)
	cp := *res
	s.res[res.ID] = &cp
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, id string, to Status) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.res[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(r.Status, to) {
		return nil, ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	cp := *r
	return &cp, nil
}

func (s *memStore) DeleteReservation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.res[id]; !ok {
		return ErrNotFound
	}
	delete(s.res, id)
	return nil
}

func (s *memStore) ActiveByRoomDate(_ context.Context, roomID string, date time.Time) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.res {
		if r.RoomID == roomID && r.Date.Equal(date) && r.Status.Active() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) ActiveCountByRoom(_ context.Context, roomID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.res {
		if r.RoomID == roomID && r.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ActiveCountByClient(_ context.Context, clientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.res {
		room, ok := s.rooms[r.RoomID]
		if ok && room.ClientID == clientID && r.Status.Active() {
			n++
		}
	}
	return n, nil
}

// ---- fixtures ----

var (
	testToday = time.Date(2026, 1, 5, 9, 0, 0, 0, time.Local)
	testDate  = time.Date(2026, 1, 10, 0, 0, 0, 0, time.Local)
)

func newTestArbiter(t *testing.T) (*Arbiter, *memStore) {
	t.Helper()
	st := newMemStore()

	hours, err := NewOperatingHours(mustClock(t, "08:00"), mustClock(t, "22:00"))
	if err != nil {
		t.Fatalf("hours: %v", err)
	}
	st.addRoom(&Room{
		ID: "room-7", ClientID: "client-1", OwnerUserID: "owner-1",
		Capacity: 8, PriceCents: 1500, Status: RoomAvailable, Hours: hours,
	})
	st.addRoom(&Room{
		ID: "room-9", ClientID: "client-1", OwnerUserID: "owner-1",
		Capacity: 4, PriceCents: 900, Status: RoomMaintenance, Hours: hours,
	})
	st.addRoom(&Room{
		ID: "room-open", ClientID: "client-2", OwnerUserID: "owner-2",
		Capacity: 2, PriceCents: 500, Status: RoomAvailable, // tanpa jam operasional
	})

	arb := NewArbiter(st)
	arb.Now = func() time.Time { return testToday }
	return arb, st
}

func req(t *testing.T, ext, room, in, out string) BookingRequest {
	t.Helper()
	return BookingRequest{
		ExternalID: ext,
		RoomID:     room,
		CustomerID: "cust-1",
		Date:       testDate,
		CheckIn:    mustClock(t, in),
		CheckOut:   mustClock(t, out),
		TotalCents: 3000,
	}
}

// ---- request validation & taxonomy ----

func TestRequestBookingValidation(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*BookingRequest)
		want error
	}{
		{"missing external id", func(r *BookingRequest) { r.ExternalID = "" }, ErrMalformedRequest},
		{"missing room", func(r *BookingRequest) { r.RoomID = "" }, ErrMalformedRequest},
		{"missing customer", func(r *BookingRequest) { r.CustomerID = "" }, ErrMalformedRequest},
		{"zero date", func(r *BookingRequest) { r.Date = time.Time{} }, ErrMalformedRequest},
		{"check-in == check-out", func(r *BookingRequest) { r.CheckOut = r.CheckIn }, ErrMalformedRequest},
		{"check-in after check-out", func(r *BookingRequest) { r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn }, ErrMalformedRequest},
		{"zero price", func(r *BookingRequest) { r.TotalCents = 0 }, ErrMalformedRequest},
		{"negative price", func(r *BookingRequest) { r.TotalCents = -100 }, ErrMalformedRequest},
		{"past date", func(r *BookingRequest) { r.Date = testToday.AddDate(0, 0, -1) }, ErrPastDate},
		{"unknown room", func(r *BookingRequest) { r.RoomID = "nope" }, ErrRoomUnavailable},
		{"room in maintenance", func(r *BookingRequest) { r.RoomID = "room-9" }, ErrRoomUnavailable},
		{"before opening", func(r *BookingRequest) { r.CheckIn = mustClock(t, "06:00"); r.CheckOut = mustClock(t, "09:00") }, ErrOutsideOperatingHours},
		{"past closing", func(r *BookingRequest) { r.CheckIn = mustClock(t, "21:00"); r.CheckOut = mustClock(t, "22:01") }, ErrOutsideOperatingHours},
	}
	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := req(t, fmt.Sprintf("ext-val-%d", i), "room-7", "10:00", "12:00")
			c.mut(&r)
			if _, _, err := arb.RequestBooking(ctx, r); !errors.Is(err, c.want) {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestRequestBookingSameDayAllowed(t *testing.T) {
	arb, _ := newTestArbiter(t)
	r := req(t, "ext-today", "room-7", "10:00", "12:00")
	r.Date = testToday // hari ini boleh, yang dilarang cuma tanggal lampau
	res, _, err := arb.RequestBooking(context.Background(), r)
	if err != nil {
		t.Fatalf("same-day booking: %v", err)
	}
	if res.Status != StatusPending {
		t.Errorf("new reservation status = %s, want pending", res.Status)
	}
}

func TestRequestBookingSameDayWestOfUTC(t *testing.T) {
	arb, _ := newTestArbiter(t)
	// tanggal dari wire ke-parse sebagai UTC midnight; server di UTC-5.
	// Secara kalender itu hari yang sama — tidak boleh ketolak ErrPastDate.
	arb.Now = func() time.Time {
		return time.Date(2026, 1, 5, 9, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	}
	r := req(t, "ext-west", "room-7", "10:00", "12:00")
	wire, err := time.Parse("2006-01-02", "2026-01-05")
	if err != nil {
		t.Fatal(err)
	}
	r.Date = wire
	if _, _, err := arb.RequestBooking(context.Background(), r); err != nil {
		t.Fatalf("same-day booking on a UTC-5 server: %v", err)
	}
}

func TestRequestBookingNoHoursConfigured(t *testing.T) {
	arb, _ := newTestArbiter(t)
	// room-open tidak punya jam operasional -> window jam berapa pun lolos
	if _, _, err := arb.RequestBooking(context.Background(), req(t, "ext-open", "room-open", "03:00", "05:00")); err != nil {
		t.Fatalf("unrestricted hours: %v", err)
	}
}

// ---- skenario arbitrase (room 7, jam 08:00-22:00) ----

func TestArbitrationScenario(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()

	// A: 10:00-12:00, pending
	a, existed, err := arb.RequestBooking(ctx, req(t, "ext-a", "room-7", "10:00", "12:00"))
	if err != nil || existed {
		t.Fatalf("A: %v existed=%v", err, existed)
	}
	if a.Status != StatusPending {
		t.Fatalf("A status = %s", a.Status)
	}

	// B: 11:00-13:00 -> overlap (11:00<12:00 dan 10:00<13:00)
	if _, _, err := arb.RequestBooking(ctx, req(t, "ext-b", "room-7", "11:00", "13:00")); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("B: got %v, want ErrSlotConflict", err)
	}

	// C: 12:00-13:00 -> cuma bersentuhan, legal
	if _, _, err := arb.RequestBooking(ctx, req(t, "ext-c", "room-7", "12:00", "13:00")); err != nil {
		t.Errorf("C: %v", err)
	}

	// D: 06:00-07:00 -> di luar jam buka
	if _, _, err := arb.RequestBooking(ctx, req(t, "ext-d", "room-7", "06:00", "07:00")); !errors.Is(err, ErrOutsideOperatingHours) {
		t.Errorf("D: got %v, want ErrOutsideOperatingHours", err)
	}
}

func TestIdempotentRejection(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()

	if _, _, err := arb.RequestBooking(ctx, req(t, "ext-base", "room-7", "10:00", "12:00")); err != nil {
		t.Fatalf("base: %v", err)
	}

	// request konflik yang sama dua kali: dua-duanya SlotConflict, retry tanpa
	// ubah input tidak boleh tiba-tiba sukses
	for i := 0; i < 2; i++ {
		if _, _, err := arb.RequestBooking(ctx, req(t, "ext-retry", "room-7", "11:00", "13:00")); !errors.Is(err, ErrSlotConflict) {
			t.Errorf("attempt %d: got %v, want ErrSlotConflict", i+1, err)
		}
	}
}

func TestIdempotentCreate(t *testing.T) {
	arb, st := newTestArbiter(t)
	ctx := context.Background()

	first, existed, err := arb.RequestBooking(ctx, req(t, "ext-same", "room-7", "10:00", "12:00"))
	if err != nil || existed {
		t.Fatalf("first: %v existed=%v", err, existed)
	}
	second, existed, err := arb.RequestBooking(ctx, req(t, "ext-same", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !existed || second.ID != first.ID {
		t.Errorf("replay harus balikin record lama: existed=%v id=%s want %s", existed, second.ID, first.ID)
	}
	if n, _ := st.ActiveCountByRoom(ctx, "room-7"); n != 1 {
		t.Errorf("active count = %d, want 1", n)
	}
}

// probeMissStore membungkus memStore dan memaksa probe external_id gagal N
// kali — mensimulasikan dua request kembar yang dua-duanya lolos probe, lalu
// yang kalah mendarat di unique constraint waktu insert.
type probeMissStore struct {
	*memStore
	mu     sync.Mutex
	misses int
}

func (s *probeMissStore) ReservationByExternalID(ctx context.Context, externalID string) (*Reservation, error) {
	s.mu.Lock()
	if s.misses > 0 {
		s.misses--
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.mu.Unlock()
	return s.memStore.ReservationByExternalID(ctx, externalID)
}

func TestIdempotentCreateProbeRace(t *testing.T) {
	arb, st := newTestArbiter(t)
	ctx := context.Background()

	ps := &probeMissStore{memStore: st}
	racy := NewArbiter(ps)
	racy.Now = arb.Now

	first, _, err := racy.RequestBooking(ctx, req(t, "ext-twin", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	// request kedua tidak melihat yang pertama di probe; insert-nya kena
	// unique violation dan harus di-replay jadi record pemenang, bukan error
	ps.misses = 1
	second, existed, err := racy.RequestBooking(ctx, req(t, "ext-twin", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatalf("loser of the race: %v", err)
	}
	if !existed || second.ID != first.ID {
		t.Errorf("existed=%v id=%s, want replay of %s", existed, second.ID, first.ID)
	}
	if n, _ := st.ActiveCountByRoom(ctx, "room-7"); n != 1 {
		t.Errorf("active count = %d, want 1", n)
	}
}

func TestConcurrentSameExternalID(t *testing.T) {
	arb, st := newTestArbiter(t)
	ctx := context.Background()

	// n request identik (external_id sama) nembak bareng: semua dapat balasan
	// sukses dengan record yang sama, tepat satu yang benar-benar insert
	const n = 16
	var wg sync.WaitGroup
	ids := make([]string, n)
	existeds := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var res *Reservation
			res, existeds[i], errs[i] = arb.RequestBooking(ctx, req(t, "ext-dup", "room-7", "14:00", "16:00"))
			if res != nil {
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if !existeds[i] {
			winners++
		}
		if ids[i] != ids[0] {
			t.Errorf("request %d got id %s, want %s", i, ids[i], ids[0])
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if cnt, _ := st.ActiveCountByRoom(ctx, "room-7"); cnt != 1 {
		t.Errorf("active count = %d, want 1", cnt)
	}
}

// ---- state machine ----

func TestUpdateStatusFlow(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()
	owner := Principal{UserID: "owner-1", Role: RoleOwner}

	res, _, err := arb.RequestBooking(ctx, req(t, "ext-sm", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatal(err)
	}

	// customer tidak boleh nyentuh state machine
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusApproved, Principal{UserID: "cust-1", Role: RoleCustomer}); !errors.Is(err, ErrForbidden) {
		t.Errorf("customer approve: got %v, want ErrForbidden", err)
	}

	// target di luar {approved, declined, cancelled} ditolak di depan
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusPending, owner); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("-> pending: got %v", err)
	}
	if _, err := arb.UpdateStatus(ctx, res.ID, Status("confirmed"), owner); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("-> confirmed: got %v", err)
	}

	up, err := arb.UpdateStatus(ctx, res.ID, StatusApproved, owner)
	if err != nil || up.Status != StatusApproved {
		t.Fatalf("approve: %v status=%v", err, up)
	}

	// approved -> declined tidak ada di tabel
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusDeclined, owner); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approved->declined: got %v", err)
	}

	up, err = arb.UpdateStatus(ctx, res.ID, StatusCancelled, Principal{UserID: "adm", Role: RoleAdmin})
	if err != nil || up.Status != StatusCancelled {
		t.Fatalf("cancel: %v", err)
	}

	// cancelled terminal: apapun targetnya ditolak
	for _, to := range []Status{StatusApproved, StatusDeclined, StatusCancelled} {
		if _, err := arb.UpdateStatus(ctx, res.ID, to, owner); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("cancelled -> %s: got %v, want ErrInvalidTransition", to, err)
		}
	}
}

func TestUpdateStatusForeignOwner(t *testing.T) {
	arb, st := newTestArbiter(t)
	ctx := context.Background()

	res, _, err := arb.RequestBooking(ctx, req(t, "ext-foreign", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatal(err)
	}

	// role owner saja tidak cukup: owner-2 bukan pemilik room-7, tidak boleh
	// moderasi booking di room orang lain
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusApproved, Principal{UserID: "owner-2", Role: RoleOwner}); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign owner approve: got %v, want ErrForbidden", err)
	}
	cur, err := st.ReservationByID(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != StatusPending {
		t.Errorf("status after refused approve = %s, want pending", cur.Status)
	}

	// pemilik sebenarnya tetap boleh
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusApproved, Principal{UserID: "owner-1", Role: RoleOwner}); err != nil {
		t.Errorf("owner approve: %v", err)
	}
}

func TestUpdateStatusUnknownReservation(t *testing.T) {
	arb, _ := newTestArbiter(t)
	owner := Principal{UserID: "owner-1", Role: RoleOwner}
	if _, err := arb.UpdateStatus(context.Background(), "ghost", StatusApproved, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestApprovedStillBlocksSlot(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()
	owner := Principal{UserID: "owner-1", Role: RoleOwner}

	res, _, err := arb.RequestBooking(ctx, req(t, "ext-appr", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusApproved, owner); err != nil {
		t.Fatal(err)
	}

	// approve bukan re-lock, cuma label — interval tetap keblokir
	if _, _, err := arb.RequestBooking(ctx, req(t, "ext-appr2", "room-7", "11:00", "13:00")); !errors.Is(err, ErrSlotConflict) {
		t.Errorf("got %v, want ErrSlotConflict", err)
	}
}

func TestCancelledFreesSlot(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()
	owner := Principal{UserID: "owner-1", Role: RoleOwner}

	res, _, err := arb.RequestBooking(ctx, req(t, "ext-cn", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := arb.UpdateStatus(ctx, res.ID, StatusCancelled, owner); err != nil {
		t.Fatal(err)
	}

	// cancelled itu historis, tidak menempati slot lagi
	if _, _, err := arb.RequestBooking(ctx, req(t, "ext-cn2", "room-7", "10:00", "12:00")); err != nil {
		t.Errorf("rebooking after cancel: %v", err)
	}
}

// ---- delete rights & deletion guard ----

func TestDeleteReservationRights(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()

	res, _, err := arb.RequestBooking(ctx, req(t, "ext-del", "room-7", "10:00", "12:00"))
	if err != nil {
		t.Fatal(err)
	}

	// customer tidak punya hak hapus, termasuk booking miliknya sendiri
	if err := arb.DeleteReservation(ctx, res.ID, Principal{UserID: "cust-1", Role: RoleCustomer}); !errors.Is(err, ErrForbidden) {
		t.Errorf("customer delete: got %v, want ErrForbidden", err)
	}
	// owner lain juga tidak
	if err := arb.DeleteReservation(ctx, res.ID, Principal{UserID: "owner-2", Role: RoleOwner}); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign owner delete: got %v, want ErrForbidden", err)
	}
	// owner room boleh, walaupun reservation masih aktif (override)
	if err := arb.DeleteReservation(ctx, res.ID, Principal{UserID: "owner-1", Role: RoleOwner}); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if err := arb.DeleteReservation(ctx, res.ID, Principal{UserID: "owner-1", Role: RoleOwner}); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestDeletionGuard(t *testing.T) {
	arb, _ := newTestArbiter(t)
	ctx := context.Background()
	owner := Principal{UserID: "owner-1", Role: RoleOwner}

	a, _, err := arb.RequestBooking(ctx, req(t, "ext-g1", "room-7", "08:00", "09:00"))
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := arb.RequestBooking(ctx, req(t, "ext-g2", "room-7", "09:00", "10:00"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := arb.UpdateStatus(ctx, a.ID, StatusApproved, owner); err != nil {
		t.Fatal(err)
	}

	ok, n, err := arb.CanDeleteRoom(ctx, "room-7")
	if err != nil || ok || n != 2 {
		t.Errorf("CanDeleteRoom = %v,%d,%v; want false,2,nil", ok, n, err)
	}
	// guard client transitif lewat rooms-nya
	ok, n, err = arb.CanDeleteClient(ctx, "client-1")
	if err != nil || ok || n != 2 {
		t.Errorf("CanDeleteClient = %v,%d,%v; want false,2,nil", ok, n, err)
	}

	// declined/cancelled tidak dihitung
	if _, err := arb.UpdateStatus(ctx, a.ID, StatusCancelled, owner); err != nil {
		t.Fatal(err)
	}
	if _, err := arb.UpdateStatus(ctx, b.ID, StatusDeclined, owner); err != nil {
		t.Fatal(err)
	}
	if ok, n, _ := arb.CanDeleteRoom(ctx, "room-7"); !ok || n != 0 {
		t.Errorf("after cleanup CanDeleteRoom = %v,%d; want true,0", ok, n)
	}
	if ok, _, _ := arb.CanDeleteClient(ctx, "client-1"); !ok {
		t.Error("after cleanup client should be deletable")
	}
}

// ---- konkurensi ----

func TestConcurrentRequestsSingleWinner(t *testing.T) {
	arb, st := newTestArbiter(t)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	// n request overlap utk room/tanggal yang sama nembak bareng:
	// tepat satu menang, sisanya ErrSlotConflict
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = arb.RequestBooking(ctx, req(t, fmt.Sprintf("ext-race-%d", i), "room-7", "10:00", "12:00"))
		}(i)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("request %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 || conflicts != n-1 {
		t.Fatalf("winners=%d conflicts=%d, want 1 and %d", winners, conflicts, n-1)
	}

	assertNoOverlap(t, st, "room-7", testDate)
}

func TestConcurrentDisjointWindows(t *testing.T) {
	arb, st := newTestArbiter(t)
	ctx := context.Background()

	// window back-to-back 1 jam dari 08:00 s/d 22:00: semua harus masuk
	const n = 14
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := Clock((8 + i) * 60)
			r := BookingRequest{
				ExternalID: fmt.Sprintf("ext-slot-%d", i),
				RoomID:     "room-7",
				CustomerID: "cust-1",
				Date:       testDate,
				CheckIn:    in,
				CheckOut:   in + 60,
				TotalCents: 1500,
			}
			_, _, errs[i] = arb.RequestBooking(ctx, r)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("disjoint window %d: %v", i, err)
		}
	}
	assertNoOverlap(t, st, "room-7", testDate)
}

// assertNoOverlap: invariant pusat — tidak ada dua reservation aktif di
// (room, date) yang intervalnya beririsan.
func assertNoOverlap(t *testing.T, st Store, roomID string, date time.Time) {
	t.Helper()
	list, err := st.ActiveByRoomDate(context.Background(), roomID, DateOnly(date))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if Overlaps(list[i].CheckIn, list[i].CheckOut, list[j].CheckIn, list[j].CheckOut) {
				t.Fatalf("invariant broken: %s (%s-%s) vs %s (%s-%s)",
					list[i].ID, list[i].CheckIn, list[i].CheckOut,
					list[j].ID, list[j].CheckIn, list[j].CheckOut)
			}
		}
	}
}
