package booking

import (
	"fmt"
	"time"
)

// Clock = menit sejak 00:00. Wire format "HH:MM".
// Semua jam dianggap naive wall-clock (tidak ada timezone handling di core).
type Clock int

const minutesPerDay = 24 * 60

func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return Clock(h*60 + m), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) Valid() bool { return c >= 0 && c < minutesPerDay }

// Overlaps: dua interval half-open [s1,e1) vs [s2,e2) overlap iff s1<e2 && s2<e1.
// Satu kondisi simetris ini sudah meng-cover "starts during", "ends during",
// dan "fully contains" — jangan di-split jadi case terpisah.
// Interval yang cuma bersentuhan (e1 == s2) TIDAK overlap: checkout 12:00 dan
// check-in 12:00 di room/tanggal yang sama itu legal.
func Overlaps(s1, e1, s2, e2 Clock) bool {
	return s1 < e2 && s2 < e1
}

// OperatingHours milik owner (Client). Nil pointer = jam tidak dikonfigurasi,
// alias tanpa batasan.
type OperatingHours struct {
	Opening *Clock
	Closing *Clock
}

// NewOperatingHours menolak jam overnight (closing <= opening). Core ini
// same-day non-wrapping; owner yang mau buka lewat tengah malam harus
// dikonfigurasi sebagai dua hari terpisah di layer directory.
func NewOperatingHours(opening, closing Clock) (OperatingHours, error) {
	if !opening.Valid() || !closing.Valid() {
		return OperatingHours{}, fmt.Errorf("operating hours out of range: %s-%s", opening, closing)
	}
	if closing <= opening {
		return OperatingHours{}, fmt.Errorf("overnight operating hours not supported: %s-%s", opening, closing)
	}
	return OperatingHours{Opening: &opening, Closing: &closing}, nil
}

// Allows: [checkIn, checkOut) harus di dalam [opening, closing).
// checkIn == opening dan checkOut == closing dua-duanya boleh.
// Kalau salah satu sisi tidak di-set, check di-skip.
func (h OperatingHours) Allows(checkIn, checkOut Clock) bool {
	if h.Opening != nil && checkIn < *h.Opening {
		return false
	}
	if h.Closing != nil && checkOut > *h.Closing {
		return false
	}
	return true
}

// DateOnly memotong jam-menit-detik, kept in the location of t.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BeforeToday: perbandingan per calendar date, bukan per instant. date dari
// wire biasanya ke-parse sebagai UTC sementara now zona server; membandingkan
// midnight sebagai instant bikin booking hari ini ketolak di server barat UTC.
// Jadi bandingkan komponen tanggalnya saja, masing-masing di zonanya sendiri.
func BeforeToday(date time.Time, now time.Time) bool {
	if date.Year() != now.Year() {
		return date.Year() < now.Year()
	}
	return date.YearDay() < now.YearDay()
}
