package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/arkasetia/go-room-reserve.git/internal/booking"
	kafkax "github.com/arkasetia/go-room-reserve.git/internal/kafka"
	"github.com/arkasetia/go-room-reserve.git/internal/redisx"
)

// Service: jembatan ke subsystem notifikasi (yang hidup di luar repo ini).
// Consume event lifecycle booking, dedup per event_id, refresh cache status,
// lalu emit notification line. Tidak ikut campur soal conflict resolution.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleBookingEvent(ctx context.Context, m kafkago.Message) error {
	var env booking.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup via Redis (pakai event_id) — consumer boleh dapat pesan ulang
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case booking.EventBookingCreated:
		p, err := kafkax.UnwrapPayload[booking.BookingCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.ReservationID, string(booking.StatusPending))
		log.Printf("notify owner: new booking %s room=%s %s %s-%s",
			p.ReservationID, p.RoomID, p.Date, p.CheckIn, p.CheckOut)

	case booking.EventBookingStatusChanged:
		p, err := kafkax.UnwrapPayload[booking.BookingStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.ReservationID, p.NewStatus)
		log.Printf("notify customer %s: booking %s -> %s (by %s)",
			p.CustomerID, p.ReservationID, p.NewStatus, p.ActorRole)

	case booking.EventBookingDeleted:
		p, err := kafkax.UnwrapPayload[booking.BookingDeletedPayload](env.Payload)
		if err != nil {
			return err
		}
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyBookingStatus, p.ReservationID)).Err()
		log.Printf("notify customer %s: booking %s removed by owner", p.CustomerID, p.ReservationID)

	default:
		// ignore event asing, tetap commit offset
	}
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, reservationID, status string) {
	key := fmt.Sprintf(redisx.KeyBookingStatus, reservationID)
	_ = s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), redisx.TTLStatusCache).Err()
}
