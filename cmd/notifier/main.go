package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arkasetia/go-room-reserve.git/internal/booking"
	"github.com/arkasetia/go-room-reserve.git/internal/config"
	kafkax "github.com/arkasetia/go-room-reserve.git/internal/kafka"
	"github.com/arkasetia/go-room-reserve.git/internal/notifier"
	"github.com/arkasetia/go-room-reserve.git/internal/redisx"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notifier.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "booking-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	// satu consumer per topic, handler sama — event type dibedakan di envelope
	topics := []string{
		booking.TopicBookingCreated,
		booking.TopicBookingStatusChanged,
		booking.TopicBookingDeleted,
	}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func(topic string) {
			log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, svc.HandleBookingEvent); err != nil {
				log.Printf("consumer %s exit: %v", topic, err)
				cancel()
			}
		}(topic)
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
