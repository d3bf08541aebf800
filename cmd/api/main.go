package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/arkasetia/go-room-reserve.git/internal/booking"
	"github.com/arkasetia/go-room-reserve.git/internal/config"
	"github.com/arkasetia/go-room-reserve.git/internal/httpx"
	kafkax "github.com/arkasetia/go-room-reserve.git/internal/kafka"
	"github.com/arkasetia/go-room-reserve.git/internal/postgres"
	"github.com/arkasetia/go-room-reserve.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers (satu per topic, gaya hash-by-room-key)
	pCreate := kafkax.NewProducer(cfg.KafkaBrokers, booking.TopicBookingCreated, 1024)
	pCreate.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, booking.TopicBookingStatusChanged, 1024)
	pStatus.Start(ctx)
	pDelete := kafkax.NewProducer(cfg.KafkaBrokers, booking.TopicBookingDeleted, 1024)
	pDelete.Start(ctx)

	// Arbiter di atas repo pgx
	arb := booking.NewArbiter(&booking.Repo{DB: db})

	router := httpx.NewRouter()
	bh := &httpx.BookingsHandler{
		Arbiter:        arb,
		ProducerCreate: pCreate,
		ProducerStatus: pStatus,
		ProducerDelete: pDelete,
		Redis:          rdb,
		Validate:       validator.New(),
		Service:        cfg.ServiceName,
	}
	bh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range []*kafkax.Producer{pCreate, pStatus, pDelete} {
		p.Close() // tutup inbox -> flush & close writer
	}
	cancel()
	for _, p := range []*kafkax.Producer{pCreate, pStatus, pDelete} {
		p.WaitClosed() // drain
	}
}
