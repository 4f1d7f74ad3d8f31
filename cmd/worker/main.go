package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeshop/codeshop/internal/codes"
	"github.com/codeshop/codeshop/internal/config"
	"github.com/codeshop/codeshop/internal/fulfillment"
	kafkax "github.com/codeshop/codeshop/internal/kafka"
	"github.com/codeshop/codeshop/internal/postgres"
	"github.com/codeshop/codeshop/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &fulfillment.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, codes.TopicOrderCompleted, cfg.WorkerThreads)
	go func() {
		log.Printf("worker consumer started: group=%s topic=%s workers=%d",
			cfg.WorkerGroup, codes.TopicOrderCompleted, cfg.WorkerThreads)
		if err := cons.Start(ctx, svc.HandleOrderCompleted); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sweeper := &fulfillment.Sweeper{
		Store:    codes.NewRepo(db),
		TTL:      cfg.ReservationTTL,
		Interval: cfg.SweepInterval,
	}
	go sweeper.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down worker...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
