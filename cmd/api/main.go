package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeshop/codeshop/internal/billing"
	"github.com/codeshop/codeshop/internal/codes"
	"github.com/codeshop/codeshop/internal/config"
	"github.com/codeshop/codeshop/internal/httpx"
	kafkax "github.com/codeshop/codeshop/internal/kafka"
	"github.com/codeshop/codeshop/internal/postgres"
	"github.com/codeshop/codeshop/internal/redisx"
)

// newGateway picks the billing adapter from config. The fake gateway
// only charges emails that were given a balance, so it is called out
// loudly at startup rather than wired in silently.
func newGateway(name string) billing.Gateway {
	switch name {
	case "fake":
		log.Printf("PAYMENT_GATEWAY=fake: charges succeed only for emails seeded via Deposit; not for production use")
		return billing.NewFakeGateway()
	default:
		log.Fatalf("unknown PAYMENT_GATEWAY %q", name)
		return nil
	}
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCompleted := kafkax.NewProducer(cfg.KafkaBrokers, codes.TopicOrderCompleted, 1024)
	pCompleted.Start(ctx)
	pRejected := kafkax.NewProducer(cfg.KafkaBrokers, codes.TopicPurchaseRejected, 1024)
	pRejected.Start(ctx)

	store := codes.NewRepo(db)
	gateway := newGateway(cfg.PaymentGateway)
	svc := &codes.Service{
		Store:       store,
		Gateway:     gateway,
		Events:      kafkax.NewEnvelopePublisher(pCompleted, pRejected),
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Service: svc, Store: store, Redis: rdb}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	pCompleted.Close()
	pRejected.Close()
	cancel()
	pCompleted.WaitClosed()
	pRejected.WaitClosed()
}
