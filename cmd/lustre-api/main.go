// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"

    "lustre/internal/config"
    httptransport "lustre/internal/http"
    "lustre/internal/infra"
    "lustre/internal/modules/assignment"
    "lustre/internal/modules/booking"
    "lustre/internal/modules/notify"
    "lustre/internal/modules/payment"
    "lustre/internal/modules/pricing"
)

func main() {
    _ = godotenv.Load()

    log := logrus.New()
    log.SetFormatter(&logrus.JSONFormatter{})

    cfg, err := config.Load()
    if err != nil {
        log.Fatal(err)
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if cfg.Firebase.ProjectID == "" {
        log.Fatal("LUSTRE_FIREBASE_PROJECT_ID is required")
    }
    verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
    if err != nil {
        log.Fatalf("firebase init: %v", err)
    }

    dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
    if err != nil {
        log.Fatal(err)
    }
    defer dbPool.Close()

    redisClient := infra.NewRedis(cfg.Redis.Addr)

    mq, err := infra.NewAMQP(cfg.AMQP.URL)
    if err != nil {
        log.Fatalf("amqp init: %v", err)
    }
    defer mq.Close()

    var processor payment.Processor
    if cfg.Processor.BaseURL != "" {
        processor = payment.NewClient(cfg.Processor.BaseURL, cfg.Processor.APIKey, cfg.Processor.Timeout)
    } else {
        log.Warn("LUSTRE_PROCESSOR_URL not set; using in-memory processor")
        processor = payment.NewMemProcessor()
    }
    gateway := payment.NewAdapter(processor, log)

    resolver := pricing.NewResolver(pricing.FlatRateTax{BasisPoints: 875}, cfg.Currency)
    cancelPolicy := pricing.CancellationPolicy{
        GraceWindow: cfg.Fees.GraceWindow,
        Tier1Window: cfg.Fees.Tier1Window,
        Tier1Fee:    cfg.Fees.Tier1Fee,
        Tier2Fee:    cfg.Fees.Tier2Fee,
    }

    store := booking.NewPGStore(dbPool)
    pool := assignment.NewRedisPool(redisClient)
    coordinator := assignment.NewService(store, pool, log)
    publisher := notify.NewPublisher(mq.Channel, cfg.AMQP.Exchange, log)

    bookingSvc := booking.NewService(booking.Deps{
        Store:        store,
        Gateway:      gateway,
        Pricing:      resolver,
        Coordinator:  coordinator,
        CancelPolicy: cancelPolicy,
        DeclineFee:   cfg.Fees.DeclineFee,
        Notifier:     publisher,
        Log:          log,
    })

    handler := httptransport.NewRouter(httptransport.RouterDeps{
        Booking:  bookingSvc,
        Verifier: verifier,
        Log:      log,
    })

    server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
    go func() {
        <-ctx.Done()
        _ = server.Shutdown(context.Background())
    }()

    log.WithField("addr", cfg.HTTP.Addr).Info("lustre api listening")
    if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatal(err)
    }
}
