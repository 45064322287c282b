package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"caregiving-cloud/internal/audit"
	"caregiving-cloud/internal/auth"
	billingapp "caregiving-cloud/internal/billing/application"
	billing "caregiving-cloud/internal/billing/domain"
	billingrepo "caregiving-cloud/internal/billing/infrastructure/postgres"
	billinginterfaces "caregiving-cloud/internal/billing/interfaces"
	"caregiving-cloud/internal/caregiving/events"
	coveragerepo "caregiving-cloud/internal/coverage/infrastructure/postgres"
	"caregiving-cloud/internal/eventing"
	"caregiving-cloud/internal/eventing/eventbus"
	eventingrepo "caregiving-cloud/internal/eventing/infrastructure/postgres"
	masterdatarepo "caregiving-cloud/internal/masterdata/infrastructure/postgres"
	"caregiving-cloud/internal/observability/metrics"
	"caregiving-cloud/internal/reconcile"
	"caregiving-cloud/internal/revision"
	settlementapp "caregiving-cloud/internal/settlement/application"
	settlement "caregiving-cloud/internal/settlement/domain"
	settlementrepo "caregiving-cloud/internal/settlement/infrastructure/postgres"
	settlementinterfaces "caregiving-cloud/internal/settlement/interfaces"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	coverageLookup := coveragerepo.NewCoverageLookup(db)
	masterdataLookup := masterdatarepo.NewLookup(db)
	billingRepo := billingrepo.NewBillingRepository(db)
	settlementRepo := settlementrepo.NewSettlementRepository(db)
	revisionRepo := revision.NewRepository(db)

	baseBus := eventbus.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(events.CaregivingChargeCalculated{})
	registry.Register(events.CaregivingChargeModified{})
	registry.Register(events.CaregivingRoundModified{})
	registry.Register(events.ReceptionModified{})
	registry.Register(billing.BillingGenerated{})
	registry.Register(billing.BillingModified{})
	registry.Register(billing.BillingTransactionRecorded{})
	registry.Register(settlement.SettlementGenerated{})
	registry.Register(settlement.SettlementModified{})
	registry.Register(settlement.SettlementTransactionRecorded{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, baseBus)

	access := auth.NewRoleAccessChecker()

	billingService, err := billingapp.NewBillingService(
		billingRepo, masterdataLookup, masterdataLookup, coverageLookup,
		publisher, access, billingapp.SystemClock{},
	)
	if err != nil {
		logger.Fatalf("billing service error: %v", err)
	}
	settlementService, err := settlementapp.NewSettlementService(
		settlementRepo, masterdataLookup, masterdataLookup, coverageLookup,
		publisher, access, billingapp.SystemClock{},
	)
	if err != nil {
		logger.Fatalf("settlement service error: %v", err)
	}
	revisionRecorder, err := revision.NewRecorder(revisionRepo)
	if err != nil {
		logger.Fatalf("revision recorder error: %v", err)
	}

	billinginterfaces.WireBillingEventBus(baseBus, billingService, processedStore)
	settlementinterfaces.WireSettlementEventBus(baseBus, settlementService, processedStore)
	revision.WireRevisionEventBus(baseBus, revisionRecorder, processedStore)

	go func() {
		ticker := time.NewTicker(cfg.DispatchInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := dispatcher.Dispatch(context.Background(), cfg.DispatchBatch); err != nil {
				logger.Printf("outbox dispatch error: %v", err)
			}
		}
	}()

	reconcileCfg, err := reconcile.LoadConfig()
	if err != nil {
		logger.Fatalf("reconcile config error: %v", err)
	}
	reconcileRunner, err := reconcile.NewRunner(
		settlementRepo, billingRepo, masterdataLookup, masterdataLookup, coverageLookup,
		reconcileCfg, logger,
	)
	if err != nil {
		logger.Fatalf("reconcile runner error: %v", err)
	}
	reconcileScheduler := reconcile.NewScheduler(reconcileRunner, reconcileCfg.Schedule.DailyAt, logger)
	go reconcileScheduler.Start(context.Background())

	billingHandler, err := billinginterfaces.NewHandler(billingService, auditRepo)
	if err != nil {
		logger.Fatalf("billing handler error: %v", err)
	}
	settlementHandler, err := settlementinterfaces.NewHandler(settlementService, auditRepo)
	if err != nil {
		logger.Fatalf("settlement handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/billings/", billingHandler)
	mux.Handle("/api/v1/settlements", settlementHandler)
	mux.Handle("/api/v1/settlements/", settlementHandler)
	mux.Handle("/api/v1/revisions", revision.NewHandler(revisionRepo))
	mux.Handle("/api/v1/reconcile/run", reconcile.NewHandler(reconcileRunner))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL      string
	HTTPAddr         string
	JWTSecret        string
	DispatchInterval time.Duration
	DispatchBatch    int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		DispatchInterval: getenvDuration("OUTBOX_DISPATCH_INTERVAL", time.Second),
		DispatchBatch:    getenvIntDefault("OUTBOX_DISPATCH_BATCH", 50),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
