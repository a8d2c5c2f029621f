package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	restate "github.com/restatedev/sdk-go"
	"github.com/restatedev/sdk-go/server"
	"go.uber.org/fx"

	internalapi "github.com/shortformfactory/checkout-service/internal/api"
	"github.com/shortformfactory/checkout-service/internal/checkout"
	appconfig "github.com/shortformfactory/checkout-service/internal/config"
	"github.com/shortformfactory/checkout-service/internal/events"
	"github.com/shortformfactory/checkout-service/internal/fulfillment"
	"github.com/shortformfactory/checkout-service/internal/idempotency"
	"github.com/shortformfactory/checkout-service/internal/paypal"
	"github.com/shortformfactory/checkout-service/internal/secrets"
	postgres "github.com/shortformfactory/checkout-service/internal/storage/postgres"
	"github.com/shortformfactory/checkout-service/internal/telemetry"
	"github.com/shortformfactory/checkout-service/internal/webhook"
)

func newLogger(cfg appconfig.Config) *log.Logger {
	prefix := ""
	if cfg.ServiceName != "" {
		prefix = fmt.Sprintf("[%s] ", cfg.ServiceName)
	}
	logger := log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds)
	log.SetOutput(os.Stdout)
	log.SetFlags(logger.Flags())
	log.SetPrefix(prefix)
	return logger
}

func setupTelemetry(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger) {
	var cleanup func()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			cleanup = telemetry.InitTracer(cfg.ServiceName)
			return nil
		},
		OnStop: func(context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})
}

// newSQLDB connects to the ledger database. The app keeps running without it;
// the webhook ledger then degrades to in-memory deduplication.
func newSQLDB(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger) (*sql.DB, error) {
	logger.Printf("Connecting to PostgreSQL database %s@%s:%d", cfg.Database.Database, cfg.Database.Host, cfg.Database.Port)
	db, err := postgres.OpenDatabase(cfg.Database)
	if err != nil {
		logger.Printf("WARNING: failed to connect to database: %v", err)
		return nil, nil
	}
	logger.Printf("Database connection established successfully")
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

// newLedgerStore picks the webhook event ledger: the durable postgres table
// when a database is available, an in-memory map otherwise.
func newLedgerStore(db *sql.DB, logger *log.Logger) idempotency.Store {
	if db == nil {
		logger.Printf("WARNING: no database, webhook deduplication is in-memory only")
		return idempotency.NewMemoryStore()
	}
	ledger := postgres.NewLedger(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ledger.EnsureSchema(ctx); err != nil {
		logger.Printf("WARNING: could not ensure webhook_events schema, falling back to memory: %v", err)
		return idempotency.NewMemoryStore()
	}
	return ledger
}

func newPayPalClient(cfg appconfig.Config, logger *log.Logger) *paypal.Client {
	if cfg.PayPal.ClientID == "" || cfg.PayPal.ClientSecret == "" {
		logger.Printf("WARNING: PayPal credentials not configured, order operations will fail")
	} else {
		logger.Printf("PayPal client configured (mode=%s, client=%s)", cfg.PayPal.Mode, paypal.MaskCredential(cfg.PayPal.ClientID))
	}
	return paypal.NewClient(paypal.Config{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		Mode:         cfg.PayPal.Mode,
	})
}

func newCheckoutService(client *paypal.Client, cfg appconfig.Config) *checkout.Service {
	return checkout.NewService(client, cfg.SiteOrigin)
}

func newVerifier(client *paypal.Client, cfg appconfig.Config) *webhook.Verifier {
	return webhook.NewVerifier(client, cfg.PayPal.WebhookID)
}

func newNotifier(cfg appconfig.Config) *fulfillment.Notifier {
	return fulfillment.NewNotifier(cfg.Restate.RuntimeURL)
}

// newKafkaProducer constructs a shared Kafka producer and binds its lifecycle to Fx.
func newKafkaProducer(cfg appconfig.Config, lc fx.Lifecycle) *events.Producer {
	prod := events.NewProducer(cfg.Kafka.Brokers)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return prod.Close()
		},
	})
	return prod
}

func buildRestateServer() *server.Restate {
	srv := server.NewRestate()

	// FulfillmentService is a Virtual Object keyed by order ID.
	fulfillmentObject := restate.NewObject("checkout.sv1.FulfillmentService").
		Handler("RecordSettlement", restate.NewObjectHandler(fulfillment.RecordSettlement)).
		Handler("RecordOutcome", restate.NewObjectHandler(fulfillment.RecordOutcome)).
		Handler("GetStatus", restate.NewObjectSharedHandler(fulfillment.GetStatus))
	srv = srv.Bind(fulfillmentObject)

	return srv
}

func newWebServer(cfg appconfig.Config, svc *checkout.Service, verifier *webhook.Verifier, store idempotency.Store, prod *events.Producer, notifier *fulfillment.Notifier) *http.Server {
	mux := http.NewServeMux()

	// Static storefront under / (order.html, thank-you.html). Prefer WEB_DIR
	// (docker sets WEB_DIR=/app/web), fall back to source-relative for go run.
	webDir := os.Getenv("WEB_DIR")
	if webDir == "" {
		webDir = "/app/web"
	}
	if st, err := os.Stat(webDir); err != nil || !st.IsDir() {
		if _, src, _, ok := runtime.Caller(0); ok {
			base := filepath.Dir(src) // cmd/server
			guess := filepath.Join(base, "..", "..", "web")
			if abs, err := filepath.Abs(guess); err == nil {
				webDir = abs
			} else {
				webDir = guess
			}
		}
	}
	mux.Handle("/", http.FileServer(http.Dir(webDir)))

	internalapi.RegisterCheckoutRoutes(mux, svc, notifier)
	internalapi.RegisterConfigRoutes(mux, cfg.PayPal.ClientID, cfg.PayPal.Mode)
	internalapi.RegisterWebhookRoutes(mux, internalapi.WebhookDeps{
		Verifier: verifier,
		Store:    store,
		Producer: prod,
		Topic:    cfg.Kafka.SettlementsTopic,
		Notifier: notifier,
	})

	return &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: mux,
	}
}

func registerWebServer(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger, shutdowner fx.Shutdowner, svc *checkout.Service, verifier *webhook.Verifier, store idempotency.Store, prod *events.Producer, notifier *fulfillment.Notifier) {
	httpServer := newWebServer(cfg, svc, verifier, store, prod, notifier)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Printf("Checkout API available on %s", cfg.HTTP.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Printf("Checkout API server error: %v", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	})
}

func registerRestateServer(lc fx.Lifecycle, cfg appconfig.Config, logger *log.Logger, shutdowner fx.Shutdowner, srv *server.Restate) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Println("Restate server listening on", cfg.Restate.ListenAddr)
			logger.Println("")
			logger.Println("Service Architecture:")
			logger.Println("  - FulfillmentService: VIRTUAL OBJECT (keyed by order ID)")
			logger.Println("")
			logger.Println("Register with Restate:")
			displayRestateAddr := cfg.Restate.ListenAddr
			if strings.HasPrefix(displayRestateAddr, ":") {
				displayRestateAddr = "localhost" + displayRestateAddr
			}
			logger.Printf("  restate deployments register http://%s", displayRestateAddr)
			logger.Println("")

			go func() {
				defer close(done)
				if err := srv.Start(ctx, cfg.Restate.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
					logger.Printf("Server error: %v", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}

func main() {
	_ = godotenv.Load()

	if err := secrets.BootstrapFromOpenBao(context.Background()); err != nil {
		log.Printf("WARNING: OpenBao bootstrap failed: %v", err)
	}

	app := fx.New(
		fx.Provide(
			appconfig.Load,
			newLogger,
			buildRestateServer,
			newKafkaProducer,
			newSQLDB,
			newLedgerStore,
			newPayPalClient,
			newCheckoutService,
			newVerifier,
			newNotifier,
		),
		fx.Invoke(
			func(logger *log.Logger, cfg appconfig.Config) {
				logger.Printf("Starting %s...", cfg.ServiceName)
			},
			func(prod *events.Producer, cfg appconfig.Config) {
				fulfillment.SetProducer(prod, cfg.Kafka.SettlementsTopic)
			},
			setupTelemetry,
			registerWebServer,
			registerRestateServer,
		),
	)

	app.Run()
}
