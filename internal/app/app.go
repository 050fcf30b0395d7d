package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-pricing/internal/domain/discount"
	"github.com/xenking/bookstore-pricing/internal/domain/pricing"
	"github.com/xenking/bookstore-pricing/internal/domain/promo"
	"github.com/xenking/bookstore-pricing/internal/handler"
	"github.com/xenking/bookstore-pricing/internal/shipping"
	"github.com/xenking/bookstore-pricing/internal/storage/postgres"
	"github.com/xenking/bookstore-pricing/pkg/health"
	"github.com/xenking/bookstore-pricing/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	bookRepo := postgres.NewBookRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	quoteRepo := postgres.NewQuoteRepository(pool)

	// Discount registry, hydrated once at startup.
	templates, err := discountRepo.ListTemplates(ctx)
	if err != nil {
		return errors.Wrap(err, "load discount templates")
	}
	registry, err := discount.NewRegistry(templates...)
	if err != nil {
		return errors.Wrap(err, "build discount registry")
	}
	lg.Info("Discount registry loaded", zap.Int("templates", registry.Len()))

	// Domain services.
	geocoder := shipping.NewNominatimClient(shipping.NominatimConfig{
		BaseURL:   cfg.Nominatim.BaseURL,
		UserAgent: cfg.Nominatim.UserAgent,
		Timeout:   cfg.Nominatim.Timeout,
	})
	engine := pricing.NewEngine(shipping.NewGeoProvider(geocoder), cfg.StoreLocation)
	pricingSvc := pricing.NewService(bookRepo, customerRepo, quoteRepo, engine)
	promoSvc := promo.NewService(customerRepo, discountRepo, promo.NewDistributor(registry))

	// HTTP handlers: health endpoints + API routes on one server.
	h := handler.NewHandler(bookRepo, customerRepo, pricingSvc, promoSvc)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("bookstore-pricing", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
