// Package server wires the stores, the reconciliation engine, the scheduler
// and the HTTP surface into one runnable application.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"hrsync/internal/domain/attendance"
	"hrsync/internal/domain/audit"
	"hrsync/internal/domain/employee"
	"hrsync/internal/domain/query"
	"hrsync/internal/domain/reconcile"
	"hrsync/internal/platform/config"
	"hrsync/internal/platform/db"
	"hrsync/internal/platform/deviceapi"
	"hrsync/internal/platform/devices"
	"hrsync/internal/platform/events"
	"hrsync/internal/platform/jobs"
	"hrsync/internal/platform/metrics"
	"hrsync/internal/platform/retry"
	attendancehandler "hrsync/internal/transport/http/handlers/attendance"
	audithandler "hrsync/internal/transport/http/handlers/audit"
	devicehandler "hrsync/internal/transport/http/handlers/device"
	employeehandler "hrsync/internal/transport/http/handlers/employee"
	eventshandler "hrsync/internal/transport/http/handlers/events"
	jobshandler "hrsync/internal/transport/http/handlers/jobs"
	"hrsync/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Engine  *reconcile.Engine
	Jobs    *jobs.Service
	Events  *events.Broker
	Metrics *metrics.Collector
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	registry, err := devices.Load(cfg.DevicesFile)
	if err != nil {
		pool.Close()
		return nil, err
	}
	deviceID := cfg.DeviceID
	if deviceID == "" {
		if d, ok := registry.Default(); ok {
			deviceID = d.ID
		}
	}
	if deviceID == "" {
		slog.Warn("no device id configured, vendor calls will omit it")
	}

	loc, err := cfg.DeviceLocation()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("device timezone: %w", err)
	}

	collector := metrics.New()
	broker := events.NewBroker()
	client := deviceapi.New(cfg.DeviceAPIURL, deviceID, cfg.DeviceAPITimeout)
	attendances := attendance.NewStore(pool)
	employees := employee.NewStore(pool)
	auditor := audit.New(pool)

	engine := reconcile.New(client, attendances, employees, broker, reconcile.Options{
		Retry: retry.Policy{
			MaxAttempts: cfg.SyncMaxAttempts,
			Delay:       cfg.SyncRetryDelay,
		},
		Location: loc,
		Recorder: collector,
	})
	scheduler := jobs.New(jobs.NewStore(pool), engine, cfg)
	facade := query.NewFacade(engine, employees)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Total-Count"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			snapshot := collector.Snapshot()
			snapshot["eventSubscribers"] = broker.Subscribers()
			snapshot["eventsDropped"] = broker.Dropped()
			snapshot["sync"] = engine.Status()
			writeMetrics(w, snapshot)
		})
	}

	eventshandler.NewHandler(broker, cfg.CORSOrigins).RegisterRoutes(router)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SyncTriggerRateLimit(cfg.RateLimitPerMinute, time.Minute))

		attendancehandler.NewHandler(facade, engine, scheduler, auditor, cfg.DefaultPageSize, cfg.MaxPageSize, loc).RegisterRoutes(r)
		employeehandler.NewHandler(engine, employees, scheduler, auditor).RegisterRoutes(r)
		devicehandler.NewHandler(registry, client).RegisterRoutes(r)
		jobshandler.NewHandler(scheduler).RegisterRoutes(r)
		audithandler.NewHandler(auditor).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Engine:  engine,
		Jobs:    scheduler,
		Events:  broker,
		Metrics: collector,
	}, nil
}

// Run serves HTTP and drives the sync schedules until ctx is cancelled,
// then drains both.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("hrsync server listening", "addr", a.Config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.Jobs.Start(ctx)
		a.Jobs.Wait()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		a.Events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
