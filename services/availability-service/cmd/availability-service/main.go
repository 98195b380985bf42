package main

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/clinicslots/libs/config"
	"github.com/md-rashed-zaman/clinicslots/libs/httpx"
	"github.com/md-rashed-zaman/clinicslots/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicslots/libs/otel"
	"github.com/md-rashed-zaman/clinicslots/libs/runtime"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/backend"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = nil
	}

	fallbackZone, err := config.Location("DEFAULT_TIMEZONE", "UTC")
	if err != nil {
		panic(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backendClient, err := backend.New(backend.Config{
		BaseURL:  config.String("API_BASE_URL", "http://localhost:8000"),
		Username: config.String("TECH_USER_USERNAME", ""),
		Password: config.String("TECH_USER_PASSWORD", ""),
		Timeout:  config.Seconds("BACKEND_TIMEOUT_SECONDS", 10*time.Second),
	})
	if err != nil {
		panic(err)
	}

	dir, dirCheck, closeDir, err := openDirectory(ctx, logger, backendClient)
	if err != nil {
		logger.Error("clinic directory init failed", "err", err)
		panic(err)
	}
	defer closeDir()

	rdb := openRedis(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	cat := catalog.New(dir, newCache(logger, rdb, m), logger, m)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := events.NewPublisher(logger, events.PublisherConfig{
		Brokers: brokers,
		Buffer:  config.PositiveInt("EVENT_BUFFER", 256),
	})
	// Stopped after the HTTP server so requests still draining can publish.
	stopPublisher := runtime.Go(publisher.Run)

	var stopConsumer func(context.Context) error
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		invalidations := consumer.New(logger, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topics: config.List("KAFKA_CONSUME_TOPICS", consumer.TopicAppointmentScheduled+","+
				consumer.TopicAppointmentCanceled+","+consumer.TopicClinicUpdated),
		}, consumer.InvalidationHandler(cat, logger))
		stopConsumer = runtime.Go(invalidations.Run)
	} else {
		logger.Warn("cache invalidation consumer disabled (no kafka brokers configured)")
	}

	availabilityHandler := handlers.NewAvailabilityHandler(cat, logger, m, fallbackZone)
	appointmentHandler := handlers.NewAppointmentHandler(cat, backendClient, publisher, logger, m, fallbackZone, nil)
	patientHandler := handlers.NewPatientHandler(backendClient, logger, fallbackZone, nil)

	checks := []runtime.ReadyCheck{{Name: "directory", Check: dirCheck}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if publisher.Enabled() {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Optional: true, Check: kafkax.ReadyCheck(kafkax.SplitBrokers(brokers))})
	}

	mux := runtime.NewBaseMux(checks...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handlers.Register(mux, availabilityHandler, appointmentHandler, patientHandler, newOperatorAuth(logger))

	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,Idempotency-Key"),
			MaxAge:         config.Seconds("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.PositiveInt("HTTP_BODY_LIMIT_BYTES", 64<<10))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
		newRateLimit(logger, rdb),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopGRPC, err := startHealthServer(logger, grpcPort)
	if err != nil {
		logger.Error("grpc health server failed", "err", err)
		panic(err)
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	_ = runtime.Shutdown(logger, 10*time.Second,
		runtime.ShutdownStep{Name: "grpc server", Stop: stopGRPC},
		runtime.ShutdownStep{Name: "http server", Stop: srv.Shutdown},
		runtime.ShutdownStep{Name: "invalidation consumer", Stop: stopConsumer},
		runtime.ShutdownStep{Name: "event publisher", Stop: stopPublisher},
		runtime.ShutdownStep{Name: "tracing", Stop: otelShutdown},
	)
}
