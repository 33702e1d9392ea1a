package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"civitas/internal/admin"
	citizenhandler "civitas/internal/citizen/handler"
	citizenservice "civitas/internal/citizen/service"
	"civitas/internal/platform/config"
	"civitas/internal/platform/httpserver"
	"civitas/internal/platform/i18n"
	"civitas/internal/platform/logger"
	"civitas/internal/platform/metrics"
	platformmw "civitas/internal/platform/middleware"
	platformotel "civitas/internal/platform/otel"
	"civitas/internal/privacy"
	protocolhandler "civitas/internal/protocol/handler"
	protocolmetrics "civitas/internal/protocol/metrics"
	protocolservice "civitas/internal/protocol/service"
	"civitas/internal/ratelimit"
	"civitas/internal/sequence"
	"civitas/pkg/platform/audit/publishers/compliance"
	securitypub "civitas/pkg/platform/audit/publishers/security"
	adminmw "civitas/pkg/platform/middleware/admin"
	"civitas/pkg/platform/middleware/auth"
	"civitas/pkg/platform/middleware/metadata"
	"civitas/pkg/platform/middleware/request"
	"civitas/pkg/platform/middleware/requesttime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run wires the process and blocks until ctx is cancelled or a component
// fails. Business logic lives in the internal service packages.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	i18n.SetDefault(cfg.Server.DefaultLocale)
	if err := privacy.SetIdentifierKey([]byte(cfg.IdentifierKey)); err != nil {
		return fmt.Errorf("identifier key: %w", err)
	}
	if cfg.IdentifierKey == "" {
		log.Warn("CIVITAS_IDENTIFIER_KEY not set; identifier hashes will not survive a restart")
	}

	shutdownTracing, err := platformotel.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := metrics.New(reg)
	protocolMetrics := protocolmetrics.New(reg)

	infra, err := openInfra(ctx, cfg, log, platformMetrics)
	if err != nil {
		return err
	}
	defer infra.Close()

	cat, registry, err := buildDispatch(cfg, log)
	if err != nil {
		return err
	}

	complianceAudit := compliance.New(infra.outbox,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	)
	securityAudit := securitypub.New(infra.securityStore, securitypub.WithLogger(log))
	defer func() {
		if err := securityAudit.Close(); err != nil {
			log.Warn("security audit flush failed", "error", err)
		}
	}()

	protocols := protocolservice.New(
		infra.repos,
		infra.uow,
		registry,
		cat,
		sequence.NewGenerator(infra.counter),
		protocolservice.WithLogger(log),
		protocolservice.WithMetrics(protocolMetrics),
		protocolservice.WithAuditPublisher(complianceAudit),
		protocolservice.WithSecurityAuditor(securityAudit),
		protocolservice.WithRetryAttempts(cfg.Sequence.RetryAttempts),
	)

	citizenOpts := []citizenservice.Option{
		citizenservice.WithLogger(log),
		citizenservice.WithAuditPublisher(complianceAudit),
		citizenservice.WithSecurityAuditor(securityAudit),
	}
	if dir := newDirectory(cfg.Directory, log, platformMetrics); dir != nil {
		citizenOpts = append(citizenOpts, citizenservice.WithDirectory(dir))
	}
	citizens := citizenservice.New(
		infra.links,
		infra.family,
		infra.repos.Protocols,
		infra.repos.Interactions,
		infra.uow,
		citizenOpts...,
	)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(platformmw.Locale)
	r.Use(platformmw.Latency(platformMetrics))
	if cfg.Server.TrustActorHeaders {
		r.Use(auth.Actor(log))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	limiter := ratelimit.New(infra.limits, rateLimits(cfg.RateLimit), log, ratelimit.WithObserver(platformMetrics))
	protocolhandler.New(protocols, log,
		protocolhandler.WithSubmitLimit(limiter.Limit(ratelimit.ClassSubmit)),
		protocolhandler.WithTipLookupLimit(limiter.Limit(ratelimit.ClassTipLookup)),
	).Register(r)
	citizenhandler.New(citizens, log).Register(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.Server.AdminToken, log))
		admin.New(registry, cat, securityAudit, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting civitas", "addr", cfg.Server.Addr, "postgres", cfg.UsesPostgres(), "sequence", cfg.Sequence.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if relay := infra.relay; relay != nil {
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("outbox relay: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
