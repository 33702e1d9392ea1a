package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"civitas/internal/catalog"
	"civitas/internal/citizen/directory"
	citizenports "civitas/internal/citizen/ports"
	citizenmemory "civitas/internal/citizen/store/memory"
	citizenpg "civitas/internal/citizen/store/postgres"
	"civitas/internal/module"
	"civitas/internal/module/custom"
	"civitas/internal/module/publicworks"
	"civitas/internal/module/security"
	"civitas/internal/platform/config"
	"civitas/internal/platform/metrics"
	"civitas/internal/platform/postgres"
	platformredis "civitas/internal/platform/redis"
	protocolports "civitas/internal/protocol/ports"
	protocolmemory "civitas/internal/protocol/store/memory"
	protocolpg "civitas/internal/protocol/store/postgres"
	"civitas/internal/ratelimit"
	ratestore "civitas/internal/ratelimit/store"
	"civitas/internal/sequence"
	seqstore "civitas/internal/sequence/store"
	audit "civitas/pkg/platform/audit"
	auditmemory "civitas/pkg/platform/audit/store/memory"
	auditpg "civitas/pkg/platform/audit/store/postgres"
	"civitas/pkg/platform/audit/worker"
	txcontext "civitas/pkg/platform/tx"
)

const (
	outboxPartitions  = 3
	outboxReplication = 1
)

type outboxStore interface {
	audit.Store
	worker.Source
}

// infra holds the storage, counter and relay the services run on. With no
// database configured everything lives in memory behind one unit of work.
type infra struct {
	repos         protocolports.Repositories
	links         citizenports.LinkStore
	family        citizenports.FamilyStore
	uow           protocolports.UnitOfWork
	counter       sequence.Counter
	limits        ratelimit.Store
	outbox        outboxStore
	securityStore audit.Store
	relay         *worker.Relay

	closers []func() error
}

func (i *infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		_ = i.closers[n]()
	}
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics) (_ *infra, err error) {
	in := &infra{}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	var db *sql.DB
	if cfg.UsesPostgres() {
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		in.closers = append(in.closers, db.Close)
		if cfg.Database.Migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		outbox := auditpg.New(db)
		in.repos = protocolpg.Repositories(db)
		in.links = citizenpg.NewLinkStore(db)
		in.family = citizenpg.NewFamilyStore(db)
		in.uow = txcontext.NewPostgres(db, cfg.Database.TxTimeout)
		in.outbox = outbox
		in.securityStore = outbox
	} else {
		protocols := protocolmemory.NewDB()
		citizens := citizenmemory.NewDB()
		outbox := auditmemory.NewOutbox()
		in.repos = protocols.Repositories()
		in.links = citizens.Links()
		in.family = citizens.Family()
		in.uow = txcontext.NewMemory(cfg.Database.TxTimeout, protocols, citizens, outbox)
		in.outbox = outbox
		in.securityStore = auditmemory.NewOutbox()
		log.Warn("no database configured, protocols are kept in memory")
	}

	var rc *platformredis.Client
	if cfg.Sequence.Backend == config.SequenceRedis || cfg.RateLimit.Backend == config.RateLimitRedis {
		rc, err = platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		in.closers = append(in.closers, rc.Close)
	}

	switch cfg.Sequence.Backend {
	case config.SequencePostgres:
		in.counter = seqstore.NewPostgres(db, seqstore.WithPostgresMetrics(m))
	case config.SequenceRedis:
		in.counter = seqstore.NewRedis(rc.Client, seqstore.WithRedisMetrics(m))
	default:
		in.counter = seqstore.NewInMemory()
	}

	if cfg.RateLimit.Backend == config.RateLimitRedis {
		in.limits = ratestore.NewRedis(rc.Client)
	} else {
		in.limits = ratestore.NewMemory()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return nil, fmt.Errorf("kafka client: %w", err)
		}
		in.closers = append(in.closers, func() error {
			client.Close()
			return nil
		})
		if err := worker.EnsureTopic(ctx, client, cfg.Kafka.OutboxTopic, outboxPartitions, outboxReplication); err != nil {
			return nil, err
		}
		in.relay = worker.NewRelay(in.outbox, client, cfg.Kafka.OutboxTopic,
			worker.WithLogger(log),
			worker.WithObserver(m),
			worker.WithBatchSize(cfg.Kafka.BatchSize),
			worker.WithInterval(cfg.Kafka.PollInterval),
		)
	}
	return in, nil
}

// buildDispatch loads the service catalog and registers every module
// handler, including one generic handler per custom catalog module.
func buildDispatch(cfg config.Config, log *slog.Logger) (*catalog.Catalog, *module.Registry, error) {
	cat, err := catalog.New()
	if cfg.CatalogFile != "" {
		cat, err = catalog.Load(cfg.CatalogFile)
	} else {
		log.Warn("no service catalog configured, submissions will be rejected")
	}
	if err != nil {
		return nil, nil, err
	}

	registry := module.NewRegistry(module.WithLogger(log))
	if err := security.Register(registry); err != nil {
		return nil, nil, err
	}
	if err := registry.Register(publicworks.NewSignageHandler()); err != nil {
		return nil, nil, err
	}
	for _, def := range cat.CustomDefinitions() {
		h, err := custom.New(def)
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Register(h); err != nil {
			return nil, nil, err
		}
	}
	return cat, registry, nil
}

func rateLimits(cfg config.RateLimit) map[ratelimit.Class]ratelimit.Limit {
	return map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassSubmit:    {Requests: cfg.SubmitRequests, Window: cfg.SubmitWindow},
		ratelimit.ClassTipLookup: {Requests: cfg.TipLookups, Window: cfg.TipLookupWindow},
	}
}

// newDirectory returns nil when no directory is configured, so callers must
// not wrap the result in an interface before checking.
func newDirectory(cfg config.Directory, log *slog.Logger, m *metrics.Metrics) *directory.Client {
	if cfg.URL == "" {
		return nil
	}
	return directory.New(cfg.URL, cfg.Timeout,
		directory.WithCache(directory.NewCache(cfg.CacheTTL, 10_000)),
		directory.WithMetrics(m),
		directory.WithLogger(log),
	)
}
