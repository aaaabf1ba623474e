package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/dealbroker/internal/auction"
	s3blob "github.com/alanyoungcy/dealbroker/internal/blob/s3"
	"github.com/alanyoungcy/dealbroker/internal/cache/redis"
	"github.com/alanyoungcy/dealbroker/internal/config"
	"github.com/alanyoungcy/dealbroker/internal/deal"
	"github.com/alanyoungcy/dealbroker/internal/domain"
	"github.com/alanyoungcy/dealbroker/internal/notify"
	"github.com/alanyoungcy/dealbroker/internal/pipeline"
	"github.com/alanyoungcy/dealbroker/internal/service"
	"github.com/alanyoungcy/dealbroker/internal/store/postgres"
	"github.com/alanyoungcy/dealbroker/internal/valuation"
)

// Dependencies bundles every concrete adapter the application modes need. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Repository *postgres.Repository
	AuditStore domain.AuditStore

	// Redis-backed coordination
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter
	SignalBus   *redis.SignalBus
	EffortStore domain.EffortStore
	CursorStore *redis.CursorStore

	// Blob storage
	Archiver domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Services
	Orchestrator *service.Orchestrator
}

// needsRedis reports whether mode coordinates live auctions. The one-shot
// modes only touch Postgres and S3.
func needsRedis(mode string) bool {
	return mode != "archive" && mode != "audit"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:              cfg.Database.DSN,
		Host:             cfg.Database.Host,
		Port:             cfg.Database.Port,
		Database:         cfg.Database.Database,
		User:             cfg.Database.User,
		Password:         cfg.Database.Password,
		SSLMode:          cfg.Database.SSLMode,
		MaxConns:         cfg.Database.PoolMaxConns,
		MinConns:         cfg.Database.PoolMinConns,
		StatementTimeout: cfg.Database.StatementTimeout.Duration,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime.Duration,
	})
	if err != nil {
		return fail("postgres", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			return fail("postgres migrations", err)
		}
	}

	pool := pgClient.Pool()
	deps.Repository = postgres.NewRepository(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			return fail("s3", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			return fail("s3", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			postgres.NewAuctionStore(pool),
			deps.AuditStore,
		)
	}

	if !needsRedis(cfg.Mode) {
		return deps, cleanup, nil
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		MaxRetries:  cfg.Redis.MaxRetries,
		TLSEnabled:  cfg.Redis.TLSEnabled,
		Namespace:   cfg.Redis.Namespace,
		DialTimeout: cfg.Redis.DialTimeout.Duration,
	})
	if err != nil {
		return fail("redis", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.ReadBlock.Duration)
	deps.EffortStore = redis.NewEffortStore(redisClient)
	deps.CursorStore = redis.NewCursorStore(redisClient)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPIBase,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Orchestrator = service.NewOrchestrator(
		deps.Repository,
		deps.EffortStore,
		deps.LockManager,
		deps.RateLimiter,
		deps.SignalBus,
		deps.AuditStore,
		deal.NewArchitect(dealPolicy(cfg)),
		orchestratorConfig(cfg),
		logger,
	)

	return deps, cleanup, nil
}

// dealPolicy overlays the [deal] section on the stock policy.
func dealPolicy(cfg *config.Config) deal.Policy {
	p := deal.DefaultPolicy()
	p.ConsultingAlways = cfg.Deal.ConsultingAlways
	p.InitialPriceRatio = cfg.Deal.InitialPriceRatio
	p.DefaultDemand = cfg.Deal.DefaultDemand
	for typ, m := range cfg.Deal.TypeMultipliers {
		p.TypeMultipliers[domain.AssetType(typ)] = m
	}
	p.Terms.EscrowRequired = cfg.Deal.EscrowRequired
	p.Terms.DefaultNonCompeteMonths = cfg.Deal.DefaultNonCompeteMonths
	p.Terms.DisputeResolution = cfg.Deal.DisputeResolution
	p.Terms.GoverningLaw = cfg.Deal.GoverningLaw
	return p
}

func orchestratorConfig(cfg *config.Config) service.OrchestratorConfig {
	oc := service.DefaultOrchestratorConfig()
	oc.Valuation = valuation.Config{
		HourlyRate: cfg.Valuation.HourlyRate,
		Multiplier: cfg.Valuation.Multiplier,
	}
	oc.ValuationMultiplier = cfg.Valuation.Multiplier
	oc.Auction = auction.Policy{
		RestartGrowth:      cfg.Auction.RestartGrowth,
		MaxMinimumPrice:    cfg.Auction.MaxMinimumPrice,
		CollusionThreshold: cfg.Auction.CollusionThreshold,
		CollusionMinBids:   cfg.Auction.CollusionMinBids,
		MinCompetingBids:   cfg.Auction.MinCompetingBids,
		TieredPricingRatio: cfg.Auction.TieredPricingRatio,
		LowRiskTolerance:   cfg.Auction.LowRiskTolerance,
		FeatureKeyword:     cfg.Auction.FeatureKeyword,
	}
	oc.ScheduleDelay = cfg.Auction.ScheduleDelay.Duration
	oc.AuctionDuration = cfg.Auction.Duration.Duration
	oc.EngineCacheSize = cfg.Auction.EngineCacheSize

	oc.PersistenceTimeout = cfg.Bidding.PersistenceTimeout.Duration
	oc.MaxRetries = cfg.Bidding.MaxRetries
	oc.RetryBaseDelay = cfg.Bidding.RetryBaseDelay.Duration
	oc.RetryMaxDelay = cfg.Bidding.RetryMaxDelay.Duration
	oc.LockTTL = cfg.Bidding.LockTTL.Duration
	oc.LockWait = cfg.Bidding.LockWait.Duration
	oc.BidRateLimit = cfg.Bidding.RateLimit
	oc.BidRateWindow = cfg.Bidding.RateWindow.Duration
	return oc
}

func schedulerConfig(cfg *config.Config) pipeline.SchedulerConfig {
	return pipeline.SchedulerConfig{
		Interval:    cfg.Scheduler.Interval.Duration,
		ReopenAfter: cfg.Scheduler.ReopenAfter.Duration,
		BatchSize:   cfg.Scheduler.BatchSize,
		Conditions: auction.ConditionPolicy{
			QuietWindow: cfg.Scheduler.QuietWindow.Duration,
			Grace:       cfg.Scheduler.Grace.Duration,
			MinBidders:  cfg.Scheduler.MinBidders,
		},
		AdviceTTL: cfg.Scheduler.AdviceTTL.Duration,
	}
}
