// Package config defines the top-level configuration for the deal broker and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DEALBROKER_* environment variables.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Valuation ValuationConfig `toml:"valuation"`
	Deal      DealConfig      `toml:"deal"`
	Auction   AuctionConfig   `toml:"auction"`
	Bidding   BiddingConfig   `toml:"bidding"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN              string   `toml:"dsn"`
	Host             string   `toml:"host"`
	Port             int      `toml:"port"`
	Database         string   `toml:"database"`
	User             string   `toml:"user"`
	Password         string   `toml:"password"`
	SSLMode          string   `toml:"ssl_mode"`
	PoolMaxConns     int      `toml:"pool_max_conns"`
	PoolMinConns     int      `toml:"pool_min_conns"`
	StatementTimeout duration `toml:"statement_timeout"`
	MaxConnLifetime  duration `toml:"max_conn_lifetime"`
	RunMigrations    bool     `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	Namespace   string   `toml:"namespace"`
	DialTimeout duration `toml:"dial_timeout"`
	// ReadBlock bounds each blocking stream read of the notification relay.
	ReadBlock duration `toml:"read_block"`
}

// S3Config holds S3-compatible object storage parameters. Object storage is
// optional; with Enabled false archival is unavailable.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ValuationConfig holds the effort-pricing inputs.
type ValuationConfig struct {
	HourlyRate float64 `toml:"hourly_rate"`
	Multiplier float64 `toml:"multiplier"`
}

// DealConfig tunes deal package construction.
type DealConfig struct {
	ConsultingAlways  bool    `toml:"consulting_always"`
	InitialPriceRatio float64 `toml:"initial_price_ratio"`
	DefaultDemand     float64 `toml:"default_demand"`
	// TypeMultipliers overrides the per-asset-type value multipliers.
	TypeMultipliers         map[string]float64 `toml:"type_multipliers"`
	EscrowRequired          bool               `toml:"escrow_required"`
	DefaultNonCompeteMonths int                `toml:"default_non_compete_months"`
	DisputeResolution       string             `toml:"dispute_resolution"`
	GoverningLaw            string             `toml:"governing_law"`
}

// AuctionConfig tunes pricing, collusion detection and auction timing.
type AuctionConfig struct {
	RestartGrowth      float64  `toml:"restart_growth"`
	MaxMinimumPrice    float64  `toml:"max_minimum_price"`
	CollusionThreshold float64  `toml:"collusion_threshold"`
	CollusionMinBids   int      `toml:"collusion_min_bids"`
	MinCompetingBids   int      `toml:"min_competing_bids"`
	TieredPricingRatio float64  `toml:"tiered_pricing_ratio"`
	LowRiskTolerance   int      `toml:"low_risk_tolerance"`
	FeatureKeyword     string   `toml:"feature_keyword"`
	ScheduleDelay      duration `toml:"schedule_delay"`
	Duration           duration `toml:"duration"`
	EngineCacheSize    int      `toml:"engine_cache_size"`
}

// BiddingConfig controls bid admission, locking and persistence retries.
type BiddingConfig struct {
	RateLimit          int      `toml:"rate_limit"`
	RateWindow         duration `toml:"rate_window"`
	LockTTL            duration `toml:"lock_ttl"`
	LockWait           duration `toml:"lock_wait"`
	PersistenceTimeout duration `toml:"persistence_timeout"`
	MaxRetries         int      `toml:"max_retries"`
	RetryBaseDelay     duration `toml:"retry_base_delay"`
	RetryMaxDelay      duration `toml:"retry_max_delay"`
}

// SchedulerConfig drives time-based auction transitions and restart advice.
type SchedulerConfig struct {
	Interval duration `toml:"interval"`
	// ReopenAfter of zero leaves reopening RESTARTING auctions to operators.
	ReopenAfter duration `toml:"reopen_after"`
	BatchSize   int      `toml:"batch_size"`
	AdviceTTL   duration `toml:"advice_ttl"`
	QuietWindow duration `toml:"quiet_window"`
	Grace       duration `toml:"grace"`
	MinBidders  int      `toml:"min_bidders"`
}

// PipelineConfig holds archival settings and the audit mode's report window.
type PipelineConfig struct {
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
	ArchiveCron          string   `toml:"archive_cron"`
	AuditWindow          duration `toml:"audit_window"`
	AuditLimit           int      `toml:"audit_limit"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramAPIBase   string   `toml:"telegram_api_base"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:             "localhost",
			Port:             5432,
			Database:         "dealbroker",
			User:             "postgres",
			SSLMode:          "disable",
			PoolMaxConns:     10,
			PoolMinConns:     2,
			StatementTimeout: duration{30 * time.Second},
			MaxConnLifetime:  duration{time.Hour},
			RunMigrations:    true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    20,
			MaxRetries:  3,
			Namespace:   "dealbroker",
			DialTimeout: duration{5 * time.Second},
			ReadBlock:   duration{2 * time.Second},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "dealbroker-archive",
			ForcePathStyle: true,
		},
		Valuation: ValuationConfig{
			HourlyRate: 100,
			Multiplier: 2.5,
		},
		Deal: DealConfig{
			ConsultingAlways:        true,
			InitialPriceRatio:       0.7,
			DefaultDemand:           1.0,
			EscrowRequired:          true,
			DefaultNonCompeteMonths: 12,
			DisputeResolution:       "ARBITRATION",
			GoverningLaw:            "State of Delaware, USA",
		},
		Auction: AuctionConfig{
			RestartGrowth:      0.15,
			CollusionThreshold: 0.10,
			CollusionMinBids:   3,
			MinCompetingBids:   2,
			TieredPricingRatio: 0.7,
			LowRiskTolerance:   5,
			FeatureKeyword:     "feature",
			ScheduleDelay:      duration{24 * time.Hour},
			Duration:           duration{7 * 24 * time.Hour},
			EngineCacheSize:    1024,
		},
		Bidding: BiddingConfig{
			RateLimit:          10,
			RateWindow:         duration{time.Minute},
			LockTTL:            duration{15 * time.Second},
			LockWait:           duration{3 * time.Second},
			PersistenceTimeout: duration{10 * time.Second},
			MaxRetries:         3,
			RetryBaseDelay:     duration{50 * time.Millisecond},
			RetryMaxDelay:      duration{time.Second},
		},
		Scheduler: SchedulerConfig{
			Interval:    duration{time.Minute},
			ReopenAfter: duration{time.Hour},
			BatchSize:   500,
			AdviceTTL:   duration{24 * time.Hour},
			QuietWindow: duration{24 * time.Hour},
			Grace:       duration{24 * time.Hour},
			MinBidders:  3,
		},
		Pipeline: PipelineConfig{
			ArchiveRetentionDays: 90,
			ArchiveCron:          "0 3 * * *",
			AuditWindow:          duration{24 * time.Hour},
			AuditLimit:           200,
		},
		Notify: NotifyConfig{
			TelegramAPIBase: "https://api.telegram.org",
			Events: []string{
				"auction_restarting",
				"restart_advised",
				"auction_accepted",
			},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scheduler": true,
	"archive":   true,
	"full":      true,
	"audit":     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scheduler, archive, full, audit)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}
	if c.Database.StatementTimeout.Duration < 0 {
		errs = append(errs, "database: statement_timeout must be >= 0")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.ReadBlock.Duration <= 0 {
		errs = append(errs, "redis: read_block must be > 0")
	}

	// S3 is required for archival.
	if mode == "archive" && !c.S3.Enabled {
		errs = append(errs, "s3: enabled must be true for mode archive")
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			errs = append(errs, "s3: access_key and secret_key must be set together")
		}
	}

	// Valuation
	if c.Valuation.HourlyRate <= 0 {
		errs = append(errs, "valuation: hourly_rate must be > 0")
	}
	if c.Valuation.Multiplier <= 0 {
		errs = append(errs, "valuation: multiplier must be > 0")
	}

	// Deal
	if c.Deal.InitialPriceRatio <= 0 || c.Deal.InitialPriceRatio > 1 {
		errs = append(errs, fmt.Sprintf("deal: initial_price_ratio must be in (0, 1], got %g", c.Deal.InitialPriceRatio))
	}
	if c.Deal.DefaultDemand <= 0 {
		errs = append(errs, "deal: default_demand must be > 0")
	}
	for typ, m := range c.Deal.TypeMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("deal: type_multipliers.%s must be > 0", typ))
		}
	}
	if c.Deal.DefaultNonCompeteMonths < 0 {
		errs = append(errs, "deal: default_non_compete_months must be >= 0")
	}

	// Auction
	if c.Auction.RestartGrowth < 0 {
		errs = append(errs, "auction: restart_growth must be >= 0")
	}
	if c.Auction.MaxMinimumPrice < 0 {
		errs = append(errs, "auction: max_minimum_price must be >= 0 (0 disables the cap)")
	}
	if c.Auction.CollusionThreshold <= 0 || c.Auction.CollusionThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("auction: collusion_threshold must be in (0, 1), got %g", c.Auction.CollusionThreshold))
	}
	if c.Auction.CollusionMinBids < 2 {
		errs = append(errs, "auction: collusion_min_bids must be >= 2")
	}
	if c.Auction.MinCompetingBids < 1 {
		errs = append(errs, "auction: min_competing_bids must be >= 1")
	}
	if c.Auction.TieredPricingRatio <= 0 || c.Auction.TieredPricingRatio > 1 {
		errs = append(errs, "auction: tiered_pricing_ratio must be in (0, 1]")
	}
	if c.Auction.LowRiskTolerance < 1 || c.Auction.LowRiskTolerance > 10 {
		errs = append(errs, "auction: low_risk_tolerance must be 1-10")
	}
	if c.Auction.ScheduleDelay.Duration < 0 {
		errs = append(errs, "auction: schedule_delay must be >= 0")
	}
	if c.Auction.Duration.Duration <= 0 {
		errs = append(errs, "auction: duration must be > 0")
	}
	if c.Auction.EngineCacheSize < 1 {
		errs = append(errs, "auction: engine_cache_size must be >= 1")
	}

	// Bidding
	if c.Bidding.RateLimit < 0 {
		errs = append(errs, "bidding: rate_limit must be >= 0 (0 disables)")
	}
	if c.Bidding.RateLimit > 0 && c.Bidding.RateWindow.Duration <= 0 {
		errs = append(errs, "bidding: rate_window must be > 0 when rate_limit is set")
	}
	if c.Bidding.LockTTL.Duration <= 0 {
		errs = append(errs, "bidding: lock_ttl must be > 0")
	}
	if c.Bidding.LockWait.Duration < 0 {
		errs = append(errs, "bidding: lock_wait must be >= 0")
	}
	if c.Bidding.PersistenceTimeout.Duration <= 0 {
		errs = append(errs, "bidding: persistence_timeout must be > 0")
	}
	if c.Bidding.MaxRetries < 0 {
		errs = append(errs, "bidding: max_retries must be >= 0")
	}
	if c.Bidding.RetryMaxDelay.Duration < c.Bidding.RetryBaseDelay.Duration {
		errs = append(errs, "bidding: retry_max_delay must not be below retry_base_delay")
	}

	// Scheduler
	if c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be > 0")
	}
	if c.Scheduler.ReopenAfter.Duration < 0 {
		errs = append(errs, "scheduler: reopen_after must be >= 0 (0 disables)")
	}
	if c.Scheduler.BatchSize < 1 {
		errs = append(errs, "scheduler: batch_size must be >= 1")
	}
	if c.Scheduler.AdviceTTL.Duration <= 0 {
		errs = append(errs, "scheduler: advice_ttl must be > 0")
	}
	if c.Scheduler.QuietWindow.Duration <= 0 {
		errs = append(errs, "scheduler: quiet_window must be > 0")
	}
	if c.Scheduler.Grace.Duration < 0 {
		errs = append(errs, "scheduler: grace must be >= 0")
	}
	if c.Scheduler.MinBidders < 1 {
		errs = append(errs, "scheduler: min_bidders must be >= 1")
	}

	// Pipeline
	if c.Pipeline.ArchiveRetentionDays < 1 {
		errs = append(errs, "pipeline: archive_retention_days must be >= 1")
	}
	if c.Pipeline.AuditWindow.Duration <= 0 {
		errs = append(errs, "pipeline: audit_window must be > 0")
	}
	if c.Pipeline.AuditLimit < 1 {
		errs = append(errs, "pipeline: audit_limit must be >= 1")
	}
	if mode == "full" && c.S3.Enabled && strings.TrimSpace(c.Pipeline.ArchiveCron) == "" {
		errs = append(errs, "pipeline: archive_cron must not be empty when s3 is enabled")
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
