// Package config loads LeadPipe's configuration once at process startup
// from a YAML file plus environment overrides, and builds the process-wide
// zap logger. Nothing in this package is re-read per request; the Quota
// Gate's PlanCatalog in particular is built once from Config.Plans and
// passed down explicitly rather than re-reading the environment on every
// check.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Plans     PlansConfig     `yaml:"plans" mapstructure:"plans"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Messenger MessengerConfig `yaml:"messenger" mapstructure:"messenger"`
	Waterfall WaterfallConfig `yaml:"waterfall" mapstructure:"waterfall"`
	Temporal  TemporalConfig  `yaml:"temporal" mapstructure:"temporal"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Monitor   MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" | "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AuthConfig configures JWT signing and API-key behavior.
type AuthConfig struct {
	SecretKey              string        `yaml:"secret_key" mapstructure:"secret_key"`
	Algorithm              string        `yaml:"algorithm" mapstructure:"algorithm"` // "HS256"
	AccessTokenExpire      time.Duration `yaml:"access_token_expire" mapstructure:"access_token_expire"`
	RefreshTokenExpire     time.Duration `yaml:"refresh_token_expire" mapstructure:"refresh_token_expire"`
	APIKeyPrefix           string        `yaml:"api_key_prefix" mapstructure:"api_key_prefix"` // "lb_"
	PBKDF2FallbackAllowed  bool          `yaml:"pbkdf2_fallback_allowed" mapstructure:"pbkdf2_fallback_allowed"`
}

// AnthropicConfig configures the LLM client used by enrichment and the
// messenger's LLM path.
type AnthropicConfig struct {
	Key                string  `yaml:"key" mapstructure:"key"`
	Model              string  `yaml:"model" mapstructure:"model"`
	EnrichTemperature  float64 `yaml:"enrich_temperature" mapstructure:"enrich_temperature"`
	MessageTemperature float64 `yaml:"message_temperature" mapstructure:"message_temperature"`
	SenderOrg          string  `yaml:"sender_org" mapstructure:"sender_org"`

	RetryMaxAttempts        int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	RetryInitialBackoffMS   int     `yaml:"retry_initial_backoff_ms" mapstructure:"retry_initial_backoff_ms"`
	RetryMaxBackoffMS       int     `yaml:"retry_max_backoff_ms" mapstructure:"retry_max_backoff_ms"`
	RetryMultiplier         float64 `yaml:"retry_multiplier" mapstructure:"retry_multiplier"`
	RetryJitterFraction     float64 `yaml:"retry_jitter_fraction" mapstructure:"retry_jitter_fraction"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetTimeoutSecs int     `yaml:"circuit_reset_timeout_secs" mapstructure:"circuit_reset_timeout_secs"`
}

// ScrapeConfig configures the tiered scraper.
type ScrapeConfig struct {
	HTTPTimeoutSecs       int    `yaml:"http_timeout_secs" mapstructure:"http_timeout_secs"`
	HeadlessWaitMillis    int    `yaml:"headless_wait_millis" mapstructure:"headless_wait_millis"`
	UserAgent             string `yaml:"user_agent" mapstructure:"user_agent"`
	JSONLDConfidenceGate   float64 `yaml:"jsonld_confidence_gate" mapstructure:"jsonld_confidence_gate"`
	MetaConfidenceGate     float64 `yaml:"meta_confidence_gate" mapstructure:"meta_confidence_gate"`
	HeadlessEnabled        bool    `yaml:"headless_enabled" mapstructure:"headless_enabled"`

	// RequestsPerSecond and Burst bound the fetch tiers' outbound request
	// rate per target host, smoothing bursts rather than rejecting them
	// (a fetch blocks on the limiter instead of failing).
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// PlansConfig seeds the PlanCatalog. Keyed by plan name.
type PlansConfig struct {
	Free       PlanLimits `yaml:"free" mapstructure:"free"`
	Pro        PlanLimits `yaml:"pro" mapstructure:"pro"`
	Enterprise PlanLimits `yaml:"enterprise" mapstructure:"enterprise"`
	Default    string     `yaml:"default" mapstructure:"default"`
}

// PlanLimits are the per-plan daily lead cap and feature flags.
type PlanLimits struct {
	MaxLeadsPerDay int  `yaml:"max_leads_per_day" mapstructure:"max_leads_per_day"`
	CanExport      bool `yaml:"can_export" mapstructure:"can_export"`
	CanUseAI       bool `yaml:"can_use_ai" mapstructure:"can_use_ai"`
}

// ScoringConfig holds the default scoring criteria weights/thresholds,
// overridable per organization at runtime.
type ScoringConfig struct {
	IndustryMatchWeight     float64 `yaml:"industry_match_weight" mapstructure:"industry_match_weight"`
	CompanySizeWeight       float64 `yaml:"company_size_weight" mapstructure:"company_size_weight"`
	EmailQualityWeight      float64 `yaml:"email_quality_weight" mapstructure:"email_quality_weight"`
	ScrapeQualityWeight     float64 `yaml:"scrape_quality_weight" mapstructure:"scrape_quality_weight"`
	EnrichmentQualityWeight float64 `yaml:"enrichment_quality_weight" mapstructure:"enrichment_quality_weight"`
	LinkedInPresenceWeight  float64 `yaml:"linkedin_presence_weight" mapstructure:"linkedin_presence_weight"`
}

// MessengerConfig configures outreach message generation.
type MessengerConfig struct {
	SenderOrg string `yaml:"sender_org" mapstructure:"sender_org"`
}

// WaterfallConfig configures the enrichment waterfall. ThresholdsPath, if
// set, points at a standalone YAML file (not this process's main config
// file) carrying operator-tunable acceptance thresholds for the heuristic
// and external-API strategies; an empty path means "use the spec defaults"
// and no file is read.
type WaterfallConfig struct {
	ThresholdsPath string `yaml:"thresholds_path" mapstructure:"thresholds_path"`
}

// TemporalConfig configures the orchestrator's Temporal client/worker.
type TemporalConfig struct {
	HostPort                       string `yaml:"host_port" mapstructure:"host_port"`
	Namespace                      string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue                      string `yaml:"task_queue" mapstructure:"task_queue"`
	MaxConcurrentActivityExecutions int    `yaml:"max_concurrent_activity_executions" mapstructure:"max_concurrent_activity_executions"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host           string   `yaml:"host" mapstructure:"host"`
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" | "console"
}

// MonitorConfig configures the background failure-rate checker.
type MonitorConfig struct {
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// Load reads configuration from ./config.yaml (if present) and environment
// variables prefixed LEADPIPE_, applying defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.access_token_expire", 30*time.Minute)
	v.SetDefault("auth.refresh_token_expire", 7*24*time.Hour)
	v.SetDefault("auth.api_key_prefix", "lb_")
	v.SetDefault("auth.pbkdf2_fallback_allowed", true)

	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.enrich_temperature", 0.0)
	v.SetDefault("anthropic.message_temperature", 0.3)
	v.SetDefault("anthropic.retry_max_attempts", 3)
	v.SetDefault("anthropic.retry_initial_backoff_ms", 500)
	v.SetDefault("anthropic.retry_max_backoff_ms", 30000)
	v.SetDefault("anthropic.retry_multiplier", 2.0)
	v.SetDefault("anthropic.retry_jitter_fraction", 0.25)
	v.SetDefault("anthropic.circuit_failure_threshold", 5)
	v.SetDefault("anthropic.circuit_reset_timeout_secs", 30)

	v.SetDefault("scrape.http_timeout_secs", 25)
	v.SetDefault("scrape.headless_wait_millis", 3000)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("scrape.jsonld_confidence_gate", 0.7)
	v.SetDefault("scrape.meta_confidence_gate", 0.5)
	v.SetDefault("scrape.headless_enabled", true)
	v.SetDefault("scrape.requests_per_second", 2.0)
	v.SetDefault("scrape.burst", 4)

	v.SetDefault("plans.free.max_leads_per_day", 10)
	v.SetDefault("plans.free.can_export", false)
	v.SetDefault("plans.free.can_use_ai", false)
	v.SetDefault("plans.pro.max_leads_per_day", 500)
	v.SetDefault("plans.pro.can_export", true)
	v.SetDefault("plans.pro.can_use_ai", true)
	v.SetDefault("plans.enterprise.max_leads_per_day", 10000)
	v.SetDefault("plans.enterprise.can_export", true)
	v.SetDefault("plans.enterprise.can_use_ai", true)
	v.SetDefault("plans.default", "free")

	v.SetDefault("scoring.industry_match_weight", 0.25)
	v.SetDefault("scoring.company_size_weight", 0.20)
	v.SetDefault("scoring.email_quality_weight", 0.15)
	v.SetDefault("scoring.scrape_quality_weight", 0.15)
	v.SetDefault("scoring.enrichment_quality_weight", 0.15)
	v.SetDefault("scoring.linkedin_presence_weight", 0.10)

	v.SetDefault("temporal.host_port", "127.0.0.1:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "leadpipe-pipeline")
	v.SetDefault("temporal.max_concurrent_activity_executions", 1)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("monitor.check_interval_secs", 300)
	v.SetDefault("monitor.lookback_window_hours", 24)
	v.SetDefault("monitor.failure_rate_threshold", 0.5)
	v.SetDefault("monitor.webhook_url", "")

	v.SetDefault("waterfall.thresholds_path", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger builds the process-wide zap logger from cfg and installs it as
// the global logger returned by zap.L().
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
