package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Upstream     UpstreamConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Cache        CacheConfig
	Confirmation ConfirmationConfig
	Telemetry    TelemetryConfig
	Profiling    ProfilingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// UpstreamConfig describes the loan/quote REST backend this service fronts
type UpstreamConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimitRPS    float64 // outbound requests per second, 0 disables limiting
	RateLimitBurst  int
	MaxResponseSize int64
	// ServiceToken authenticates background refreshes that run without a viewer
	ServiceToken string
	Paths        UpstreamPaths
}

// UpstreamPaths holds the endpoint templates; {id} is replaced with the entity id
type UpstreamPaths struct {
	LoanList       string
	LoanGet        string
	LoanCancel     string
	LoanAction     string
	LoanAgreement  string
	LoanDownpay    string
	LoanLiquidate  string
	QuoteList      string
	QuoteGet       string
	QuoteSend      string
	QuoteNegotiate string
	QuoteAccept    string
	QuoteReject    string
	QuotePay       string
}

// DatabaseConfig holds settings for the transition audit database
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for validating viewer tokens
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	MetricsPath      string
	MetricsNamespace string
	ShutdownTimeout  time.Duration
}

// CacheConfig holds response cache and bounded polling settings
type CacheConfig struct {
	KeyPrefix    string
	EntityTTL    time.Duration
	ListTTL      time.Duration
	PollEnabled  bool
	PollInterval time.Duration
	PollWorkers  int
	MaxWatched   int
	WatchTTL     time.Duration
}

// ConfirmationConfig holds settings for danger-action confirmation tokens
type ConfirmationConfig struct {
	TTL time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool    // Whether to enable tracing
	CollectorEndpoint     string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio         float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName           string
	Insecure              bool // Use insecure (non-TLS) connection (development only)
	MetricsEnabled        bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool
	DBTraceEnabled        bool
	DBSlowQueryThresh     time.Duration
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	SpanProfiles      bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SOLAR_ prefix (e.g., SOLAR_UPSTREAM_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SOLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Upstream: UpstreamConfig{
			BaseURL:         v.GetString("upstream.base_url"),
			Timeout:         v.GetDuration("upstream.timeout"),
			RateLimitRPS:    v.GetFloat64("upstream.rate_limit_rps"),
			RateLimitBurst:  v.GetInt("upstream.rate_limit_burst"),
			MaxResponseSize: v.GetInt64("upstream.max_response_size"),
			ServiceToken:    v.GetString("upstream.service_token"),
			Paths: UpstreamPaths{
				LoanList:       v.GetString("upstream.paths.loan_list"),
				LoanGet:        v.GetString("upstream.paths.loan_get"),
				LoanCancel:     v.GetString("upstream.paths.loan_cancel"),
				LoanAction:     v.GetString("upstream.paths.loan_action"),
				LoanAgreement:  v.GetString("upstream.paths.loan_agreement"),
				LoanDownpay:    v.GetString("upstream.paths.loan_downpayment"),
				LoanLiquidate:  v.GetString("upstream.paths.loan_liquidate"),
				QuoteList:      v.GetString("upstream.paths.quote_list"),
				QuoteGet:       v.GetString("upstream.paths.quote_get"),
				QuoteSend:      v.GetString("upstream.paths.quote_send"),
				QuoteNegotiate: v.GetString("upstream.paths.quote_negotiate"),
				QuoteAccept:    v.GetString("upstream.paths.quote_accept"),
				QuoteReject:    v.GetString("upstream.paths.quote_reject"),
				QuotePay:       v.GetString("upstream.paths.quote_pay"),
			},
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("database.enabled"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			MetricsPath:      v.GetString("http.metrics_path"),
			MetricsNamespace: v.GetString("http.metrics_namespace"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
		},
		Cache: CacheConfig{
			KeyPrefix:    v.GetString("cache.key_prefix"),
			EntityTTL:    v.GetDuration("cache.entity_ttl"),
			ListTTL:      v.GetDuration("cache.list_ttl"),
			PollEnabled:  v.GetBool("cache.poll_enabled"),
			PollInterval: v.GetDuration("cache.poll_interval"),
			PollWorkers:  v.GetInt("cache.poll_workers"),
			MaxWatched:   v.GetInt("cache.max_watched"),
			WatchTTL:     v.GetDuration("cache.watch_ttl"),
		},
		Confirmation: ConfirmationConfig{
			TTL: v.GetDuration("confirmation.ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "solar-negotiation"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "http://localhost:8000/api"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 30 * time.Second
	}
	if cfg.Upstream.RateLimitBurst == 0 {
		cfg.Upstream.RateLimitBurst = 20
	}
	if cfg.Upstream.MaxResponseSize == 0 {
		cfg.Upstream.MaxResponseSize = 5 << 20 // 5MB
	}
	applyPathDefaults(&cfg.Upstream.Paths)

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "solar_negotiation"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "solar-identity"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 10
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 30
	}
	// No default CORS origins: cross-origin requests stay blocked until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.MetricsPath == "" {
		cfg.HTTP.MetricsPath = "/metrics"
	}
	if cfg.HTTP.MetricsNamespace == "" {
		cfg.HTTP.MetricsNamespace = "solar"
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "solar:"
	}
	if cfg.Cache.EntityTTL == 0 {
		cfg.Cache.EntityTTL = 2 * time.Minute
	}
	if cfg.Cache.ListTTL == 0 {
		cfg.Cache.ListTTL = 30 * time.Second
	}
	if cfg.Cache.PollInterval == 0 {
		cfg.Cache.PollInterval = 30 * time.Second
	}
	if cfg.Cache.PollWorkers == 0 {
		cfg.Cache.PollWorkers = 2
	}
	if cfg.Cache.MaxWatched == 0 {
		cfg.Cache.MaxWatched = 500
	}
	if cfg.Cache.WatchTTL == 0 {
		cfg.Cache.WatchTTL = 10 * time.Minute
	}

	if cfg.Confirmation.TTL == 0 {
		cfg.Confirmation.TTL = 2 * time.Minute
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}
}

// DefaultUpstreamPaths returns the built-in endpoint templates
func DefaultUpstreamPaths() UpstreamPaths {
	var p UpstreamPaths
	applyPathDefaults(&p)
	return p
}

func applyPathDefaults(p *UpstreamPaths) {
	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&p.LoanList, "/loan/")
	setDefault(&p.LoanGet, "/loan/{id}/")
	setDefault(&p.LoanCancel, "/loan/action/{id}")
	setDefault(&p.LoanAction, "/loan/action/{id}")
	setDefault(&p.LoanAgreement, "/loan/{id}/agreement/")
	setDefault(&p.LoanDownpay, "/loan/{id}/downpayment/")
	setDefault(&p.LoanLiquidate, "/loan/{id}/liquidate/")
	setDefault(&p.QuoteList, "/quote-requests/")
	setDefault(&p.QuoteGet, "/quote-requests/{id}")
	setDefault(&p.QuoteSend, "/quote-requests/send/{id}")
	setDefault(&p.QuoteNegotiate, "/quote-requests/negotiate/{id}")
	setDefault(&p.QuoteAccept, "/quote-requests/accept/{id}")
	setDefault(&p.QuoteReject, "/quote-requests/reject/{id}")
	// Pluralized "quotes-requests" is what the portal calls today. It is kept
	// as-is until the backend contract is confirmed; override via config.
	setDefault(&p.QuotePay, "/quotes-requests/pay/{id}")
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url must be an absolute URL, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.RateLimitRPS < 0 {
		return fmt.Errorf("upstream.rate_limit_rps cannot be negative")
	}
	if c.Cache.MaxWatched < 0 {
		return fmt.Errorf("cache.max_watched cannot be negative")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if u.Scheme != "https" {
			return fmt.Errorf("upstream.base_url must use https in production")
		}
		if c.Database.Enabled && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
