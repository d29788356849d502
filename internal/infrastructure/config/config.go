package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	BasicAuth BasicAuthConfig
	Log       LogConfig
	HTTP      HTTPConfig
	AFIP      AFIPConfig
	Company   CompanyConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Printing  PrintingConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name          string
	Env           string
	Port          string
	AdminUser     string // seeded when the usuarios table is empty
	AdminPassword string
	AdminEmail    string
}

// DatabaseConfig holds MySQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	Charset         string
	Loc             string
	TLS             string // "", "true", "skip-verify", "preferred"
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

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// BasicAuthConfig holds the credentials of the HTTP Basic gate in front of the
// HTML views and the metrics endpoints.
type BasicAuthConfig struct {
	Enabled      bool
	Username     string
	Password     string // plain text, accepted only outside production
	PasswordHash string // bcrypt hash
	Realm        string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	SlowRequestThreshold  time.Duration
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// AFIPConfig holds the settings of the AFIP web services client
type AFIPConfig struct {
	Environment   string // homologacion, produccion
	CUIT          string
	CertPath      string
	KeyPath       string
	PointOfSale   int
	WSAAURL       string // overrides the environment default
	WSFEURL       string // overrides the environment default
	Timeout       time.Duration
	Mock          bool
	MockFallback  bool
	TicketService string
}

// CompanyConfig holds the emitter data printed on invoices
type CompanyConfig struct {
	Name           string
	CUIT           string
	IVACondition   string // RESPONSABLE_INSCRIPTO, MONOTRIBUTO, EXENTO
	Address        string
	IIBB           string
	ActivityStart  string
	Phone          string
	Email          string
	DefaultIVARate float64
}

// CacheConfig holds the TTL cache settings
type CacheConfig struct {
	DashboardTTL    time.Duration
	CleanupInterval time.Duration
	KeyPrefix       string
}

// StorageConfig holds S3 compatible object storage settings for invoice PDFs
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// PrintingConfig holds invoice PDF rendering settings
type PrintingConfig struct {
	Enabled        bool
	ChromeURL      string // remote devtools URL; empty launches a local browser
	RenderTimeout  time.Duration
	PaperSize      string
	ExecPath       string
	MaxConcurrency int
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled               bool
	Workers               int
	AuthorizationInterval time.Duration
	ExpirationInterval    time.Duration
	JobTimeout            time.Duration
	BatchSize             int
	MaxAttempts           int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	ProfilingEnabled  bool
	PyroscopeAddress  string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SGI_ prefix (e.g., SGI_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:          v.GetString("app.name"),
			Env:           v.GetString("app.env"),
			Port:          v.GetString("app.port"),
			AdminUser:     v.GetString("app.admin_user"),
			AdminPassword: v.GetString("app.admin_password"),
			AdminEmail:    v.GetString("app.admin_email"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			Charset:         v.GetString("database.charset"),
			Loc:             v.GetString("database.loc"),
			TLS:             v.GetString("database.tls"),
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
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		BasicAuth: BasicAuthConfig{
			Enabled:      v.GetBool("basic_auth.enabled"),
			Username:     v.GetString("basic_auth.username"),
			Password:     v.GetString("basic_auth.password"),
			PasswordHash: v.GetString("basic_auth.password_hash"),
			Realm:        v.GetString("basic_auth.realm"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			SlowRequestThreshold:  v.GetDuration("http.slow_request_threshold"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		AFIP: AFIPConfig{
			Environment:   v.GetString("afip.environment"),
			CUIT:          v.GetString("afip.cuit"),
			CertPath:      v.GetString("afip.cert_path"),
			KeyPath:       v.GetString("afip.key_path"),
			PointOfSale:   v.GetInt("afip.point_of_sale"),
			WSAAURL:       v.GetString("afip.wsaa_url"),
			WSFEURL:       v.GetString("afip.wsfe_url"),
			Timeout:       v.GetDuration("afip.timeout"),
			Mock:          v.GetBool("afip.mock"),
			MockFallback:  v.GetBool("afip.mock_fallback"),
			TicketService: v.GetString("afip.ticket_service"),
		},
		Company: CompanyConfig{
			Name:           v.GetString("company.name"),
			CUIT:           v.GetString("company.cuit"),
			IVACondition:   v.GetString("company.iva_condition"),
			Address:        v.GetString("company.address"),
			IIBB:           v.GetString("company.iibb"),
			ActivityStart:  v.GetString("company.activity_start"),
			Phone:          v.GetString("company.phone"),
			Email:          v.GetString("company.email"),
			DefaultIVARate: v.GetFloat64("company.default_iva_rate"),
		},
		Cache: CacheConfig{
			DashboardTTL:    v.GetDuration("cache.dashboard_ttl"),
			CleanupInterval: v.GetDuration("cache.cleanup_interval"),
			KeyPrefix:       v.GetString("cache.key_prefix"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKeyID:       v.GetString("storage.access_key_id"),
			SecretAccessKey:   v.GetString("storage.secret_access_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Printing: PrintingConfig{
			Enabled:        v.GetBool("printing.enabled"),
			ChromeURL:      v.GetString("printing.chrome_url"),
			RenderTimeout:  v.GetDuration("printing.render_timeout"),
			PaperSize:      v.GetString("printing.paper_size"),
			ExecPath:       v.GetString("printing.exec_path"),
			MaxConcurrency: v.GetInt("printing.max_concurrency"),
		},
		Scheduler: SchedulerConfig{
			Enabled:               v.GetBool("scheduler.enabled"),
			Workers:               v.GetInt("scheduler.workers"),
			AuthorizationInterval: v.GetDuration("scheduler.authorization_interval"),
			ExpirationInterval:    v.GetDuration("scheduler.expiration_interval"),
			JobTimeout:            v.GetDuration("scheduler.job_timeout"),
			BatchSize:             v.GetInt("scheduler.batch_size"),
			MaxAttempts:           v.GetInt("scheduler.max_attempts"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
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
		cfg.App.Name = "sgi"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "3000"
	}
	if cfg.App.AdminUser == "" {
		cfg.App.AdminUser = "admin"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 3306
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "root"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sgi"
	}
	if cfg.Database.Charset == "" {
		cfg.Database.Charset = "utf8mb4"
	}
	if cfg.Database.Loc == "" {
		cfg.Database.Loc = "America/Argentina/Buenos_Aires"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 8 * time.Hour
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "sgi"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.BasicAuth.Username == "" {
		cfg.BasicAuth.Username = "sgi"
	}
	if cfg.BasicAuth.Realm == "" {
		cfg.BasicAuth.Realm = "SGI"
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
		cfg.HTTP.WriteTimeout = 60 * time.Second // PDF rendering can be slow
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = 15 * time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = 15 * time.Minute
	}
	if cfg.HTTP.SlowRequestThreshold == 0 {
		cfg.HTTP.SlowRequestThreshold = time.Second
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.AFIP.Environment == "" {
		cfg.AFIP.Environment = "homologacion"
	}
	if cfg.AFIP.PointOfSale == 0 {
		cfg.AFIP.PointOfSale = 1
	}
	if cfg.AFIP.Timeout == 0 {
		cfg.AFIP.Timeout = 30 * time.Second
	}
	if cfg.AFIP.TicketService == "" {
		cfg.AFIP.TicketService = "wsfe"
	}
	if cfg.Company.IVACondition == "" {
		cfg.Company.IVACondition = "RESPONSABLE_INSCRIPTO"
	}
	if cfg.Company.DefaultIVARate == 0 {
		cfg.Company.DefaultIVARate = 21
	}
	if cfg.Company.CUIT == "" {
		cfg.Company.CUIT = cfg.AFIP.CUIT
	}
	if cfg.Cache.DashboardTTL == 0 {
		cfg.Cache.DashboardTTL = 5 * time.Minute
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = time.Minute
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "sgi:"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Printing.RenderTimeout == 0 {
		cfg.Printing.RenderTimeout = 30 * time.Second
	}
	if cfg.Printing.PaperSize == "" {
		cfg.Printing.PaperSize = "A4"
	}
	if cfg.Printing.MaxConcurrency == 0 {
		cfg.Printing.MaxConcurrency = 2
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 2
	}
	if cfg.Scheduler.AuthorizationInterval == 0 {
		cfg.Scheduler.AuthorizationInterval = 5 * time.Minute
	}
	if cfg.Scheduler.ExpirationInterval == 0 {
		cfg.Scheduler.ExpirationInterval = 24 * time.Hour
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 2 * time.Minute
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 20
	}
	if cfg.Scheduler.MaxAttempts == 0 {
		cfg.Scheduler.MaxAttempts = 5
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

	switch c.AFIP.Environment {
	case "homologacion", "produccion":
	default:
		return fmt.Errorf("afip.environment must be 'homologacion' or 'produccion', got %q", c.AFIP.Environment)
	}
	if c.AFIP.CUIT != "" && !isDigits(c.AFIP.CUIT, 11) {
		return fmt.Errorf("afip.cuit must be 11 digits without dashes")
	}
	if c.AFIP.PointOfSale < 1 || c.AFIP.PointOfSale > 99999 {
		return fmt.Errorf("afip.point_of_sale must be between 1 and 99999")
	}

	switch c.Company.IVACondition {
	case "RESPONSABLE_INSCRIPTO", "MONOTRIBUTO", "EXENTO":
	default:
		return fmt.Errorf("company.iva_condition %q is not a valid emitter condition", c.Company.IVACondition)
	}

	if c.Production() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.BasicAuth.Enabled && c.BasicAuth.PasswordHash == "" {
			return fmt.Errorf("basic_auth.password_hash is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.AFIP.Environment == "produccion" && !c.AFIP.Mock {
			if c.AFIP.CertPath == "" || c.AFIP.KeyPath == "" {
				return fmt.Errorf("afip.cert_path and afip.key_path are required for afip.environment=produccion")
			}
			if c.AFIP.CUIT == "" {
				return fmt.Errorf("afip.cuit is required for afip.environment=produccion")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Production reports whether the application runs in production mode
func (c *Config) Production() bool {
	return c.App.Env == "production"
}

// DSN returns the go-sql-driver/mysql connection string
func (d *DatabaseConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	mc.DBName = d.DBName
	mc.ParseTime = true
	mc.MultiStatements = true
	mc.Params = map[string]string{"charset": d.Charset}
	if loc, err := time.LoadLocation(d.Loc); err == nil {
		mc.Loc = loc
	}
	if d.TLS != "" {
		mc.TLSConfig = d.TLS
	}
	return mc.FormatDSN()
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
