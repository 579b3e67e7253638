package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // store timezone on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Mail      MailConfig      `mapstructure:"mail"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	Store     StoreConfig     `mapstructure:"store"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type HTTPConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	Swagger        bool          `mapstructure:"swagger"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MySQLConfig points at the payments ledger database. When disabled the
// ledger is kept in a local SQLite file instead.
type MySQLConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	SQLitePath   string `mapstructure:"sqlite_path"`
}

type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	AuditLog       string        `mapstructure:"audit_collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	OIDCIssuer    string        `mapstructure:"oidc_issuer"`
	OIDCClientID  string        `mapstructure:"oidc_client_id"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminPassword string        `mapstructure:"admin_password"`
	AdminName     string        `mapstructure:"admin_name"`
}

type PaymentConfig struct {
	Provider      string        `mapstructure:"provider"`
	BaseURL       string        `mapstructure:"base_url"`
	KeyID         string        `mapstructure:"key_id"`
	KeySecret     string        `mapstructure:"key_secret"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Currency      string        `mapstructure:"currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type GeocodingConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Region  string        `mapstructure:"region"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MailConfig struct {
	Provider    string `mapstructure:"provider"` // postmark, sendgrid or log
	APIToken    string `mapstructure:"api_token"`
	From        string `mapstructure:"from"`
	StoreName   string `mapstructure:"store_name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

type UploadsConfig struct {
	Dir        string `mapstructure:"dir"`
	PublicPath string `mapstructure:"public_path"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
}

type StoreConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	MaxAdvanceDays   int           `mapstructure:"max_advance_days"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
	CatalogCacheTTL  time.Duration `mapstructure:"catalog_cache_ttl"`
	DeliveryCacheTTL time.Duration `mapstructure:"delivery_cache_ttl"`
}

func setDefaults(v *viper.Viper) {
	// Keys without a useful default are still registered so that
	// AutomaticEnv can populate them during Unmarshal.
	for _, key := range []string{
		"mongodb.uri", "auth.jwt_secret", "auth.oidc_client_id", "auth.admin_email", "auth.admin_password",
		"payment.key_id", "payment.key_secret", "payment.webhook_secret", "geocoding.api_key", "geocoding.base_url",
		"mail.api_token", "mail.from", "mail.frontend_url", "mysql.host", "mysql.username",
		"mysql.password", "mysql.database", "redis.password",
	} {
		v.SetDefault(key, "")
	}
	for _, key := range []string{"redis.enabled", "mysql.enabled", "etcd.enabled", "grpc.enabled", "geocoding.enabled"} {
		v.SetDefault(key, false)
	}

	v.SetDefault("server.name", "bakery-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("http.swagger", true)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.sqlite_path", "bakery-ledger.db")
	v.SetDefault("mongodb.database", "bakery")
	v.SetDefault("mongodb.audit_collection", "audit_logs")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 9090)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("auth.access_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.oidc_issuer", "https://accounts.google.com")
	v.SetDefault("auth.admin_name", "Store Admin")
	v.SetDefault("payment.provider", "razorpay")
	v.SetDefault("payment.base_url", "https://api.razorpay.com")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.timeout", 15*time.Second)
	v.SetDefault("geocoding.region", "in")
	v.SetDefault("geocoding.timeout", 5*time.Second)
	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.store_name", "The Bakery")
	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.public_path", "/uploads")
	v.SetDefault("uploads.max_bytes", 5<<20)
	v.SetDefault("store.timezone", "Asia/Kolkata")
	v.SetDefault("store.max_advance_days", 30)
	v.SetDefault("store.idempotency_ttl", 24*time.Hour)
	v.SetDefault("store.catalog_cache_ttl", 5*time.Minute)
	v.SetDefault("store.delivery_cache_ttl", time.Hour)
}

// Load reads the yaml file at configPath (optional when empty or missing),
// a .env file in the working directory and BAKERY_* environment variables,
// in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BAKERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isMissingFile(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoDB.URI == "" {
		errs = append(errs, errors.New("mongodb.uri is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Payment.KeySecret != "" && c.Payment.KeyID == "" {
		errs = append(errs, errors.New("payment.key_id is required when payment.key_secret is set"))
	}
	if c.Store.MaxAdvanceDays <= 0 {
		errs = append(errs, errors.New("store.max_advance_days must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Location resolves the store timezone, falling back to UTC.
func (c *StoreConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
