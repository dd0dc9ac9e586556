package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/loginapp/pkg/utils"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Listener chain modes
const (
	ListenerModeFirst = "first"
	ListenerModeAll   = "all"
)

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" env-default:"loginapp:logins:"`
}

type JwtConfig struct {
	Secret            string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer            string `env:"JWT_ISSUER" env-default:"loginapp"`
	Audience          string `env:"JWT_AUDIENCE" env-default:"loginapp"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"PT15M"`
	SweepInterval     string `env:"TOKEN_SWEEP_INTERVAL" env-default:"PT1M"`
}

type LoginConfig struct {
	AdminRoles   string   `env:"ADMIN_ROLES" env-default:"admin" env-description:"comma-separated admin role names"`
	ListenerMode string   `env:"LOGIN_LISTENER_MODE" env-default:"first" env-description:"first or all"`
	Listeners    []string `env:"LOGIN_LISTENERS" env-description:"module.function pairs registered at startup"`
	MaskBadID    bool     `env:"LOGIN_MASK_BAD_ID" env-default:"false"`
	UpdateDelay  string   `env:"LOGIN_UPDATE_DELAY" env-default:"500ms"`
	StatsQueue   int      `env:"LOGIN_STATS_QUEUE_SIZE" env-default:"1000"`
	StatsTimeout string   `env:"LOGIN_STATS_TIMEOUT" env-default:"PT5S"`
}

type TotpConfig struct {
	Issuer string `env:"TOTP_ISSUER" env-default:"loginapp"`
	Period uint   `env:"TOTP_PERIOD" env-default:"30"`
	Skew   uint   `env:"TOTP_SKEW" env-default:"1"`
}

type DomainConfig struct {
	Allow []string `env:"DOMAIN_ALLOW"`
	Deny  []string `env:"DOMAIN_DENY"`
}

type EmailConfig struct {
	Host         string `env:"EMAIL_HOST" env-default:"localhost"`
	Port         uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username     string `env:"EMAIL_USERNAME"`
	Password     string `env:"EMAIL_PASSWORD"`
	From         string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS          bool   `env:"EMAIL_TLS" env-default:"false"`
	AlertEnabled bool   `env:"LOGIN_ALERT_EMAIL_ENABLED" env-default:"false"`
}

type RateLimitConfig struct {
	Enabled         bool    `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity        int     `env:"RATE_LIMIT_LOGIN_CAPACITY" env-default:"10"`
	RefillPerMinute float64 `env:"RATE_LIMIT_LOGIN_PER_MINUTE" env-default:"10"`
	BucketTTL       string  `env:"RATE_LIMIT_BUCKET_TTL" env-default:"PT1H"`
}

// Config is the full service configuration, read from the environment.
type Config struct {
	App       app.AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Jwt       JwtConfig
	Login     LoginConfig
	Totp      TotpConfig
	Domain    DomainConfig
	Email     EmailConfig
	RateLimit RateLimitConfig

	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	RemoteLog      bool   `env:"REMOTE_LOG" env-default:"false"`
	SessionStore   string `env:"SESSION_STORE" env-default:"memory"`
	AccountStore   string `env:"ACCOUNT_STORE" env-default:"memory"`
	AccountDataDir string `env:"ACCOUNT_DATA_DIR" env-default:"data"`

	TrustedProxies []string `env:"TRUSTED_PROXIES" env-description:"CIDR ranges or addresses allowed to set forwarding headers"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (Config, error) {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks enum values and duration strings.
func (c Config) Validate() error {
	return Validate(func() ValidationErrors {
		return CollectErrors(
			RequireOneOf("SESSION_STORE", c.SessionStore, []string{StoreMemory, StoreRedis, StorePostgres}),
			RequireOneOf("ACCOUNT_STORE", c.AccountStore, []string{StoreMemory, StoreFile, StorePostgres}),
			RequireOneOf("LOGIN_LISTENER_MODE", c.Login.ListenerMode, []string{ListenerModeFirst, ListenerModeAll}),
			RequireNonEmpty("JWT_SECRET", c.Jwt.Secret),
			RequirePositive("LOGIN_STATS_QUEUE_SIZE", c.Login.StatsQueue),
			RequirePositiveDuration("ACCESS_TOKEN_EXPIRY", c.Jwt.AccessTokenExpiry),
			RequirePositiveDuration("TOKEN_SWEEP_INTERVAL", c.Jwt.SweepInterval),
			RequireDuration("LOGIN_UPDATE_DELAY", c.Login.UpdateDelay),
			RequireDuration("LOGIN_STATS_TIMEOUT", c.Login.StatsTimeout),
			RequireDuration("RATE_LIMIT_BUCKET_TTL", c.RateLimit.BucketTTL),
			requireProxies("TRUSTED_PROXIES", c.TrustedProxies),
		)
	})
}

// TrustedProxyPrefixes returns the parsed TRUSTED_PROXIES list.
func (c Config) TrustedProxyPrefixes() []netip.Prefix {
	prefixes, err := utils.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		panic(err)
	}
	return prefixes
}

func requireProxies(field string, values []string) *ValidationError {
	if _, err := utils.ParseTrustedProxies(values); err != nil {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}

// AdminRoleNames returns the parsed ADMIN_ROLES list.
func (c LoginConfig) AdminRoleNames() []string {
	return ParseAdminRoleNames(c.AdminRoles)
}

func (c JwtConfig) AccessTokenTTL() time.Duration {
	return MustParseDuration(c.AccessTokenExpiry)
}

func (c JwtConfig) SweepEvery() time.Duration {
	return MustParseDuration(c.SweepInterval)
}

func (c LoginConfig) UpdateDelayDuration() time.Duration {
	return MustParseDuration(c.UpdateDelay)
}

func (c LoginConfig) StatsTimeoutDuration() time.Duration {
	return MustParseDuration(c.StatsTimeout)
}

func (c RateLimitConfig) BucketTTLDuration() time.Duration {
	return MustParseDuration(c.BucketTTL)
}
