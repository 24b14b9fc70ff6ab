package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// DefaultPublicPaths are reachable through the gateway without a token.
var DefaultPublicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/forgot-password",
	"/auth/reset-password",
	"/swagger-ui",
	"/v3/api-docs",
	"/actuator",
	"/health",
}

const defaultGatewayRoutes = "/auth=http://localhost:8081,/v3/api-docs=http://localhost:8081,/swagger-ui=http://localhost:8081"

type Config struct {
	AuthPort                string
	GatewayPort             string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	// JWTSecret must be byte-identical in the auth service and the gateway.
	JWTSecret string
	JWTTTL    time.Duration

	UserStore   string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// DBTraceQueries logs SQL statements at debug level.
	DBTraceQueries bool

	// DefaultRole stands in for a stored role that was never set.
	DefaultRole  string
	AllowedRoles []string
	BcryptCost   int
	OTPTTL       time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	PublicPaths   []string
	GatewayRoutes map[string]string
	// TrustForwardedFor keys rate limits on X-Forwarded-For. Enable only when
	// a load balancer in front of the gateway sets it.
	TrustForwardedFor   bool
	UpstreamIdleTimeout time.Duration

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	routes, err := parseRoutes(getEnv("GATEWAY_ROUTES", defaultGatewayRoutes))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AuthPort:                getEnv("AUTH_PORT", "8081"),
		GatewayPort:             getEnv("GATEWAY_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:                  getDuration("JWT_TTL", 10*time.Hour),
		UserStore:               strings.ToLower(getEnv("USER_STORE", StorePostgres)),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		DBTraceQueries:          getBool("DB_TRACE_QUERIES", false),
		DefaultRole:             strings.ToLower(getEnv("DEFAULT_ROLE", "manager")),
		AllowedRoles:            lowerAll(splitCSV(getEnv("ALLOWED_ROLES", "admin,manager"))),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		OTPTTL:                  getDuration("OTP_TTL", 5*time.Minute),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 30),
		PublicPaths:             splitCSV(getEnv("GATEWAY_PUBLIC_PATHS", strings.Join(DefaultPublicPaths, ","))),
		GatewayRoutes:           routes,
		TrustForwardedFor:       getBool("GATEWAY_TRUST_FORWARDED_FOR", false),
		UpstreamIdleTimeout:     getDuration("UPSTREAM_IDLE_TIMEOUT", 15*time.Second),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings shared by both processes and the gateway's
// own, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 bytes"))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive"))
	}

	if c.AuthPort == "" || c.GatewayPort == "" {
		errs = append(errs, fmt.Errorf("AUTH_PORT and GATEWAY_PORT cannot be empty"))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive"))
	}

	if c.UpstreamIdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_IDLE_TIMEOUT must be positive"))
	}

	for _, p := range c.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("GATEWAY_PUBLIC_PATHS entry %q must start with /", p))
		}
	}

	return errors.Join(errs...)
}

// ValidateAuthService checks the settings only the auth service reads.
func (c *Config) ValidateAuthService() error {
	var errs []error

	switch c.UserStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required when USER_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("USER_STORE must be %q or %q", StorePostgres, StoreMemory))
	}

	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent"))
	}

	if strings.TrimSpace(c.DefaultRole) == "" {
		errs = append(errs, fmt.Errorf("DEFAULT_ROLE cannot be empty"))
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31"))
	}

	if c.OTPTTL <= 0 {
		errs = append(errs, fmt.Errorf("OTP_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) AuthAddr() string {
	return ":" + c.AuthPort
}

func (c *Config) GatewayAddr() string {
	return ":" + c.GatewayPort
}

// parseRoutes reads "prefix=url,prefix=url".
func parseRoutes(raw string) (map[string]string, error) {
	routes := map[string]string{}
	for _, entry := range splitCSV(raw) {
		prefix, target, ok := strings.Cut(entry, "=")
		prefix = strings.TrimSpace(prefix)
		target = strings.TrimSpace(target)
		if !ok || prefix == "" || target == "" || !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("GATEWAY_ROUTES entry %q must look like /prefix=http://host:port", entry)
		}
		routes[prefix] = target
	}

	return routes, nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
