package config // package config loads application configuration from environment variables

import (
	"log/slog"
	"os"
	"strconv"
)

// DefaultJWTSecret is the compiled-in fallback signing secret. It lets the
// server boot with zero configuration, but it is public knowledge and
// therefore insecure: every real deployment must set JWT_SECRET.
const DefaultJWTSecret = "ma magnifique clef"

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; defaults keep a dev setup working out of the box.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBPath         string // path to the SQLite database file
	JWTSecret      string // secret used to sign access tokens
	AccessTTLSec   int    // access token time-to-live in seconds
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	SeedOnStart    bool   // run schema migration + seed data at boot
	InsecureSecret bool   // true when the compiled-in fallback secret is in use
}

// Load reads configuration values from environment variables and returns a
// Config. A missing JWT_SECRET falls back to DefaultJWTSecret and is flagged
// so main can log a warning instead of silently running insecurely.
func Load() Config {
	secret := os.Getenv("JWT_SECRET")
	insecure := secret == ""
	if insecure {
		secret = DefaultJWTSecret
	}
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "3000"),
		DBPath:         getenv("DB_PATH", "data.sqlite"),
		JWTSecret:      secret,
		AccessTTLSec:   getint("ACCESS_TOKEN_TTL_SEC", 300),
		RefreshTTLDays: getint("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     getint("BCRYPT_COST", 10),
		SeedOnStart:    getenv("DB_SEED", "true") == "true",
		InsecureSecret: insecure,
	}
}

// Warn emits startup warnings for configuration states that work but should
// never reach production.
func (c Config) Warn(l *slog.Logger) {
	if c.InsecureSecret {
		l.Warn("JWT_SECRET is not set; falling back to the compiled-in default secret (insecure)")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
