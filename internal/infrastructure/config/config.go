package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Store StoreConfig `env:", prefix=STORE_"`
	Auth  AuthConfig
	MDNS  MDNSConfig `env:", prefix=MDNS_"`

	// MaxContentBytes caps the size of a saved document.
	MaxContentBytes int `env:"MAX_CONTENT_BYTES, default=1048576"`
	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
}

type StoreConfig struct {
	// DSN selects the backend by scheme: bolt:///path/to/file.db (default,
	// relative to the working directory), memory:// (lost on restart),
	// mongodb://, postgres://, redis://.
	DSN string `env:"DSN, default=bolt://docsync.db"`
	// Database names the Mongo database when the DSN does not carry one.
	Database string `env:"DATABASE, default=docsync"`
	// Timeout bounds each storage operation on the server side.
	Timeout        time.Duration `env:"TIMEOUT, default=5s"`
	ConnectRetries uint64        `env:"CONNECT_RETRIES, default=5"`
}

type AuthConfig struct {
	// SeedUsers is a comma separated list of username:password pairs
	// registered at boot. Passwords may be given as bcrypt hashes.
	SeedUsers  string `env:"SEED_USERS"`
	BcryptCost int    `env:"BCRYPT_COST, default=10"`
}

type MDNSConfig struct {
	Enabled  bool   `env:"ENABLED, default=false"`
	Instance string `env:"INSTANCE, default=docsync"`
}

// Load reads configuration from DOCSYNC_* environment variables using
// go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper("DOCSYNC_", lookuper),
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// ParseSeedUsers splits "alice:secret,bob:pw" into a username to password map.
// A password may itself contain ':' (bcrypt hashes do not, but be lenient).
func ParseSeedUsers(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		username, password, ok := strings.Cut(entry, ":")
		username = strings.TrimSpace(username)
		if !ok || username == "" || password == "" {
			return nil, fmt.Errorf("config: invalid seed user entry %q (want username:password)", entry)
		}
		out[username] = password
	}
	return out, nil
}
