/*
Package config loads the connection and behavior settings shared by the
drivers, the listener and the CLI. Precedence: environment, then config file,
then defaults. Environment variables use the `SQLKIT_` prefix with dots
replaced by underscores, for example `SQLKIT_POOL_MAX_CONNS`.

Secret fields accept "env:NAME", which reads the value from the environment
variable NAME at load time.
*/
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitranim/sqlkit"
	"github.com/spf13/viper"
)

const (
	envPrefix    = `SQLKIT`
	secretPrefix = `env:`
	maxWalkDepth = 25
)

// Config file names looked up by `Load`, in order.
var FileNames = []string{`sqlkit.yaml`, `sqlkit.yml`, `sqlkit.json`, `sqlkit.toml`}

type Config struct {
	Dialect  string `mapstructure:"dialect" json:"dialect"`
	LogLevel string `mapstructure:"log_level" json:"logLevel"`

	// Wins over the discrete connection fields when set. For SQLite, a file
	// path or "file:" URI.
	ConnectionString string `mapstructure:"connection_string" json:"connectionString,omitempty"`

	Host            string `mapstructure:"host" json:"host,omitempty"`
	Port            int    `mapstructure:"port" json:"port,omitempty"`
	User            string `mapstructure:"user" json:"user,omitempty"`
	Password        string `mapstructure:"password" json:"-"`
	Database        string `mapstructure:"database" json:"database,omitempty"`
	SSLMode         string `mapstructure:"ssl_mode" json:"sslMode,omitempty"`
	ApplicationName string `mapstructure:"application_name" json:"applicationName,omitempty"`

	Pool         PoolConfig         `mapstructure:"pool" json:"pool"`
	Capabilities CapabilitiesConfig `mapstructure:"capabilities" json:"capabilities"`
}

type PoolConfig struct {
	MaxConns       int           `mapstructure:"max_conns" json:"maxConns,omitempty"`
	MinConns       int           `mapstructure:"min_conns" json:"minConns,omitempty"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" json:"idleTimeout,omitempty"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" json:"acquireTimeout,omitempty"`
}

// Per-dialect overrides. Nil fields keep the dialect default.
type CapabilitiesConfig struct {
	Returning *bool `mapstructure:"returning" json:"returning,omitempty"`
}

// Recognized values of `Config.LogLevel`.
var LogLevels = []string{`silent`, `error`, `warn`, `info`, `debug`}

/*
Loads the configuration. An empty path looks for one of `FileNames` in the
working directory and its parents up to the repository root; no file means
defaults and environment only. The result is validated; secrets are resolved.
*/
func Load(path string) (Config, error) {
	var out Config
	vip := viper.New()
	setDefaults(vip)

	vip.SetEnvPrefix(envPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	vip.AutomaticEnv()
	_ = vip.BindEnv(`capabilities.returning`)

	file, err := findFile(path)
	if err != nil {
		return out, err
	}
	if file != `` {
		vip.SetConfigFile(file)
		if err := vip.ReadInConfig(); err != nil {
			return out, configErr(`config file`, file, fmt.Errorf(`reading config file: %w`, err))
		}
	}

	if err := vip.Unmarshal(&out); err != nil {
		return out, configErr(`config file`, file, fmt.Errorf(`decoding config: %w`, err))
	}
	if err := out.resolveSecrets(); err != nil {
		return out, err
	}
	return out, out.Validate()
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault(`dialect`, string(sqlkit.Postgres))
	vip.SetDefault(`log_level`, `warn`)
	vip.SetDefault(`connection_string`, ``)
	vip.SetDefault(`host`, `localhost`)
	vip.SetDefault(`port`, 5432)
	vip.SetDefault(`user`, ``)
	vip.SetDefault(`password`, ``)
	vip.SetDefault(`database`, ``)
	vip.SetDefault(`ssl_mode`, `prefer`)
	vip.SetDefault(`application_name`, `sqlkit`)

	vip.SetDefault(`pool.max_conns`, 10)
	vip.SetDefault(`pool.min_conns`, 0)
	vip.SetDefault(`pool.idle_timeout`, 30*time.Minute)
	vip.SetDefault(`pool.acquire_timeout`, 30*time.Second)
}

func findFile(explicit string) (string, error) {
	if explicit != `` {
		if _, err := os.Stat(explicit); err != nil {
			return ``, configErr(`config file`, explicit, fmt.Errorf(`config file not found: %w`, err))
		}
		return explicit, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return ``, fmt.Errorf(`[sqlkit] failed to get working directory: %w`, err)
	}

	for range maxWalkDepth {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		if _, err := os.Stat(filepath.Join(dir, `.git`)); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ``, nil
}

func (self *Config) resolveSecrets() error {
	for _, ptr := range []*string{&self.Password, &self.ConnectionString} {
		val, err := Secret(*ptr)
		if err != nil {
			return err
		}
		*ptr = val
	}
	return nil
}

/*
Resolves "env:NAME" to the value of the environment variable. Other values
are returned unchanged. A missing or empty variable is an `sqlkit.ErrEnv`.
*/
func Secret(src string) (string, error) {
	name, ok := strings.CutPrefix(src, secretPrefix)
	if !ok {
		return src, nil
	}
	name = strings.TrimSpace(name)
	if name == `` {
		return ``, sqlkit.ErrEnv{Err: sqlkit.MakeErr(`resolving secret`, fmt.Errorf(`%q names no variable`, src))}
	}

	val, ok := os.LookupEnv(name)
	if !ok || val == `` {
		return ``, sqlkit.ErrEnv{
			Err: sqlkit.MakeErr(`resolving secret`, fmt.Errorf(`environment variable %q is not set`, name)),
			Var: name,
		}
	}
	return val, nil
}

func configErr(field string, value any, cause error) sqlkit.ErrConfig {
	return sqlkit.ErrConfig{
		Err:   sqlkit.MakeErr(`validating config`, cause),
		Field: field,
		Value: value,
	}
}

// Returns the first invalid field as an `sqlkit.ErrConfig`.
func (self Config) Validate() error {
	dialect, err := sqlkit.ParseDialect(self.Dialect)
	if err != nil {
		return err
	}

	if !isLogLevel(self.LogLevel) {
		return configErr(`log_level`, self.LogLevel, fmt.Errorf(`expected one of %v`, strings.Join(LogLevels, `, `)))
	}
	if self.Port < 0 || self.Port > 65535 {
		return configErr(`port`, self.Port, fmt.Errorf(`port must be within [0, 65535]`))
	}

	pool := self.Pool
	switch {
	case pool.MaxConns < 0:
		return configErr(`pool.max_conns`, pool.MaxConns, fmt.Errorf(`must not be negative`))
	case pool.MinConns < 0:
		return configErr(`pool.min_conns`, pool.MinConns, fmt.Errorf(`must not be negative`))
	case pool.MaxConns > 0 && pool.MinConns > pool.MaxConns:
		return configErr(`pool.min_conns`, pool.MinConns, fmt.Errorf(`exceeds pool.max_conns %v`, pool.MaxConns))
	case pool.IdleTimeout < 0:
		return configErr(`pool.idle_timeout`, pool.IdleTimeout, fmt.Errorf(`must not be negative`))
	case pool.AcquireTimeout < 0:
		return configErr(`pool.acquire_timeout`, pool.AcquireTimeout, fmt.Errorf(`must not be negative`))
	}

	if self.ConnectionString != `` {
		return nil
	}
	if dialect == sqlkit.SQLite {
		if self.Database == `` {
			return configErr(`database`, self.Database, fmt.Errorf(`SQLite needs a database file or connection_string`))
		}
		return nil
	}
	if self.Host == `` {
		return configErr(`host`, self.Host, fmt.Errorf(`host is required when connection_string is not set`))
	}
	if self.Database == `` {
		return configErr(`database`, self.Database, fmt.Errorf(`database is required when connection_string is not set`))
	}
	return nil
}

func isLogLevel(val string) bool {
	for _, level := range LogLevels {
		if val == level {
			return true
		}
	}
	return false
}

// Parsed dialect. Invalid values fall back to PostgreSQL; see `Validate`.
func (self Config) SQLDialect() sqlkit.Dialect {
	out, err := sqlkit.ParseDialect(self.Dialect)
	if err != nil {
		return sqlkit.Postgres
	}
	return out
}

/*
Connection string for the driver: `ConnectionString` when set, the database
path for SQLite, otherwise a libpq URL built from the discrete fields.
*/
func (self Config) DSN() string {
	if self.ConnectionString != `` {
		return self.ConnectionString
	}
	if self.SQLDialect() == sqlkit.SQLite {
		return self.Database
	}

	host := self.Host
	if self.Port > 0 {
		host += `:` + strconv.Itoa(self.Port)
	}
	out := url.URL{Scheme: `postgres`, Host: host, Path: `/` + self.Database}

	switch {
	case self.User != `` && self.Password != ``:
		out.User = url.UserPassword(self.User, self.Password)
	case self.User != ``:
		out.User = url.User(self.User)
	}

	query := url.Values{}
	if self.SSLMode != `` {
		query.Set(`sslmode`, self.SSLMode)
	}
	if self.ApplicationName != `` {
		query.Set(`application_name`, self.ApplicationName)
	}
	out.RawQuery = query.Encode()
	return out.String()
}

// Mapping of `LogLevel` to slog levels. "silent" and unknown levels report
// false.
func (self Config) Level() (slog.Level, bool) {
	switch self.LogLevel {
	case `debug`:
		return slog.LevelDebug, true
	case `info`:
		return slog.LevelInfo, true
	case `warn`:
		return slog.LevelWarn, true
	case `error`:
		return slog.LevelError, true
	default:
		return 0, false
	}
}

/*
Text logger writing to the writer at the configured level. "silent" discards
everything. The returned level var can be adjusted at runtime.
*/
func (self Config) Logger(out io.Writer) (*slog.Logger, *slog.LevelVar) {
	var level slog.LevelVar
	val, ok := self.Level()
	if !ok {
		level.Set(slog.LevelError + 1)
		return slog.New(slog.DiscardHandler), &level
	}
	level.Set(val)
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: &level})), &level
}
