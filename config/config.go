// Package config loads grove's runtime settings from an optional YAML file,
// .env files and GROVE_* environment variables, in that order of
// precedence (environment wins).
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ARTM2000/grove"
)

// Environment variables overriding file settings.
const (
	EnvValidateScopes = "GROVE_VALIDATE_SCOPES"
	EnvSpecialize     = "GROVE_SPECIALIZE"
	EnvLogLevel       = "GROVE_LOG_LEVEL"
	EnvDiagAddr       = "GROVE_DIAG_ADDR"
)

// Config is the typed configuration of a grove host process.
type Config struct {
	ValidateScopes bool   `yaml:"validate_scopes"`
	Specialize     bool   `yaml:"specialize"`
	LogLevel       string `yaml:"log_level"`
	DiagAddr       string `yaml:"diag_addr"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Specialize: true,
		LogLevel:   "info",
		DiagAddr:   "127.0.0.1:8089",
	}
}

// Load builds a Config. path names an optional YAML file; envFiles are .env
// files loaded into the environment when present (missing files are
// skipped). Variables already set in the environment are not overwritten.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	for _, f := range envFiles {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, errors.Wrapf(err, "loading %s", f)
		}
	}

	var err error
	if cfg.ValidateScopes, err = envBool(EnvValidateScopes, cfg.ValidateScopes); err != nil {
		return nil, err
	}
	if cfg.Specialize, err = envBool(EnvSpecialize, cfg.Specialize); err != nil {
		return nil, err
	}
	cfg.LogLevel = env(EnvLogLevel, cfg.LogLevel)
	cfg.DiagAddr = env(EnvDiagAddr, cfg.DiagAddr)

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, errors.Wrap(err, "log_level")
	}
	return &cfg, nil
}

// ProviderOptions maps the configuration to provider options.
func (c *Config) ProviderOptions(logger logrus.FieldLogger) []grove.ProviderOption {
	return []grove.ProviderOption{
		grove.WithValidateScopes(c.ValidateScopes),
		grove.WithSpecialization(c.Specialize),
		grove.WithLogger(logger),
	}
}

// Logger builds a logrus logger at the configured level.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "log_level")
	}
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l, nil
}

func env(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "%s", key)
	}
	return b, nil
}
