package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	configFileENV     = "SHELFMARK_CONFIG"
	defaultConfigFile = "./shelfmark.yaml"
	envPrefix         = "SHELFMARK_"
)

// loadFileConfig layers an optional YAML config file and SHELFMARK_-prefixed
// environment variables on top of the environment defaults. Env vars win over
// the file; both win over the defaults. Recognized keys: server.host,
// server.port, database.path, database.debug.
func loadFileConfig(cfg *Config) error {
	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return errors.Wrapf(err, "failed to load config file: %s", path)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// SHELFMARK_SERVER_PORT -> server.port
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return errors.WithStack(err)
	}

	if k.Exists("server.host") {
		cfg.ServerHost = k.String("server.host")
	}
	if k.Exists("server.port") {
		cfg.ServerPort = k.Int("server.port")
	}
	if k.Exists("database.path") {
		cfg.DatabaseFilePath = k.String("database.path")
	}
	if k.Exists("database.debug") {
		cfg.DatabaseDebug = k.Bool("database.debug")
	}

	return nil
}
