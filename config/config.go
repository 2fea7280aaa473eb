// Package config loads engine settings from an ini file.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"heapdb/buffer"
	"heapdb/logger"
)

const (
	DefaultDataDir = "data"
	DefaultLevel   = "info"
)

// Config holds the settings of one database instance.
type Config struct {
	// Raw is the parsed file, kept for keys this package does not know.
	Raw *ini.File

	DataDir    string
	PoolPages  int
	SyncWrites bool
	Log        logger.Config
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Raw:        ini.Empty(),
		DataDir:    DefaultDataDir,
		PoolPages:  buffer.DefaultPages,
		SyncWrites: true,
		Log:        logger.Config{Level: DefaultLevel},
	}
}

// Load reads path. An empty path or a missing file yields the defaults.
// Values that cannot be used are replaced by their default with a warning.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.For("config").WithField("path", path).Info("config file not found, using defaults")
		return cfg, nil
	}

	raw, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	cfg.Raw = raw
	cfg.parseStorage(raw.Section("storage"))
	cfg.parseLogs(raw.Section("logs"))
	return cfg, nil
}

func (cfg *Config) parseStorage(section *ini.Section) {
	log := logger.For("config")

	cfg.DataDir = section.Key("data_dir").MustString(DefaultDataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	pages := section.Key("pool_pages").MustInt(buffer.DefaultPages)
	if pages <= 0 {
		log.WithField("pool_pages", section.Key("pool_pages").String()).
			Warnf("invalid pool size, using %d", buffer.DefaultPages)
		pages = buffer.DefaultPages
	}
	cfg.PoolPages = pages

	cfg.SyncWrites = section.Key("sync_writes").MustBool(true)
}

func (cfg *Config) parseLogs(section *ini.Section) {
	level := section.Key("log_level").MustString(DefaultLevel)
	if _, ok := logger.ParseLevel(level); !ok {
		logger.For("config").WithField("log_level", level).Warn("unknown log level, using info")
		level = DefaultLevel
	}
	cfg.Log = logger.Config{
		Level: level,
		File:  section.Key("log_file").String(),
	}
}
