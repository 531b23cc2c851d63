package config

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/docker/go-units"
	"github.com/pkg/errors"

	epub "github.com/simp-lee/epubindex"
)

type Config struct {
	Logger  Logger  `envPrefix:"LOGGER_"`
	Extract Extract `envPrefix:"EXTRACT_"`
	Search  Search  `envPrefix:"SEARCH_"`
}

type Logger struct {
	Level slog.Level `env:"LEVEL" envDefault:"info"`
}

type Extract struct {
	TempDir      string   `env:"TEMP_DIR,expand"`
	MaxEntrySize ByteSize `env:"MAX_ENTRY_SIZE" envDefault:"256MiB"`
	MaxTotalSize ByteSize `env:"MAX_TOTAL_SIZE" envDefault:"1GiB"`
	MaxEntries   int      `env:"MAX_ENTRIES" envDefault:"10000"`
}

type Search struct {
	CacheSize int `env:"CACHE_SIZE" envDefault:"64"`
}

// ByteSize is a size in bytes read from strings such as "64MiB" or "1g".
type ByteSize int64

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := units.RAMInBytes(string(text))
	if err != nil {
		return errors.WithStack(err)
	}
	if n < 0 {
		return errors.Errorf("negative size '%s'", text)
	}
	*b = ByteSize(n)
	return nil
}

func Parse() (*Config, error) {
	conf, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix: "EPUBINDEX_",
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &conf, nil
}

// Options converts the configuration into document options.
func (c *Config) Options() []epub.Option {
	return []epub.Option{
		epub.WithTempDir(c.Extract.TempDir),
		epub.WithMaxEntrySize(int64(c.Extract.MaxEntrySize)),
		epub.WithMaxTotalSize(int64(c.Extract.MaxTotalSize)),
		epub.WithMaxEntries(c.Extract.MaxEntries),
		epub.WithSearchCacheSize(c.Search.CacheSize),
	}
}
