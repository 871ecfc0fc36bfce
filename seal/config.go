package seal

import (
	"encoding/json"
	"os"

	"github.com/iotaledger/seals.go/common"
	"go.uber.org/zap/zapcore"
	"golang.org/x/xerrors"
)

const hardMaxConcurrency = 1024

// Config of the Validator
type Config struct {
	// MaxConcurrency limits the number of seals of one batch validated in parallel
	MaxConcurrency int `json:"max_concurrency"`
	// RequireConfirmed ignores spends which are not confirmed yet
	RequireConfirmed bool `json:"require_confirmed"`
	// LogLevel is used by programs building the logger from the config
	LogLevel string `json:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   16,
		RequireConfirmed: false,
		LogLevel:         "info",
	}
}

func (c *Config) Validate() error {
	if c.MaxConcurrency < 1 || c.MaxConcurrency > hardMaxConcurrency {
		return xerrors.Errorf("max_concurrency must be in [1, %d]: %w", hardMaxConcurrency, common.ErrMalformedInput)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return xerrors.Errorf("log_level: %v: %w", err, common.ErrMalformedInput)
	}
	return nil
}

// Level is the parsed log level. The config must be valid
func (c *Config) Level() zapcore.Level {
	ret, err := zapcore.ParseLevel(c.LogLevel)
	common.Assert(err == nil, "seal config: %v", err)
	return ret
}

// LoadConfig reads the JSON file over the defaults
func LoadConfig(fname string) (Config, error) {
	ret := DefaultConfig()
	data, err := os.ReadFile(fname)
	if err != nil {
		return ret, err
	}
	if err = json.Unmarshal(data, &ret); err != nil {
		return ret, xerrors.Errorf("config %s: %v: %w", fname, err, common.ErrMalformedInput)
	}
	if err = ret.Validate(); err != nil {
		return ret, xerrors.Errorf("config %s: %w", fname, err)
	}
	return ret, nil
}
