package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Database struct {
		DSN      string `env:"DB_DSN" envDefault:"file:data/layup.db?cache=shared"`
		MaxConns int    `env:"DB_MAX_CONNS" envDefault:"10"`
	}
	Annealing struct {
		Iterations         int     `env:"ANNEAL_ITERATIONS" envDefault:"10000"`
		InitialTemperature float64 `env:"ANNEAL_INITIAL_TEMP" envDefault:"1.0"`
		CoolingRate        float64 `env:"ANNEAL_COOLING_RATE" envDefault:"0.999"`
		ReportEvery        int     `env:"ANNEAL_REPORT_EVERY" envDefault:"1000"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	// The default DSN points at a file store; make sure the directory exists
	if cfg.Database.DSN == "file:data/layup.db?cache=shared" {
		if err := os.MkdirAll("data", 0o755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
