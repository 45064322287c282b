package reconcile

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Thresholds defines mismatch tolerances. Amounts are KRW.
type Thresholds struct {
	AmountAbs int64 `yaml:"amount_abs"`
	MaxFlags  int   `yaml:"max_flags"`
}

// ScheduleConfig defines the daily run time (UTC, "15:04").
type ScheduleConfig struct {
	DailyAt string `yaml:"daily_at"`
}

// Config defines reconcile configuration.
type Config struct {
	Thresholds Thresholds     `yaml:"thresholds"`
	Schedule   ScheduleConfig `yaml:"schedule"`
	BatchSize  int            `yaml:"batch_size"`
}

// LoadConfig loads config from yaml when RECONCILE_CONFIG is set, with env
// fallbacks otherwise.
func LoadConfig() (Config, error) {
	cfg := Config{
		Thresholds: Thresholds{
			AmountAbs: 0,
			MaxFlags:  100,
		},
		BatchSize: 200,
	}

	if path := os.Getenv("RECONCILE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Schedule.DailyAt == "" {
		cfg.Schedule.DailyAt = getenvDefault("RECONCILE_DAILY_AT", "03:00")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if _, err := time.Parse("15:04", cfg.Schedule.DailyAt); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
