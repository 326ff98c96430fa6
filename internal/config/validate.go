package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var logFormats = map[string]bool{"text": true, "json": true}

// Validate checks the structural validity of a Config. It collects all
// problems rather than stopping at the first one.
func Validate(cfg *Config) error {
	var errs []error

	if !logLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	if !logFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("config: logging.format %q is not one of text, json", cfg.Logging.Format))
	}

	if cfg.Provider.BaseURL == "" {
		errs = append(errs, errors.New("config: provider.base_url is required"))
	}
	if cfg.Provider.Model == "" {
		errs = append(errs, errors.New("config: provider.model is required"))
	}
	if cfg.Provider.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("config: provider.max_tokens must not be negative, got %d", cfg.Provider.MaxTokens))
	}
	errs = append(errs, validateDuration("provider.timeout", cfg.Provider.Timeout)...)

	errs = append(errs, validateDuration("memory.busy_timeout", cfg.Memory.BusyTimeout)...)
	if cfg.Sessions.Max < 0 {
		errs = append(errs, fmt.Errorf("config: sessions.max must not be negative, got %d", cfg.Sessions.Max))
	}
	errs = append(errs, validateDuration("sessions.max_idle", cfg.Sessions.MaxIdle)...)

	if cfg.Gateway.Listen == "" {
		errs = append(errs, errors.New("config: gateway.listen is required"))
	}
	errs = append(errs, validateDuration("gateway.read_timeout", cfg.Gateway.ReadTimeout)...)
	errs = append(errs, validateDuration("gateway.write_timeout", cfg.Gateway.WriteTimeout)...)

	errs = append(errs, validateSchedule("jobs.session_prune", cfg.Jobs.SessionPrune)...)
	errs = append(errs, validateSchedule("jobs.wal_checkpoint", cfg.Jobs.WALCheckpoint)...)

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("config: tracing.endpoint is required when tracing is enabled"))
	}

	return errors.Join(errs...)
}

// validateDuration checks a Go duration string. Empty is allowed: the
// accessor falls back to its default.
func validateDuration(field, value string) []error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("config: %s: invalid duration %q", field, value)}
	}
	if d < 0 {
		return []error{fmt.Errorf("config: %s must not be negative, got %s", field, value)}
	}
	return nil
}

// validateSchedule parses a cron expression with the standard parser
// (the one the scheduler runs with). Empty is allowed; Defaults fills it.
func validateSchedule(field, expr string) []error {
	if expr == "" {
		return nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return []error{fmt.Errorf("config: %s: invalid cron expression %q: %v", field, expr, err)}
	}
	return nil
}
