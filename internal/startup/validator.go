// Package startup validates the runtime environment before the API server
// begins accepting traffic. Checks run independently so a single pass reports
// every problem at once; failures split into hard errors that stop startup
// and warnings that only degrade features.
package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wayfarerlabs/wayfarer/internal/config"
)

const (
	llmProbeTimeout  = 10 * time.Second
	probeDestination = "Berlin"
	probeFailurePre  = "Could not find coordinates"
	logProbeFileName = ".write-probe"
	llmProbePrompt   = "Reply with the single word: ok"
)

// Generator is the minimal model surface the validator probes.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// WeatherProber covers the outbound weather and geocoding checks.
type WeatherProber interface {
	CurrentConditions(ctx context.Context, destinationName string) (string, bool)
}

// Validator runs the environment checks. Nil optional dependencies skip
// their checks with a warning rather than failing.
type Validator struct {
	Config    config.AppConfig
	Database  *gorm.DB
	Generator Generator
	Weather   WeatherProber
	Logger    *zap.Logger
}

type checkResult struct {
	name    string
	err     error
	warning bool
}

// Run executes every check, logs each outcome, and returns an error naming
// the hard failures. Warnings never fail the run.
func (v *Validator) Run(ctx context.Context) error {
	logger := v.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := []checkResult{
		v.checkRequiredConfig(),
		v.checkDatabase(ctx),
		v.checkModel(ctx),
		v.checkWeather(ctx),
		v.checkLogDirectory(),
	}

	var failures []string
	for _, result := range results {
		switch {
		case result.err == nil:
			logger.Info("startup check passed", zap.String("check", result.name))
		case result.warning:
			logger.Warn("startup check degraded",
				zap.String("check", result.name),
				zap.Error(result.err))
		default:
			logger.Error("startup check failed",
				zap.String("check", result.name),
				zap.Error(result.err))
			failures = append(failures, fmt.Sprintf("%s: %v", result.name, result.err))
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("startup validation failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (v *Validator) checkRequiredConfig() checkResult {
	var missing []string
	if strings.TrimSpace(v.Config.GeminiAPIKey) == "" {
		missing = append(missing, "gemini api key")
	}
	if strings.TrimSpace(v.Config.DatabaseDSN) == "" {
		missing = append(missing, "database dsn")
	}
	if len(missing) > 0 {
		return checkResult{name: "config", err: fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))}
	}
	return checkResult{name: "config"}
}

func (v *Validator) checkDatabase(ctx context.Context) checkResult {
	if v.Database == nil {
		return checkResult{name: "database", err: errors.New("database connection unavailable")}
	}
	sqlDB, err := v.Database.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return checkResult{name: "database", err: err}
	}
	return checkResult{name: "database"}
}

// checkModel issues a minimal completion. Timeouts are treated as transient
// and only warn; any other failure (bad key, rejected model) blocks startup.
func (v *Validator) checkModel(ctx context.Context) checkResult {
	if v.Generator == nil {
		return checkResult{name: "model", err: errors.New("model client not configured"), warning: true}
	}

	probeCtx, cancel := context.WithTimeout(ctx, llmProbeTimeout)
	defer cancel()

	if _, err := v.Generator.Complete(probeCtx, llmProbePrompt); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return checkResult{name: "model", err: err, warning: true}
		}
		return checkResult{name: "model", err: err}
	}
	return checkResult{name: "model"}
}

func (v *Validator) checkWeather(ctx context.Context) checkResult {
	if v.Weather == nil {
		return checkResult{name: "weather", err: errors.New("weather client not configured"), warning: true}
	}
	conditions, ok := v.Weather.CurrentConditions(ctx, probeDestination)
	if !ok {
		if strings.HasPrefix(conditions, probeFailurePre) {
			return checkResult{name: "weather", err: fmt.Errorf("geocoding unreachable: %s", conditions), warning: true}
		}
		return checkResult{name: "weather", err: fmt.Errorf("forecast unreachable: %s", conditions), warning: true}
	}
	return checkResult{name: "weather"}
}

func (v *Validator) checkLogDirectory() checkResult {
	dir := v.Config.LogDir
	if dir == "" {
		return checkResult{name: "log_directory"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return checkResult{name: "log_directory", err: err}
	}

	probe := filepath.Join(dir, logProbeFileName)
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return checkResult{name: "log_directory", err: err}
	}
	if err := os.Remove(probe); err != nil {
		return checkResult{name: "log_directory", err: err}
	}
	return checkResult{name: "log_directory"}
}
