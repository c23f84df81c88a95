package startup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/wayfarerlabs/wayfarer/internal/config"
)

type probeGenerator struct {
	err error
}

func (g *probeGenerator) Complete(context.Context, string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "ok", nil
}

type probeWeather struct {
	conditions string
	ok         bool
}

func (w *probeWeather) CurrentConditions(context.Context, string) (string, bool) {
	return w.conditions, w.ok
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:startup_validator?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	return db
}

func healthyConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		GeminiAPIKey: "test-key",
		DatabaseDSN:  "wayfarer.db",
		LogDir:       t.TempDir(),
	}
}

func TestRunPassesWithHealthyEnvironment(t *testing.T) {
	validator := &Validator{
		Config:    healthyConfig(t),
		Database:  openTestDatabase(t),
		Generator: &probeGenerator{},
		Weather:   &probeWeather{conditions: "Current weather in Berlin: Clear sky, Temperature: 18°C", ok: true},
	}

	if err := validator.Run(context.Background()); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
}

func TestRunFailsOnMissingRequiredConfig(t *testing.T) {
	cfg := healthyConfig(t)
	cfg.GeminiAPIKey = ""
	validator := &Validator{
		Config:    cfg,
		Database:  openTestDatabase(t),
		Generator: &probeGenerator{},
		Weather:   &probeWeather{ok: true},
	}

	err := validator.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure for missing api key")
	}
	if !strings.Contains(err.Error(), "gemini api key") {
		t.Fatalf("expected api key named in failure, got %v", err)
	}
}

func TestRunFailsOnModelAuthError(t *testing.T) {
	validator := &Validator{
		Config:    healthyConfig(t),
		Database:  openTestDatabase(t),
		Generator: &probeGenerator{err: errors.New("invalid api key")},
		Weather:   &probeWeather{ok: true},
	}

	err := validator.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure for model auth error")
	}
	if !strings.Contains(err.Error(), "model") {
		t.Fatalf("expected model check named in failure, got %v", err)
	}
}

func TestRunTreatsModelTimeoutAsWarning(t *testing.T) {
	validator := &Validator{
		Config:    healthyConfig(t),
		Database:  openTestDatabase(t),
		Generator: &probeGenerator{err: context.DeadlineExceeded},
		Weather:   &probeWeather{ok: true},
	}

	if err := validator.Run(context.Background()); err != nil {
		t.Fatalf("model timeout must only warn, got %v", err)
	}
}

func TestRunTreatsWeatherFailureAsWarning(t *testing.T) {
	validator := &Validator{
		Config:    healthyConfig(t),
		Database:  openTestDatabase(t),
		Generator: &probeGenerator{},
		Weather:   &probeWeather{conditions: "Weather service timeout for Berlin", ok: false},
	}

	if err := validator.Run(context.Background()); err != nil {
		t.Fatalf("weather failure must only warn, got %v", err)
	}
}

func TestRunFailsOnUnwritableLogDirectory(t *testing.T) {
	cfg := healthyConfig(t)
	// A file where the directory should be makes MkdirAll fail.
	cfg.LogDir = filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(cfg.LogDir, []byte("blocker"), 0o644); err != nil {
		t.Fatalf("failed to prepare blocking file: %v", err)
	}

	validator := &Validator{
		Config:    cfg,
		Database:  openTestDatabase(t),
		Generator: &probeGenerator{},
		Weather:   &probeWeather{ok: true},
	}

	err := validator.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure for unwritable log directory")
	}
	if !strings.Contains(err.Error(), "log_directory") {
		t.Fatalf("expected log_directory named in failure, got %v", err)
	}
}

func TestRunFailsWithoutDatabase(t *testing.T) {
	validator := &Validator{
		Config:    healthyConfig(t),
		Generator: &probeGenerator{},
		Weather:   &probeWeather{ok: true},
	}

	err := validator.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure without database")
	}
	if !strings.Contains(err.Error(), "database") {
		t.Fatalf("expected database check named in failure, got %v", err)
	}
}
