package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wayfarerlabs/wayfarer/internal/advisor"
	"github.com/wayfarerlabs/wayfarer/internal/config"
	"github.com/wayfarerlabs/wayfarer/internal/database"
	"github.com/wayfarerlabs/wayfarer/internal/logging"
	"github.com/wayfarerlabs/wayfarer/internal/metrics"
	"github.com/wayfarerlabs/wayfarer/internal/ratelimit"
	"github.com/wayfarerlabs/wayfarer/internal/server"
	"github.com/wayfarerlabs/wayfarer/internal/startup"
	"github.com/wayfarerlabs/wayfarer/internal/travel"
	"github.com/wayfarerlabs/wayfarer/internal/weather"
)

var cfgFile string

// meteredWeather counts lookup outcomes on its way through to the client.
type meteredWeather struct {
	inner     advisor.WeatherProvider
	collector *metrics.Collector
}

func (m *meteredWeather) CurrentConditions(ctx context.Context, destinationName string) (string, bool) {
	conditions, ok := m.inner.CurrentConditions(ctx, destinationName)
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.collector.WeatherLookups.WithLabelValues(outcome).Inc()
	return conditions, ok
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "wayfarer-api",
		Short: "Wayfarer travel advisor API service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Database DSN (SQLite path or postgres URL)")
	cmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key (overrides env)")
	cmd.PersistentFlags().String("gemini-model", defaults.GetString("gemini.model"), "Gemini model identifier")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-dir", defaults.GetString("log.dir"), "Directory for log files")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "gemini.api_key", "gemini-api-key")
	bindFlag(cmd, "gemini.model", "gemini-model")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.dir", "log-dir")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogDir)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	collector := metrics.NewCollector("wayfarer")

	weatherClient := weather.NewClient(weather.ClientConfig{
		GeocodeBaseURL: appConfig.GeocodeBaseURL,
		WeatherBaseURL: appConfig.WeatherBaseURL,
		Logger:         logger,
	})
	meteredWeatherClient := &meteredWeather{inner: weatherClient, collector: collector}

	generator, embedder, err := advisor.InitGenkit(ctx, advisor.GenkitConfig{
		APIKey:        appConfig.GeminiAPIKey,
		Model:         appConfig.GeminiModel,
		EmbedderModel: appConfig.EmbedderModel,
		Weather:       meteredWeatherClient,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	validator := &startup.Validator{
		Config:    appConfig,
		Database:  db,
		Generator: generator,
		Weather:   weatherClient,
		Logger:    logger,
	}
	if err := validator.Run(ctx); err != nil {
		return err
	}

	travelService, err := travel.NewService(travel.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	advisorService, err := advisor.NewService(advisor.ServiceConfig{
		Repository: travelService,
		Embedder:   embedder,
		Generator:  generator,
		Weather:    meteredWeatherClient,
		Logger:     logger,
		Pacer:      rate.NewLimiter(rate.Limit(1), 5),
		Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gemini",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TravelService: travelService,
		Advisor:       advisorService,
		Database:      db,
		CRUDLimiter:   ratelimit.NewLimiter(appConfig.CRUDRequestsPerHour, appConfig.RateLimitWindow),
		AILimiter:     ratelimit.NewLimiter(appConfig.AIRequestsPerHour, appConfig.RateLimitWindow),
		Metrics:       collector,
		Logger:        logger,
		TrustProxy:    appConfig.TrustProxyHeaders,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
