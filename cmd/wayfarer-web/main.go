package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wayfarerlabs/wayfarer/internal/config"
	"github.com/wayfarerlabs/wayfarer/internal/logging"
	"github.com/wayfarerlabs/wayfarer/internal/webui"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wayfarer-web",
		Short: "Wayfarer travel advisor web frontend",
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
	cmd.PersistentFlags().String("web-address", defaults.GetString("web.address"), "HTTP listen address")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("web.api_base_url"), "Base URL of the travel API")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-dir", defaults.GetString("log.dir"), "Directory for log files")

	bindFlag(cmd, "web.address", "web-address")
	bindFlag(cmd, "web.api_base_url", "api-base-url")
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

	handler, err := webui.NewHTTPHandler(webui.Dependencies{
		API:      webui.NewClient(appConfig.APIBaseURL, nil),
		Sessions: webui.NewSessionStore(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.WebAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web server starting", zap.String("address", appConfig.WebAddress))
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
