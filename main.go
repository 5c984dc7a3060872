package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"nimblevision/config"
	"nimblevision/database"
	"nimblevision/middleware"
	"nimblevision/routes"
	"nimblevision/utils"
)

var rootCmd = &cobra.Command{
	Use:   "nimblevision",
	Short: "NimbleVision device and subscription portal API",
	// Default to serve when no subcommand is given
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootstrap(); err != nil {
			return err
		}
		defer shutdownDatabases()
		return database.RunMigrations()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootstrap(); err != nil {
			return err
		}
		defer shutdownDatabases()
		return database.RollbackMigrations()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample admin, user, plans and cities",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootstrap(); err != nil {
			return err
		}
		defer shutdownDatabases()
		if err := database.RunMigrations(); err != nil {
			return err
		}
		return database.Seed(database.DB)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens both database handles
func bootstrap() error {
	envErr := godotenv.Load()

	if err := config.InitConfig(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	utils.InitLogger(config.AppConfig.LogLevel, config.IsDevelopment())
	if envErr != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	if err := database.InitDB(); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if err := database.InitLegacyDB(); err != nil {
		return fmt.Errorf("initialize legacy database: %w", err)
	}
	return nil
}

func shutdownDatabases() {
	if err := database.CloseLegacyDB(); err != nil {
		log.Warn().Err(err).Msg("Failed to close legacy database")
	}
	if err := database.CloseDB(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := bootstrap(); err != nil {
		return err
	}
	defer shutdownDatabases()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	cfg := config.AppConfig
	if err := utils.InitMailer(cfg); err != nil {
		log.Warn().Err(err).Msg("Mailer not configured, outgoing mail disabled")
	}
	if err := utils.InitDevicePublisher(cfg); err != nil {
		log.Warn().Err(err).Str("broker", cfg.DeviceBroker).Msg("Device broker unavailable, commands will not be sent")
	}
	defer utils.Devices.Close()
	utils.InitPayments(cfg)

	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(ctx, 5*time.Minute)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      routes.NewRouter(limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
