package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "wacrm/cmd/audience-api/docs"
	"wacrm/internal/config"
	"wacrm/internal/logger"
	"wacrm/pkg/logging"
)

const serviceName = "audience-api"

var (
	configFile string
)

// @title           Audience API
// @version         1.0
// @description     Contact search by audience filter and saved segment management for the WhatsApp CRM.

// @BasePath  /api/v1
// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Audience API for the WhatsApp CRM",
		Long:  "Audience API compiles audience filters into contact queries and manages saved segments",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the audience API",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(serviceName)

			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				earlyLog.Warn("Failed to load .env file: %v", err)
			}

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
				if configFile == "" {
					earlyLog.Warn("Config file is required. Use --config flag or CONFIG_FILE environment variable")
					return fmt.Errorf("config file is required")
				}
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				earlyLog.Warn("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Warn("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Audience API")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				_ = app.Shutdown(ctx)
				return err
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}
