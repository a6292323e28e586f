package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Baaaki/roomchat/internal/config"
	"github.com/Baaaki/roomchat/internal/database"
	"github.com/Baaaki/roomchat/internal/server"
	"github.com/Baaaki/roomchat/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFiles []string
	port     string
	cfg      *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "roomchat",
		Short: "Room-based chat server with REST history and WebSocket delivery",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFiles...)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.ServerPort = port
			}

			if err := logger.Init(!cfg.IsProduction()); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv file(s) to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&port, "port", "", "listen address, overrides SERVER_PORT (e.g. :5000)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and WebSocket server",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the message table and exit",
			RunE:  runMigrate,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg)
	if err != nil {
		logger.Log.Error("Failed to initialize server", zap.Error(err))
		return err
	}

	if err := app.Run(ctx); err != nil {
		logger.Log.Error("Server exited with error", zap.Error(err))
		return err
	}

	logger.Log.Info("Server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return database.Migrate(db)
}
