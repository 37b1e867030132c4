package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/laundry/internal/api"
	"example.com/backstage/services/laundry/internal/messaging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for orders, scheduling, routes and delivery tracking`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	infra, err := newInfrastructure(cfg)
	if err != nil {
		return err
	}
	defer infra.Close()
	infra.checkHealth(ctx)

	parser, err := tokenParser(cfg.Auth)
	if err != nil {
		return err
	}

	svc := newServices(cfg, infra)

	// Without a broker this process projects its own events
	if inline, ok := infra.bus.(*messaging.InlineBus); ok {
		log.Info().Msg("No message broker configured, projecting events in process")
		go func() {
			if err := inline.Consume(ctx, svc.processor.Handle); err != nil {
				log.Error().Err(err).Msg("Inline event consumer error")
			}
		}()
	}

	server := api.NewServer(cfg, api.Services{
		Orders:     svc.orders,
		Scheduling: svc.scheduling,
		Routing:    svc.routing,
		Tracking:   svc.tracking,
	}, parser, infra.tracer, infra.metrics)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
