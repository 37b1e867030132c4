package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/services/laundry/internal/messaging"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/poll"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker to project order events into the search index,
reconcile the index periodically and keep the pending scheduling requests cache warm`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	svc := newServices(cfg, infra)

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	if _, ok := infra.bus.(*messaging.InlineBus); ok {
		log.Warn().Msg("No message broker configured, the worker only runs scheduled jobs")
	} else {
		g.Go(func() error {
			log.Info().Str("driver", cfg.Messaging.Driver).Msg("Starting order event consumer")
			return infra.bus.Consume(ctx, svc.processor.Handle)
		})
	}

	// Reindex every order as a fallback for missed events
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Scheduling.ReconcileInterval),
			gocron.NewTask(func() {
				log.Info().Msg("Running search index reconciliation")
				n, err := svc.projection.Reconcile(ctx)
				if err != nil {
					log.Error().Err(err).Int("indexed", n).Msg("Failed to reconcile search index")
					return
				}
				log.Info().Int("indexed", n).Msg("Search index reconciled")
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	g.Go(func() error {
		poller := poll.New("pending-requests", cfg.Scheduling.PendingPollInterval,
			svc.scheduling.LoadPending,
			func(pending []models.SchedulingRequest) {
				svc.scheduling.StorePending(ctx, pending)
			})
		return poller.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
