package cmd

import (
	"context"
	"fmt"

	"example.com/backstage/services/laundry/internal/cache"
	"example.com/backstage/services/laundry/internal/progress"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var progressResetCmd = &cobra.Command{
	Use:   "progress-reset",
	Short: "Drop the stored item progress of every order",
	Long: `Clear the item progress key in Redis. Use it to start from fresh state when the stored
progress was written by an incompatible client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			return err
		}
		defer redisCache.Close()

		if err := resetProgress(cmd.Context(), redisCache, cfg.Progress.Key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cfg.Progress.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(progressResetCmd)
}

func resetProgress(ctx context.Context, c *cache.RedisCache, key string) error {
	if !c.Enabled() {
		return errors.New("redis is disabled, item progress is not persisted")
	}
	progress.NewTracker(progress.NewRedisStore(c, key)).Reset(ctx)
	return nil
}
