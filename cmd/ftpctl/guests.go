package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMigrateGuestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-guests",
		Short: "Link orders without a guest profile to profiles matched or created by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGuestService(cmd.Context(), func(ctx context.Context, queries *database.Queries, guests *service.GuestService) error {
				actor, err := queries.GetUserByEmail(ctx, viper.GetString("actor-email"))
				if err != nil {
					return fmt.Errorf("look up actor %s: %w", viper.GetString("actor-email"), err)
				}
				n, err := guests.LinkUnassignedOrders(ctx, actor.ID)
				if err != nil {
					return err
				}
				log.Printf("Linked %d orders to guest profiles", n)
				return nil
			})
		},
	}
	cmd.Flags().String("actor-email", "admin@ftp.local", "staff user recorded as the author of created profiles")
	viper.BindPFlag("actor-email", cmd.Flags().Lookup("actor-email"))
	return cmd
}

func newRollupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollup",
		Short: "Recompute order count, spend and last order date for every guest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGuestService(cmd.Context(), func(ctx context.Context, _ *database.Queries, guests *service.GuestService) error {
				n, err := guests.RollupAll(ctx)
				if err != nil {
					return err
				}
				log.Printf("Recomputed statistics for %d guests", n)
				return nil
			})
		},
	}
}

// withGuestService wires a GuestService on a fresh pool. When a stats cache
// is configured it is cleared after guest writes.
func withGuestService(ctx context.Context, fn func(context.Context, *database.Queries, *service.GuestService) error) error {
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	queries := database.New(pool)
	guests := service.NewGuestService(queries, service.NewAuditRecorder(queries))

	statsCache, err := openStatsCache(ctx)
	if err != nil {
		log.Printf("WARN: stats cache unavailable: %v", err)
	} else if statsCache != nil {
		defer statsCache.Close()
		guests.SetStatsInvalidator(statsCache)
	}

	return fn(ctx, queries, guests)
}
