// Command ftpctl runs the operational tasks of the takeaway API: schema
// migrations, seeding, and guest profile maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ftp-kitchen/api/internal/cache"
	"github.com/ftp-kitchen/api/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "ftpctl",
	Short:         "Admin tasks for the takeaway order API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ftpctl.yaml)")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL of the stats cache to clear after writes (env REDIS_URL)")
	viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newMigrateCmd(), newSeedCmd(), newMigrateGuestsCmd(), newRollupCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("ftpctl")
	}

	// database-url reads DATABASE_URL and so on.
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// databaseURL prefers the flag, env, or config file value and falls back to
// the server's configuration.
func databaseURL() string {
	if v := viper.GetString("database-url"); v != "" {
		return v
	}
	return config.Load().DatabaseURL
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// openStatsCache returns nil when no Redis URL is configured.
func openStatsCache(ctx context.Context) (*cache.StatsCache, error) {
	url := viper.GetString("redis-url")
	if url == "" {
		return nil, nil
	}
	return cache.New(ctx, url, 0)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
