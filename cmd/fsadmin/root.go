package main

import (
	"context"
	"fmt"
	"os"

	"fileshare/internal/app"
	"fileshare/internal/config"
	"fileshare/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagJSON    bool
	flagConfigs []string
	flagVerbose bool

	cfg *config.Config
	zl  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fsadmin",
	Short: "Administer a fileshare deployment",
	Long: `fsadmin talks to the fileshare database directly. It reads the same
settings.yml and environment as the server.

  fsadmin migrate
  fsadmin create-admin --email root@example.com --password s3cret!
  fsadmin list-users
  fsadmin change-role alice@example.com manager`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFrom(flagConfigs...)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagVerbose {
			zl = logger.New(cfg.Log.Production)
		} else {
			zl = zap.NewNop()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringSliceVar(&flagConfigs, "config-dir", []string{"./configs", "/configs"}, "Directories searched for settings.yml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log service activity")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// withApp connects to the database for the duration of fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
