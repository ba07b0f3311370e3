package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chitieu/internal/backend"
	"chitieu/internal/cli"
	"chitieu/internal/config"
	"chitieu/internal/log"
)

var (
	appConfig *config.Config
	logger    *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chitieu",
	Short: "Offline-first personal expense tracker",
	Long:  `Track expenses against categories and a monthly limit, with a local cache that keeps working offline.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
		appConfig = config.Load()
		logger = cli.SetupLogger(appConfig.LogLevel)
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(sheetsCmd)
}

// openBackend validates the configuration and builds the backend. seed
// creates the demo account in the in-process remote.
func openBackend(ctx context.Context, seed bool) (*backend.Result, error) {
	if err := appConfig.Validate(); err != nil {
		return nil, err
	}
	bc, err := backend.FromAppConfig(appConfig)
	if err != nil {
		return nil, err
	}
	bc.SeedDemo = seed
	return backend.NewFactory(logger).Create(ctx, bc)
}
