package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/ipv4-deal-os/internal/config"
	"github.com/timmy/ipv4-deal-os/internal/logger"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate and inspect the deal pipeline store",
	Long:  "Loads organizations, IP blocks, leads and routing snapshots from YAML fixtures and prints dashboard metrics.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetDefaultLogger(logger.NewFromEnv(logger.LoadFromEnv("dealos-seed")))

		path := configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./configs/config.yaml)")
	rootCmd.AddCommand(loadCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
