package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/seed"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

var loadCmd = &cobra.Command{
	Use:   "load <fixture.yaml>",
	Short: "Load a YAML fixture into the store",
	Long:  "Upserts organizations and IP blocks and appends leads and routing snapshots. Block and lead sizes are derived from the CIDR prefix.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		file, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "seed load: open fixture")
		}
		defer file.Close()

		fixture, err := seed.ParseFixture(file)
		if err != nil {
			return err
		}

		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return eris.Wrap(err, "seed load: init database")
		}

		seeder := seed.NewSeeder(
			repository.NewInventoryRepository(db),
			repository.NewLeadRepository(db),
			service.SystemClock,
		)
		sum, err := seeder.Apply(ctx, fixture)
		if err != nil {
			return eris.Wrap(err, "seed load: apply fixture")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "organizations: %d\nblocks: %d\nleads: %d\nsnapshots: %d\n",
			sum.Organizations, sum.Blocks, sum.Leads, sum.Snapshots)
		return nil
	},
}
