package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/timmy/ipv4-deal-os/internal/repository"
	"github.com/timmy/ipv4-deal-os/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print dashboard metrics for the configured store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return eris.Wrap(err, "seed status: init database")
		}

		metrics := service.NewMetricsService(
			repository.NewLeadRepository(db),
			repository.NewInventoryRepository(db),
			&service.MetricsConfig{
				UnitPriceUSD:        cfg.Pipeline.UnitPriceUSD,
				UrgentFollowupLimit: cfg.Pipeline.UrgentFollowupLimit,
			},
			service.SystemClock,
		)
		m, err := metrics.Compute(ctx)
		if err != nil {
			return eris.Wrap(err, "seed status: compute metrics")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Inventory IPs\t%d\n", m.TotalInventoryIPs)
		fmt.Fprintf(w, "Inventory trend 30d\t%.2f%%\n", m.InventoryTrend30d)
		fmt.Fprintf(w, "Leads\t%d\n", m.ActiveLeads)
		fmt.Fprintf(w, "Conversion rate\t%.2f%%\n", m.ConversionRate)
		fmt.Fprintf(w, "Pipeline value\t$%.2f\n", m.PipelineValueUSD)
		fmt.Fprintf(w, "Routing shifts 24h\t%d\n", m.RoutingShifts24h)
		fmt.Fprintf(w, "New candidates 24h\t%d\n", m.NewCandidates24h)
		for _, l := range m.UrgentFollowups {
			fmt.Fprintf(w, "Follow up\t%s %s (%s, due %s)\n",
				l.OrgName, l.CIDR, l.Stage, l.NextActionDate.Format("2006-01-02"))
		}
		return w.Flush()
	},
}
