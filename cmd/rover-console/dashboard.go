package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rover-console/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for recorded telemetry",
	Long:  "dashboard writes Grafana dashboard JSON for the GreptimeDB telemetry table. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		paths, err := dashboard.Render(dashboardOut, dashboard.Params{
			RoverID: cfg.RoverID,
			Table:   cfg.Record.Greptime.Table,
		})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
