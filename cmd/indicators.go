package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tenderwatch/risk-cli/internal/config"
	"github.com/tenderwatch/risk-cli/internal/indicator"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "List the indicator catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Listing needs no database; the registry is pure metadata here.
		reg := indicator.NewRegistry(nil, config.EngineConfig{})

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCATEGORY\tTHRESHOLD\tDEFAULT WEIGHT\tSTATUS")
		for _, in := range reg.All() {
			status := "active"
			if in.Stub() {
				status = "stub"
			}
			fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.0f\t%s\n",
				in.Name(), in.Category(), in.Threshold(), in.DefaultWeight(), status)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(indicatorsCmd)
}
