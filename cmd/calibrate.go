package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tenderwatch/risk-cli/internal/calibrate"
)

var calibrateHistoryLimit int

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Manage learned indicator weights",
}

var calibrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Recalibrate weights from accumulated expert verdicts",
	Long:  "Reads verdicts recorded since the current weight vector was created and, if the batch is large enough with both classes present, activates a new vector. Otherwise reports why nothing changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		out, err := calibrate.NewCalibrator(pool, cfg.Calibration).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "calibrate run")
		}
		return writeJSON(cmd.OutOrStdout(), out)
	},
}

var calibrateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show weight vector history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		vectors, err := calibrate.History(ctx, pool, calibrateHistoryLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSOURCE\tBATCH\tCREATED\tCURRENT")
		for _, wv := range vectors {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%v\n",
				wv.Version, wv.Source, wv.FeedbackBatchSize,
				wv.CreatedAt.Format("2006-01-02 15:04"), wv.Current)
		}
		return tw.Flush()
	},
}

func init() {
	calibrateHistoryCmd.Flags().IntVar(&calibrateHistoryLimit, "limit", 20, "max vectors to show")
	calibrateCmd.AddCommand(calibrateRunCmd)
	calibrateCmd.AddCommand(calibrateHistoryCmd)
	rootCmd.AddCommand(calibrateCmd)
}
