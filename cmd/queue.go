package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/calibrate"
	"github.com/tenderwatch/risk-cli/internal/cri"
	"github.com/tenderwatch/risk-cli/internal/model"
	"github.com/tenderwatch/risk-cli/internal/sampler"
)

var (
	queueListLimit int
	labelNotes     []string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the expert review queue",
}

var queueRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute the review queue from latest scores",
	Long:  "Ranks unlabeled scored tenders by labeling value (boundary proximity, interval width, indicator disagreement) and rebuilds the queue.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := sampler.New(pool, cfg.Sampler).RefreshQueue(ctx)
		if err != nil {
			return eris.Wrap(err, "queue refresh")
		}
		zap.L().Info("queue refreshed", zap.Int("items", n))
		return nil
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the review queue in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		items, err := sampler.New(pool, cfg.Sampler).QueueItems(ctx, queueListLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TENDER\tPRIORITY\tREASON\tQUEUED")
		for _, item := range items {
			fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n",
				item.TenderID, item.Priority, item.Reason, item.QueuedAt.Format("2006-01-02"))
		}
		return tw.Flush()
	},
}

var queueLabelCmd = &cobra.Command{
	Use:   "label <tender-id> <corrupt|clean|inconclusive>",
	Short: "Record an expert verdict for a scored tender",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tenderID := args[0]

		verdict := model.Verdict(args[1])
		switch verdict {
		case model.VerdictCorrupt, model.VerdictClean, model.VerdictInconclusive:
		default:
			return eris.Errorf("queue label: unknown verdict %q", args[1])
		}

		notes := make(map[string]string, len(labelNotes))
		for _, kv := range labelNotes {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return eris.Errorf("queue label: note %q is not indicator=comment", kv)
			}
			notes[k] = v
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		// The verdict attaches to the tender's persisted scoring run so
		// calibration later compares trigger patterns under the same weights.
		cs, err := cri.Load(ctx, pool, tenderID)
		if err != nil {
			return eris.Wrapf(err, "queue label: tender %s has no persisted score", tenderID)
		}

		if err := calibrate.SaveVerdict(ctx, pool, model.ExpertVerdict{
			TenderID:       tenderID,
			WeightsVersion: cs.WeightsVersion,
			Verdict:        verdict,
			Notes:          notes,
		}); err != nil {
			return err
		}

		if _, err := pool.Exec(ctx,
			"DELETE FROM risk.review_queue WHERE tender_id = $1", tenderID); err != nil {
			return eris.Wrap(err, "queue label: dequeue tender")
		}

		zap.L().Info("verdict recorded",
			zap.String("tender_id", tenderID),
			zap.String("verdict", string(verdict)),
			zap.Int64("weights_version", cs.WeightsVersion))
		return nil
	},
}

func init() {
	queueListCmd.Flags().IntVar(&queueListLimit, "limit", 50, "max items to show")
	queueLabelCmd.Flags().StringArrayVar(&labelNotes, "note", nil, "indicator=comment agreement note (repeatable)")
	queueCmd.AddCommand(queueRefreshCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueLabelCmd)
	rootCmd.AddCommand(queueCmd)
}
