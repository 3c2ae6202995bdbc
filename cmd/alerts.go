package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/alerting"
	"github.com/tenderwatch/risk-cli/internal/db"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate and inspect subscription alerts",
}

var alertsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one alert evaluation pass",
	Long:  "Matches composite scores computed since the checkpoint against active subscriptions and creates alerts. Safe to retry; each (subscription, tender) pair alerts at most once.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := requireSchema(ctx, pool); err != nil {
			return err
		}

		sum, err := newEvaluator(pool).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "alerts run")
		}
		return reportAlertSummary(cmd, sum)
	},
}

var alertsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run alert evaluation on a schedule",
	Long:  "Runs evaluation passes on the configured cron schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		ev := newEvaluator(pool)
		log := zap.L().With(zap.String("component", "alerts.watch"))

		c := cron.New()
		_, err = c.AddFunc(cfg.Alerting.CronSpec, func() {
			sum, err := ev.Run(ctx)
			if err != nil {
				log.Error("scheduled alert run failed", zap.Error(err))
				return
			}
			log.Info("scheduled alert run done",
				zap.Int("created", sum.Created), zap.Int("errors", sum.Errors))
		})
		if err != nil {
			return eris.Wrapf(err, "alerts watch: invalid cron spec %q", cfg.Alerting.CronSpec)
		}

		log.Info("alert watcher started", zap.String("cron", cfg.Alerting.CronSpec))
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info("alert watcher stopped")
		return nil
	},
}

var alertsSubsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List alert subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		subs, err := alerting.LoadSubscriptions(ctx, pool, false)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSER\tACTIVE\tMIN SCORE\tCATEGORIES\tENTITY\tCPV")
		for _, s := range subs {
			entity, cpv := "*", "*"
			if s.EntityFilter != nil {
				entity = *s.EntityFilter
			}
			if s.CPVFilter != nil {
				cpv = *s.CPVFilter
			}
			cats := "*"
			if len(s.IndicatorFilter) > 0 {
				cats = fmt.Sprintf("%v", s.IndicatorFilter)
			}
			fmt.Fprintf(tw, "%d\t%s\t%v\t%.0f\t%s\t%s\t%s\n",
				s.ID, s.UserRef, s.Active, s.MinScore, cats, entity, cpv)
		}
		return tw.Flush()
	},
}

// reportAlertSummary writes the run summary. Item-level errors are carried
// inside the summary; only infrastructure failures exit non-zero.
func reportAlertSummary(cmd *cobra.Command, sum alerting.Summary) error {
	if sum.Errors > 0 {
		zap.L().Warn("alert run finished with item errors",
			zap.Int("errors", sum.Errors), zap.Int("created", sum.Created))
	}
	return writeJSON(cmd.OutOrStdout(), sum)
}

func newEvaluator(pool db.Pool) *alerting.Evaluator {
	notifier := alerting.NewNotifier(cfg.Alerting.WebhookURL, cfg.Alerting.WebhookRatePerSec)
	return alerting.NewEvaluator(pool, cfg.Alerting, cfg.Engine.MinCompleteness, notifier)
}

func init() {
	alertsCmd.AddCommand(alertsRunCmd)
	alertsCmd.AddCommand(alertsWatchCmd)
	alertsCmd.AddCommand(alertsSubsCmd)
	rootCmd.AddCommand(alertsCmd)
}
