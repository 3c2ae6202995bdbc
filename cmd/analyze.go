package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenderwatch/risk-cli/internal/calibrate"
	"github.com/tenderwatch/risk-cli/internal/cri"
	"github.com/tenderwatch/risk-cli/internal/model"
)

var (
	analyzeSave   bool
	analyzeFormat string
	analyzeIDFile string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [tender-id...]",
	Short: "Score tenders against the indicator catalog",
	Long:  "Evaluates every indicator against the named tenders and reports the composite risk score. Multiple IDs run as a bounded-concurrency batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ids, err := collectTenderIDs(args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return eris.New("analyze: no tender IDs given (pass them as args or via --ids-file)")
		}

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := requireSchema(ctx, pool); err != nil {
			return err
		}

		weights, err := calibrate.CurrentWeights(ctx, pool)
		if err != nil {
			return err
		}

		engine := cri.NewEngine(pool, cfg.Engine)

		if len(ids) == 1 {
			cs, err := engine.Analyze(ctx, ids[0], weights)
			if err != nil {
				return eris.Wrapf(err, "analyze %s", ids[0])
			}
			if analyzeSave {
				if err := cri.Persist(ctx, pool, cs); err != nil {
					return err
				}
			}
			return renderScores(cmd, []model.CompositeScore{cs})
		}

		bctx, cancel := context.WithTimeout(ctx, cfg.Engine.BatchTimeout())
		defer cancel()

		sum, err := engine.AnalyzeBatch(bctx, ids, weights, analyzeSave)
		if err != nil {
			return eris.Wrap(err, "analyze batch")
		}
		zap.L().Info("batch complete",
			zap.Int("scored", len(sum.Scored)),
			zap.Int("failed", sum.Failed))

		return renderScores(cmd, sum.Scored)
	},
}

func renderScores(cmd *cobra.Command, scores []model.CompositeScore) error {
	out := cmd.OutOrStdout()
	switch analyzeFormat {
	case "table":
		for i, cs := range scores {
			if i > 0 {
				printer.Fprintf(out, "\n")
			}
			renderComposite(out, cs)
		}
		return nil
	case "csv":
		return writeCompositeCSV(out, scores)
	case "json":
		return writeJSON(out, scores)
	default:
		return eris.Errorf("analyze: unknown format %q (want table, csv or json)", analyzeFormat)
	}
}

// collectTenderIDs merges positional IDs with an optional newline-delimited
// file, deduplicating while preserving order.
func collectTenderIDs(args []string) ([]string, error) {
	ids := append([]string(nil), args...)

	if analyzeIDFile != "" {
		f, err := os.Open(analyzeIDFile)
		if err != nil {
			return nil, eris.Wrap(err, "analyze: open ids file")
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if id := strings.TrimSpace(sc.Text()); id != "" && !strings.HasPrefix(id, "#") {
				ids = append(ids, id)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, eris.Wrap(err, "analyze: read ids file")
		}
	}

	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist scores and indicator snapshots")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format: table, csv or json")
	analyzeCmd.Flags().StringVar(&analyzeIDFile, "ids-file", "", "newline-delimited file of tender IDs")
	rootCmd.AddCommand(analyzeCmd)
}
