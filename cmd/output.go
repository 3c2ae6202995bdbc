package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tenderwatch/risk-cli/internal/model"
)

// printer formats scores and monetary values with thousands separators for
// terminal output.
var printer = message.NewPrinter(language.English)

// renderComposite writes one composite score as a human-readable report:
// the headline, then the triggered indicators ranked, then untriggered
// non-stub indicators worth noting.
func renderComposite(w io.Writer, cs model.CompositeScore) {
	printer.Fprintf(w, "tender %s\n", cs.TenderID)
	printer.Fprintf(w, "risk score   %.1f (%s)\n", cs.Score, cs.Level)
	printer.Fprintf(w, "confidence   [%.1f, %.1f] %s uncertainty\n", cs.ConfidenceLow, cs.ConfidenceHigh, cs.Uncertainty)
	printer.Fprintf(w, "completeness %.0f%%  weights v%d\n\n", cs.Completeness*100, cs.WeightsVersion)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDICATOR\tCATEGORY\tSCORE\tWEIGHT\tTRIGGERED\tDETAIL")
	for _, r := range cs.Results {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.2f\t%v\t%s\n",
			r.Indicator, r.Category, r.Score, r.Weight, r.Triggered, r.Description)
	}
	tw.Flush()
}

// writeCompositeCSV emits one row per indicator result across all scores.
func writeCompositeCSV(w io.Writer, scores []model.CompositeScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"tender_id", "composite_score", "risk_level", "weights_version",
		"indicator", "category", "score", "weight", "triggered", "confidence", "description",
	}); err != nil {
		return err
	}
	for _, cs := range scores {
		for _, r := range cs.Results {
			rec := []string{
				cs.TenderID,
				strconv.FormatFloat(cs.Score, 'f', 2, 64),
				string(cs.Level),
				strconv.FormatInt(cs.WeightsVersion, 10),
				r.Indicator,
				string(r.Category),
				strconv.FormatFloat(r.Score, 'f', 2, 64),
				strconv.FormatFloat(r.Weight, 'f', 3, 64),
				strconv.FormatBool(r.Triggered),
				strconv.FormatFloat(r.Confidence, 'f', 3, 64),
				r.Description,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
