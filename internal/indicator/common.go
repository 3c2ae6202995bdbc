package indicator

import (
	"strings"

	"github.com/montanaflynn/stats"
)

// Value brackets for MKD-denominated tenders. Bounds are the engine's
// cold-start assumptions about what a competitive market looks like at
// each contract size.
type valueBracket struct {
	Name          string
	UpperMKD      float64
	MinBidders    int
	MinWindowDays float64
}

var valueBrackets = []valueBracket{
	{Name: "small", UpperMKD: 1_000_000, MinBidders: 2, MinWindowDays: 10},
	{Name: "medium", UpperMKD: 10_000_000, MinBidders: 3, MinWindowDays: 15},
	{Name: "large", UpperMKD: 60_000_000, MinBidders: 4, MinWindowDays: 25},
	{Name: "major", UpperMKD: 0, MinBidders: 5, MinWindowDays: 35},
}

// directAwardCeilingMKD is the statutory ceiling for direct awards.
const directAwardCeilingMKD = 615_000

func bracketFor(valueMKD float64) valueBracket {
	for _, b := range valueBrackets {
		if b.UpperMKD > 0 && valueMKD < b.UpperMKD {
			return b
		}
	}
	return valueBrackets[len(valueBrackets)-1]
}

// historyConfidence scales confidence by how much supporting data exists
// relative to what the indicator would like to see.
func historyConfidence(have, want int) float64 {
	if want <= 0 || have >= want {
		return 1
	}
	if have <= 0 {
		return 0
	}
	return float64(have) / float64(want)
}

// jaccard computes set similarity between two bidder lists.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	inter := 0
	union := len(set)
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// coefficientOfVariation returns stdev/mean for the sample, or -1 when it
// is undefined (fewer than 2 values or non-positive mean).
func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return -1
	}
	mean, err := stats.Mean(values)
	if err != nil || mean <= 0 {
		return -1
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return -1
	}
	return sd / mean
}

// normalizeAddress canonicalizes a street address for overlap comparison.
func normalizeAddress(addr string) string {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}

// bidAmounts extracts the positive bid amounts from the snapshot.
func bidAmounts(d *TenderData) []float64 {
	var out []float64
	for _, b := range d.Bids {
		if b.AmountMKD > 0 {
			out = append(out, b.AmountMKD)
		}
	}
	return out
}
