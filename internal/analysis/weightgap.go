package analysis

import (
	"math"
	"sort"
)

// appropriateGapRatio is the largest |gapRatio| still classified as appropriate.
const appropriateGapRatio = 20.0

// CalculateWeightGap computes the divergence between target and held weight.
// A zero target yields a zero ratio, which classifies as appropriate regardless of the held weight.
func CalculateWeightGap(d Decision) WeightGapInfo {
	gap := d.TargetWeight - d.CurrentWeight

	ratio := 0.0
	if d.TargetWeight > 0 {
		ratio = (gap / d.TargetWeight) * 100
	}

	state := GapAppropriate
	if math.Abs(ratio) > appropriateGapRatio {
		if gap > 0 {
			state = GapUnderHeld
		} else {
			state = GapOverHeld
		}
	}

	return WeightGapInfo{
		Decision: d,
		Gap:      gap,
		GapRatio: ratio,
		State:    state,
	}
}

// LatestPerAsset keeps the most recent decision of each asset, ordered by asset identifier.
// On equal timestamps the decision seen first wins.
func LatestPerAsset(decisions []Decision) []Decision {
	latest := make(map[string]Decision, len(decisions))
	for _, d := range decisions {
		existing, ok := latest[d.AssetID]
		if !ok || d.DecidedAt.After(existing.DecidedAt) {
			latest[d.AssetID] = d
		}
	}

	out := make([]Decision, 0, len(latest))
	for _, d := range latest {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// WeightGaps computes gaps for the latest decision of every active asset,
// largest absolute gap first.
func WeightGaps(reconciled []Decision) []WeightGapInfo {
	gaps := make([]WeightGapInfo, 0)
	for _, d := range LatestPerAsset(reconciled) {
		if d.Status != StatusActive {
			continue
		}
		gaps = append(gaps, CalculateWeightGap(d))
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		a, b := math.Abs(gaps[i].Gap), math.Abs(gaps[j].Gap)
		if a != b {
			return a > b
		}
		return gaps[i].AssetID < gaps[j].AssetID
	})
	return gaps
}
