package analysis

import (
	"math"
	"sort"
	"time"
)

const (
	rapidChangeWindow = time.Hour
	rapidChangeDelta  = 5.0
)

// weightPoint is one (timestamp, target weight) observation.
type weightPoint struct {
	at     time.Time
	weight float64
}

// AnalyzeConsistency scores every asset present in one day's decisions,
// highest score first and then by asset identifier.
func AnalyzeConsistency(decisions []Decision) []CoinConsistencyInfo {
	byAsset := make(map[string][]Decision)
	for _, d := range decisions {
		byAsset[d.AssetID] = append(byAsset[d.AssetID], d)
	}

	infos := make([]CoinConsistencyInfo, 0, len(byAsset))
	for asset, group := range byAsset {
		infos = append(infos, analyzeAsset(asset, group))
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ConsistencyScore != infos[j].ConsistencyScore {
			return infos[i].ConsistencyScore > infos[j].ConsistencyScore
		}
		return infos[i].AssetID < infos[j].AssetID
	})
	return infos
}

func analyzeAsset(asset string, decisions []Decision) CoinConsistencyInfo {
	weights := make([]float64, len(decisions))
	points := make([]weightPoint, len(decisions))
	for i, d := range decisions {
		weights[i] = d.TargetWeight
		points[i] = weightPoint{at: d.DecidedAt, weight: d.TargetWeight}
	}

	mean, stddev := meanStdDev(weights)
	maxW, minW := maxMin(weights)

	return CoinConsistencyInfo{
		AssetID:          asset,
		ChangeCount:      len(decisions),
		MeanWeight:       mean,
		WeightStdDev:     stddev,
		MaxWeight:        maxW,
		MinWeight:        minW,
		WeightRange:      maxW - minW,
		RapidChange:      hasRapidChange(points),
		ConsistencyScore: ConsistencyScore(len(decisions), stddev),
	}
}

// meanStdDev returns the mean and population standard deviation.
// Empty and single-element sets have zero deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	n := float64(len(values))
	mean := sum / n
	if len(values) == 1 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / n)
}

func maxMin(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	maxV, minV := values[0], values[0]
	for _, v := range values[1:] {
		maxV = math.Max(maxV, v)
		minV = math.Min(minV, v)
	}
	return maxV, minV
}

// hasRapidChange reports whether any two consecutive decisions, in time order,
// are at most an hour apart and differ by at least five percentage points.
func hasRapidChange(points []weightPoint) bool {
	sorted := make([]weightPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].at.Before(sorted[j].at) })

	return foldPairs(sorted, false, func(found bool, prev, next weightPoint) bool {
		return found || isRapidChange(prev, next)
	})
}

func isRapidChange(prev, next weightPoint) bool {
	return next.at.Sub(prev.at) <= rapidChangeWindow &&
		math.Abs(next.weight-prev.weight) >= rapidChangeDelta
}

// foldPairs folds fn over every adjacent pair of points.
func foldPairs[T any](points []weightPoint, init T, fn func(acc T, prev, next weightPoint) T) T {
	acc := init
	for i := 1; i < len(points); i++ {
		acc = fn(acc, points[i-1], points[i])
	}
	return acc
}

// ConsistencyScore combines the change-count and volatility tiers into a 0-100 score.
func ConsistencyScore(changeCount int, stddev float64) int {
	return changeScore(changeCount) + volatilityScore(stddev)
}

func changeScore(count int) int {
	switch {
	case count == 1:
		return 60
	case count == 2:
		return 50
	case count == 3:
		return 40
	case count <= 5:
		return 30
	case count <= 10:
		return 15
	default:
		return 0
	}
}

func volatilityScore(stddev float64) int {
	switch {
	case stddev < 1:
		return 40
	case stddev < 3:
		return 30
	case stddev < 5:
		return 20
	case stddev < 10:
		return 10
	default:
		return 0
	}
}
