package analysis

import "math"

// Aggregate rolls per-asset results into day-level metrics.
// ok is false when there is nothing to aggregate; an empty day has no score.
func Aggregate(infos []CoinConsistencyInfo) (ConsistencyMetrics, bool) {
	if len(infos) == 0 {
		return ConsistencyMetrics{}, false
	}

	var scoreSum, changeSum float64
	rapid := 0
	for _, info := range infos {
		scoreSum += float64(info.ConsistencyScore)
		changeSum += float64(info.ChangeCount)
		if info.RapidChange {
			rapid++
		}
	}

	n := float64(len(infos))
	overall := int(math.Round(scoreSum / n))

	perAsset := make([]CoinConsistencyInfo, len(infos))
	copy(perAsset, infos)

	return ConsistencyMetrics{
		OverallScore:          overall,
		MeanChangeCount:       changeSum / n,
		PerAsset:              perAsset,
		RapidChangeAssetCount: rapid,
		TotalAssetCount:       len(infos),
		Rating:                RateScore(overall),
	}, true
}

// RateScore maps an overall score onto its qualitative rating.
func RateScore(score int) Rating {
	switch {
	case score >= 90:
		return RatingVeryConsistent
	case score >= 75:
		return RatingConsistent
	case score >= 60:
		return RatingModerate
	case score >= 40:
		return RatingInconsistent
	default:
		return RatingVeryInconsistent
	}
}
