package analysis

import "time"

// Decision is one target allocation decision for one asset.
type Decision struct {
	AssetID              string           `json:"asset_id"`
	DecidedAt            time.Time        `json:"decided_at"`
	TargetWeight         float64          `json:"target_weight"`
	PreviousTargetWeight *float64         `json:"previous_target_weight,omitempty"`
	WeightChange         *float64         `json:"weight_change,omitempty"`
	CurrentWeight        float64          `json:"current_weight"`
	RawStatus            string           `json:"raw_status"`
	Status               ManagementStatus `json:"status,omitempty"`
	Rationale            string           `json:"rationale"`
	Risk                 *RiskProfile     `json:"risk,omitempty"`
}

// RiskProfile carries the optional risk and confidence fields of a decision.
type RiskProfile struct {
	TargetReturn       *float64 `json:"target_return,omitempty"`
	StopLoss           *float64 `json:"stop_loss,omitempty"`
	Confidence         *float64 `json:"confidence,omitempty"`
	Urgency            *float64 `json:"urgency,omitempty"`
	ExpectedVolatility *float64 `json:"expected_volatility,omitempty"`
	Assessment         string   `json:"assessment,omitempty"`
	MarketRegime       string   `json:"market_regime,omitempty"`
}

// StatusRecord is the authoritative management status of one asset.
type StatusRecord struct {
	AssetID   string    `json:"asset_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GapState classifies a weight gap.
type GapState string

const (
	GapUnderHeld   GapState = "under-held"
	GapAppropriate GapState = "appropriate"
	GapOverHeld    GapState = "over-held"
)

// WeightGapInfo is a decision annotated with its target-vs-actual divergence.
type WeightGapInfo struct {
	Decision
	Gap      float64  `json:"gap"`
	GapRatio float64  `json:"gap_ratio"`
	State    GapState `json:"state"`
}

// CoinConsistencyInfo summarises one asset's decisions for one day.
type CoinConsistencyInfo struct {
	AssetID          string  `json:"asset_id"`
	ChangeCount      int     `json:"change_count"`
	MeanWeight       float64 `json:"mean_weight"`
	WeightStdDev     float64 `json:"weight_stddev"`
	MaxWeight        float64 `json:"max_weight"`
	MinWeight        float64 `json:"min_weight"`
	WeightRange      float64 `json:"weight_range"`
	RapidChange      bool    `json:"rapid_change"`
	ConsistencyScore int     `json:"consistency_score"`
}

// Rating is the qualitative reading of an overall consistency score.
type Rating string

const (
	RatingVeryConsistent   Rating = "very consistent"
	RatingConsistent       Rating = "consistent"
	RatingModerate         Rating = "moderate"
	RatingInconsistent     Rating = "inconsistent"
	RatingVeryInconsistent Rating = "very inconsistent"
)

// ConsistencyMetrics is the day-level aggregate across assets.
type ConsistencyMetrics struct {
	OverallScore          int                   `json:"overall_score"`
	MeanChangeCount       float64               `json:"mean_change_count"`
	PerAsset              []CoinConsistencyInfo `json:"per_asset"`
	RapidChangeAssetCount int                   `json:"rapid_change_asset_count"`
	TotalAssetCount       int                   `json:"total_asset_count"`
	Rating                Rating                `json:"rating"`
}
