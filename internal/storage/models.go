package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"cio-consistency/internal/analysis"
)

// DecisionRecord mirrors one row of cio_portfolio_decisions.
type DecisionRecord struct {
	AssetID              string
	DecidedAt            time.Time
	TargetWeight         decimal.Decimal
	PreviousTargetWeight *decimal.Decimal
	WeightChange         *decimal.Decimal
	CurrentWeight        decimal.Decimal
	ManagementStatus     string
	Rationale            string
	TargetReturn         *decimal.Decimal
	StopLoss             *decimal.Decimal
	Confidence           *decimal.Decimal
	Urgency              *decimal.Decimal
	ExpectedVolatility   *decimal.Decimal
	RiskAssessment       string
	MarketRegime         string
}

// HoldingStatus mirrors one row of holding_status.
type HoldingStatus struct {
	AssetID          string
	ManagementStatus string
	UpdatedAt        time.Time
}

// ToDecision converts the row into the analysis representation.
func (r DecisionRecord) ToDecision() analysis.Decision {
	d := analysis.Decision{
		AssetID:              r.AssetID,
		DecidedAt:            r.DecidedAt,
		TargetWeight:         r.TargetWeight.InexactFloat64(),
		PreviousTargetWeight: optionalFloat(r.PreviousTargetWeight),
		WeightChange:         optionalFloat(r.WeightChange),
		CurrentWeight:        r.CurrentWeight.InexactFloat64(),
		RawStatus:            r.ManagementStatus,
		Rationale:            r.Rationale,
	}

	risk := analysis.RiskProfile{
		TargetReturn:       optionalFloat(r.TargetReturn),
		StopLoss:           optionalFloat(r.StopLoss),
		Confidence:         optionalFloat(r.Confidence),
		Urgency:            optionalFloat(r.Urgency),
		ExpectedVolatility: optionalFloat(r.ExpectedVolatility),
		Assessment:         r.RiskAssessment,
		MarketRegime:       r.MarketRegime,
	}
	if risk != (analysis.RiskProfile{}) {
		d.Risk = &risk
	}
	return d
}

// ToStatusRecord converts the row into the analysis representation.
func (h HoldingStatus) ToStatusRecord() analysis.StatusRecord {
	return analysis.StatusRecord{AssetID: h.AssetID, Status: h.ManagementStatus, UpdatedAt: h.UpdatedAt}
}

// ToDecisions converts a batch of rows.
func ToDecisions(records []DecisionRecord) []analysis.Decision {
	out := make([]analysis.Decision, len(records))
	for i, r := range records {
		out[i] = r.ToDecision()
	}
	return out
}

// ToStatusRecords converts a batch of rows, preserving order.
func ToStatusRecords(rows []HoldingStatus) []analysis.StatusRecord {
	out := make([]analysis.StatusRecord, len(rows))
	for i, h := range rows {
		out[i] = h.ToStatusRecord()
	}
	return out
}

func optionalFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}
