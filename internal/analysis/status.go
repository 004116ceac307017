package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAssetID reports a decision or status record without an asset identifier.
var ErrMissingAssetID = errors.New("analysis: missing asset identifier")

// ManagementStatus is the canonical management classification of an asset.
type ManagementStatus string

const (
	StatusActive      ManagementStatus = "active"
	StatusUnderReview ManagementStatus = "under-review"
	StatusExcluded    ManagementStatus = "excluded"
)

// statusAliases maps every known raw spelling, lower-cased, to its canonical value.
var statusAliases = map[string]ManagementStatus{
	"active": StatusActive,
	"활성":     StatusActive,

	"review":       StatusUnderReview,
	"under-review": StatusUnderReview,
	"under_review": StatusUnderReview,
	"under review": StatusUnderReview,
	"reviewing":    StatusUnderReview,
	"재평가":          StatusUnderReview,
	"검토":           StatusUnderReview,

	"excluded": StatusExcluded,
	"exclude":  StatusExcluded,
	"inactive": StatusExcluded,
	"제외":       StatusExcluded,
}

// NormalizeStatus maps a raw status label onto the canonical enum.
// ok is false when the label is not a known spelling.
func NormalizeStatus(raw string) (ManagementStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	status, ok := statusAliases[key]
	return status, ok
}

// Reconcile overwrites each decision's status with the authoritative status list.
// Assets missing from the list, or carrying an unknown label, become excluded.
// Later status entries for the same asset win. The input slice is not modified.
func Reconcile(decisions []Decision, statuses []StatusRecord) ([]Decision, error) {
	lookup := make(map[string]ManagementStatus, len(statuses))
	for i, rec := range statuses {
		if rec.AssetID == "" {
			return nil, fmt.Errorf("status record %d: %w", i, ErrMissingAssetID)
		}
		status, ok := NormalizeStatus(rec.Status)
		if !ok {
			status = StatusExcluded
		}
		lookup[rec.AssetID] = status
	}

	out := make([]Decision, len(decisions))
	for i, d := range decisions {
		if d.AssetID == "" {
			return nil, fmt.Errorf("decision %d: %w", i, ErrMissingAssetID)
		}
		status, ok := lookup[d.AssetID]
		if !ok {
			status = StatusExcluded
		}
		d.Status = status
		out[i] = d
	}
	return out, nil
}
