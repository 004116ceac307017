package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cio-consistency/internal/analysis"
)

// ReportProvider produces the analysis of one calendar day.
type ReportProvider interface {
	Report(ctx context.Context, day time.Time) (analysis.Report, error)
	Location() *time.Location
}

// ReportHandler serves day reports over HTTP.
type ReportHandler struct {
	Provider ReportProvider
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Register mounts the report routes.
func (h *ReportHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/report", h.report)
	group.GET("/consistency", h.consistency)
	group.GET("/weight-gaps", h.weightGaps)
}

func (h *ReportHandler) report(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}
	if report.Empty() {
		Ok(c, nil, emptyMeta(report))
		return
	}
	Ok(c, report, dayMeta(report))
}

func (h *ReportHandler) consistency(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}
	if report.Empty() {
		Ok(c, nil, emptyMeta(report))
		return
	}
	Ok(c, report.Metrics, dayMeta(report))
}

func (h *ReportHandler) weightGaps(c *gin.Context) {
	report, ok := h.load(c)
	if !ok {
		return
	}
	if report.Empty() {
		Ok(c, nil, emptyMeta(report))
		return
	}
	gaps := report.WeightGaps
	if gaps == nil {
		gaps = []analysis.WeightGapInfo{}
	}
	meta := dayMeta(report)
	meta["count"] = len(gaps)
	Ok(c, gaps, meta)
}

func (h *ReportHandler) load(c *gin.Context) (analysis.Report, bool) {
	if h.Provider == nil {
		Error(c, http.StatusInternalServerError, "report provider unavailable", nil)
		return analysis.Report{}, false
	}

	day, err := h.parseDay(c.Query("date"))
	if err != nil {
		Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", map[string]any{"date": c.Query("date")})
		return analysis.Report{}, false
	}

	report, err := h.Provider.Report(c.Request.Context(), day)
	if err != nil {
		h.Logger.Error().Err(err).Time("day", day).Msg("report request failed")
		Error(c, http.StatusInternalServerError, "report unavailable", nil)
		return analysis.Report{}, false
	}
	return report, true
}

func (h *ReportHandler) parseDay(raw string) (time.Time, error) {
	loc := h.Provider.Location()
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := time.Now
		if h.Now != nil {
			now = h.Now
		}
		return now().In(loc), nil
	}
	return time.ParseInLocation(time.DateOnly, raw, loc)
}

func dayMeta(report analysis.Report) map[string]any {
	return map[string]any{
		"date":       report.Window.Label(),
		"decisions":  report.DecisionCount,
		"input_hash": report.InputHash,
	}
}

func emptyMeta(report analysis.Report) map[string]any {
	meta := dayMeta(report)
	meta["empty"] = true
	return meta
}
