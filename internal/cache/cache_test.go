package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"cio-consistency/internal/analysis"
)

func sampleReport() analysis.Report {
	w := analysis.DayWindow(time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC), time.UTC)
	report, err := analysis.Analyze(w, []analysis.Decision{
		{AssetID: "BTC", DecidedAt: w.Start.Add(time.Hour), TargetWeight: 40, CurrentWeight: 30},
	}, []analysis.StatusRecord{{AssetID: "BTC", Status: "ACTIVE"}})
	if err != nil {
		panic(err)
	}
	return report
}

func TestKeyIncludesDayAndHash(t *testing.T) {
	c := New(nil, "", time.Minute)
	report := sampleReport()
	key := c.Key(report.Window, report.InputHash)
	want := "ciowatch:report:2025-03-14:" + report.InputHash
	if key != want {
		t.Fatalf("key = %s, want %s", key, want)
	}
}

func TestGetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, "p", time.Minute)

	mock.ExpectGet("p:k").RedisNil()
	_, ok, err := c.Get(context.Background(), "p:k")
	if err != nil || ok {
		t.Fatalf("miss should be (false, nil), got (%v, %v)", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSetThenGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, "p", 5*time.Minute)
	report := sampleReport()

	payload, _ := json.Marshal(report)
	mock.ExpectSet("p:k", string(payload), 5*time.Minute).SetVal("OK")
	mock.ExpectGet("p:k").SetVal(string(payload))

	if err := c.Set(context.Background(), "p:k", report); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(context.Background(), "p:k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got (%v, %v)", ok, err)
	}
	if got.InputHash != report.InputHash || got.Metrics == nil || got.Metrics.OverallScore != report.Metrics.OverallScore {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.WeightGaps) != 1 || got.WeightGaps[0].State != analysis.GapUnderHeld {
		t.Fatalf("weight gaps lost: %+v", got.WeightGaps)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, "p", time.Minute)

	mock.ExpectGet("p:k").SetErr(errors.New("connection refused"))
	if _, _, err := c.Get(context.Background(), "p:k"); err == nil {
		t.Fatal("redis failure should surface")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *ReportCache
	if _, ok, err := c.Get(context.Background(), "x"); ok || err != nil {
		t.Fatal("nil cache should miss silently")
	}
	if err := c.Set(context.Background(), "x", analysis.Report{}); err != nil {
		t.Fatalf("nil cache set should be a no-op: %v", err)
	}
}
