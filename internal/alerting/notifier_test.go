package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cio-consistency/internal/analysis"
)

func sampleNote() Notification {
	return Notification{
		Window:            analysis.DayWindow(time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC), time.UTC),
		Reason:            ReasonRapidChange,
		OverallScore:      55,
		Rating:            analysis.RatingInconsistent,
		RapidChangeAssets: []string{"BTC", "SOL"},
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id mismatch: %#v", received)
	}
	if !strings.Contains(received["text"], "BTC, SOL") {
		t.Fatalf("text should list rapid change assets: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

func TestTelegramNotifierHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("502 should fail")
	}
}

func TestRenderMessageLowScore(t *testing.T) {
	note := sampleNote()
	note.Reason = ReasonLowScore
	note.MinOverallScore = 60
	note.OffTargetAssets = []analysis.WeightGapInfo{{
		Decision: analysis.Decision{AssetID: "ETH", TargetWeight: 20, CurrentWeight: 10},
		Gap:      10, GapRatio: 50, State: analysis.GapUnderHeld,
	}}

	msg := RenderMessage(note)
	for _, want := range []string{"Day: 2025-03-14", "Threshold: 60", "ETH under-held", "+50.0%"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
