package budget

import (
	"testing"
	"time"
)

func TestCanSpend_UnderCap(t *testing.T) {
	l := NewLedger(3.0)

	if !l.CanSpend() {
		t.Error("Expected CanSpend=true for a fresh ledger")
	}

	l.RecordSpend(2.99)
	if !l.CanSpend() {
		t.Error("Expected CanSpend=true just under the cap")
	}

	l.RecordSpend(0.02)
	if l.CanSpend() {
		t.Error("Expected CanSpend=false once cap is reached")
	}
}

func TestRecordSpend_IgnoresNonPositive(t *testing.T) {
	l := NewLedger(3.0)

	l.RecordSpend(0)
	l.RecordSpend(-1)

	if got := l.DailySpend(); got != 0 {
		t.Errorf("Expected 0 spend, got %f", got)
	}
}

func TestDayRollover_ResetsTotal(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	l := NewLedgerWithClock(3.0, func() time.Time { return now })

	l.RecordSpend(5.0)
	if l.CanSpend() {
		t.Error("Expected CanSpend=false after overspend")
	}

	// Cross midnight UTC
	now = now.Add(20 * time.Minute)

	if !l.CanSpend() {
		t.Error("Expected CanSpend=true after day rollover")
	}
	if got := l.DailySpend(); got != 0 {
		t.Errorf("Expected spend reset on rollover, got %f", got)
	}
}

func TestDefaultCap(t *testing.T) {
	l := NewLedger(0)
	if l.DailyCap() != DefaultDailyCapUSD {
		t.Errorf("Expected default cap %f, got %f", DefaultDailyCapUSD, l.DailyCap())
	}
}
