// Package budget implements the daily spend ledger that gates every paid
// model call. The ledger is a soft cap: concurrent requests may race between
// CanSpend and RecordSpend, which is an accepted approximation: the cap is a
// guardrail against runaway spend, not a billing system. Totals are not
// persisted across process restarts for the same reason.
package budget

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/metrics"
)

// DefaultDailyCapUSD is the spend ceiling applied when none is configured.
const DefaultDailyCapUSD = 3.0

// Ledger tracks accumulated model spend for the current UTC day.
type Ledger struct {
	mu      sync.Mutex
	capUSD  float64
	dateKey string
	spent   float64
	clock   func() time.Time
}

// NewLedger creates a ledger with the given daily cap (USD). A non-positive
// cap falls back to DefaultDailyCapUSD.
func NewLedger(capUSD float64) *Ledger {
	return NewLedgerWithClock(capUSD, time.Now)
}

// NewLedgerWithClock creates a ledger with an injected clock so day-rollover
// behavior can be tested deterministically.
func NewLedgerWithClock(capUSD float64, clock func() time.Time) *Ledger {
	if capUSD <= 0 {
		capUSD = DefaultDailyCapUSD
	}
	return &Ledger{
		capUSD: capUSD,
		clock:  clock,
	}
}

// today returns the UTC date key, resetting the total on rollover.
// Callers must hold l.mu.
func (l *Ledger) today() string {
	key := l.clock().UTC().Format("2006-01-02")
	if key != l.dateKey {
		l.dateKey = key
		l.spent = 0
		metrics.DailySpend.Set(0)
	}
	return key
}

// CanSpend reports whether today's accumulated spend is still under the cap.
func (l *Ledger) CanSpend() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.today()
	return l.spent < l.capUSD
}

// RecordSpend adds to today's running total. Never fails: spend already
// committed to a provider is recorded even when it pushes past the cap.
func (l *Ledger) RecordSpend(amountUSD float64) {
	if amountUSD <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.today()
	l.spent += amountUSD
	metrics.DailySpend.Set(l.spent)

	log.Info().
		Str("date", key).
		Float64("amount_usd", amountUSD).
		Float64("total_usd", l.spent).
		Float64("cap_usd", l.capUSD).
		Msg("Recorded model spend")
}

// DailySpend returns today's accumulated spend.
func (l *Ledger) DailySpend() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.today()
	return l.spent
}

// DailyCap returns the configured cap.
func (l *Ledger) DailyCap() float64 {
	return l.capUSD
}
