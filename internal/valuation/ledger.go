// Package valuation accumulates seller effort and derives the minimum price an
// asset may be sold for. A Ledger is scoped to one seller; callers construct
// one per seller or session and never share it across tenants.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

const (
	DefaultHourlyRate = 100.0
	DefaultMultiplier = 2.5
)

// Config holds the tunable pricing inputs for a ledger.
type Config struct {
	HourlyRate float64
	Multiplier float64
}

// Ledger tracks hours per activity category for a single seller scope.
type Ledger struct {
	scope      string
	hourlyRate float64
	multiplier float64
	store      domain.EffortStore
	logger     *slog.Logger

	mu    sync.RWMutex
	hours map[domain.ActivityCategory]float64
}

// New creates an empty ledger for scope. A nil store disables snapshot
// persistence. Zero config values fall back to the package defaults.
func New(scope string, cfg Config, store domain.EffortStore, logger *slog.Logger) *Ledger {
	if cfg.HourlyRate <= 0 {
		cfg.HourlyRate = DefaultHourlyRate
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultMultiplier
	}
	return &Ledger{
		scope:      scope,
		hourlyRate: cfg.HourlyRate,
		multiplier: cfg.Multiplier,
		store:      store,
		logger:     logger.With(slog.String("component", "effort_ledger"), slog.String("scope", scope)),
		hours:      make(map[domain.ActivityCategory]float64, len(domain.ActivityCategories)),
	}
}

// Load builds a ledger for scope and hydrates it from the store's latest
// snapshot. A missing snapshot yields an empty ledger.
func Load(ctx context.Context, scope string, cfg Config, store domain.EffortStore, logger *slog.Logger) (*Ledger, error) {
	l := New(scope, cfg, store, logger)
	if store == nil {
		return l, nil
	}
	snap, err := store.LoadSnapshot(ctx, scope)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return l, nil
		}
		return nil, fmt.Errorf("valuation: load snapshot %s: %w", scope, err)
	}
	l.Restore(snap)
	return l, nil
}

// Scope returns the seller scope this ledger belongs to.
func (l *Ledger) Scope() string {
	return l.scope
}

// LogEffort adds hours to category and writes a snapshot to the store.
// Snapshot failures are logged and do not fail the call; the in-memory total
// is already updated.
func (l *Ledger) LogEffort(ctx context.Context, category domain.ActivityCategory, hours float64) error {
	if err := l.AddEffort(category, hours); err != nil {
		return err
	}
	l.Persist(ctx)
	return nil
}

// AddEffort adds hours to category in memory only. Callers that must commit
// other state first use it together with Persist, so an aborted operation
// leaves the stored snapshot untouched.
func (l *Ledger) AddEffort(category domain.ActivityCategory, hours float64) error {
	if !category.Valid() {
		return fmt.Errorf("valuation: unknown category %q: %w", category, domain.ErrInvalidEffort)
	}
	if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return fmt.Errorf("valuation: invalid hours %v: %w", hours, domain.ErrInvalidEffort)
	}

	l.mu.Lock()
	l.hours[category] += hours
	l.mu.Unlock()
	return nil
}

// Persist writes the current state to the store. It is best-effort: a failed
// write is logged and the in-memory ledger stays authoritative for this call.
func (l *Ledger) Persist(ctx context.Context) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveSnapshot(ctx, l.Snapshot()); err != nil {
		l.logger.WarnContext(ctx, "effort snapshot write failed",
			slog.String("error", err.Error()),
		)
	}
}

// Hours returns the accumulated hours for category.
func (l *Ledger) Hours(category domain.ActivityCategory) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hours[category]
}

// TotalHours sums every category.
func (l *Ledger) TotalHours() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalLocked()
}

// MinimumValuation returns totalHours * hourlyRate * multiplier. A multiplier
// <= 0 uses the ledger's configured default.
func (l *Ledger) MinimumValuation(multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = l.multiplier
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalLocked() * l.hourlyRate * multiplier
}

// Snapshot encodes the current state.
func (l *Ledger) Snapshot() domain.EffortSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// Restore replaces the ledger's hours with those in snap. Negative or
// unknown entries are dropped. The hourly rate is kept from config.
func (l *Ledger) Restore(snap domain.EffortSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hours = make(map[domain.ActivityCategory]float64, len(domain.ActivityCategories))
	for cat, h := range snap.Hours {
		if cat.Valid() && h >= 0 && !math.IsInf(h, 0) {
			l.hours[cat] = h
		}
	}
}

func (l *Ledger) totalLocked() float64 {
	var total float64
	for _, cat := range domain.ActivityCategories {
		total += l.hours[cat]
	}
	return total
}

func (l *Ledger) snapshotLocked() domain.EffortSnapshot {
	hours := make(map[domain.ActivityCategory]float64, len(l.hours))
	for k, v := range l.hours {
		hours[k] = v
	}
	return domain.EffortSnapshot{
		Scope:      l.scope,
		Hours:      hours,
		HourlyRate: l.hourlyRate,
		UpdatedAt:  time.Now().UTC(),
	}
}
