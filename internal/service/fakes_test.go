package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo is an in-memory domain.Repository. RunInTx snapshots state and
// restores it when fn fails.
type memRepo struct {
	mu       sync.Mutex
	assets   map[string]domain.Asset
	packages map[string]domain.DealPackage
	auctions map[string]domain.Auction
	bids     []domain.Bid
	bidders  map[string]domain.BidderProfile

	failCreateAuction error
	conflicts         int
}

func newMemRepo() *memRepo {
	return &memRepo{
		assets:   make(map[string]domain.Asset),
		packages: make(map[string]domain.DealPackage),
		auctions: make(map[string]domain.Auction),
		bidders:  make(map[string]domain.BidderProfile),
	}
}

func (r *memRepo) CreateAsset(_ context.Context, a domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[a.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.assets[a.ID] = a
	return nil
}

func (r *memRepo) UpdateAsset(_ context.Context, a domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[a.ID]; !ok {
		return domain.ErrNotFound
	}
	r.assets[a.ID] = a
	return nil
}

func (r *memRepo) GetAsset(_ context.Context, id string) (domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return domain.Asset{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *memRepo) CreateDealPackage(_ context.Context, p domain.DealPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[p.ID] = p
	return nil
}

func (r *memRepo) GetDealPackage(_ context.Context, id string) (domain.DealPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.packages[id]
	if !ok {
		return domain.DealPackage{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) CreateAuction(_ context.Context, a domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateAuction != nil {
		err := r.failCreateAuction
		if _, ok := err.(*domain.RetryableError); ok {
			r.failCreateAuction = nil
		}
		return err
	}
	a.Asset, a.Bids = nil, nil
	r.auctions[a.ID] = a
	return nil
}

func (r *memRepo) UpdateAuction(_ context.Context, id string, p domain.AuctionPatch) (domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		return domain.Auction{}, domain.ErrVersionConflict
	}
	if a.Version != p.ExpectedVersion {
		return domain.Auction{}, domain.ErrVersionConflict
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.MinimumPrice != nil {
		a.MinimumPrice = *p.MinimumPrice
	}
	if p.RestartCount != nil {
		a.RestartCount = *p.RestartCount
	}
	if p.HighestBid != nil {
		a.HighestBid = *p.HighestBid
	}
	if p.HighestBidderID != nil {
		a.HighestBidderID = *p.HighestBidderID
	}
	if p.WinningBidID != nil {
		a.WinningBidID = *p.WinningBidID
	}
	if p.RestartReason != nil {
		a.RestartReason = *p.RestartReason
	}
	if p.Enhancements != nil {
		a.Enhancements = p.Enhancements
	}
	if p.RestartedAt != nil {
		a.RestartedAt = p.RestartedAt
	}
	if p.OpenedAt != nil {
		a.OpenedAt = p.OpenedAt
	}
	a.Version++
	r.auctions[id] = a
	return a, nil
}

func (r *memRepo) FindAuctionByID(_ context.Context, id string) (domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return domain.Auction{}, domain.ErrNotFound
	}
	if asset, ok := r.assets[a.AssetID]; ok {
		a.Asset = &asset
	}
	for _, b := range r.bids {
		if b.AuctionID == id {
			a.Bids = append(a.Bids, b)
		}
	}
	return a, nil
}

func (r *memRepo) ListAuctionsByStatus(_ context.Context, status domain.AuctionStatus, _ domain.ListOpts) ([]domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Auction
	for _, a := range r.auctions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) ListSettledAuctionsBefore(_ context.Context, before time.Time) ([]domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Auction
	for _, a := range r.auctions {
		if a.Status.Terminal() && a.UpdatedAt.Before(before) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) CreateBid(_ context.Context, b domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids = append(r.bids, b)
	return nil
}

func (r *memRepo) GetBidderProfile(_ context.Context, id string) (domain.BidderProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bidders[id]
	if !ok {
		return domain.BidderProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) RunInTx(ctx context.Context, fn func(tx domain.Repository) error) error {
	r.mu.Lock()
	assets := make(map[string]domain.Asset, len(r.assets))
	for k, v := range r.assets {
		assets[k] = v
	}
	packages := make(map[string]domain.DealPackage, len(r.packages))
	for k, v := range r.packages {
		packages[k] = v
	}
	auctions := make(map[string]domain.Auction, len(r.auctions))
	for k, v := range r.auctions {
		auctions[k] = v
	}
	bids := append([]domain.Bid(nil), r.bids...)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.assets, r.packages, r.auctions, r.bids = assets, packages, auctions, bids
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) bidCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bids)
}

type memEffortStore struct {
	mu    sync.Mutex
	snaps map[string]domain.EffortSnapshot
}

func newMemEffortStore() *memEffortStore {
	return &memEffortStore{snaps: make(map[string]domain.EffortSnapshot)}
}

func (m *memEffortStore) SaveSnapshot(_ context.Context, s domain.EffortSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[s.Scope] = s
	return nil
}

func (m *memEffortStore) LoadSnapshot(_ context.Context, scope string) (domain.EffortSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[scope]
	if !ok {
		return domain.EffortSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}

// memLocks mimics SETNX semantics: Acquire fails fast when the key is held.
type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: make(map[string]bool)}
}

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

type stubLimiter struct {
	deny bool
	keys []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return !s.deny, nil
}

type memBus struct {
	mu     sync.Mutex
	stream []domain.AuctionEvent
	pubs   int
}

func (b *memBus) Publish(context.Context, string, []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pubs++
	return nil
}

func (b *memBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	var evt domain.AuctionEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stream = append(b.stream, evt)
	return nil
}

func (b *memBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *memBus) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.stream))
	for _, e := range b.stream {
		out = append(out, e.Event)
	}
	return out
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, domain.AuditEntry{Event: event, Detail: detail})
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...), nil
}

func (a *memAudit) has(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.Event == event {
			return true
		}
	}
	return false
}
