package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// AuctionStore implements domain.AuctionStore. Updates are compare-and-swap
// on the version column.
type AuctionStore struct {
	q querier
}

// NewAuctionStore creates an AuctionStore for callers outside the Repository,
// such as the archiver.
func NewAuctionStore(q querier) *AuctionStore {
	return &AuctionStore{q: q}
}

const auctionColumns = `id, asset_id, deal_package_id, seller_id, status,
	base_minimum_price, minimum_price, initial_price, restart_count,
	highest_bid, highest_bidder_id, winning_bid_id, restart_reason, enhancements,
	restarted_at, opened_at, starts_at, ends_at, version, created_at, updated_at`

func (s *AuctionStore) CreateAuction(ctx context.Context, a domain.Auction) error {
	enhancements := a.Enhancements
	if enhancements == nil {
		enhancements = []string{}
	}
	version := a.Version
	if version == 0 {
		version = 1
	}

	const q = `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21)`
	_, err := s.q.Exec(ctx, q,
		a.ID, a.AssetID, a.DealPackageID, a.SellerID, string(a.Status),
		a.BaseMinimumPrice, a.MinimumPrice, a.InitialPrice, a.RestartCount,
		a.HighestBid, a.HighestBidderID, a.WinningBidID, string(a.RestartReason), enhancements,
		a.RestartedAt, a.OpenedAt, a.StartsAt, a.EndsAt, version, a.CreatedAt, a.UpdatedAt,
	)
	return classify("create auction "+a.ID, err)
}

// UpdateAuction applies patch when the stored version equals
// patch.ExpectedVersion and returns the updated row. A stale version yields
// domain.ErrVersionConflict; a missing row yields domain.ErrNotFound.
func (s *AuctionStore) UpdateAuction(ctx context.Context, id string, patch domain.AuctionPatch) (domain.Auction, error) {
	q, args := buildAuctionUpdate(id, patch)
	a, err := scanAuction(s.q.QueryRow(ctx, q, args...))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Auction{}, classify("update auction "+id, err)
	}

	var exists bool
	if err := s.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return domain.Auction{}, classify("update auction "+id, err)
	}
	if exists {
		return domain.Auction{}, fmt.Errorf("postgres: update auction %s at version %d: %w",
			id, patch.ExpectedVersion, domain.ErrVersionConflict)
	}
	return domain.Auction{}, fmt.Errorf("postgres: update auction %s: %w", id, domain.ErrNotFound)
}

// buildAuctionUpdate renders the CAS UPDATE for patch. $1 is the id and $2
// the expected version; set fields follow in declaration order.
func buildAuctionUpdate(id string, p domain.AuctionPatch) (string, []any) {
	args := []any{id, p.ExpectedVersion}
	sets := []string{"version = version + 1", "updated_at = NOW()"}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.MinimumPrice != nil {
		set("minimum_price", *p.MinimumPrice)
	}
	if p.RestartCount != nil {
		set("restart_count", *p.RestartCount)
	}
	if p.HighestBid != nil {
		set("highest_bid", *p.HighestBid)
	}
	if p.HighestBidderID != nil {
		set("highest_bidder_id", *p.HighestBidderID)
	}
	if p.WinningBidID != nil {
		set("winning_bid_id", *p.WinningBidID)
	}
	if p.RestartReason != nil {
		set("restart_reason", string(*p.RestartReason))
	}
	if p.Enhancements != nil {
		set("enhancements", p.Enhancements)
	}
	if p.RestartedAt != nil {
		set("restarted_at", *p.RestartedAt)
	}
	if p.OpenedAt != nil {
		set("opened_at", *p.OpenedAt)
	}

	q := "UPDATE auctions SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 AND version = $2 RETURNING " + auctionColumns
	return q, args
}

// FindAuctionByID loads the auction, its asset and its bid log in placement
// order.
func (s *AuctionStore) FindAuctionByID(ctx context.Context, id string) (domain.Auction, error) {
	a, err := scanAuction(s.q.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if err != nil {
		return domain.Auction{}, classify("find auction "+id, err)
	}

	asset, err := (&AssetStore{q: s.q}).GetAsset(ctx, a.AssetID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Auction{}, err
	}
	if err == nil {
		a.Asset = &asset
	}

	bids, err := (&BidStore{q: s.q}).listByAuction(ctx, []string{id})
	if err != nil {
		return domain.Auction{}, err
	}
	a.Bids = bids[id]
	return a, nil
}

// ListAuctionsByStatus returns auctions in the given status ordered by start
// time. opts.Since and opts.Until bound starts_at. Bids are not loaded.
func (s *AuctionStore) ListAuctionsByStatus(ctx context.Context, status domain.AuctionStatus, opts domain.ListOpts) ([]domain.Auction, error) {
	q := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = $1`
	q, args := appendListOpts(q, []any{string(status)}, "starts_at", "starts_at ASC, id ASC", opts)

	out, err := s.queryAuctions(ctx, q, args...)
	if err != nil {
		return nil, classify("list auctions "+string(status), err)
	}
	return out, nil
}

// ListSettledAuctionsBefore returns unarchived ACCEPTED and CLOSED auctions
// last updated before the cutoff, each with its bid log.
func (s *AuctionStore) ListSettledAuctionsBefore(ctx context.Context, before time.Time) ([]domain.Auction, error) {
	const q = `SELECT ` + auctionColumns + ` FROM auctions
		WHERE status IN ('ACCEPTED', 'CLOSED') AND archived_at IS NULL AND updated_at < $1
		ORDER BY updated_at ASC, id ASC`

	out, err := s.queryAuctions(ctx, q, before)
	if err != nil {
		return nil, classify("list settled auctions", err)
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]string, len(out))
	for i, a := range out {
		ids[i] = a.ID
	}
	bids, err := (&BidStore{q: s.q}).listByAuction(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Bids = bids[out[i].ID]
	}
	return out, nil
}

// MarkAuctionsArchived stamps archived_at on the given auctions so later
// archive runs skip them.
func (s *AuctionStore) MarkAuctionsArchived(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx,
		`UPDATE auctions SET archived_at = $2 WHERE id = ANY($1) AND archived_at IS NULL`, ids, at)
	if err != nil {
		return 0, classify("mark auctions archived", err)
	}
	return tag.RowsAffected(), nil
}

func (s *AuctionStore) queryAuctions(ctx context.Context, q string, args ...any) ([]domain.Auction, error) {
	rows, err := s.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAuction(row pgx.Row) (domain.Auction, error) {
	var (
		a      domain.Auction
		status string
		reason string
	)
	err := row.Scan(
		&a.ID, &a.AssetID, &a.DealPackageID, &a.SellerID, &status,
		&a.BaseMinimumPrice, &a.MinimumPrice, &a.InitialPrice, &a.RestartCount,
		&a.HighestBid, &a.HighestBidderID, &a.WinningBidID, &reason, &a.Enhancements,
		&a.RestartedAt, &a.OpenedAt, &a.StartsAt, &a.EndsAt, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Auction{}, err
	}
	a.Status = domain.AuctionStatus(status)
	a.RestartReason = domain.RestartReason(reason)
	return a, nil
}

// appendListOpts adds the time window, ordering and pagination from opts to
// a query whose WHERE clause already exists.
func appendListOpts(q string, args []any, timeCol, orderBy string, opts domain.ListOpts) (string, []any) {
	if opts.Since != nil {
		args = append(args, *opts.Since)
		q += fmt.Sprintf(" AND %s >= $%d", timeCol, len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		q += fmt.Sprintf(" AND %s <= $%d", timeCol, len(args))
	}

	q += " ORDER BY " + orderBy

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return q, args
}

var _ domain.AuctionStore = (*AuctionStore)(nil)
