package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

const contentTypeJSONL = "application/x-ndjson"

// defaultMultipartThreshold switches uploads to PutMultipart at 16 MiB.
const defaultMultipartThreshold int64 = 16 * 1024 * 1024

// AuctionArchiveStore is the slice of the auction store the archiver needs.
type AuctionArchiveStore interface {
	ListSettledAuctionsBefore(ctx context.Context, before time.Time) ([]domain.Auction, error)
	MarkAuctionsArchived(ctx context.Context, ids []string, at time.Time) (int64, error)
}

// ObjectSizer reports the size of a stored object.
type ObjectSizer interface {
	Size(ctx context.Context, path string) (int64, error)
}

// ArchiveImpl implements domain.Archiver. It exports settled auctions with
// their bid logs as JSONL, verifies the upload, then marks the rows archived.
// Rows are never deleted here.
type ArchiveImpl struct {
	writer   domain.BlobWriter
	sizer    ObjectSizer
	auctions AuctionArchiveStore
	audit    domain.AuditStore

	multipartThreshold int64
	now                func() time.Time
}

// NewArchiver creates an ArchiveImpl. sizer may be nil to skip verification.
func NewArchiver(
	writer domain.BlobWriter,
	sizer ObjectSizer,
	auctions AuctionArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:             writer,
		sizer:              sizer,
		auctions:           auctions,
		audit:              audit,
		multipartThreshold: defaultMultipartThreshold,
		now:                time.Now,
	}
}

// auctionRecord is one archived JSONL line.
type auctionRecord struct {
	ID               string               `json:"id"`
	AssetID          string               `json:"asset_id"`
	DealPackageID    string               `json:"deal_package_id"`
	SellerID         string               `json:"seller_id"`
	Status           domain.AuctionStatus `json:"status"`
	BaseMinimumPrice float64              `json:"base_minimum_price"`
	MinimumPrice     float64              `json:"minimum_price"`
	InitialPrice     float64              `json:"initial_price"`
	RestartCount     int                  `json:"restart_count"`
	HighestBid       float64              `json:"highest_bid"`
	HighestBidderID  string               `json:"highest_bidder_id,omitempty"`
	WinningBidID     string               `json:"winning_bid_id,omitempty"`
	RestartReason    domain.RestartReason `json:"restart_reason,omitempty"`
	Enhancements     []string             `json:"enhancements,omitempty"`
	StartsAt         time.Time            `json:"starts_at"`
	EndsAt           time.Time            `json:"ends_at"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	Bids             []domain.Bid         `json:"bids"`
}

func newAuctionRecord(a domain.Auction) auctionRecord {
	bids := a.Bids
	if bids == nil {
		bids = []domain.Bid{}
	}
	return auctionRecord{
		ID:               a.ID,
		AssetID:          a.AssetID,
		DealPackageID:    a.DealPackageID,
		SellerID:         a.SellerID,
		Status:           a.Status,
		BaseMinimumPrice: a.BaseMinimumPrice,
		MinimumPrice:     a.MinimumPrice,
		InitialPrice:     a.InitialPrice,
		RestartCount:     a.RestartCount,
		HighestBid:       a.HighestBid,
		HighestBidderID:  a.HighestBidderID,
		WinningBidID:     a.WinningBidID,
		RestartReason:    a.RestartReason,
		Enhancements:     a.Enhancements,
		StartsAt:         a.StartsAt,
		EndsAt:           a.EndsAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		Bids:             bids,
	}
}

// ArchiveAuctions uploads every unarchived settled auction last updated
// before the cutoff to archive/auctions/YYYY-MM/<cutoff>.jsonl and returns
// how many were archived.
func (a *ArchiveImpl) ArchiveAuctions(ctx context.Context, before time.Time) (int64, error) {
	auctions, err := a.auctions.ListSettledAuctionsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive auctions query: %w", err)
	}
	if len(auctions) == 0 {
		return 0, nil
	}

	records := make([]auctionRecord, len(auctions))
	ids := make([]string, len(auctions))
	for i, auc := range auctions {
		records[i] = newAuctionRecord(auc)
		ids[i] = auc.ID
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive auctions marshal: %w", err)
	}

	path := archivePath("auctions", before)
	size := int64(len(buf))
	if size >= a.multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), contentTypeJSONL)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive auctions upload: %w", err)
	}

	if a.sizer != nil {
		stored, err := a.sizer.Size(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive auctions verify: %w", err)
		}
		if stored != size {
			return 0, fmt.Errorf("s3blob: archive auctions verify %s: stored %d bytes, wrote %d", path, stored, size)
		}
	}

	if _, err := a.auctions.MarkAuctionsArchived(ctx, ids, a.now().UTC()); err != nil {
		return 0, fmt.Errorf("s3blob: archive auctions mark: %w", err)
	}

	count := int64(len(auctions))
	if err := a.audit.Log(ctx, "archive.auctions", map[string]any{
		"path":   path,
		"count":  count,
		"bytes":  size,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive auctions audit log: %w", err)
	}
	return count, nil
}

// archivePath groups archives by the cutoff's month and names each file after
// the cutoff so repeated runs in one month never overwrite each other.
func archivePath(kind string, before time.Time) string {
	before = before.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, before.Format("2006-01"), before.Format("20060102T150405Z"))
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*ArchiveImpl)(nil)
