package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

type fakeWriter struct {
	objects   map[string][]byte
	multipart int
	err       error
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	return w.store(path, data)
}

func (w *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	w.multipart++
	return w.store(path, data)
}

func (w *fakeWriter) store(path string, data io.Reader) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.objects == nil {
		w.objects = make(map[string][]byte)
	}
	w.objects[path] = b
	return nil
}

func (w *fakeWriter) Size(_ context.Context, path string) (int64, error) {
	b, ok := w.objects[path]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return int64(len(b)), nil
}

type fakeArchiveStore struct {
	auctions []domain.Auction
	marked   []string
}

func (s *fakeArchiveStore) ListSettledAuctionsBefore(_ context.Context, before time.Time) ([]domain.Auction, error) {
	var out []domain.Auction
	for _, a := range s.auctions {
		if a.Status.Terminal() && a.UpdatedAt.Before(before) && !s.isMarked(a.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeArchiveStore) MarkAuctionsArchived(_ context.Context, ids []string, _ time.Time) (int64, error) {
	s.marked = append(s.marked, ids...)
	return int64(len(ids)), nil
}

func (s *fakeArchiveStore) isMarked(id string) bool {
	for _, m := range s.marked {
		if m == id {
			return true
		}
	}
	return false
}

type fakeAudit struct {
	entries []domain.AuditEntry
}

func (a *fakeAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.entries = append(a.entries, domain.AuditEntry{Event: event, Detail: detail})
	return nil
}

func (a *fakeAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return a.entries, nil
}

func settled(id string, status domain.AuctionStatus, updated time.Time, bids ...float64) domain.Auction {
	a := domain.Auction{ID: id, Status: status, MinimumPrice: 1000, UpdatedAt: updated}
	for i, amt := range bids {
		a.Bids = append(a.Bids, domain.Bid{
			ID:        id + "-bid",
			AuctionID: id,
			Amount:    amt,
			Bidder:    domain.UnknownBidder("b"),
			Timestamp: updated.Add(-time.Duration(len(bids)-i) * time.Minute),
		})
	}
	return a
}

func TestArchiveAuctions(t *testing.T) {
	cutoff := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)
	old := cutoff.Add(-48 * time.Hour)

	store := &fakeArchiveStore{auctions: []domain.Auction{
		settled("a1", domain.AuctionStatusAccepted, old, 1200, 1300),
		settled("a2", domain.AuctionStatusClosed, old),
		settled("a3", domain.AuctionStatusLive, old, 900),
		settled("a4", domain.AuctionStatusAccepted, cutoff.Add(time.Hour), 1500),
	}}
	writer := &fakeWriter{}
	audit := &fakeAudit{}
	arch := NewArchiver(writer, writer, store, audit)

	n, err := arch.ArchiveAuctions(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveAuctions: %v", err)
	}
	if n != 2 {
		t.Fatalf("archived %d auctions, expected 2", n)
	}

	const path = "archive/auctions/2026-01/20260115T030000Z.jsonl"
	data, ok := writer.objects[path]
	if !ok {
		t.Fatalf("no object at %s; have %v", path, writer.objects)
	}

	var lines []auctionRecord
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var rec auctionRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 2 || lines[0].ID != "a1" || lines[1].ID != "a2" {
		t.Fatalf("archived records = %+v", lines)
	}
	if len(lines[0].Bids) != 2 || lines[0].Bids[1].Amount != 1300 {
		t.Errorf("a1 bid log = %+v, expected both bids in order", lines[0].Bids)
	}
	if lines[1].Bids == nil {
		t.Error("empty bid log should encode as []")
	}

	if len(store.marked) != 2 {
		t.Errorf("marked %v, expected a1 and a2", store.marked)
	}
	if len(audit.entries) != 1 || audit.entries[0].Event != "archive.auctions" {
		t.Fatalf("audit = %+v", audit.entries)
	}
	if audit.entries[0].Detail["path"] != path {
		t.Errorf("audit path = %v, expected %s", audit.entries[0].Detail["path"], path)
	}

	n, err = arch.ArchiveAuctions(context.Background(), cutoff)
	if err != nil || n != 0 {
		t.Errorf("second run = %d, %v; expected nothing left to archive", n, err)
	}
}

func TestArchiveAuctionsUploadFailureLeavesRowsUnmarked(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{auctions: []domain.Auction{
		settled("a1", domain.AuctionStatusClosed, cutoff.Add(-time.Hour)),
	}}
	writer := &fakeWriter{err: errors.New("bucket unavailable")}
	audit := &fakeAudit{}

	if _, err := NewArchiver(writer, nil, store, audit).ArchiveAuctions(context.Background(), cutoff); err == nil {
		t.Fatal("expected upload error")
	}
	if len(store.marked) != 0 || len(audit.entries) != 0 {
		t.Errorf("failed upload must not mark or audit: marked=%v audit=%v", store.marked, audit.entries)
	}
}

type shortSizer struct{}

func (shortSizer) Size(context.Context, string) (int64, error) { return 1, nil }

func TestArchiveAuctionsVerifiesSize(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{auctions: []domain.Auction{
		settled("a1", domain.AuctionStatusClosed, cutoff.Add(-time.Hour), 100),
	}}

	_, err := NewArchiver(&fakeWriter{}, shortSizer{}, store, &fakeAudit{}).ArchiveAuctions(context.Background(), cutoff)
	if err == nil {
		t.Fatal("expected size mismatch error")
	}
	if len(store.marked) != 0 {
		t.Errorf("unverified archive marked rows: %v", store.marked)
	}
}

func TestArchiveAuctionsUsesMultipartForLargeExports(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArchiveStore{auctions: []domain.Auction{
		settled("a1", domain.AuctionStatusAccepted, cutoff.Add(-time.Hour), 100, 200),
	}}
	writer := &fakeWriter{}
	arch := NewArchiver(writer, writer, store, &fakeAudit{})
	arch.multipartThreshold = 1

	if _, err := arch.ArchiveAuctions(context.Background(), cutoff); err != nil {
		t.Fatalf("ArchiveAuctions: %v", err)
	}
	if writer.multipart != 1 {
		t.Errorf("multipart uploads = %d, expected 1", writer.multipart)
	}
}

func TestArchivePath(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	got := archivePath("auctions", time.Date(2026, 3, 1, 2, 0, 0, 0, loc))
	if want := "archive/auctions/2026-02/20260228T180000Z.jsonl"; got != want {
		t.Errorf("archivePath = %q, expected %q", got, want)
	}
}
