package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// AssetStore implements domain.AssetStore.
type AssetStore struct {
	q querier
}

const assetColumns = `id, seller_id, type, title, metadata, valuation, status, created_at, updated_at`

// CreateAsset inserts a new asset row. Duplicate IDs surface as
// domain.ErrAlreadyExists.
func (s *AssetStore) CreateAsset(ctx context.Context, a domain.Asset) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal asset metadata %s: %w", a.ID, err)
	}

	const q = `
		INSERT INTO assets (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = s.q.Exec(ctx, q,
		a.ID, a.SellerID, string(a.Type), a.Title, meta,
		a.Valuation, string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	return classify("create asset "+a.ID, err)
}

// UpdateAsset overwrites the mutable columns of an existing asset.
func (s *AssetStore) UpdateAsset(ctx context.Context, a domain.Asset) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal asset metadata %s: %w", a.ID, err)
	}

	const q = `
		UPDATE assets
		SET title = $2, metadata = $3, valuation = $4, status = $5, updated_at = $6
		WHERE id = $1`
	tag, err := s.q.Exec(ctx, q, a.ID, a.Title, meta, a.Valuation, string(a.Status), a.UpdatedAt)
	if err != nil {
		return classify("update asset "+a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update asset %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// GetAsset returns the asset with the given ID.
func (s *AssetStore) GetAsset(ctx context.Context, id string) (domain.Asset, error) {
	const q = `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	a, err := scanAsset(s.q.QueryRow(ctx, q, id))
	if err != nil {
		return domain.Asset{}, classify("get asset "+id, err)
	}
	return a, nil
}

func scanAsset(row pgx.Row) (domain.Asset, error) {
	var (
		a            domain.Asset
		assetType    string
		status       string
		metadataJSON []byte
	)
	if err := row.Scan(
		&a.ID, &a.SellerID, &assetType, &a.Title, &metadataJSON,
		&a.Valuation, &status, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return domain.Asset{}, err
	}
	a.Type = domain.AssetType(assetType)
	a.Status = domain.AssetStatus(status)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
			return domain.Asset{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return a, nil
}

var _ domain.AssetStore = (*AssetStore)(nil)
