package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// DealPackageStore implements domain.DealPackageStore. Terms and strategy are
// stored as JSONB documents.
type DealPackageStore struct {
	q querier
}

func (s *DealPackageStore) CreateDealPackage(ctx context.Context, p domain.DealPackage) error {
	terms, err := json.Marshal(p.Terms)
	if err != nil {
		return fmt.Errorf("postgres: marshal terms %s: %w", p.ID, err)
	}
	strategy, err := json.Marshal(p.Strategy)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy %s: %w", p.ID, err)
	}

	components := make([]string, len(p.Components))
	for i, c := range p.Components {
		components[i] = string(c)
	}

	const q = `
		INSERT INTO deal_packages (id, asset_id, components, valuation, terms, strategy, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.q.Exec(ctx, q, p.ID, p.AssetID, components, p.Valuation, terms, strategy, p.CreatedAt)
	return classify("create deal package "+p.ID, err)
}

func (s *DealPackageStore) GetDealPackage(ctx context.Context, id string) (domain.DealPackage, error) {
	const q = `
		SELECT id, asset_id, components, valuation, terms, strategy, created_at
		FROM deal_packages WHERE id = $1`

	var (
		p          domain.DealPackage
		components []string
		terms      []byte
		strategy   []byte
	)
	err := s.q.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.AssetID, &components, &p.Valuation, &terms, &strategy, &p.CreatedAt,
	)
	if err != nil {
		return domain.DealPackage{}, classify("get deal package "+id, err)
	}

	p.Components = make([]domain.DealComponent, len(components))
	for i, c := range components {
		p.Components[i] = domain.DealComponent(c)
	}
	if err := json.Unmarshal(terms, &p.Terms); err != nil {
		return domain.DealPackage{}, fmt.Errorf("postgres: unmarshal terms %s: %w", id, err)
	}
	if err := json.Unmarshal(strategy, &p.Strategy); err != nil {
		return domain.DealPackage{}, fmt.Errorf("postgres: unmarshal strategy %s: %w", id, err)
	}
	return p, nil
}

var _ domain.DealPackageStore = (*DealPackageStore)(nil)
