package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feed_importer/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_rows (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL,
			district TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			country_code TEXT NOT NULL,
			property_type TEXT NOT NULL,
			listing_type TEXT NOT NULL,
			bedrooms INTEGER,
			bathrooms INTEGER,
			rooms TEXT NOT NULL DEFAULT '',
			area DOUBLE PRECISION,
			floor INTEGER,
			total_floors INTEGER,
			building_age INTEGER,
			images TEXT[] NOT NULL DEFAULT '{}',
			features TEXT[] NOT NULL DEFAULT '{}',
			source_url TEXT NOT NULL DEFAULT '',
			raw_data JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (tenant_id, external_id)
		);
		CREATE INDEX IF NOT EXISTS idx_catalog_rows_tenant ON catalog_rows(tenant_id, updated_at DESC);`)
	return err
}

// =============================================================================
// Catalog rows
// =============================================================================

const catalogColumns = `id, tenant_id, external_id, source, title, description, price, currency,
	address, city, district, country, country_code, property_type, listing_type,
	bedrooms, bathrooms, rooms, area, floor, total_floors, building_age,
	images, features, source_url, raw_data, created_at, updated_at`

func (s *PostgresStore) FindByExternalID(ctx context.Context, tenantID, externalID string) (*models.CatalogRow, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_rows WHERE tenant_id = $1 AND external_id = $2`

	var r models.CatalogRow
	err := s.pool.QueryRow(ctx, query, tenantID, externalID).Scan(
		&r.ID, &r.TenantID, &r.ExternalID, &r.Source, &r.Title, &r.Description, &r.Price, &r.Currency,
		&r.Address, &r.City, &r.District, &r.Country, &r.CountryCode, &r.PropertyType, &r.ListingType,
		&r.Bedrooms, &r.Bathrooms, &r.Rooms, &r.Area, &r.Floor, &r.TotalFloors, &r.BuildingAge,
		&r.Images, &r.Features, &r.SourceURL, &r.RawData, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.CatalogRow) error {
	query := `
		INSERT INTO catalog_rows (` + catalogColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
		)`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.TenantID, r.ExternalID, r.Source, r.Title, r.Description, r.Price, r.Currency,
		r.Address, r.City, r.District, r.Country, r.CountryCode, r.PropertyType, r.ListingType,
		r.Bedrooms, r.Bathrooms, r.Rooms, r.Area, r.Floor, r.TotalFloors, r.BuildingAge,
		nonNil(r.Images), nonNil(r.Features), r.SourceURL, r.RawData, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// Update overwrites every mutable column of the row identified by its id.
func (s *PostgresStore) Update(ctx context.Context, r *models.CatalogRow) error {
	query := `
		UPDATE catalog_rows SET
			title = $2, description = $3, price = $4, currency = $5,
			address = $6, city = $7, district = $8, country = $9, country_code = $10,
			property_type = $11, listing_type = $12,
			bedrooms = $13, bathrooms = $14, rooms = $15, area = $16,
			floor = $17, total_floors = $18, building_age = $19,
			images = $20, features = $21, source_url = $22, raw_data = $23,
			updated_at = $24
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		r.ID, r.Title, r.Description, r.Price, r.Currency,
		r.Address, r.City, r.District, r.Country, r.CountryCode,
		r.PropertyType, r.ListingType,
		r.Bedrooms, r.Bathrooms, r.Rooms, r.Area,
		r.Floor, r.TotalFloors, r.BuildingAge,
		nonNil(r.Images), nonNil(r.Features), r.SourceURL, r.RawData,
		r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, r.ID)
	}
	return nil
}

// CountByTenant reports how many rows a tenant owns.
func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_rows WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}
