package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"feed_importer/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_rows (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		external_id TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT,
		description TEXT,
		price REAL,
		currency TEXT,
		address TEXT,
		city TEXT,
		district TEXT,
		country TEXT,
		country_code TEXT,
		property_type TEXT,
		listing_type TEXT,
		bedrooms INTEGER,
		bathrooms INTEGER,
		rooms TEXT,
		area REAL,
		floor INTEGER,
		total_floors INTEGER,
		building_age INTEGER,
		images JSON,
		features JSON,
		source_url TEXT,
		raw_data JSON,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE(tenant_id, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_tenant ON catalog_rows(tenant_id, updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) FindByExternalID(ctx context.Context, tenantID, externalID string) (*models.CatalogRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, external_id, source, title, description, price, currency,
			address, city, district, country, country_code, property_type, listing_type,
			bedrooms, bathrooms, rooms, area, floor, total_floors, building_age,
			images, features, source_url, raw_data, created_at, updated_at
		FROM catalog_rows WHERE tenant_id = ? AND external_id = ?`, tenantID, externalID)

	var r models.CatalogRow
	var id string
	var bedrooms, bathrooms, floor, totalFloors, age sql.NullInt64
	var area sql.NullFloat64
	var images, features, raw sql.NullString
	err := row.Scan(&id, &r.TenantID, &r.ExternalID, &r.Source, &r.Title, &r.Description, &r.Price, &r.Currency,
		&r.Address, &r.City, &r.District, &r.Country, &r.CountryCode, &r.PropertyType, &r.ListingType,
		&bedrooms, &bathrooms, &r.Rooms, &area, &floor, &totalFloors, &age,
		&images, &features, &r.SourceURL, &raw, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("row id %q: %w", id, err)
	}
	r.Bedrooms = nullInt(bedrooms)
	r.Bathrooms = nullInt(bathrooms)
	r.Floor = nullInt(floor)
	r.TotalFloors = nullInt(totalFloors)
	r.BuildingAge = nullInt(age)
	if area.Valid {
		r.Area = &area.Float64
	}
	if err := decodeList(images, &r.Images); err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}
	if err := decodeList(features, &r.Features); err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	if raw.Valid && raw.String != "" {
		r.RawData = json.RawMessage(raw.String)
	}
	return &r, nil
}

func (s *SQLiteStore) Create(ctx context.Context, r *models.CatalogRow) error {
	images, _ := json.Marshal(nonNil(r.Images))
	features, _ := json.Marshal(nonNil(r.Features))
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_rows (id, tenant_id, external_id, source, title, description, price, currency,
			address, city, district, country, country_code, property_type, listing_type,
			bedrooms, bathrooms, rooms, area, floor, total_floors, building_age,
			images, features, source_url, raw_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.TenantID, r.ExternalID, r.Source, r.Title, r.Description, r.Price, r.Currency,
		r.Address, r.City, r.District, r.Country, r.CountryCode, r.PropertyType, r.ListingType,
		r.Bedrooms, r.Bathrooms, r.Rooms, r.Area, r.Floor, r.TotalFloors, r.BuildingAge,
		string(images), string(features), r.SourceURL, rawText(r.RawData), r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, r *models.CatalogRow) error {
	images, _ := json.Marshal(nonNil(r.Images))
	features, _ := json.Marshal(nonNil(r.Features))
	res, err := s.db.ExecContext(ctx, `
		UPDATE catalog_rows SET
			title = ?, description = ?, price = ?, currency = ?,
			address = ?, city = ?, district = ?, country = ?, country_code = ?,
			property_type = ?, listing_type = ?,
			bedrooms = ?, bathrooms = ?, rooms = ?, area = ?,
			floor = ?, total_floors = ?, building_age = ?,
			images = ?, features = ?, source_url = ?, raw_data = ?,
			updated_at = ?
		WHERE id = ?`,
		r.Title, r.Description, r.Price, r.Currency,
		r.Address, r.City, r.District, r.Country, r.CountryCode,
		r.PropertyType, r.ListingType,
		r.Bedrooms, r.Bathrooms, r.Rooms, r.Area,
		r.Floor, r.TotalFloors, r.BuildingAge,
		string(images), string(features), r.SourceURL, rawText(r.RawData),
		r.UpdatedAt, r.ID.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRowNotFound, r.ID)
	}
	return nil
}

func (s *SQLiteStore) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_rows WHERE tenant_id = ?`, tenantID).Scan(&n)
	return n, err
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func decodeList(v sql.NullString, out *[]string) error {
	*out = []string{}
	if !v.Valid || v.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(v.String), out)
}

func rawText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
