package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"feed_importer/models"
)

// MemoryStore is a catalog store for dry runs and tests. Rows are copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*models.CatalogRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*models.CatalogRow)}
}

func memoryKey(tenantID, externalID string) string {
	return tenantID + "\x00" + externalID
}

func (m *MemoryStore) FindByExternalID(_ context.Context, tenantID, externalID string) (*models.CatalogRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[memoryKey(tenantID, externalID)]
	if !ok {
		return nil, nil
	}
	return copyRow(r), nil
}

func (m *MemoryStore) Create(_ context.Context, r *models.CatalogRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(r.TenantID, r.ExternalID)
	if _, exists := m.rows[k]; exists {
		return fmt.Errorf("duplicate external id %q for tenant %q", r.ExternalID, r.TenantID)
	}
	m.rows[k] = copyRow(r)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, r *models.CatalogRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(r.TenantID, r.ExternalID)
	existing, ok := m.rows[k]
	if !ok || existing.ID != r.ID {
		return fmt.Errorf("%w: %s", ErrRowNotFound, r.ID)
	}
	m.rows[k] = copyRow(r)
	return nil
}

func (m *MemoryStore) CountByTenant(_ context.Context, tenantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.rows {
		if r.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Rows returns a tenant's rows ordered by external id.
func (m *MemoryStore) Rows(tenantID string) []models.CatalogRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CatalogRow
	for _, r := range m.rows {
		if r.TenantID == tenantID {
			out = append(out, *copyRow(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

func copyRow(r *models.CatalogRow) *models.CatalogRow {
	c := *r
	c.Images = append([]string(nil), r.Images...)
	c.Features = append([]string(nil), r.Features...)
	c.RawData = append([]byte(nil), r.RawData...)
	return &c
}
