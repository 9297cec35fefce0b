package engine

import (
	"context"
	"sync"

	"shelfwatch/internal/cascade"
	"shelfwatch/internal/model"
)

// mockProducts is an in-memory ProductStore for resolver tests.
type mockProducts struct {
	products []model.CanonicalProduct
	err      error
}

func (m *mockProducts) FindByURL(_ context.Context, url string) (*model.CanonicalProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if m.products[i].URL == url {
			return &m.products[i], nil
		}
	}
	return nil, nil
}

func (m *mockProducts) FindByNormalizedURL(_ context.Context, normalizedURL string) (*model.CanonicalProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if cascade.NormalizeURL(m.products[i].URL) == normalizedURL {
			return &m.products[i], nil
		}
	}
	return nil, nil
}

func (m *mockProducts) FindByProductCode(_ context.Context, retailer, code string) (*model.CanonicalProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.products {
		if m.products[i].Retailer == retailer && m.products[i].ProductCode == code {
			return &m.products[i], nil
		}
	}
	return nil, nil
}

func (m *mockProducts) FindByPriceWindow(_ context.Context, retailer string, price, tolerance float64) ([]model.CanonicalProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.CanonicalProduct
	for _, p := range m.products {
		if p.Retailer != retailer || p.Price == nil {
			continue
		}
		diff := *p.Price - price
		if diff < 0 {
			diff = -diff
		}
		if diff < tolerance {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProducts) FindByRetailerWithImages(_ context.Context, retailer string, price, tolerance float64) ([]model.CanonicalProduct, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.CanonicalProduct
	for _, p := range m.products {
		if p.Retailer != retailer || len(p.ImageURLs) == 0 {
			continue
		}
		if tolerance >= 0 {
			if p.Price == nil {
				continue
			}
			diff := *p.Price - price
			if diff < 0 {
				diff = -diff
			}
			if diff >= tolerance {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// mockAudit records appended audit entries and can inject failures.
type mockAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
	err     error
}

func (m *mockAudit) AppendAudit(_ context.Context, entry *model.AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAudit) Entries() []model.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
