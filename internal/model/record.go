// Package model defines the core domain models used throughout the application.
package model

// CatalogRecord is one item observed during a catalog scan. Records are
// ephemeral: they live for the duration of a scan batch and are never
// persisted beyond the baseline snapshot.
type CatalogRecord struct {
	URL         string   `json:"url"`
	Retailer    string   `json:"retailer"`
	Title       string   `json:"title,omitempty"`
	ProductCode string   `json:"product_code,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// HasTitle reports whether the record carries a usable title.
func (r *CatalogRecord) HasTitle() bool {
	return r.Title != ""
}

// HasPrice reports whether the record carries a price.
func (r *CatalogRecord) HasPrice() bool {
	return r.Price != nil
}

// HasImages reports whether the record carries at least one image URL.
func (r *CatalogRecord) HasImages() bool {
	return len(r.ImageURLs) > 0
}
