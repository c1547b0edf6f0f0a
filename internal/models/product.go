// Package models defines the data exchanged between the extraction
// pipelines, the aggregators, and the catalog backend.
package models

// Image is a single product image URL in gallery order.
type Image struct {
	URL string `json:"url"`
}

// Variant is one non-self option of a product's variant selector:
// the axis it belongs to ("color_name", "size_name", ...), the
// identifier of the sibling product, and the human-readable value.
type Variant struct {
	Axis       string `json:"type"`
	Identifier string `json:"asin"`
	Value      string `json:"name"`
}

// ProductRecord is the full extraction result for one identifier.
// It is immutable once emitted by a pipeline; ownership passes to the
// aggregator and then to the manager.
type ProductRecord struct {
	Identifier       string    `json:"asin"`
	Price            float64   `json:"price"`
	BasisPrice       float64   `json:"basis_price,omitempty"`
	SavingPercentage int       `json:"saving_percentage,omitempty"`
	URL              string    `json:"url"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model,omitempty"`
	Color            string    `json:"color,omitempty"`
	Title            string    `json:"title"`
	Images           []Image   `json:"images"`
	Variants         []Variant `json:"twister,omitempty"`
	Ranking          int       `json:"ranking,omitempty"`
	// The misspelled key is what the backend stores under; fixing it
	// here would silently drop the rating on every sync.
	CustomerRating string `json:"custumers_opinion,omitempty"`
	Description    string `json:"description,omitempty"`
}

// DiscoverySet maps a brand to the identifiers discovered for it.
// Duplicates are removed before the set reaches the manager; order is
// not significant.
type DiscoverySet map[string][]string

// Total returns the number of identifiers across all brands.
func (d DiscoverySet) Total() int {
	n := 0
	for _, ids := range d {
		n += len(ids)
	}
	return n
}
