package models

// ProductSize is a purchasable size variant of a product with its own price.
type ProductSize struct {
	Size  string  `db:"size" json:"size"`
	Price float64 `db:"price" json:"price"`
}

// Product represents a catalog entry. The catalog is owned by an external
// service; the order core only reads it to derive authoritative prices.
type Product struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Category    string        `db:"category" json:"category"`
	Available   bool          `db:"available" json:"available"`
	PrepTimeMin int           `db:"prep_time_min" json:"prep_time_min"`
	Sizes       []ProductSize `json:"sizes"`
}

// PriceFor returns the catalog price for the given size.
func (p *Product) PriceFor(size string) (float64, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Price, true
		}
	}
	return 0, false
}
