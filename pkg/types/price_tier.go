package types

// PriceTier is one quantity-break discount bracket on a product. Discount is
// a whole-number percentage applied to the unit price whenever the ordered
// quantity falls inside [MinQty, MaxQty].
type PriceTier struct {
	MinQty   int `json:"min"`
	MaxQty   int `json:"max"`
	Discount int `json:"discount"`
}

// PriceTiers is stored as a jsonb column on products.
type PriceTiers []PriceTier
