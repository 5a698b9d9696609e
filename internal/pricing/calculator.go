package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/texnomart-dev/storefront-backend/pkg/types"
)

var oneHundred = decimal.NewFromInt(100)

// UnitPrice returns the effective per-unit price for the ordered quantity.
// Tiers are evaluated ascending by MinQty and the first bracket containing
// the quantity wins; overlapping brackets therefore resolve deterministically.
// A quantity below 1 is clamped to 1. With no matching tier the base price
// is returned unchanged.
func UnitPrice(base decimal.Decimal, tiers types.PriceTiers, quantity int) decimal.Decimal {
	if quantity < 1 {
		quantity = 1
	}
	tier, ok := matchTier(tiers, quantity)
	if !ok || tier.Discount <= 0 {
		return base
	}
	factor := oneHundred.Sub(decimal.NewFromInt(int64(tier.Discount))).Div(oneHundred)
	return base.Mul(factor)
}

// LineTotal is the tier-adjusted unit price multiplied by the quantity.
func LineTotal(base decimal.Decimal, tiers types.PriceTiers, quantity int) decimal.Decimal {
	if quantity < 1 {
		quantity = 1
	}
	return UnitPrice(base, tiers, quantity).Mul(decimal.NewFromInt(int64(quantity)))
}

func matchTier(tiers types.PriceTiers, quantity int) (types.PriceTier, bool) {
	if len(tiers) == 0 {
		return types.PriceTier{}, false
	}
	ordered := make(types.PriceTiers, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinQty < ordered[j].MinQty
	})
	for _, tier := range ordered {
		if tier.MinQty <= quantity && quantity <= tier.MaxQty {
			return tier, true
		}
	}
	return types.PriceTier{}, false
}
