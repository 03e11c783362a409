package normalizer

import "github.com/user/property-ingest/internal/entity"

// CalculateDerivedFields fills pricePerAcre and pricePerSquareFoot in place.
// Each is computed independently and left at zero when its denominator is
// absent. Square footage precedence: totalSquareFeet (aggregated from
// improvements) wins over the top-level squareFeet field when both exist.
func (n *Normalizer) CalculateDerivedFields(r *entity.PropertyRecord) {
	r.PricePerAcre = 0
	r.PricePerSquareFoot = 0

	if r.Price > 0 && r.Acreage > 0 {
		r.PricePerAcre = r.Price / r.Acreage
	}

	sqft := r.TotalSquareFeet
	if sqft <= 0 {
		sqft = r.SquareFeet
	}
	if r.Price > 0 && sqft > 0 {
		r.PricePerSquareFoot = r.Price / sqft
	}
}
