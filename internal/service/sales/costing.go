package sales

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmsales/internal/domain/models"
)

// ComputeTotal returns quantity × unitPrice rounded to two decimals.
func ComputeTotal(quantity, unitPrice float64) float64 {
	total, _ := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2).Float64()
	return total
}

// UnitCost prorates the lot's acquisition cost over its original head count.
// A lot without an original count imputes no cost.
func UnitCost(lot models.Lot) float64 {
	if lot.QuantityOriginal <= 0 {
		return 0
	}
	cost, _ := decimal.NewFromFloat(lot.AcquisitionCost).
		Div(decimal.NewFromInt(int64(lot.QuantityOriginal))).
		Float64()
	return cost
}

// CostOfSale is the acquisition cost attributed to quantitySold units of lot.
func CostOfSale(lot *models.Lot, quantitySold int) float64 {
	if lot == nil || quantitySold <= 0 {
		return 0
	}
	cost, _ := decimal.NewFromFloat(UnitCost(*lot)).Mul(decimal.NewFromInt(int64(quantitySold))).Float64()
	return cost
}

// ClampToStock caps requested at the lot's live count when that count is known.
func ClampToStock(lot models.Lot, requested int) int {
	if lot.HasKnownQuantity() && requested > *lot.Quantity {
		return *lot.Quantity
	}
	return requested
}
