// Package compare computes arbitrage results between two source snapshots.
// It is pure: identical snapshots always produce the identical result set,
// and the output order carries no meaning.
package compare

import (
	"math"

	"github.com/evgeniytob14/table/internal/models"
)

// AfterCommission applies a fixed percent commission to a price in minor
// units. Rounding happens on the scaled value before dividing back by 100,
// so the result may carry a fractional remainder of a minor unit.
func AfterCommission(price int64, commission int) float64 {
	return math.Round(float64(price)*float64(100-commission)) / 100
}

// Profit returns the absolute profit in major units and the profit percent
// (rounded to two decimals) of buying at priceA and selling at priceB on a
// source charging commissionB percent.
func Profit(priceA, priceB int64, commissionB int) (profit, profitPercent, afterCommission float64) {
	afterCommission = AfterCommission(priceB, commissionB)

	profit = (afterCommission - float64(priceA)) / 100
	basis := math.Max(float64(priceA), afterCommission)
	if basis != 0 {
		profitPercent = profit / (basis / 100) * 100
	}

	return round2(profit), round2(profitPercent), afterCommission
}

// Snapshots intersects the item names of two snapshots (exact trimmed,
// case-sensitive match) and prices every common item. The slice order is
// unspecified; sorting and filtering belong to the caller.
func Snapshots(snapA, snapB *models.Snapshot, commissionB int) []models.ComparisonResult {
	if snapA == nil || snapB == nil {
		return nil
	}

	results := make([]models.ComparisonResult, 0, min(len(snapA.Items), len(snapB.Items)))
	for name, itemA := range snapA.Items {
		itemB, ok := snapB.Items[name]
		if !ok {
			continue
		}

		profit, profitPercent, afterCommission := Profit(itemA.Price, itemB.Price, commissionB)
		results = append(results, models.ComparisonResult{
			Name:                  name,
			PriceA:                itemA.Price,
			PriceB:                itemB.Price,
			PriceBAfterCommission: afterCommission,
			Profit:                profit,
			ProfitPercent:         profitPercent,
			StockA:                itemA.Stock,
			StockB:                itemB.Stock,
		})
	}

	return results
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
