package calculator

import (
	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

// PurchasePeriod = LastPurchaseDate − FirstPurchaseDate, en jours.
func PurchasePeriod(agg models.CustomerAggregate) int {
	return daysBetween(agg.FirstPurchaseDate, agg.LastPurchaseDate)
}

// RevenuePerDay = TotalRevenue / PurchasePeriod. Pour une période nulle (un seul
// jour d'achat) le résultat est indéfini : NullDecimal{Valid: false}.
func RevenuePerDay(agg models.CustomerAggregate) decimal.NullDecimal {
	period := PurchasePeriod(agg)
	if period <= 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(agg.TotalRevenue.Div(decimal.NewFromInt(int64(period))))
}
