package calculator

import (
	"sort"
	"time"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

const (
	topCategories = 3
	rollingWindow = 7
)

// Summarize calcule les indicateurs globaux à partir de la table déjà classée.
// Il ne modifie ni Segment ni Churn.
func Summarize(ds models.Dataset, aggs map[string]models.CustomerAggregate, customers []models.ClassifiedCustomer, th models.SegmentThresholds) models.Summary {
	s := models.Summary{
		TotalCustomers: len(customers),
		TotalSales:     decimal.Zero,
	}

	orders := make(map[string]struct{})
	for _, l := range ds.Orders {
		orders[l.OrderID] = struct{}{}
		s.TotalSales = s.TotalSales.Add(l.TotalPrice())
	}
	s.TotalOrders = len(orders)

	for _, k := range th.Keys() {
		v, _ := th.Get(k.Metric, k.Level)
		s.Thresholds = append(s.Thresholds, models.ThresholdValue{Metric: k.Metric, Level: k.Level, Value: v})
	}

	if len(customers) == 0 {
		return s
	}
	n := decimal.NewFromInt(int64(len(customers)))

	var quantity, churned int
	revenue := decimal.Zero
	for _, a := range aggs {
		quantity += a.TotalQuantity
		revenue = revenue.Add(a.TotalRevenue)
	}
	s.AvgRevenuePerCustomer = revenue.Div(n).Round(2)
	s.AvgQuantityPerCustomer = float64(quantity) / float64(len(customers))

	type acc struct {
		count, churn, recency, frequency int
		monetary                         decimal.Decimal
	}
	bySegment := make(map[models.Segment]*acc)
	for _, c := range customers {
		a, ok := bySegment[c.Segment]
		if !ok {
			a = &acc{}
			bySegment[c.Segment] = a
		}
		a.count++
		a.recency += c.Recency
		a.frequency += c.Frequency
		a.monetary = a.monetary.Add(c.Monetary)
		if c.Churn {
			a.churn++
			churned++
		}
	}
	s.ChurnRate = float64(churned) / float64(len(customers))

	for _, seg := range models.Segments {
		a, ok := bySegment[seg]
		if !ok {
			s.Segments = append(s.Segments, models.SegmentStats{Segment: seg, AvgMonetary: decimal.Zero})
			continue
		}
		cnt := float64(a.count)
		s.Segments = append(s.Segments, models.SegmentStats{
			Segment:      seg,
			Customers:    a.count,
			ChurnRate:    float64(a.churn) / cnt,
			AvgRecency:   float64(a.recency) / cnt,
			AvgFrequency: float64(a.frequency) / cnt,
			AvgMonetary:  a.monetary.Div(decimal.NewFromInt(int64(a.count))).Round(2),
		})
	}

	s.TopCategories = categoryRevenue(ds, topCategories)
	s.Products = productPerformance(ds)
	s.Regions = regionSales(ds)
	s.DailySales = dailySales(ds, rollingWindow)
	return s
}

// categoryRevenue joint les lignes à la table produits. Sans table produits, nil.
func categoryRevenue(ds models.Dataset, limit int) []models.CategoryRevenue {
	if len(ds.Products) == 0 {
		return nil
	}
	category := make(map[string]string, len(ds.Products))
	for _, p := range ds.Products {
		category[p.ProductID] = p.Category
	}
	totals := make(map[string]decimal.Decimal)
	for _, l := range ds.Orders {
		cat, ok := category[l.ProductID]
		if !ok {
			continue
		}
		totals[cat] = totals[cat].Add(l.TotalPrice())
	}

	out := make([]models.CategoryRevenue, 0, len(totals))
	for cat, rev := range totals {
		out = append(out, models.CategoryRevenue{Category: cat, Revenue: rev})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// productPerformance joint les lignes à la table produits et regroupe par
// (Category, ProductName). Tri par CA décroissant. Sans table produits, nil.
func productPerformance(ds models.Dataset) []models.ProductStats {
	if len(ds.Products) == 0 {
		return nil
	}
	byID := make(map[string]models.Product, len(ds.Products))
	for _, p := range ds.Products {
		byID[p.ProductID] = p
	}

	type key struct{ category, name string }
	type acc struct {
		quantity, lines int
		revenue, prices decimal.Decimal
	}
	groups := make(map[key]*acc)
	for _, l := range ds.Orders {
		p, ok := byID[l.ProductID]
		if !ok {
			continue
		}
		k := key{p.Category, p.ProductName}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.quantity += l.Quantity
		a.lines++
		a.revenue = a.revenue.Add(l.TotalPrice())
		a.prices = a.prices.Add(l.UnitPrice)
	}

	out := make([]models.ProductStats, 0, len(groups))
	for k, a := range groups {
		out = append(out, models.ProductStats{
			Category:     k.category,
			ProductName:  k.name,
			Quantity:     a.quantity,
			Revenue:      a.revenue,
			AvgUnitPrice: a.prices.Div(decimal.NewFromInt(int64(a.lines))).Round(2),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

// regionSales cumule quantités et CA par région, triées par nom.
func regionSales(ds models.Dataset) []models.RegionSales {
	if len(ds.Orders) == 0 {
		return nil
	}
	byRegion := make(map[string]*models.RegionSales)
	for _, l := range ds.Orders {
		r, ok := byRegion[l.Region]
		if !ok {
			r = &models.RegionSales{Region: l.Region}
			byRegion[l.Region] = r
		}
		r.Quantity += l.Quantity
		r.Revenue = r.Revenue.Add(l.TotalPrice())
	}
	out := make([]models.RegionSales, 0, len(byRegion))
	for _, r := range byRegion {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// dailySales totalise le CA par jour de vente puis calcule la moyenne glissante
// sur les `window` derniers jours présents dans la série (les jours sans vente
// ne comptent pas).
func dailySales(ds models.Dataset, window int) []models.DailySales {
	if len(ds.Orders) == 0 {
		return nil
	}
	totals := make(map[time.Time]decimal.Decimal)
	for _, l := range ds.Orders {
		d := dateOf(l.OrderDate)
		totals[d] = totals[d].Add(l.TotalPrice())
	}
	days := make([]time.Time, 0, len(totals))
	for d := range totals {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]models.DailySales, len(days))
	sum := decimal.Zero
	for i, d := range days {
		sum = sum.Add(totals[d])
		if i >= window {
			sum = sum.Sub(totals[days[i-window]])
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = models.DailySales{
			Date:        d.Format(time.DateOnly),
			Revenue:     totals[d],
			RollingMean: sum.Div(decimal.NewFromInt(int64(n))).Round(2),
		}
	}
	return out
}
