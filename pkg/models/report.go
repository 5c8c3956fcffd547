package models

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
REPORT → résultat complet d'un calcul, consommé tel quel par les exports.
*/

// Result contient la table classée (triée par CustomerID) et le résumé du calcul.
type Result struct {
	RunID      string               `json:"run_id"`
	AsOf       time.Time            `json:"as_of"`
	Thresholds SegmentThresholds    `json:"-"`
	Customers  []ClassifiedCustomer `json:"customers"`
	Summary    Summary              `json:"summary"`
}

// Summary reprend les indicateurs du rapport d'analyse.
type Summary struct {
	TotalCustomers         int               `json:"total_customers"`
	TotalOrders            int               `json:"total_orders"`
	TotalSales             decimal.Decimal   `json:"total_sales"`
	AvgRevenuePerCustomer  decimal.Decimal   `json:"avg_revenue_per_customer"`
	AvgQuantityPerCustomer float64           `json:"avg_quantity_per_customer"`
	ChurnRate              float64           `json:"churn_rate"`
	Thresholds             []ThresholdValue  `json:"thresholds"`
	Segments               []SegmentStats    `json:"segments"`
	TopCategories          []CategoryRevenue `json:"top_categories,omitempty"`
	Products               []ProductStats    `json:"products,omitempty"`
	Regions                []RegionSales     `json:"regions,omitempty"`
	DailySales             []DailySales      `json:"daily_sales,omitempty"`
	Cohorts                []CohortResult    `json:"cohorts,omitempty"`
}

// ThresholdValue est la forme exportable d'un percentile.
type ThresholdValue struct {
	Metric Metric          `json:"metric"`
	Level  float64         `json:"level"`
	Value  decimal.Decimal `json:"value"`
}

// SegmentStats agrège les clients d'un segment.
type SegmentStats struct {
	Segment      Segment         `json:"segment"`
	Customers    int             `json:"customers"`
	ChurnRate    float64         `json:"churn_rate"`
	AvgRecency   float64         `json:"avg_recency"`
	AvgFrequency float64         `json:"avg_frequency"`
	AvgMonetary  decimal.Decimal `json:"avg_monetary"`
}

// CategoryRevenue : chiffre d'affaires d'une catégorie produit.
type CategoryRevenue struct {
	Category string          `json:"category"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// ProductStats : performance d'un produit, clé (Category, ProductName).
type ProductStats struct {
	Category     string          `json:"category"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	AvgUnitPrice decimal.Decimal `json:"avg_unit_price"` // moyenne des UnitPrice des lignes
}

// RegionSales : ventes cumulées d'une région.
type RegionSales struct {
	Region   string          `json:"region"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// DailySales : CA d'un jour de vente et moyenne glissante sur les 7 derniers
// jours de vente observés (moins en début de série).
type DailySales struct {
	Date        string          `json:"date"` // YYYY-MM-DD
	Revenue     decimal.Decimal `json:"revenue"`
	RollingMean decimal.Decimal `json:"rolling_mean_7"`
}

// CohortResult contient les métriques calculées pour une cohorte mensuelle
// (clients regroupés par mois de premier achat).
type CohortResult struct {
	MonthYear     string          `json:"month_year"`     // "MM/YYYY"
	LTVAvg        decimal.Decimal `json:"ltv_avg"`        // CA moyen par client de la cohorte
	CohortClients int             `json:"cohort_clients"` // nombre de clients de la cohorte
	EventsRead    int             `json:"events_read"`    // lignes de commande de la cohorte
}
