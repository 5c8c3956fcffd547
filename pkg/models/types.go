package models

import (
	"time"

	"github.com/shopspring/decimal"
)

/*
LOAD → types simples pour charger les données brutes (ventes, clients, produits).
*/

// OrderLine représente une ligne de commande brute : un produit dans une commande.
type OrderLine struct {
	OrderID    string
	CustomerID string
	ProductID  string
	OrderDate  time.Time // date calendaire UTC
	Quantity   int
	UnitPrice  decimal.Decimal
	Region     string
}

// TotalPrice = Quantity × UnitPrice.
func (l OrderLine) TotalPrice() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Customer représente une ligne de la table clients.
type Customer struct {
	CustomerID       string
	Name             string
	Email            string
	JoinDate         time.Time
	LastPurchaseDate time.Time
}

// Product représente une ligne de la table produits.
type Product struct {
	ProductID   string
	Category    string
	ProductName string
	Cost        decimal.Decimal
	Price       decimal.Decimal
}

// Dataset est l'instantané complet passé au moteur. Customers et Products servent
// au contrôle d'intégrité référentielle quand ils sont non vides.
type Dataset struct {
	Orders    []OrderLine
	Customers []Customer
	Products  []Product
}

/*
COMPUTE → agrégats et métriques par client
*/

// CustomerAggregate contient le cumul des lignes de commande d'un client.
type CustomerAggregate struct {
	CustomerID        string
	TotalRevenue      decimal.Decimal
	TotalQuantity     int
	OrderCount        int // nombre de OrderID distincts
	FirstPurchaseDate time.Time
	LastPurchaseDate  time.Time
}

// RFMRecord contient Recency (jours), Frequency et Monetary d'un client.
type RFMRecord struct {
	CustomerID string          `json:"customer_id"`
	Recency    int             `json:"recency"`
	Frequency  int             `json:"frequency"`
	Monetary   decimal.Decimal `json:"monetary"`
}

// ClassifiedCustomer est la ligne de sortie finale, en lecture seule pour les consommateurs.
type ClassifiedCustomer struct {
	RFMRecord
	RevenuePerDay decimal.NullDecimal `json:"revenue_per_day"` // Valid=false si période d'achat nulle
	Segment       Segment             `json:"segment"`
	Churn         bool                `json:"churn"`
}

/*
CONFIG → paramètres du moteur
*/

// Config contient les paramètres passés à calculator.Run.
type Config struct {
	AsOf            string         // "max" (défaut), "now" ou "YYYY-MM-DD"
	Percentiles     []float64      // niveaux calculés en plus de ceux référencés par les règles
	QuantileMethod  QuantileMethod // défaut: linear
	ChurnWindowDays int            // churn si Recency > ChurnWindowDays
	Rules           []Rule         // ordre = priorité ; nil → DefaultRules()
	Workers         int            // partitions d'agrégation (0 → 1)
	Verbose         bool
	Now             func() time.Time // horloge pour AsOf="now" (tests)

	// Fenêtre du rapport de cohortes, "MMYYYY". Vide → du premier au dernier mois observé.
	StartMonthInclusive string
	EndMonthInclusive   string
}

// DefaultConfig : asOf = date max, quartiles, churn après 90 jours d'inactivité.
func DefaultConfig() Config {
	return Config{
		AsOf:            "max",
		Percentiles:     []float64{0.25, 0.5, 0.75},
		QuantileMethod:  Linear,
		ChurnWindowDays: 90,
		Rules:           DefaultRules(),
		Workers:         4,
	}
}
