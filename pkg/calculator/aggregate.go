package calculator

import (
	"context"
	"hash/fnv"
	"time"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Aggregate réduit les lignes de commande en un agrégat par client.
// Les lignes sont d'abord toutes validées (la première ligne fautive est
// rapportée), puis réparties par CustomerID sur `workers` partitions
// disjointes réduites en parallèle.
func Aggregate(ctx context.Context, ds models.Dataset, workers int) (map[string]models.CustomerAggregate, error) {
	if err := ValidateOrders(ds); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	parts := partition(ds.Orders, workers)
	reduced := make([]map[string]*accumulator, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i := range parts {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reduced[i] = reduce(ds.Orders, parts[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]models.CustomerAggregate)
	for _, part := range reduced {
		for id, acc := range part {
			out[id] = acc.aggregate(id)
		}
	}
	return out, nil
}

// ValidateOrders contrôle chaque ligne et l'intégrité référentielle vis-à-vis
// des tables clients/produits lorsqu'elles sont fournies.
func ValidateOrders(ds models.Dataset) error {
	var customers, products map[string]struct{}
	if len(ds.Customers) > 0 {
		customers = make(map[string]struct{}, len(ds.Customers))
		for _, c := range ds.Customers {
			customers[c.CustomerID] = struct{}{}
		}
	}
	if len(ds.Products) > 0 {
		products = make(map[string]struct{}, len(ds.Products))
		for _, p := range ds.Products {
			products[p.ProductID] = struct{}{}
		}
	}

	for i, l := range ds.Orders {
		fail := func(reason string) error {
			return &models.DataIntegrityError{Record: l.OrderID, Line: i + 1, Reason: reason}
		}
		switch {
		case l.OrderID == "":
			return fail("OrderID vide")
		case l.CustomerID == "":
			return fail("CustomerID vide")
		case l.OrderDate.IsZero():
			return fail("OrderDate manquante")
		case l.Quantity <= 0:
			return fail("Quantity <= 0")
		case l.UnitPrice.IsNegative():
			return fail("UnitPrice négatif")
		}
		if customers != nil {
			if _, ok := customers[l.CustomerID]; !ok {
				return fail("CustomerID inconnu " + l.CustomerID)
			}
		}
		if products != nil && l.ProductID != "" {
			if _, ok := products[l.ProductID]; !ok {
				return fail("ProductID inconnu " + l.ProductID)
			}
		}
	}
	return nil
}

type accumulator struct {
	revenue  decimal.Decimal
	quantity int
	orders   map[string]struct{}
	first    time.Time
	last     time.Time
}

func (a *accumulator) aggregate(id string) models.CustomerAggregate {
	return models.CustomerAggregate{
		CustomerID:        id,
		TotalRevenue:      a.revenue,
		TotalQuantity:     a.quantity,
		OrderCount:        len(a.orders),
		FirstPurchaseDate: a.first,
		LastPurchaseDate:  a.last,
	}
}

func reduce(lines []models.OrderLine, idx []int) map[string]*accumulator {
	out := make(map[string]*accumulator)
	for _, i := range idx {
		l := lines[i]
		day := dateOf(l.OrderDate)
		acc, ok := out[l.CustomerID]
		if !ok {
			acc = &accumulator{orders: make(map[string]struct{}), first: day, last: day}
			out[l.CustomerID] = acc
		}
		acc.revenue = acc.revenue.Add(l.TotalPrice())
		acc.quantity += l.Quantity
		acc.orders[l.OrderID] = struct{}{}
		if day.Before(acc.first) {
			acc.first = day
		}
		if day.After(acc.last) {
			acc.last = day
		}
	}
	return out
}

// partition répartit les index de lignes par hachage du CustomerID : toutes les
// lignes d'un client tombent dans la même partition.
func partition(lines []models.OrderLine, n int) [][]int {
	parts := make([][]int, n)
	for i, l := range lines {
		h := fnv.New32a()
		h.Write([]byte(l.CustomerID))
		k := int(h.Sum32() % uint32(n))
		parts[k] = append(parts[k], i)
	}
	return parts
}

// dateOf tronque t à sa date calendaire, exprimée en UTC.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
