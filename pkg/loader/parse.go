// Package loader convertit les enregistrements bruts (CSV, lignes SQL lues en
// texte) en types du modèle. Toute valeur illisible est une DataIntegrityError.
package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

// Colonnes attendues, dans l'ordre du schéma d'entrée.
var (
	OrderColumns    = []string{"OrderID", "CustomerID", "OrderDate", "ProductID", "Quantity", "UnitPrice", "Region"}
	CustomerColumns = []string{"CustomerID", "Name", "Email", "JoinDate", "LastPurchaseDate"}
	ProductColumns  = []string{"ProductID", "Category", "ProductName", "Cost", "Price"}
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate lit une date ISO ; l'heure éventuelle est ignorée.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("date illisible %q", s)
}

// ParseOrderLine attend les champs dans l'ordre de OrderColumns.
func ParseOrderLine(fields []string, line int) (models.OrderLine, error) {
	if len(fields) < len(OrderColumns) {
		return models.OrderLine{}, integrity(fields, line, fmt.Sprintf("%d colonnes, %d attendues", len(fields), len(OrderColumns)))
	}
	date, err := ParseDate(fields[2])
	if err != nil {
		return models.OrderLine{}, integrity(fields, line, err.Error())
	}
	qty, err := strconv.Atoi(strings.TrimSpace(fields[4]))
	if err != nil {
		return models.OrderLine{}, integrity(fields, line, "Quantity illisible "+fields[4])
	}
	price, err := decimal.NewFromString(strings.TrimSpace(fields[5]))
	if err != nil {
		return models.OrderLine{}, integrity(fields, line, "UnitPrice illisible "+fields[5])
	}
	return models.OrderLine{
		OrderID:    strings.TrimSpace(fields[0]),
		CustomerID: strings.TrimSpace(fields[1]),
		OrderDate:  date,
		ProductID:  strings.TrimSpace(fields[3]),
		Quantity:   qty,
		UnitPrice:  price,
		Region:     strings.TrimSpace(fields[6]),
	}, nil
}

// ParseCustomer attend les champs dans l'ordre de CustomerColumns. Les dates
// vides sont tolérées.
func ParseCustomer(fields []string, line int) (models.Customer, error) {
	if len(fields) < len(CustomerColumns) {
		return models.Customer{}, integrity(fields, line, "colonnes manquantes")
	}
	c := models.Customer{
		CustomerID: strings.TrimSpace(fields[0]),
		Name:       fields[1],
		Email:      fields[2],
	}
	if c.CustomerID == "" {
		return models.Customer{}, integrity(fields, line, "CustomerID vide")
	}
	var err error
	if strings.TrimSpace(fields[3]) != "" {
		if c.JoinDate, err = ParseDate(fields[3]); err != nil {
			return models.Customer{}, integrity(fields, line, err.Error())
		}
	}
	if strings.TrimSpace(fields[4]) != "" {
		if c.LastPurchaseDate, err = ParseDate(fields[4]); err != nil {
			return models.Customer{}, integrity(fields, line, err.Error())
		}
	}
	return c, nil
}

// ParseProduct attend les champs dans l'ordre de ProductColumns.
func ParseProduct(fields []string, line int) (models.Product, error) {
	if len(fields) < len(ProductColumns) {
		return models.Product{}, integrity(fields, line, "colonnes manquantes")
	}
	p := models.Product{
		ProductID:   strings.TrimSpace(fields[0]),
		Category:    strings.TrimSpace(fields[1]),
		ProductName: strings.TrimSpace(fields[2]),
	}
	if p.ProductID == "" {
		return models.Product{}, integrity(fields, line, "ProductID vide")
	}
	var err error
	if p.Cost, err = decimalOrZero(fields[3]); err != nil {
		return models.Product{}, integrity(fields, line, "Cost illisible "+fields[3])
	}
	if p.Price, err = decimalOrZero(fields[4]); err != nil {
		return models.Product{}, integrity(fields, line, "Price illisible "+fields[4])
	}
	return p, nil
}

func decimalOrZero(s string) (decimal.Decimal, error) {
	if s = strings.TrimSpace(s); s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func integrity(fields []string, line int, reason string) error {
	record := ""
	if len(fields) > 0 {
		record = fields[0]
	}
	return &models.DataIntegrityError{Record: record, Line: line, Reason: reason}
}
