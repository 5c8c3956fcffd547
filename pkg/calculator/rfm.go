package calculator

import (
	"fmt"
	"strings"
	"time"

	"rfm-segments/pkg/models"
)

// ReferenceDate résout la date asOf :
//   - "" ou "max" → plus grande OrderDate du jeu de données
//   - "now"       → now() (date du jour, UTC)
//   - "YYYY-MM-DD"
func ReferenceDate(ds models.Dataset, asOf string, now func() time.Time) (time.Time, error) {
	switch s := strings.ToLower(strings.TrimSpace(asOf)); s {
	case "", "max":
		if len(ds.Orders) == 0 {
			return time.Time{}, &models.DegenerateInputError{Reason: "aucune commande pour déterminer asOf"}
		}
		latest := dateOf(ds.Orders[0].OrderDate)
		for _, l := range ds.Orders[1:] {
			if d := dateOf(l.OrderDate); d.After(latest) {
				latest = d
			}
		}
		return latest, nil
	case "now":
		if now == nil {
			now = time.Now
		}
		return dateOf(now().UTC()), nil
	default:
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, &models.ConfigError{Field: "as_of", Err: fmt.Errorf("format attendu YYYY-MM-DD, max ou now: %w", err)}
		}
		return t, nil
	}
}

// ComputeRFM dérive Recency/Frequency/Monetary d'un agrégat.
func ComputeRFM(agg models.CustomerAggregate, asOf time.Time) (models.RFMRecord, error) {
	asOf = dateOf(asOf)
	last := dateOf(agg.LastPurchaseDate)
	if last.After(asOf) {
		return models.RFMRecord{}, &models.InvalidReferenceDateError{
			CustomerID:   agg.CustomerID,
			AsOf:         asOf,
			LastPurchase: last,
		}
	}
	return models.RFMRecord{
		CustomerID: agg.CustomerID,
		Recency:    daysBetween(last, asOf),
		Frequency:  agg.OrderCount,
		Monetary:   agg.TotalRevenue,
	}, nil
}

// daysBetween compte les jours calendaires entiers de from à to. Calcul en
// secondes Unix : time.Duration sature au-delà de ~292 ans.
func daysBetween(from, to time.Time) int {
	return int((dateOf(to).Unix() - dateOf(from).Unix()) / 86400)
}
