package calculator

import (
	"fmt"
	"time"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

// Cohorts regroupe les clients par mois de premier achat et calcule, pour chaque
// mois de la fenêtre [start ; end], le CA moyen par client (LTV de cohorte).
// Un mois sans nouveau client donne une cohorte vide (LTV = 0).
func Cohorts(ds models.Dataset, aggs map[string]models.CustomerAggregate, startMonth, endMonth string) ([]models.CohortResult, error) {
	if len(aggs) == 0 {
		return nil, nil
	}

	type cohort struct {
		clients int
		revenue decimal.Decimal
		events  int
	}
	byMonth := make(map[time.Time]*cohort)
	var first, last time.Time
	for _, a := range aggs {
		m := monthOf(a.FirstPurchaseDate)
		c, ok := byMonth[m]
		if !ok {
			c = &cohort{}
			byMonth[m] = c
		}
		c.clients++
		c.revenue = c.revenue.Add(a.TotalRevenue)
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}
	for _, l := range ds.Orders {
		if a, ok := aggs[l.CustomerID]; ok {
			byMonth[monthOf(a.FirstPurchaseDate)].events++
		}
	}

	start, end := first, last
	var err error
	if startMonth != "" {
		if start, err = parseMonth(startMonth); err != nil {
			return nil, &models.ConfigError{Field: "start_month", Err: err}
		}
	}
	if endMonth != "" {
		if end, err = parseMonth(endMonth); err != nil {
			return nil, &models.ConfigError{Field: "end_month", Err: err}
		}
	}
	if end.Before(start) {
		return nil, &models.ConfigError{Field: "end_month", Err: fmt.Errorf("end_month < start_month")}
	}

	months := monthsBetweenInclusive(start, end)
	results := make([]models.CohortResult, 0, len(months))
	for _, m := range months {
		r := models.CohortResult{MonthYear: formatMonth(m), LTVAvg: decimal.Zero}
		if c, ok := byMonth[m]; ok {
			r.CohortClients = c.clients
			r.EventsRead = c.events
			r.LTVAvg = c.revenue.Div(decimal.NewFromInt(int64(c.clients))).Round(2)
		}
		results = append(results, r)
	}
	return results, nil
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// parseMonth("MMYYYY") -> 1er jour du mois UTC
func parseMonth(mmyyyy string) (time.Time, error) {
	if len(mmyyyy) != 6 {
		return time.Time{}, fmt.Errorf("format attendu MMYYYY (ex: 012025)")
	}
	for _, r := range mmyyyy {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("format attendu MMYYYY (ex: 012025)")
		}
	}
	month := int(mmyyyy[0]-'0')*10 + int(mmyyyy[1]-'0')
	year := int(mmyyyy[2]-'0')*1000 + int(mmyyyy[3]-'0')*100 + int(mmyyyy[4]-'0')*10 + int(mmyyyy[5]-'0')
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("mois invalide")
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

func monthsBetweenInclusive(start, end time.Time) []time.Time {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

func formatMonth(t time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(t.Month()), t.Year())
}
