package calculator

import (
	"time"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(order, customer, date string, qty int, price string) models.OrderLine {
	return models.OrderLine{
		OrderID:    order,
		CustomerID: customer,
		ProductID:  "P1",
		OrderDate:  day(date),
		Quantity:   qty,
		UnitPrice:  dec(price),
		Region:     "North",
	}
}

func rfm(id string, r, f int, m string) models.RFMRecord {
	return models.RFMRecord{CustomerID: id, Recency: r, Frequency: f, Monetary: dec(m)}
}
