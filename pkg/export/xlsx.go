package export

import (
	"fmt"
	"io"

	"rfm-segments/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	CustomersSheet = "Customer Segments"
	SummarySheet   = "Summary"
)

// WriteXLSX écrit un classeur à deux feuilles : la table client et le résumé.
func WriteXLSX(w io.Writer, res models.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CustomersSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeCustomerSheet(f, res.Customers, headerStyle); err != nil {
		return err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeSummarySheet(f, res, headerStyle); err != nil {
		return err
	}
	return f.Write(w)
}

func writeCustomerSheet(f *excelize.File, customers []models.ClassifiedCustomer, headerStyle int) error {
	for i, col := range CustomerColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(CustomersSheet, cell, col); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(CustomerColumns), 1)
	if err := f.SetCellStyle(CustomersSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, c := range customers {
		row := i + 2 // en-tête en ligne 1
		values := []any{c.CustomerID, c.Recency, c.Frequency, c.Monetary.InexactFloat64(), nil, string(c.Segment), c.Churn}
		if c.RevenuePerDay.Valid {
			values[4] = c.RevenuePerDay.Decimal.InexactFloat64()
		}
		for j, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(CustomersSheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SetPanes(CustomersSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeSummarySheet empile les tableaux du résumé ; la première erreur arrête l'écriture.
func writeSummarySheet(f *excelize.File, res models.Result, headerStyle int) error {
	s := res.Summary
	row := 1
	var err error
	put := func(values ...any) {
		for j, v := range values {
			if err != nil {
				return
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			err = f.SetCellValue(SummarySheet, cell, v)
		}
		row++
	}
	header := func(values ...any) {
		if row > 1 {
			row++ // ligne vide entre deux tableaux
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(values), row)
		put(values...)
		if err == nil {
			err = f.SetCellStyle(SummarySheet, start, end, headerStyle)
		}
	}

	header("Indicateur", "Valeur")
	put("RunID", res.RunID)
	put("AsOf", res.AsOf.Format("2006-01-02"))
	put("TotalCustomers", s.TotalCustomers)
	put("TotalOrders", s.TotalOrders)
	put("TotalSales", s.TotalSales.InexactFloat64())
	put("AvgRevenuePerCustomer", s.AvgRevenuePerCustomer.InexactFloat64())
	put("AvgQuantityPerCustomer", s.AvgQuantityPerCustomer)
	put("ChurnRate", s.ChurnRate)

	header("Segment", "Customers", "ChurnRate", "AvgRecency", "AvgFrequency", "AvgMonetary")
	for _, st := range s.Segments {
		put(string(st.Segment), st.Customers, st.ChurnRate, st.AvgRecency, st.AvgFrequency, st.AvgMonetary.InexactFloat64())
	}

	header("Metric", "Level", "Threshold")
	for _, th := range s.Thresholds {
		put(string(th.Metric), th.Level, th.Value.InexactFloat64())
	}

	if len(s.TopCategories) > 0 {
		header("Category", "Revenue")
		for _, c := range s.TopCategories {
			put(c.Category, c.Revenue.InexactFloat64())
		}
	}
	if len(s.Products) > 0 {
		header("Category", "Product", "Quantity", "Revenue", "AvgUnitPrice")
		for _, p := range s.Products {
			put(p.Category, p.ProductName, p.Quantity, p.Revenue.InexactFloat64(), p.AvgUnitPrice.InexactFloat64())
		}
	}
	if len(s.Regions) > 0 {
		header("Region", "Quantity", "Revenue")
		for _, r := range s.Regions {
			put(r.Region, r.Quantity, r.Revenue.InexactFloat64())
		}
	}
	if len(s.DailySales) > 0 {
		header("Date", "Revenue", "RollingMean7")
		for _, d := range s.DailySales {
			put(d.Date, d.Revenue.InexactFloat64(), d.RollingMean.InexactFloat64())
		}
	}
	if len(s.Cohorts) > 0 {
		header("Cohort", "Clients", "LTVAvg", "Lines")
		for _, c := range s.Cohorts {
			put(c.MonthYear, c.CohortClients, c.LTVAvg.InexactFloat64(), c.EventsRead)
		}
	}
	return err
}
