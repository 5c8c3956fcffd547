package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"rfm-segments/pkg/models"
)

// CustomerColumns est l'en-tête de la table client (CSV et XLSX).
var CustomerColumns = []string{"CustomerID", "Recency", "Frequency", "Monetary", "RevenuePerDay", "Segment", "Churn"}

// customerRow rend une ligne en texte ; RevenuePerDay indéfini → cellule vide.
func customerRow(c models.ClassifiedCustomer) []string {
	rpd := ""
	if c.RevenuePerDay.Valid {
		rpd = c.RevenuePerDay.Decimal.String()
	}
	return []string{
		c.CustomerID,
		strconv.Itoa(c.Recency),
		strconv.Itoa(c.Frequency),
		c.Monetary.String(),
		rpd,
		string(c.Segment),
		strconv.FormatBool(c.Churn),
	}
}

// WriteCSV écrit une ligne par client, dans l'ordre reçu.
func WriteCSV(w io.Writer, customers []models.ClassifiedCustomer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CustomerColumns); err != nil {
		return err
	}
	for _, c := range customers {
		if err := cw.Write(customerRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
