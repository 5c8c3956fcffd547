package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"rfm-segments/pkg/models"
)

// Noms de fichiers du jeu de données brut.
const (
	SalesFile     = "sales_data.csv"
	CustomersFile = "customers.csv"
	ProductsFile  = "products.csv"
)

// LoadDir lit sales_data.csv (obligatoire), customers.csv et products.csv
// (facultatifs) depuis dir.
func LoadDir(dir string) (models.Dataset, error) {
	var ds models.Dataset

	f, err := os.Open(filepath.Join(dir, SalesFile))
	if err != nil {
		return ds, fmt.Errorf("open sales: %w", err)
	}
	defer f.Close()
	if ds.Orders, err = ReadOrders(f); err != nil {
		return ds, fmt.Errorf("%s: %w", SalesFile, err)
	}

	if err := readOptional(filepath.Join(dir, CustomersFile), func(r io.Reader) (err error) {
		ds.Customers, err = ReadCustomers(r)
		return err
	}); err != nil {
		return ds, fmt.Errorf("%s: %w", CustomersFile, err)
	}
	if err := readOptional(filepath.Join(dir, ProductsFile), func(r io.Reader) (err error) {
		ds.Products, err = ReadProducts(r)
		return err
	}); err != nil {
		return ds, fmt.Errorf("%s: %w", ProductsFile, err)
	}
	return ds, nil
}

func readOptional(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return read(f)
}

// ReadOrders lit un CSV de ventes ; les colonnes sont repérées par leur en-tête.
func ReadOrders(r io.Reader) ([]models.OrderLine, error) {
	var out []models.OrderLine
	err := readCSV(r, OrderColumns, func(fields []string, line int) error {
		l, err := ParseOrderLine(fields, line)
		if err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	return out, err
}

// ReadCustomers lit un CSV clients.
func ReadCustomers(r io.Reader) ([]models.Customer, error) {
	var out []models.Customer
	err := readCSV(r, CustomerColumns, func(fields []string, line int) error {
		c, err := ParseCustomer(fields, line)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// ReadProducts lit un CSV produits.
func ReadProducts(r io.Reader) ([]models.Product, error) {
	var out []models.Product
	err := readCSV(r, ProductColumns, func(fields []string, line int) error {
		p, err := ParseProduct(fields, line)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// readCSV réordonne chaque ligne selon columns. line = numéro de ligne dans le
// fichier (l'en-tête est la ligne 1).
func readCSV(r io.Reader, columns []string, row func(fields []string, line int) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV headers: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[normalize(h)] = i
	}
	pos := make([]int, len(columns))
	for i, c := range columns {
		p, ok := index[normalize(c)]
		if !ok {
			return &models.DataIntegrityError{Record: c, Line: 1, Reason: "colonne absente de l'en-tête"}
		}
		pos[i] = p
	}

	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return &models.DataIntegrityError{Record: "csv", Line: line, Reason: err.Error()}
		}
		fields := make([]string, len(columns))
		for i, p := range pos {
			if p < len(rec) {
				fields[i] = rec[p]
			}
		}
		if err := row(fields, line); err != nil {
			return err
		}
	}
}

// normalize rend "OrderID", "order_id" et "Order ID" équivalents.
func normalize(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	return strings.ToLower(strings.NewReplacer("_", "", " ", "").Replace(h))
}
