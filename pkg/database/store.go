package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"

	"rfm-segments/pkg/loader"
	"rfm-segments/pkg/models"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Tables nomme les tables sources. Customers et Products vides = non lues.
type Tables struct {
	Sales     string `yaml:"sales"`
	Customers string `yaml:"customers"`
	Products  string `yaml:"products"`
}

// DefaultTables reprend les noms des fichiers CSV bruts.
func DefaultTables() Tables {
	return Tables{Sales: "sales_data", Customers: "customers", Products: "products"}
}

// Colonnes SQL, dans l'ordre de loader.OrderColumns etc.
var (
	orderSQLColumns    = []string{"order_id", "customer_id", "order_date", "product_id", "quantity", "unit_price", "region"}
	customerSQLColumns = []string{"customer_id", "name", "email", "join_date", "last_purchase_date"}
	productSQLColumns  = []string{"product_id", "category", "product_name", "cost", "price"}
)

func (t Tables) validate() error {
	for _, name := range []string{t.Sales, t.Customers, t.Products} {
		if name != "" && !tableNameRe.MatchString(name) {
			return fmt.Errorf("table invalide %q", name)
		}
	}
	if t.Sales == "" {
		return fmt.Errorf("table des ventes manquante")
	}
	return nil
}

// LoadDataset lit les trois tables via database/sql. Chaque colonne est lue en
// texte puis convertie par le package loader, comme pour les CSV.
func LoadDataset(ctx context.Context, db *sql.DB, tables Tables, verbose bool) (models.Dataset, error) {
	var ds models.Dataset
	if err := tables.validate(); err != nil {
		return ds, err
	}

	err := queryRows(ctx, db, tables.Sales, orderSQLColumns, func(fields []string, n int) error {
		l, err := loader.ParseOrderLine(fields, n)
		if err != nil {
			return err
		}
		ds.Orders = append(ds.Orders, l)
		return nil
	})
	if err != nil {
		return ds, fmt.Errorf("%s: %w", tables.Sales, err)
	}

	if tables.Customers != "" {
		err = queryRows(ctx, db, tables.Customers, customerSQLColumns, func(fields []string, n int) error {
			c, err := loader.ParseCustomer(fields, n)
			if err != nil {
				return err
			}
			ds.Customers = append(ds.Customers, c)
			return nil
		})
		if err != nil {
			return ds, fmt.Errorf("%s: %w", tables.Customers, err)
		}
	}

	if tables.Products != "" {
		err = queryRows(ctx, db, tables.Products, productSQLColumns, func(fields []string, n int) error {
			p, err := loader.ParseProduct(fields, n)
			if err != nil {
				return err
			}
			ds.Products = append(ds.Products, p)
			return nil
		})
		if err != nil {
			return ds, fmt.Errorf("%s: %w", tables.Products, err)
		}
	}

	if verbose {
		log.Printf("[DEBUG] Lignes lues: ventes=%d clients=%d produits=%d",
			len(ds.Orders), len(ds.Customers), len(ds.Products))
	}
	return ds, nil
}

// queryRows appelle row pour chaque ligne ; n commence à 1.
func queryRows(ctx context.Context, db *sql.DB, table string, columns []string, row func(fields []string, n int) error) error {
	q := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(columns, ", "), table)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	vals := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range vals {
		dest[i] = &vals[i]
	}
	n := 0
	for rows.Next() {
		n++
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		fields := make([]string, len(columns))
		for i, v := range vals {
			fields[i] = v.String
		}
		if err := row(fields, n); err != nil {
			return err
		}
	}
	return rows.Err()
}
