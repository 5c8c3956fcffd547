package database

import (
	"context"
	"fmt"
	"strings"

	"rfm-segments/pkg/loader"
	"rfm-segments/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPostgres ouvre un pool pgx et vérifie la connexion.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// LoadDatasetPostgres lit les tables via pgx. Les colonnes sont castées en
// text pour réutiliser les mêmes conversions que database/sql.
func LoadDatasetPostgres(ctx context.Context, pool *pgxpool.Pool, tables Tables) (models.Dataset, error) {
	var ds models.Dataset
	if err := tables.validate(); err != nil {
		return ds, err
	}

	err := pgRows(ctx, pool, tables.Sales, orderSQLColumns, func(fields []string, n int) error {
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
		err = pgRows(ctx, pool, tables.Customers, customerSQLColumns, func(fields []string, n int) error {
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
		err = pgRows(ctx, pool, tables.Products, productSQLColumns, func(fields []string, n int) error {
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
	return ds, nil
}

func pgRows(ctx context.Context, pool *pgxpool.Pool, table string, columns []string, row func(fields []string, n int) error) error {
	rows, err := pool.Query(ctx, textSelect(table, columns))
	if err != nil {
		return err
	}
	defer rows.Close()

	vals := make([]*string, len(columns))
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
			if v != nil {
				fields[i] = *v
			}
		}
		if err := row(fields, n); err != nil {
			return err
		}
	}
	return rows.Err()
}

// textSelect : SELECT a::text, b::text FROM t
func textSelect(table string, columns []string) string {
	cast := make([]string, len(columns))
	for i, c := range columns {
		cast[i] = c + "::text"
	}
	return fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(cast, ", "), table)
}
