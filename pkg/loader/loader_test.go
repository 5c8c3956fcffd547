package loader

import (
	"errors"
	"strings"
	"testing"
	"time"

	"rfm-segments/pkg/models"
)

func TestLoadDir(t *testing.T) {
	ds, err := LoadDir("testdata/raw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Orders) != 3 || len(ds.Customers) != 3 || len(ds.Products) != 2 {
		t.Fatalf("got %d orders, %d customers, %d products", len(ds.Orders), len(ds.Customers), len(ds.Products))
	}
	o := ds.Orders[0]
	if o.OrderID != "ORD000001" || o.Quantity != 2 || o.UnitPrice.String() != "19.99" || o.Region != "North" {
		t.Fatalf("unexpected first order: %+v", o)
	}
	if !o.OrderDate.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected order date: %v", o.OrderDate)
	}
	if !ds.Customers[2].LastPurchaseDate.IsZero() {
		t.Fatal("empty LastPurchaseDate should stay zero")
	}
	if ds.Products[1].Category != "Toys" {
		t.Fatalf("unexpected product: %+v", ds.Products[1])
	}
}

func TestLoadDir_MissingSales(t *testing.T) {
	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Fatal("expected error when sales_data.csv is missing")
	}
}

func TestReadOrders_ColumnOrderFromHeader(t *testing.T) {
	in := "region,unit_price,quantity,product_id,order_date,customer_id,order_id\nWest,1.5,3,P,2024-03-01,C,O\n"
	got, err := ReadOrders(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].OrderID != "O" || got[0].CustomerID != "C" || got[0].Quantity != 3 || got[0].Region != "West" {
		t.Fatalf("columns not mapped by header: %+v", got[0])
	}
}

func TestReadOrders_MissingColumn(t *testing.T) {
	in := "OrderID,CustomerID,OrderDate\nO,C,2024-01-01\n"
	_, err := ReadOrders(strings.NewReader(in))
	if !errors.Is(err, models.ErrDataIntegrity) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
}

func TestReadOrders_BadQuantity(t *testing.T) {
	in := strings.Join(OrderColumns, ",") + "\nO1,C,2024-01-01,P,two,1.00,North\n"
	_, err := ReadOrders(strings.NewReader(in))
	var die *models.DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
	if die.Record != "O1" || die.Line != 2 {
		t.Fatalf("offending record not identified: %+v", die)
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-02-29", "2024-02-29T13:45:00Z", "2024-02-29 13:45:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("%q: got %v", in, got)
		}
	}
	if _, err := ParseDate("29/02/2024"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestReadOrders_HeaderWithBOM(t *testing.T) {
	in := "\uFEFFOrderID,CustomerID,OrderDate,ProductID,Quantity,UnitPrice,Region\nO1,C1,2024-01-05,P1,2,9.50,North\n"
	got, err := ReadOrders(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].OrderID != "O1" {
		t.Fatalf("first column lost behind the BOM: %+v", got)
	}
}
