package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func sampleResult() models.Result {
	return models.Result{
		RunID: "run-1",
		AsOf:  time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Customers: []models.ClassifiedCustomer{
			{
				RFMRecord:     models.RFMRecord{CustomerID: "C1", Recency: 10, Frequency: 6, Monetary: decimal.RequireFromString("900")},
				RevenuePerDay: decimal.NewNullDecimal(decimal.RequireFromString("7.5")),
				Segment:       models.HighValue,
			},
			{
				RFMRecord: models.RFMRecord{CustomerID: "C2", Recency: 100, Frequency: 1, Monetary: decimal.RequireFromString("100")},
				Segment:   models.LowValue,
				Churn:     true,
			},
		},
		Summary: models.Summary{
			TotalCustomers: 2,
			TotalSales:     decimal.RequireFromString("1000"),
			Segments: []models.SegmentStats{
				{Segment: models.HighValue, Customers: 1, AvgMonetary: decimal.RequireFromString("900")},
			},
		},
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"json, CSV", "json", ".xlsx"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != JSON || got[1] != CSV || got[2] != XLSX {
		t.Fatalf("unexpected formats: %v", got)
	}
	if _, err := ParseFormats([]string{"parquet"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteJSON_UndefinedRevenuePerDayIsNull(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc struct {
		Customers []map[string]any `json:"customers"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(doc.Customers) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(doc.Customers))
	}
	if v, ok := doc.Customers[1]["revenue_per_day"]; !ok || v != nil {
		t.Fatalf("expected null revenue_per_day, got %v (present=%v)", v, ok)
	}
	if doc.Customers[0]["segment"] != "High Value" {
		t.Fatalf("unexpected segment: %v", doc.Customers[0]["segment"])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult().Customers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(lines))
	}
	if lines[0] != "CustomerID,Recency,Frequency,Monetary,RevenuePerDay,Segment,Churn" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != "C1,10,6,900,7.5,High Value,false" {
		t.Fatalf("unexpected row: %s", lines[1])
	}
	if lines[2] != "C2,100,1,100,,Low Value,true" {
		t.Fatalf("undefined revenue per day should be empty: %s", lines[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue(CustomersSheet, "A2"); v != "C1" {
		t.Fatalf("A2 = %q", v)
	}
	if v, _ := f.GetCellValue(CustomersSheet, "F3"); v != "Low Value" {
		t.Fatalf("F3 = %q", v)
	}
	if v, _ := f.GetCellValue(CustomersSheet, "E3"); v != "" {
		t.Fatalf("undefined revenue per day should be empty, got %q", v)
	}
	if v, _ := f.GetCellValue(SummarySheet, "B2"); v != "run-1" {
		t.Fatalf("summary RunID = %q", v)
	}
}

func TestWrite_AllFormats(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out", "segments")
	paths, err := Write(sampleResult(), base, []Format{JSON, CSV, XLSX})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "out"))
	if len(entries) != 3 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segments.csv")
	boom := errors.New("boom")
	err := writeAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "CustomerID\n")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}

func TestTimestampedBase(t *testing.T) {
	got := TimestampedBase("results/segments", time.Date(2024, 6, 30, 12, 5, 9, 0, time.UTC))
	if got != "results/segments_20240630_120509" {
		t.Fatalf("unexpected base: %s", got)
	}
}

func TestWrite_LaterFailureRemovesEarlierFormats(t *testing.T) {
	saved := writers[CSV]
	writers[CSV] = func(io.Writer, models.Result) error { return errors.New("disk full") }
	defer func() { writers[CSV] = saved }()

	dir := t.TempDir()
	paths, err := Write(sampleResult(), filepath.Join(dir, "segments"), []Format{JSON, CSV, XLSX})
	if err == nil {
		t.Fatal("expected error from the CSV writer")
	}
	if len(paths) != 0 {
		t.Fatalf("no path expected on failure, got %v", paths)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("segments.json (or a temporary) left behind: %d entries", len(entries))
	}
}

func TestSummarySections_JSONAndXLSX(t *testing.T) {
	res := sampleResult()
	res.Summary.Products = []models.ProductStats{{Category: "Books", ProductName: "Go", Quantity: 3, Revenue: decimal.RequireFromString("40"), AvgUnitPrice: decimal.RequireFromString("15")}}
	res.Summary.Regions = []models.RegionSales{{Region: "North", Quantity: 3, Revenue: decimal.RequireFromString("27")}}
	res.Summary.DailySales = []models.DailySales{{Date: "2024-06-30", Revenue: decimal.RequireFromString("10"), RollingMean: decimal.RequireFromString("10")}}

	var js bytes.Buffer
	if err := WriteJSON(&js, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{`"products"`, `"regions"`, `"daily_sales"`, `"rolling_mean_7"`} {
		if !strings.Contains(js.String(), key) {
			t.Fatalf("%s missing from JSON", key)
		}
	}

	var xl bytes.Buffer
	if err := WriteXLSX(&xl, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := excelize.OpenReader(&xl)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	seen := map[string]bool{}
	for _, r := range rows {
		if len(r) > 0 {
			seen[r[0]] = true
		}
	}
	for _, want := range []string{"Region", "North", "Date", "2024-06-30", "Category", "Books"} {
		if !seen[want] {
			t.Fatalf("summary sheet has no row starting with %q", want)
		}
	}
}
