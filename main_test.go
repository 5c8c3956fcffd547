package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rfm-segments/pkg/config"
	"rfm-segments/pkg/models"
)

const header = "OrderID,CustomerID,OrderDate,ProductID,Quantity,UnitPrice,Region\n"

func writeSales(t *testing.T, rows string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sales_data.csv"), []byte(header+rows), 0o644); err != nil {
		t.Fatalf("write sales: %v", err)
	}
	return dir
}

func TestRun_WritesOutputs(t *testing.T) {
	dir := writeSales(t, strings.Join([]string{
		"O1,A,2024-03-22,P1,1,100,EU",
		"O2,B,2024-05-01,P1,1,200,EU",
		"O3,B,2024-06-01,P1,1,300,EU",
		"O4,C,2024-06-20,P1,1,900,US",
	}, "\n")+"\n")
	out := filepath.Join(t.TempDir(), "segments")

	var stdout bytes.Buffer
	err := run(context.Background(), options{
		configPath: filepath.Join(dir, "missing-is-ok.yaml"),
		dir:        dir,
		asOf:       "2024-06-30",
		out:        out,
		formats:    "json,csv",
	}, &stdout)
	// un fichier de config explicite absent est une erreur
	if err == nil {
		t.Fatal("expected error for missing config file")
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("verbose: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err = run(context.Background(), options{
		configPath: cfgPath,
		dir:        dir,
		asOf:       "2024-06-30",
		out:        out,
		formats:    "json,csv",
	}, &stdout)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ext := range []string{".json", ".csv"} {
		if _, err := os.Stat(out + ext); err != nil {
			t.Fatalf("missing output %s: %v", ext, err)
		}
	}
	if !strings.Contains(stdout.String(), "clients=3") {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "High Value ;") {
		t.Fatalf("segment lines missing: %s", stdout.String())
	}
}

func TestRun_NegativeQuantityProducesNoOutput(t *testing.T) {
	dir := writeSales(t, "O1,A,2024-03-22,P1,-1,100,EU\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("output: {formats: [json, csv, xlsx]}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	outDir := t.TempDir()

	err := run(context.Background(), options{
		configPath: cfgPath,
		dir:        dir,
		out:        filepath.Join(outDir, "segments"),
	}, &bytes.Buffer{})
	if !errors.Is(err, models.ErrDataIntegrity) {
		t.Fatalf("expected data integrity error, got %v", err)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Fatalf("no output expected, found %d files", len(entries))
	}
}

func TestRun_ReferenceDateBeforePurchase(t *testing.T) {
	dir := writeSales(t, "O1,A,2024-03-22,P1,1,100,EU\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("verbose: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	outDir := t.TempDir()

	err := run(context.Background(), options{
		configPath: cfgPath,
		dir:        dir,
		asOf:       "2024-01-01",
		out:        filepath.Join(outDir, "segments"),
	}, &bytes.Buffer{})
	if !errors.Is(err, models.ErrInvalidReferenceDate) {
		t.Fatalf("expected invalid reference date, got %v", err)
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Fatalf("no output expected, found %d files", len(entries))
	}
}

func TestOptionsApply_DSNGuessesEngine(t *testing.T) {
	cfg := config.Default()
	options{dsn: "postgres://u:p@h/db"}.apply(cfg)
	if cfg.Source.Kind != "postgres" {
		t.Fatalf("expected postgres source, got %q", cfg.Source.Kind)
	}
	v := true
	options{source: "sqlite", dsn: "x.db", verbose: &v}.apply(cfg)
	if cfg.Source.Kind != "sqlite" || !cfg.Verbose {
		t.Fatalf("flags not applied: %+v", cfg.Source)
	}
}
