package calculator

import (
	"context"
	"fmt"
	"log"
	"sort"

	"rfm-segments/pkg/models"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Run exécute le calcul complet en deux phases :
//  1. agrégation puis RFM de tous les clients ;
//  2. seuils calculés une seule fois sur la population complète, puis
//     classification de chaque client contre cet instantané figé.
//
// Aucune sortie n'est produite en cas d'erreur.
func Run(ctx context.Context, ds models.Dataset, cfg models.Config) (models.Result, error) {
	rules := cfg.Rules
	if rules == nil {
		rules = models.DefaultRules()
	}
	method := cfg.QuantileMethod
	if method == "" {
		method = models.Linear
	}

	asOf, err := ReferenceDate(ds, cfg.AsOf, cfg.Now)
	if err != nil {
		return models.Result{}, fmt.Errorf("as_of: %w", err)
	}

	// Phase 1
	aggs, err := Aggregate(ctx, ds, cfg.Workers)
	if err != nil {
		return models.Result{}, fmt.Errorf("aggregate: %w", err)
	}
	if len(aggs) == 0 {
		return models.Result{}, &models.DegenerateInputError{Reason: "aucun client avec commande"}
	}

	ids := make([]string, 0, len(aggs))
	for id := range aggs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		log.Printf("[INFO] asOf=%s lignes=%d clients=%d", asOf.Format("2006-01-02"), len(ds.Orders), len(ids))
		bar = progressbar.Default(int64(2 * len(ids)))
	} else {
		bar = progressbar.DefaultSilent(int64(2 * len(ids)))
	}

	records := make([]models.RFMRecord, len(ids))
	for i, id := range ids {
		rec, err := ComputeRFM(aggs[id], asOf)
		if err != nil {
			return models.Result{}, fmt.Errorf("rfm: %w", err)
		}
		records[i] = rec
		_ = bar.Add(1)
	}

	// Barrière : tous les RFM existent, les seuils sont figés avant toute classification.
	levels := RequiredLevels(cfg.Percentiles, rules)
	thresholds, err := ComputeThresholds(records, levels, method)
	if err != nil {
		return models.Result{}, fmt.Errorf("thresholds: %w", err)
	}
	clf, err := NewClassifier(rules, thresholds)
	if err != nil {
		return models.Result{}, fmt.Errorf("classifier: %w", err)
	}
	if cfg.Verbose {
		log.Printf("[INFO] seuils monetary: Q25=%s Q50=%s Q75=%s",
			thresholds.MonetaryQ25(), thresholds.MonetaryQ50(), thresholds.MonetaryQ75())
	}

	// Phase 2
	customers := make([]models.ClassifiedCustomer, len(records))
	for i, rec := range records {
		customers[i] = models.ClassifiedCustomer{
			RFMRecord:     rec,
			RevenuePerDay: RevenuePerDay(aggs[rec.CustomerID]),
			Segment:       clf.Classify(rec),
			Churn:         IsChurn(rec, cfg.ChurnWindowDays),
		}
		_ = bar.Add(1)
	}

	summary := Summarize(ds, aggs, customers, thresholds)
	summary.Cohorts, err = Cohorts(ds, aggs, cfg.StartMonthInclusive, cfg.EndMonthInclusive)
	if err != nil {
		return models.Result{}, fmt.Errorf("cohorts: %w", err)
	}

	if cfg.Verbose {
		for _, st := range summary.Segments {
			log.Printf("[INFO] %s -> clients=%d churn=%.1f%%", st.Segment, st.Customers, st.ChurnRate*100)
		}
	}

	return models.Result{
		RunID:      uuid.NewString(),
		AsOf:       asOf,
		Thresholds: thresholds,
		Customers:  customers,
		Summary:    summary,
	}, nil
}
