package calculator

import (
	"fmt"
	"sort"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// ComputeThresholds calcule, en une passe sur toute la population, les
// percentiles demandés pour chaque métrique RFM. Le résultat ne dépend pas de
// l'ordre des enregistrements.
func ComputeThresholds(records []models.RFMRecord, levels []float64, method models.QuantileMethod) (models.SegmentThresholds, error) {
	if len(records) == 0 {
		return models.SegmentThresholds{}, &models.DegenerateInputError{Reason: "aucun client pour calculer les seuils"}
	}
	if method == "" {
		method = models.Linear
	}
	if _, err := models.ParseQuantileMethod(string(method)); err != nil {
		return models.SegmentThresholds{}, &models.ConfigError{Field: "quantile_method", Err: err}
	}
	for _, lv := range levels {
		if lv < 0 || lv > 1 {
			return models.SegmentThresholds{}, &models.ConfigError{Field: "percentiles", Err: fmt.Errorf("niveau hors [0,1]: %g", lv)}
		}
	}

	values := make(map[models.ThresholdKey]decimal.Decimal)
	for _, m := range models.Metrics {
		sorted := make([]decimal.Decimal, len(records))
		for i, r := range records {
			sorted[i] = m.Value(r)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
		for _, lv := range levels {
			values[models.ThresholdKey{Metric: m, Level: lv}] = Quantile(sorted, lv, method)
		}
	}
	return models.NewSegmentThresholds(values), nil
}

// Quantile renvoie le percentile level (0..1) d'un échantillon trié, position
// = level·(n−1) entre rangs voisins. sorted ne doit pas être vide.
func Quantile(sorted []decimal.Decimal, level float64, method models.QuantileMethod) decimal.Decimal {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := decimal.NewFromFloat(level).Mul(decimal.NewFromInt(int64(n - 1)))
	lo := int(pos.Floor().IntPart())
	hi := int(pos.Ceil().IntPart())
	if hi > n-1 {
		hi = n - 1
	}
	if lo > n-1 {
		lo = n - 1
	}
	frac := pos.Sub(decimal.NewFromInt(int64(lo)))

	switch method {
	case models.Lower:
		return sorted[lo]
	case models.Higher:
		return sorted[hi]
	case models.Midpoint:
		return sorted[lo].Add(sorted[hi]).Div(two)
	case models.Nearest:
		half := decimal.NewFromFloat(0.5)
		switch {
		case frac.LessThan(half):
			return sorted[lo]
		case frac.GreaterThan(half):
			return sorted[hi]
		case lo%2 == 0:
			return sorted[lo]
		default:
			return sorted[hi]
		}
	default:
		return sorted[lo].Add(sorted[hi].Sub(sorted[lo]).Mul(frac))
	}
}

// RequiredLevels fusionne les niveaux configurés et ceux référencés par les règles.
func RequiredLevels(percentiles []float64, rules []models.Rule) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	add := func(lv float64) {
		if _, ok := seen[lv]; !ok {
			seen[lv] = struct{}{}
			out = append(out, lv)
		}
	}
	for _, lv := range percentiles {
		add(lv)
	}
	for _, r := range rules {
		for _, c := range r.Conditions {
			if c.Kind == models.QuantileBound {
				add(c.Level)
			}
		}
	}
	sort.Float64s(out)
	return out
}
