package calculator

import (
	"fmt"

	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
)

// predicate est une condition dont la borne a été résolue contre l'instantané de seuils.
type predicate struct {
	metric models.Metric
	op     models.Op
	bound  decimal.Decimal
}

type compiledRule struct {
	segment models.Segment
	preds   []predicate
}

// Classifier applique une liste ordonnée de règles : la première qui correspond
// l'emporte, sinon Regular. Les seuils sont figés à la construction.
type Classifier struct {
	rules      []compiledRule
	thresholds models.SegmentThresholds
}

// NewClassifier valide les règles et résout chaque borne de quantile. Une règle
// qui référence un percentile absent de thresholds est une erreur de configuration.
func NewClassifier(rules []models.Rule, thresholds models.SegmentThresholds) (*Classifier, error) {
	c := &Classifier{thresholds: thresholds}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, &models.ConfigError{Field: fmt.Sprintf("rules[%d]", i), Err: err}
		}
		cr := compiledRule{segment: r.Segment}
		for _, cond := range r.Conditions {
			bound := cond.Value
			if cond.Kind == models.QuantileBound {
				v, ok := thresholds.Get(cond.Metric, cond.Level)
				if !ok {
					return nil, &models.ConfigError{
						Field: fmt.Sprintf("rules[%d]", i),
						Err:   fmt.Errorf("percentile %g de %s non calculé", cond.Level, cond.Metric),
					}
				}
				bound = v
			}
			cr.preds = append(cr.preds, predicate{metric: cond.Metric, op: cond.Op, bound: bound})
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// Classify renvoie le segment d'un client. Fonction pure de (r, règles, seuils).
func (c *Classifier) Classify(r models.RFMRecord) models.Segment {
	for _, rule := range c.rules {
		if rule.matches(r) {
			return rule.segment
		}
	}
	return models.Regular
}

// Thresholds renvoie l'instantané utilisé.
func (c *Classifier) Thresholds() models.SegmentThresholds {
	return c.thresholds
}

func (cr compiledRule) matches(r models.RFMRecord) bool {
	for _, p := range cr.preds {
		if !p.op.Compare(p.metric.Value(r), p.bound) {
			return false
		}
	}
	return true
}

// IsChurn : inactif si Recency dépasse strictement la fenêtre (en jours).
func IsChurn(r models.RFMRecord, windowDays int) bool {
	return r.Recency > windowDays
}
