package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Segment est le libellé marketing attribué à un client.
type Segment string

const (
	HighValue   Segment = "High Value"
	MediumValue Segment = "Medium Value"
	LowValue    Segment = "Low Value"
	Regular     Segment = "Regular"
)

// Segments liste les libellés dans l'ordre d'affichage.
var Segments = []Segment{HighValue, MediumValue, LowValue, Regular}

// ParseSegment accepte "High Value", "high_value", "highvalue"...
func ParseSegment(s string) (Segment, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	for _, seg := range Segments {
		if strings.ToLower(strings.ReplaceAll(string(seg), " ", "")) == norm {
			return seg, nil
		}
	}
	return "", fmt.Errorf("segment inconnu %q", s)
}

// Metric désigne une des trois dimensions RFM.
type Metric string

const (
	Recency   Metric = "recency"
	Frequency Metric = "frequency"
	Monetary  Metric = "monetary"
)

// Metrics liste les métriques pour lesquelles les seuils sont calculés.
var Metrics = []Metric{Recency, Frequency, Monetary}

// Value extrait la métrique m d'un RFMRecord.
func (m Metric) Value(r RFMRecord) decimal.Decimal {
	switch m {
	case Recency:
		return decimal.NewFromInt(int64(r.Recency))
	case Frequency:
		return decimal.NewFromInt(int64(r.Frequency))
	default:
		return r.Monetary
	}
}

func (m Metric) valid() bool {
	return m == Recency || m == Frequency || m == Monetary
}

// Op est un opérateur de comparaison.
type Op string

const (
	Less         Op = "<"
	LessEqual    Op = "<="
	Greater      Op = ">"
	GreaterEqual Op = ">="
	Equal        Op = "=="
)

// Compare applique l'opérateur à a et b.
func (o Op) Compare(a, b decimal.Decimal) bool {
	switch o {
	case Less:
		return a.LessThan(b)
	case LessEqual:
		return a.LessThanOrEqual(b)
	case Greater:
		return a.GreaterThan(b)
	case GreaterEqual:
		return a.GreaterThanOrEqual(b)
	case Equal:
		return a.Equal(b)
	}
	return false
}

func (o Op) valid() bool {
	switch o {
	case Less, LessEqual, Greater, GreaterEqual, Equal:
		return true
	}
	return false
}

// BoundKind distingue une borne absolue d'une borne relative à la population.
type BoundKind int

const (
	AbsoluteBound BoundKind = iota
	QuantileBound
)

// Condition compare une métrique à une borne : soit une valeur absolue,
// soit le percentile Level de la même métrique sur la population.
type Condition struct {
	Metric Metric
	Op     Op
	Kind   BoundKind
	Value  decimal.Decimal // Kind == AbsoluteBound
	Level  float64         // Kind == QuantileBound, dans [0,1]
}

// Abs construit une condition à borne absolue.
func Abs(m Metric, op Op, v int64) Condition {
	return Condition{Metric: m, Op: op, Kind: AbsoluteBound, Value: decimal.NewFromInt(v)}
}

// Quant construit une condition relative au percentile level de m.
func Quant(m Metric, op Op, level float64) Condition {
	return Condition{Metric: m, Op: op, Kind: QuantileBound, Level: level}
}

func (c Condition) String() string {
	if c.Kind == QuantileBound {
		return fmt.Sprintf("%s %s Q(%g)", c.Metric, c.Op, c.Level)
	}
	return fmt.Sprintf("%s %s %s", c.Metric, c.Op, c.Value)
}

// Validate vérifie la métrique, l'opérateur et le niveau.
func (c Condition) Validate() error {
	if !c.Metric.valid() {
		return fmt.Errorf("métrique inconnue %q", c.Metric)
	}
	if !c.Op.valid() {
		return fmt.Errorf("opérateur inconnu %q", c.Op)
	}
	if c.Kind == QuantileBound && (c.Level < 0 || c.Level > 1) {
		return fmt.Errorf("niveau de percentile hors [0,1]: %g", c.Level)
	}
	return nil
}

// Rule associe un libellé à une conjonction de conditions.
type Rule struct {
	Segment    Segment
	Conditions []Condition
}

// DefaultRules reproduit la segmentation marketing historique.
// Un client qui ne vérifie aucune règle reçoit Regular.
func DefaultRules() []Rule {
	return []Rule{
		{Segment: HighValue, Conditions: []Condition{
			Abs(Recency, Less, 30), Abs(Frequency, Greater, 5), Quant(Monetary, Greater, 0.75),
		}},
		{Segment: MediumValue, Conditions: []Condition{
			Abs(Recency, Less, 60), Abs(Frequency, Greater, 3), Quant(Monetary, Greater, 0.5),
		}},
		{Segment: LowValue, Conditions: []Condition{
			Abs(Recency, Greater, 90), Abs(Frequency, Less, 2), Quant(Monetary, Less, 0.25),
		}},
	}
}

// QuantileMethod choisit l'interpolation entre rangs voisins.
type QuantileMethod string

const (
	Linear   QuantileMethod = "linear"
	Lower    QuantileMethod = "lower"
	Higher   QuantileMethod = "higher"
	Nearest  QuantileMethod = "nearest"
	Midpoint QuantileMethod = "midpoint"
)

// ParseQuantileMethod renvoie Linear pour une chaîne vide.
func ParseQuantileMethod(s string) (QuantileMethod, error) {
	switch m := QuantileMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Linear, nil
	case Linear, Lower, Higher, Nearest, Midpoint:
		return m, nil
	}
	return "", fmt.Errorf("méthode de quantile inconnue %q", s)
}

// ThresholdKey identifie un percentile d'une métrique.
type ThresholdKey struct {
	Metric Metric
	Level  float64
}

// SegmentThresholds est un instantané immuable des percentiles de la population,
// calculé une seule fois avant la classification.
type SegmentThresholds struct {
	values map[ThresholdKey]decimal.Decimal
}

// NewSegmentThresholds copie values.
func NewSegmentThresholds(values map[ThresholdKey]decimal.Decimal) SegmentThresholds {
	cp := make(map[ThresholdKey]decimal.Decimal, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return SegmentThresholds{values: cp}
}

// Get renvoie le percentile level de m.
func (t SegmentThresholds) Get(m Metric, level float64) (decimal.Decimal, bool) {
	v, ok := t.values[ThresholdKey{Metric: m, Level: level}]
	return v, ok
}

// MonetaryQ25 renvoie zéro si le niveau n'a pas été calculé.
func (t SegmentThresholds) MonetaryQ25() decimal.Decimal {
	v, _ := t.Get(Monetary, 0.25)
	return v
}

func (t SegmentThresholds) MonetaryQ50() decimal.Decimal {
	v, _ := t.Get(Monetary, 0.5)
	return v
}

func (t SegmentThresholds) MonetaryQ75() decimal.Decimal {
	v, _ := t.Get(Monetary, 0.75)
	return v
}

// Keys renvoie les clés triées (métrique puis niveau).
func (t SegmentThresholds) Keys() []ThresholdKey {
	keys := make([]ThresholdKey, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Metric != keys[j].Metric {
			return keys[i].Metric < keys[j].Metric
		}
		return keys[i].Level < keys[j].Level
	})
	return keys
}

// Len renvoie le nombre de percentiles stockés.
func (t SegmentThresholds) Len() int {
	return len(t.values)
}

// Validate vérifie le libellé et chaque condition.
func (r Rule) Validate() error {
	if _, err := ParseSegment(string(r.Segment)); err != nil {
		return err
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("règle %q sans condition", r.Segment)
	}
	for _, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("règle %q: %w", r.Segment, err)
		}
	}
	return nil
}
