// Package config lit le fichier YAML de l'outil, applique les valeurs par
// défaut puis les surcharges d'environnement (RFM_*).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"rfm-segments/pkg/database"
	"rfm-segments/pkg/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultPath est lu quand aucun fichier n'est donné ; son absence n'est pas une erreur.
const DefaultPath = "config.yaml"

type Config struct {
	Source  SourceConfig `yaml:"source"`
	Engine  EngineConfig `yaml:"engine"`
	Output  OutputConfig `yaml:"output"`
	Kafka   KafkaConfig  `yaml:"kafka"`
	Verbose bool         `yaml:"verbose"`
}

type SourceConfig struct {
	Kind   string          `yaml:"kind"` // csv | mysql | sqlite | postgres | snowflake
	DSN    string          `yaml:"dsn"`
	Dir    string          `yaml:"dir"`
	Tables database.Tables `yaml:"tables"`
}

type EngineConfig struct {
	AsOf            string        `yaml:"as_of"`
	Percentiles     []float64     `yaml:"percentiles"`
	QuantileMethod  string        `yaml:"quantile_method"`
	ChurnWindowDays int           `yaml:"churn_window_days"`
	Workers         int           `yaml:"workers"`
	StartMonth      string        `yaml:"start_month"`
	EndMonth        string        `yaml:"end_month"`
	Rules           *[]RuleConfig `yaml:"rules"` // absent → règles par défaut ; [] → aucune règle
}

type RuleConfig struct {
	Segment string            `yaml:"segment"`
	When    []ConditionConfig `yaml:"when"`
}

// ConditionConfig : exactement une borne parmi value et quantile.
type ConditionConfig struct {
	Metric   string   `yaml:"metric"`
	Op       string   `yaml:"op"`
	Value    *float64 `yaml:"value"`
	Quantile *float64 `yaml:"quantile"`
}

type OutputConfig struct {
	Path    string   `yaml:"path"` // sans extension
	Formats []string `yaml:"formats"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Default renvoie la configuration sans fichier ni environnement.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:   "csv",
			Dir:    "data/raw",
			Tables: database.DefaultTables(),
		},
		Engine: EngineConfig{
			AsOf:            "max",
			Percentiles:     []float64{0.25, 0.5, 0.75},
			QuantileMethod:  string(models.Linear),
			ChurnWindowDays: 90,
			Workers:         4,
		},
		Output: OutputConfig{
			Path:    "results/customer_segments",
			Formats: []string{"json", "csv"},
		},
		Kafka: KafkaConfig{
			Topic: "customer-segments",
		},
	}
}

// Load lit path (ou DefaultPath si vide) par-dessus Default(), puis
// l'environnement. Un path explicite absent est une erreur.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RFM_SOURCE_KIND"); v != "" {
		c.Source.Kind = v
	}
	if v := getenv("RFM_SOURCE_DSN"); v != "" {
		c.Source.DSN = v
	}
	if v := getenv("RFM_SOURCE_DIR"); v != "" {
		c.Source.Dir = v
	}
	if v := getenv("RFM_AS_OF"); v != "" {
		c.Engine.AsOf = v
	}
	if v := getenv("RFM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &models.ConfigError{Field: "RFM_WORKERS", Err: err}
		}
		c.Engine.Workers = n
	}
	if v := getenv("RFM_OUTPUT_PATH"); v != "" {
		c.Output.Path = v
	}
	if v := getenv("RFM_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("RFM_KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("RFM_VERBOSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &models.ConfigError{Field: "RFM_VERBOSE", Err: err}
		}
		c.Verbose = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ToModels convertit la section engine en models.Config. Sans clé rules dans
// le fichier, les règles par défaut s'appliquent ; une liste vide n'en garde
// aucune (tous les clients sont Regular).
func (c *Config) ToModels() (models.Config, error) {
	method, err := models.ParseQuantileMethod(c.Engine.QuantileMethod)
	if err != nil {
		return models.Config{}, &models.ConfigError{Field: "engine.quantile_method", Err: err}
	}
	for _, p := range c.Engine.Percentiles {
		if p < 0 || p > 1 {
			return models.Config{}, &models.ConfigError{Field: "engine.percentiles", Err: fmt.Errorf("niveau hors [0,1]: %g", p)}
		}
	}
	if c.Engine.ChurnWindowDays < 0 {
		return models.Config{}, &models.ConfigError{Field: "engine.churn_window_days", Err: fmt.Errorf("négatif: %d", c.Engine.ChurnWindowDays)}
	}

	out := models.Config{
		AsOf:                c.Engine.AsOf,
		Percentiles:         c.Engine.Percentiles,
		QuantileMethod:      method,
		ChurnWindowDays:     c.Engine.ChurnWindowDays,
		Workers:             c.Engine.Workers,
		Verbose:             c.Verbose,
		StartMonthInclusive: c.Engine.StartMonth,
		EndMonthInclusive:   c.Engine.EndMonth,
	}
	if c.Engine.Rules != nil {
		if out.Rules, err = c.rules(); err != nil {
			return models.Config{}, err
		}
	}
	return out, nil
}

func (c *Config) rules() ([]models.Rule, error) {
	rules := make([]models.Rule, 0, len(*c.Engine.Rules))
	for i, rc := range *c.Engine.Rules {
		field := fmt.Sprintf("engine.rules[%d]", i)
		seg, err := models.ParseSegment(rc.Segment)
		if err != nil {
			return nil, &models.ConfigError{Field: field, Err: err}
		}
		rule := models.Rule{Segment: seg}
		for j, cc := range rc.When {
			cond, err := cc.condition()
			if err != nil {
				return nil, &models.ConfigError{Field: fmt.Sprintf("%s.when[%d]", field, j), Err: err}
			}
			rule.Conditions = append(rule.Conditions, cond)
		}
		if err := rule.Validate(); err != nil {
			return nil, &models.ConfigError{Field: field, Err: err}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (cc ConditionConfig) condition() (models.Condition, error) {
	m := models.Metric(strings.ToLower(strings.TrimSpace(cc.Metric)))
	op := models.Op(strings.TrimSpace(cc.Op))
	var cond models.Condition
	switch {
	case cc.Value != nil && cc.Quantile != nil:
		return cond, fmt.Errorf("value et quantile sont exclusifs")
	case cc.Value != nil:
		cond = models.Condition{Metric: m, Op: op, Kind: models.AbsoluteBound, Value: decimal.NewFromFloat(*cc.Value)}
	case cc.Quantile != nil:
		cond = models.Quant(m, op, *cc.Quantile)
	default:
		return cond, fmt.Errorf("borne manquante (value ou quantile)")
	}
	return cond, cond.Validate()
}
