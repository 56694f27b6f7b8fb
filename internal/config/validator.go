package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/csplab/linkage/internal/embedding"
	linkerrors "github.com/csplab/linkage/internal/errors"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/reference"
	"github.com/csplab/linkage/internal/vectorstore"
)

// Validator validates configuration and sets defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and fills zero values.
// Failures are *errors.ConfigError naming the offending field.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	v.setDefaults(cfg)

	if err := v.validateEmbedding(&cfg.Embedding); err != nil {
		return err
	}
	if err := v.validateStore(&cfg.Store); err != nil {
		return err
	}
	if err := v.validateMatching(&cfg.Matching); err != nil {
		return err
	}
	if err := v.validateDedup(&cfg.Dedup); err != nil {
		return err
	}
	if cfg.Reference.FrequencyThreshold < 0 {
		return linkerrors.NewConfigError("reference.frequency_threshold", fmt.Sprint(cfg.Reference.FrequencyThreshold),
			errors.New("must not be negative"))
	}
	return nil
}

func (v *Validator) validateEmbedding(e *Embedding) error {
	if e.TimeoutSeconds < 0 {
		return linkerrors.NewConfigError("embedding.timeout_seconds", fmt.Sprint(e.TimeoutSeconds), errors.New("must not be negative"))
	}
	if e.CacheCapacity < 0 {
		return linkerrors.NewConfigError("embedding.cache_capacity", fmt.Sprint(e.CacheCapacity), errors.New("must not be negative"))
	}
	// api_key and base_url come as a pair; neither means no semantic matching.
	if (e.APIKey == "") != (e.BaseURL == "") {
		field := "embedding.api_key"
		if e.BaseURL == "" {
			field = "embedding.base_url"
		}
		return linkerrors.NewConfigError(field, "", errors.New("api_key and base_url must be set together"))
	}
	if e.APIKey != "" {
		pc := embedding.ProviderConfig{APIKey: e.APIKey, BaseURL: e.BaseURL, Model: e.Model, TimeoutSeconds: e.TimeoutSeconds}
		if err := pc.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateStore(s *Store) error {
	switch strings.ToLower(s.Driver) {
	case vectorstore.DriverMemory, vectorstore.DriverSQLite:
	case vectorstore.DriverPostgres, "pgvector":
		if s.DSN == "" {
			return linkerrors.NewConfigError("store.dsn", "", errors.New("postgres store needs a dsn"))
		}
		if s.Dimension <= 0 {
			return linkerrors.NewConfigError("store.dimension", fmt.Sprint(s.Dimension), errors.New("postgres store needs a positive dimension"))
		}
	default:
		return linkerrors.NewConfigError("store.driver", s.Driver, errors.New("want memory, sqlite or postgres"))
	}
	if s.Dimension < 0 {
		return linkerrors.NewConfigError("store.dimension", fmt.Sprint(s.Dimension), errors.New("must not be negative"))
	}
	return nil
}

func (v *Validator) validateMatching(m *Matching) error {
	thresholds := []struct {
		field string
		value float64
	}{
		{"matching.edit_threshold", m.EditThreshold},
		{"matching.contains_threshold", m.ContainsThreshold},
		{"matching.semantic_threshold", m.SemanticThreshold},
		{"matching.window_threshold", m.WindowThreshold},
	}
	for _, t := range thresholds {
		if t.value < 0 || t.value > 1 {
			return linkerrors.NewConfigError(t.field, fmt.Sprint(t.value), errors.New("must be within [0, 1]"))
		}
	}
	if _, err := matcher.ParseStrategy(m.Strategy, 0, m.AnchorWord); err != nil {
		return linkerrors.NewConfigError("matching.strategy", m.Strategy, err)
	}
	return nil
}

func (v *Validator) validateDedup(d *Dedup) error {
	if strings.TrimSpace(d.PrimaryColumn) == "" {
		return linkerrors.NewConfigError("dedup.primary_column", "", errors.New("cannot be empty"))
	}
	if d.PrimaryColumn == d.SecondaryColumn {
		return linkerrors.NewConfigError("dedup.secondary_column", d.SecondaryColumn, errors.New("must differ from primary_column"))
	}
	return nil
}

// setDefaults fills the fields left at their zero value
func (v *Validator) setDefaults(cfg *Config) {
	def := Default()

	if cfg.Version == 0 {
		cfg.Version = def.Version
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = def.Embedding.TimeoutSeconds
	}
	if cfg.Embedding.CacheCapacity == 0 {
		cfg.Embedding.CacheCapacity = def.Embedding.CacheCapacity
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = def.Store.Driver
	}
	if cfg.Matching.Strategy == "" {
		cfg.Matching.Strategy = def.Matching.Strategy
	}
	if cfg.Matching.AnchorWord == "" {
		cfg.Matching.AnchorWord = def.Matching.AnchorWord
	}
	if cfg.Dedup.PrimaryColumn == "" {
		cfg.Dedup.PrimaryColumn = def.Dedup.PrimaryColumn
	}
	if cfg.Reference.FrequencyThreshold == 0 {
		cfg.Reference.FrequencyThreshold = reference.DefaultThreshold
	}
	if cfg.Ingest.Status == "" {
		cfg.Ingest.Status = def.Ingest.Status
	}
	if cfg.Ingest.StatusColumn == "" {
		cfg.Ingest.StatusColumn = def.Ingest.StatusColumn
	}
	if cfg.Ingest.YearColumn == "" {
		cfg.Ingest.YearColumn = def.Ingest.YearColumn
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
