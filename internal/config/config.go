package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/csplab/linkage/internal/embedding"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/reference"
	"github.com/csplab/linkage/internal/similarity"
	"github.com/csplab/linkage/internal/vectorstore"
)

// File names searched for in the project directory, in order
const (
	KDLFileName  = ".csplab.kdl"
	TOMLFileName = "csplab.toml"
)

// Environment overrides applied after the config files
const (
	EnvAPIKey  = "CSPLAB_API_KEY"
	EnvBaseURL = "CSPLAB_BASE_URL"
)

// Default column names of the concours exports
const (
	DefaultPrimaryColumn    = "N° NOR"
	DefaultSecondaryColumn  = "N° NOR de référence"
	DefaultGroupColumn      = "Corps"
	DefaultAnchorWord       = "statut particulier du corps des"
	DefaultExcludedMinistry = "Ministère des Armées"
)

type Config struct {
	Version   int       `toml:"version"`
	Embedding Embedding `toml:"embedding"`
	Store     Store     `toml:"store"`
	Matching  Matching  `toml:"matching"`
	Dedup     Dedup     `toml:"dedup"`
	Reference Reference `toml:"reference"`
	Ingest    Ingest    `toml:"ingest"`
	Debug     Debug     `toml:"debug"`
}

type Embedding struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CacheCapacity  int    `toml:"cache_capacity"` // entries kept by the in-process LRU
}

type Store struct {
	Driver    string `toml:"driver"` // memory, sqlite, postgres
	DSN       string `toml:"dsn"`
	Dimension int    `toml:"dimension"` // vector width, postgres only
}

type Matching struct {
	EditThreshold     float64 `toml:"edit_threshold"`
	ContainsThreshold float64 `toml:"contains_threshold"`
	SemanticThreshold float64 `toml:"semantic_threshold"`
	WindowThreshold   float64 `toml:"window_threshold"`
	AnchorWord        string  `toml:"anchor_word"`
	Strategy          string  `toml:"strategy"` // edit, contains, semantic, window
}

type Dedup struct {
	PrimaryColumn   string `toml:"primary_column"`
	SecondaryColumn string `toml:"secondary_column"`
	GroupColumn     string `toml:"group_column"`
}

type Reference struct {
	FrequencyThreshold int    `toml:"frequency_threshold"`
	IDColumn           string `toml:"id_column"`
	NatureColumn       string `toml:"nature_column"`
	EntityColumn       string `toml:"entity_column"`
	LabelColumn        string `toml:"label_column"`
	DescriptionColumn  string `toml:"description_column"`
}

// Ingest holds the row filters of the concours cleaning pipeline
type Ingest struct {
	Status           string `toml:"status"`            // only rows with this status are kept
	MinYear          int    `toml:"min_year"`          // rows must have a reference year strictly above
	StatusColumn     string `toml:"status_column"`     // column holding Status
	YearColumn       string `toml:"year_column"`       // column holding the reference year
	ExcludedMinistry string `toml:"excluded_ministry"` // rows of this ministry are dropped; empty keeps all
}

type Debug struct {
	LogFile string `toml:"log_file"`
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		Version: 1,
		Embedding: Embedding{
			Model:          embedding.DefaultModel,
			TimeoutSeconds: embedding.DefaultTimeoutSeconds,
			CacheCapacity:  embedding.DefaultCapacity,
		},
		Store: Store{
			Driver: vectorstore.DriverMemory,
		},
		Matching: Matching{
			EditThreshold:     similarity.DefaultMatchThreshold,
			ContainsThreshold: similarity.DefaultContainsThreshold,
			SemanticThreshold: matcher.DefaultSemanticThreshold,
			WindowThreshold:   matcher.DefaultWindowThreshold,
			AnchorWord:        DefaultAnchorWord,
			Strategy:          matcher.KindSemantic.String(),
		},
		Dedup: Dedup{
			PrimaryColumn:   DefaultPrimaryColumn,
			SecondaryColumn: DefaultSecondaryColumn,
			GroupColumn:     DefaultGroupColumn,
		},
		Reference: Reference{
			FrequencyThreshold: reference.DefaultThreshold,
			IDColumn:           "reference_id",
			NatureColumn:       "nature",
			EntityColumn:       "corps",
			LabelColumn:        "label",
			DescriptionColumn:  "description",
		},
		Ingest: Ingest{
			Status:           "VALIDE",
			MinYear:          2024,
			StatusColumn:     "Statut",
			YearColumn:       "Année de référence",
			ExcludedMinistry: DefaultExcludedMinistry,
		},
	}
}

// Load reads the configuration. An explicit path is loaded alone; otherwise
// ~/.csplab.kdl is applied first and the project files of the working
// directory override it.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

func LoadWithRoot(path string, rootDir string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
		applyEnv(cfg)
		return cfg, nil
	}

	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Global base config
	if homeDir, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(homeDir, KDLFileName)
		if fileExists(global) && filepath.Clean(homeDir) != filepath.Clean(searchDir) {
			if err := loadFile(cfg, global); err != nil {
				return nil, err
			}
		}
	}

	// Project config, KDL first
	for _, name := range []string{KDLFileName, TOMLFileName} {
		p := filepath.Join(searchDir, name)
		if !fileExists(p) {
			continue
		}
		if err := loadFile(cfg, p); err != nil {
			return nil, err
		}
		break
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = applyTOML(cfg, content)
	case ".kdl":
		err = applyKDL(cfg, string(content))
	default:
		return fmt.Errorf("unsupported config format %q (want .kdl or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.Embedding.BaseURL = v
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EmbeddingEnabled reports whether a provider can be built from the config
func (c *Config) EmbeddingEnabled() bool {
	return strings.TrimSpace(c.Embedding.APIKey) != "" && strings.TrimSpace(c.Embedding.BaseURL) != ""
}

// ProviderConfig returns the settings of the HTTP embedding provider
func (c *Config) ProviderConfig() embedding.ProviderConfig {
	return embedding.ProviderConfig{
		APIKey:         c.Embedding.APIKey,
		BaseURL:        c.Embedding.BaseURL,
		Model:          c.Embedding.Model,
		TimeoutSeconds: c.Embedding.TimeoutSeconds,
	}
}

// MatchStrategy builds the configured strategy, with the per-kind threshold
// taken from the Matching section.
func (c *Config) MatchStrategy() (matcher.Strategy, error) {
	s, err := matcher.ParseStrategy(c.Matching.Strategy, 0, c.Matching.AnchorWord)
	if err != nil {
		return matcher.Strategy{}, err
	}
	if t := c.Matching.Threshold(s.Kind); t > 0 {
		s.Threshold = t
	}
	return s, nil
}

// Threshold returns the configured threshold of kind, 0 when unset
func (m Matching) Threshold(kind matcher.Kind) float64 {
	switch kind {
	case matcher.KindEdit:
		return m.EditThreshold
	case matcher.KindContains:
		return m.ContainsThreshold
	case matcher.KindSemantic:
		return m.SemanticThreshold
	case matcher.KindSlidingWindow:
		return m.WindowThreshold
	}
	return 0
}
