package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 0.6, cfg.Matching.EditThreshold)
	assert.Equal(t, 0.8, cfg.Matching.SemanticThreshold)
	assert.Equal(t, "semantic", cfg.Matching.Strategy)
	assert.Equal(t, DefaultAnchorWord, cfg.Matching.AnchorWord)
	assert.Equal(t, "N° NOR", cfg.Dedup.PrimaryColumn)
	assert.Equal(t, "N° NOR de référence", cfg.Dedup.SecondaryColumn)
	assert.Equal(t, 20, cfg.Reference.FrequencyThreshold)
	assert.Equal(t, 2024, cfg.Ingest.MinYear)
	assert.Equal(t, "Ministère des Armées", cfg.Ingest.ExcludedMinistry)
}

func TestParseKDL_Sections(t *testing.T) {
	kdlContent := `
embedding {
    api_key "sk-test"
    base_url "https://api.example.com/v1"
    model "small"
    timeout_seconds 5
    cache_capacity 64
}
store {
    driver "sqlite"
    dsn "cache/embeddings.db"
}
matching {
    edit_threshold 0.75
    window_threshold 1
    strategy "window"
    anchor_word "corps des"
}
dedup {
    primary_column "nor"
    secondary_column "nor_ref"
    group_column "corps"
}
reference {
    frequency_threshold 5
    id_column "texte"
}
ingest {
    min_year 2020
    excluded_ministry ""
}
debug {
    log_file "tmp/debug.log"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "https://api.example.com/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "small", cfg.Embedding.Model)
	assert.Equal(t, 5, cfg.Embedding.TimeoutSeconds)
	assert.Equal(t, 64, cfg.Embedding.CacheCapacity)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cache/embeddings.db", cfg.Store.DSN)
	assert.Equal(t, 0.75, cfg.Matching.EditThreshold)
	assert.Equal(t, 1.0, cfg.Matching.WindowThreshold, "integer literals are accepted for floats")
	assert.Equal(t, "window", cfg.Matching.Strategy)
	assert.Equal(t, "corps des", cfg.Matching.AnchorWord)
	assert.Equal(t, Dedup{PrimaryColumn: "nor", SecondaryColumn: "nor_ref", GroupColumn: "corps"}, cfg.Dedup)
	assert.Equal(t, 5, cfg.Reference.FrequencyThreshold)
	assert.Equal(t, "texte", cfg.Reference.IDColumn)
	assert.Equal(t, "nature", cfg.Reference.NatureColumn, "unset keys keep their default")
	assert.Equal(t, 2020, cfg.Ingest.MinYear)
	assert.Equal(t, "VALIDE", cfg.Ingest.Status)
	assert.Empty(t, cfg.Ingest.ExcludedMinistry, "an empty string disables the ministry filter")
	assert.Equal(t, "tmp/debug.log", cfg.Debug.LogFile)
}

func TestParseKDL_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated block", `matching { strategy "edit"`},
		{"truncated nested file", "embedding {\n    model \"small\"\n}\nstore {\n    driver \"sqlite\"\n"},
		{"stray closing brace", `store { driver "memory"; } }`},
		{"unterminated string", `matching { strategy "edit }`},
		{"unterminated comment", `/* store { driver "memory"; }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseKDL(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestParseKDL_BracesInStringsAndComments(t *testing.T) {
	content := `
// a comment with an open brace {
/* and a block comment } */
matching {
    anchor_word "corps {des}"
}
`
	cfg, err := parseKDL(content)
	require.NoError(t, err)
	assert.Equal(t, "corps {des}", cfg.Matching.AnchorWord)
}

func TestLoadKDL_Missing(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadKDL_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KDLFileName), []byte(`store { driver "sqlite"; }`), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}
