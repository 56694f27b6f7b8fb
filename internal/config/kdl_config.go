package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL loads .csplab.kdl from dir on top of the defaults.
// It returns nil, nil when the file does not exist.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, KDLFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", KDLFileName, err)
	}

	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()
	if err := applyKDL(cfg, content); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyKDL overrides the fields of cfg present in content
func applyKDL(cfg *Config, content string) error {
	// kdl-go accepts a document cut inside a children block
	if err := checkBlocks(content); err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "embedding":
			for _, cn := range n.Children {
				assignSimpleString(cn, "api_key", func(v string) { cfg.Embedding.APIKey = v })
				assignSimpleString(cn, "base_url", func(v string) { cfg.Embedding.BaseURL = v })
				assignSimpleString(cn, "model", func(v string) { cfg.Embedding.Model = v })
				assignInt(cn, "timeout_seconds", func(v int) { cfg.Embedding.TimeoutSeconds = v })
				assignInt(cn, "cache_capacity", func(v int) { cfg.Embedding.CacheCapacity = v })
			}
		case "store":
			for _, cn := range n.Children {
				assignSimpleString(cn, "driver", func(v string) { cfg.Store.Driver = v })
				assignSimpleString(cn, "dsn", func(v string) { cfg.Store.DSN = v })
				assignInt(cn, "dimension", func(v int) { cfg.Store.Dimension = v })
			}
		case "matching":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "edit_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Matching.EditThreshold = v
					}
				case "contains_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Matching.ContainsThreshold = v
					}
				case "semantic_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Matching.SemanticThreshold = v
					}
				case "window_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Matching.WindowThreshold = v
					}
				case "anchor_word":
					if s, ok := firstStringArg(cn); ok {
						cfg.Matching.AnchorWord = s
					}
				case "strategy":
					if s, ok := firstStringArg(cn); ok {
						cfg.Matching.Strategy = s
					}
				}
			}
		case "dedup":
			for _, cn := range n.Children {
				assignSimpleString(cn, "primary_column", func(v string) { cfg.Dedup.PrimaryColumn = v })
				assignSimpleString(cn, "secondary_column", func(v string) { cfg.Dedup.SecondaryColumn = v })
				assignSimpleString(cn, "group_column", func(v string) { cfg.Dedup.GroupColumn = v })
			}
		case "reference":
			for _, cn := range n.Children {
				assignInt(cn, "frequency_threshold", func(v int) { cfg.Reference.FrequencyThreshold = v })
				assignSimpleString(cn, "id_column", func(v string) { cfg.Reference.IDColumn = v })
				assignSimpleString(cn, "nature_column", func(v string) { cfg.Reference.NatureColumn = v })
				assignSimpleString(cn, "entity_column", func(v string) { cfg.Reference.EntityColumn = v })
				assignSimpleString(cn, "label_column", func(v string) { cfg.Reference.LabelColumn = v })
				assignSimpleString(cn, "description_column", func(v string) { cfg.Reference.DescriptionColumn = v })
			}
		case "ingest":
			for _, cn := range n.Children {
				assignSimpleString(cn, "status", func(v string) { cfg.Ingest.Status = v })
				assignInt(cn, "min_year", func(v int) { cfg.Ingest.MinYear = v })
				assignSimpleString(cn, "status_column", func(v string) { cfg.Ingest.StatusColumn = v })
				assignSimpleString(cn, "year_column", func(v string) { cfg.Ingest.YearColumn = v })
				assignSimpleString(cn, "excluded_ministry", func(v string) { cfg.Ingest.ExcludedMinistry = v })
			}
		case "debug":
			for _, cn := range n.Children {
				assignSimpleString(cn, "log_file", func(v string) { cfg.Debug.LogFile = v })
			}
		default:
			log.Printf("WARNING: unknown section '%s' in KDL config", nodeName(n))
		}
	}

	return nil
}

// checkBlocks reports unbalanced children braces, skipping strings and comments
func checkBlocks(content string) error {
	depth, line := 0, 1
	inString, escaped := false, false
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if ch == '\n' {
			line++
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '/':
			if strings.HasPrefix(content[i:], "//") {
				for i < len(content) && content[i] != '\n' {
					i++
				}
				line++
			} else if strings.HasPrefix(content[i:], "/*") {
				end := strings.Index(content[i+2:], "*/")
				if end < 0 {
					return fmt.Errorf("line %d: unterminated comment", line)
				}
				line += strings.Count(content[i:i+2+end], "\n")
				i += end + 3
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("line %d: unexpected '}'", line)
			}
		}
	}
	switch {
	case inString:
		return fmt.Errorf("unterminated string")
	case depth > 0:
		return fmt.Errorf("%d unclosed block(s) at end of input", depth)
	}
	return nil
}

// Helper functions over the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}
func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}
func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		log.Printf("WARNING: invalid float value for '%s' in KDL config, expected number but got %T", nodeName(n), n.Arguments[0].Value)
		return 0, false
	}
}
func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
func assignInt(n *document.Node, target string, set func(int)) {
	if nodeName(n) == target {
		if v, ok := firstIntArg(n); ok {
			set(v)
		}
	}
}
