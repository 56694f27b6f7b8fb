package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/csplab/linkage/internal/batch"
	"github.com/csplab/linkage/internal/config"
	"github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/embedding"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/vectorstore"
	"github.com/csplab/linkage/internal/version"
)

// appState is shared by the commands of one run
type appState struct {
	cfg          *config.Config
	semantic     *matcher.SemanticMatcher
	cleanupFuncs []func()
}

func stateOf(c *cli.Context) *appState {
	return c.App.Metadata["state"].(*appState)
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath == "" {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if v := c.String("api-key"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := c.String("base-url"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := c.String("model"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := c.String("debug-log"); v != "" {
		cfg.Debug.LogFile = v
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// matcherFor builds the semantic matcher on first use. Without a configured
// provider the matcher has no cache and embedding strategies are indeterminate.
func (s *appState) matcherFor() (*matcher.SemanticMatcher, error) {
	if s.semantic != nil {
		return s.semantic, nil
	}
	if !s.cfg.EmbeddingEnabled() {
		s.semantic = matcher.New(nil)
		return s.semantic, nil
	}

	provider, err := embedding.NewOpenAIProvider(s.cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.Open(s.cfg.Store.Driver, s.cfg.Store.DSN, s.cfg.Store.Dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	s.cleanupFuncs = append(s.cleanupFuncs, func() {
		if err := store.Close(); err != nil {
			debug.LogEmbed("closing vector store: %v\n", err)
		}
	})

	persisted := embedding.NewStoreProvider(provider, store, provider.Model())
	s.semantic = matcher.New(embedding.NewCache(persisted, s.cfg.Embedding.CacheCapacity))
	return s.semantic, nil
}

func (s *appState) cleanup() {
	for i := len(s.cleanupFuncs) - 1; i >= 0; i-- {
		s.cleanupFuncs[i]()
	}
	s.cleanupFuncs = nil
}

func inputFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:     "input",
		Aliases:  []string{"i"},
		Usage:    "Input files or glob patterns (CSV, TSV or JSON), e.g. --input 'exports/**/*.csv'",
		Required: true,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output as JSON",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "csplab",
		Usage:                  "Record linkage for civil service registries: fuzzy and semantic matching, NOR deduplication, reference selection",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Metadata:               map[string]interface{}{"state": &appState{}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml); default searches .csplab.kdl then csplab.toml",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Embedding provider API key (overrides config and " + config.EnvAPIKey + ")",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "Embedding provider base URL, e.g. https://api.openai.com/v1",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "debug-log",
				Usage: "Write debug output to this rotating log file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "dedup",
				Usage: "Merge rows describing the same entity (most recent NOR wins)",
				Flags: []cli.Flag{
					inputFlag(), jsonFlag(),
					&cli.StringFlag{Name: "primary", Usage: "Primary key column (default from config)"},
					&cli.StringFlag{Name: "secondary", Usage: "Reference key column (default from config)"},
					&cli.StringFlag{Name: "group", Usage: "Group column (default from config)"},
				},
				Action: dedupCommand,
			},
			{
				Name:   "references",
				Usage:  "Select the canonical defining text of each entity",
				Flags:  []cli.Flag{inputFlag(), jsonFlag(), &cli.IntFlag{Name: "threshold", Usage: "Ignore texts cited by more entities than this (default from config)"}},
				Action: referencesCommand,
			},
			{
				Name:      "similarity",
				Usage:     "Edit distance and similarity ratio of two strings",
				ArgsUsage: "A B",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    similarityCommand,
			},
			{
				Name:      "match",
				Usage:     "Compare two texts with a match strategy",
				ArgsUsage: "A B",
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "edit, contains, semantic or window (default from config)"},
					&cli.Float64Flag{Name: "threshold", Aliases: []string{"t"}, Usage: "Score needed for a match (default per strategy)"},
					&cli.StringFlag{Name: "anchor", Usage: "Semantic only: compare B after this word"},
				},
				Action: matchCommand,
			},
			{
				Name:  "link",
				Usage: "Link corps to their defining text and check the label against it",
				Flags: []cli.Flag{
					inputFlag(), jsonFlag(),
					&cli.IntFlag{Name: "threshold", Usage: "Reference frequency threshold (default from config)"},
					&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "Label check strategy (default from config)"},
					&cli.BoolFlag{Name: "no-filter", Usage: "Keep corps outside the state civil service scope"},
				},
				Action: linkCommand,
			},
			{
				Name:   "concours",
				Usage:  "Clean and deduplicate a concours registry export",
				Flags:  []cli.Flag{inputFlag()},
				Action: concoursCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the engine as MCP tools over stdio",
				Action: mcpCommand,
			},
			{
				Name:  "config",
				Usage: "Inspect configuration",
				Subcommands: []*cli.Command{
					{Name: "show", Usage: "Print the effective configuration as TOML", Action: configShowCommand},
					{Name: "validate", Usage: "Validate the configuration", Action: configValidateCommand},
				},
			},
			{
				Name:   "version",
				Usage:  "Print version information",
				Action: versionCommand,
			},
		},
		Before: func(c *cli.Context) error {
			// Skip initialization for help and version
			cmd := c.Args().Get(0)
			if c.NArg() == 0 || cmd == "help" || cmd == "version" || c.Bool("help") {
				return nil
			}

			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			state := stateOf(c)
			state.cfg = cfg

			if cfg.Debug.LogFile != "" {
				path, err := debug.InitDebugLogFile(cfg.Debug.LogFile)
				if err != nil {
					return err
				}
				state.cleanupFuncs = append(state.cleanupFuncs, func() { _ = debug.CloseDebugLog() })
				debug.Printf("debug log: %s\n", path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			stateOf(c).cleanup()
			return nil
		},
	}
}

func main() {
	if err := newApp().RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// readInputs expands the --input patterns and loads every record
func readInputs(c *cli.Context) ([]batch.Record, error) {
	paths, err := batch.ExpandInputs(c.StringSlice("input"))
	if err != nil {
		return nil, err
	}
	debug.Printf("reading %d input files\n", len(paths))
	return batch.ReadAllRecords(paths)
}
