package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"

	"github.com/csplab/linkage/internal/batch"
	"github.com/csplab/linkage/internal/config"
	"github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/dedup"
	"github.com/csplab/linkage/internal/ingest"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/mcp"
	"github.com/csplab/linkage/internal/reference"
	"github.com/csplab/linkage/internal/similarity"
	"github.com/csplab/linkage/internal/version"
)

func dedupCommand(c *cli.Context) error {
	cfg := stateOf(c).cfg
	cols := batch.Columns{
		Primary:   firstNonEmpty(c.String("primary"), cfg.Dedup.PrimaryColumn),
		Secondary: firstNonEmpty(c.String("secondary"), cfg.Dedup.SecondaryColumn),
		Group:     firstNonEmpty(c.String("group"), cfg.Dedup.GroupColumn),
	}
	if cols.Primary == cols.Secondary {
		return fmt.Errorf("primary and secondary columns must differ (both %q)", cols.Primary)
	}

	records, err := readInputs(c)
	if err != nil {
		return err
	}
	rows, skipped := batch.RowsFromRecords(records, cols)
	if skipped > 0 {
		fmt.Fprintf(c.App.ErrWriter, "skipped %d rows without %q\n", skipped, cols.Primary)
	}

	entities, summary := dedup.DeduplicateWithSummary(rows)

	if c.Bool("json") {
		return batch.WriteJSON(c.App.Writer, struct {
			Entities []dedup.MergedEntity `json:"entities"`
			Summary  dedup.Summary        `json:"summary"`
		}{entities, summary})
	}

	out := make([][]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, []string{e.Key, e.Row.PrimaryKey, e.Row.Group, strings.Join(e.AllIdentifiers, "|")})
	}
	if err := batch.WriteCSV(c.App.Writer, []string{"key", "survivor", "group", "identifiers"}, out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "%d rows -> %d entities (%d merged, %d ambiguous keys, %d malformed keys)\n",
		summary.Input, summary.Output, summary.Merged, summary.AmbiguousKeys, summary.MalformedKeys)
	return nil
}

func referencesCommand(c *cli.Context) error {
	cfg := stateOf(c).cfg
	records, err := readInputs(c)
	if err != nil {
		return err
	}
	corps, _ := ingest.CorpsFromRecords(records, cfg.Reference)

	citations := make(map[string][]reference.RawCitation, len(corps))
	for _, co := range corps {
		citations[co.ID] = co.Texts
	}
	selector := reference.NewSelector(thresholdFlag(c, cfg.Reference.FrequencyThreshold))
	selected := selector.SelectAll(citations)

	var unresolved []string
	for _, id := range reference.SortedEntities(citations) {
		if _, ok := selected[id]; !ok {
			unresolved = append(unresolved, id)
		}
	}

	if c.Bool("json") {
		return batch.WriteJSON(c.App.Writer, struct {
			Selected   map[string]reference.Candidate `json:"selected"`
			Unresolved []string                       `json:"unresolved"`
			Threshold  int                            `json:"threshold"`
		}{selected, unresolved, selector.Threshold})
	}

	out := make([][]string, 0, len(selected))
	for _, id := range reference.SortedEntities(selected) {
		cand := selected[id]
		out = append(out, []string{id, cand.ReferenceID, cand.Nature.String(), strconv.Itoa(cand.CorpusFrequency)})
	}
	if err := batch.WriteCSV(c.App.Writer, []string{"entity", "reference_id", "nature", "corpus_frequency"}, out); err != nil {
		return err
	}
	if len(unresolved) > 0 {
		fmt.Fprintf(c.App.ErrWriter, "no reference for %d entities: %s\n", len(unresolved), strings.Join(unresolved, ", "))
	}
	return nil
}

type similarityOutput struct {
	EditDistance int     `json:"edit_distance"`
	Ratio        float64 `json:"ratio"`
	Containment  float64 `json:"containment"`
}

func similarityCommand(c *cli.Context) error {
	a, b, err := twoArgs(c)
	if err != nil {
		return err
	}
	out := similarityOutput{
		EditDistance: similarity.EditDistance(a, b),
		Ratio:        similarity.Ratio(a, b),
		Containment:  similarity.ContainsScore(a, b),
	}
	if c.Bool("json") {
		return batch.WriteJSON(c.App.Writer, out)
	}
	fmt.Fprintf(c.App.Writer, "distance=%d ratio=%.4f containment=%.4f\n", out.EditDistance, out.Ratio, out.Containment)
	return nil
}

type matchOutput struct {
	Strategy  string          `json:"strategy"`
	Outcome   matcher.Outcome `json:"outcome"`
	Score     float64         `json:"score"`
	Threshold float64         `json:"threshold"`
	Error     string          `json:"error,omitempty"`
}

func matchCommand(c *cli.Context) error {
	a, b, err := twoArgs(c)
	if err != nil {
		return err
	}
	state := stateOf(c)
	strategy, err := strategyFor(c, state.cfg, "threshold")
	if err != nil {
		return err
	}
	m, err := state.matcherFor()
	if err != nil {
		return err
	}

	res := m.EvaluateStrategy(c.Context, strategy, a, b)
	out := matchOutput{
		Strategy:  strategy.Kind.String(),
		Outcome:   res.Outcome,
		Score:     res.Score,
		Threshold: strategy.Threshold,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	if c.Bool("json") {
		return batch.WriteJSON(c.App.Writer, out)
	}
	fmt.Fprintf(c.App.Writer, "%s score=%.4f threshold=%.2f strategy=%s\n", out.Outcome, out.Score, out.Threshold, out.Strategy)
	if out.Error != "" {
		fmt.Fprintf(c.App.ErrWriter, "indeterminate: %s\n", out.Error)
	}
	return nil
}

// strategyFor starts from the configured strategy and applies --strategy,
// --anchor and, when thresholdName is not empty, that score threshold flag
func strategyFor(c *cli.Context, cfg *config.Config, thresholdName string) (matcher.Strategy, error) {
	strategy, err := cfg.MatchStrategy()
	if err != nil {
		return matcher.Strategy{}, err
	}
	explicitThreshold := thresholdName != "" && c.IsSet(thresholdName)
	if !c.IsSet("strategy") && !explicitThreshold && !c.IsSet("anchor") {
		return strategy, nil
	}

	name := strategy.Kind.String()
	if c.IsSet("strategy") {
		name = c.String("strategy")
	}
	anchor := cfg.Matching.AnchorWord
	if c.IsSet("anchor") {
		anchor = c.String("anchor")
	}
	threshold := 0.0
	if explicitThreshold {
		threshold = c.Float64(thresholdName)
		if threshold <= 0 {
			return matcher.Strategy{}, fmt.Errorf("threshold %.2f out of range (0,1]", threshold)
		}
	}

	s, err := matcher.ParseStrategy(name, threshold, anchor)
	if err != nil {
		return matcher.Strategy{}, err
	}
	if threshold == 0 {
		if t := cfg.Matching.Threshold(s.Kind); t > 0 {
			s.Threshold = t
		}
	}
	return s, nil
}

func linkCommand(c *cli.Context) error {
	state := stateOf(c)
	cfg := state.cfg

	records, err := readInputs(c)
	if err != nil {
		return err
	}
	corps, skipped := ingest.CorpsFromRecords(records, cfg.Reference)
	if skipped > 0 {
		fmt.Fprintf(c.App.ErrWriter, "skipped %d rows without %q\n", skipped, cfg.Reference.EntityColumn)
	}
	if !c.Bool("no-filter") {
		before := len(corps)
		corps = ingest.DefaultCorpsFilter.Apply(corps)
		debug.Log("INGEST", "corps filter kept %d of %d\n", len(corps), before)
	}

	// --threshold of link is the reference frequency threshold
	strategy, err := strategyFor(c, cfg, "")
	if err != nil {
		return err
	}
	var m *matcher.SemanticMatcher
	if strategy.NeedsEmbeddings() {
		if m, err = state.matcherFor(); err != nil {
			return err
		}
	}

	linker := ingest.NewCorpsLinker(reference.NewSelector(thresholdFlag(c, cfg.Reference.FrequencyThreshold)), m, strategy)
	results := linker.Link(c.Context, corps)

	if c.Bool("json") {
		return batch.WriteJSON(c.App.Writer, results)
	}

	out := make([][]string, 0, len(results))
	linked := 0
	for _, r := range results {
		refID := ""
		if r.Reference != nil {
			refID = r.Reference.ReferenceID
		}
		if r.Linked() {
			linked++
		}
		out = append(out, []string{r.CorpsID, refID, r.Outcome.String(), strconv.FormatFloat(r.Score, 'f', 4, 64), r.Reason})
	}
	if err := batch.WriteCSV(c.App.Writer, []string{"corps", "reference_id", "outcome", "score", "reason"}, out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "linked %d of %d corps (%s)\n", linked, len(results), strategy)
	return nil
}

func concoursCommand(c *cli.Context) error {
	records, err := readInputs(c)
	if err != nil {
		return err
	}
	concours, report := ingest.NewConcoursCleaner(stateOf(c).cfg).Clean(records)
	if err := batch.WriteJSON(c.App.Writer, concours); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "%d rows: %d filtered, %d incomplete, %d invalid, %d concours\n",
		report.Input, report.Filtered, report.Incomplete, report.Invalid, report.Output)
	return nil
}

func mcpCommand(c *cli.Context) error {
	state := stateOf(c)
	m, err := state.matcherFor()
	if err != nil {
		return debug.Fatal("failed to build matcher: %v\n", err)
	}
	server, err := mcp.NewServer(state.cfg, m)
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func configShowCommand(c *cli.Context) error {
	shown := *stateOf(c).cfg
	if shown.Embedding.APIKey != "" {
		shown.Embedding.APIKey = "***"
	}
	data, err := toml.Marshal(shown)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func configValidateCommand(c *cli.Context) error {
	// Before has already validated; reaching here means the config is usable
	cfg := stateOf(c).cfg
	semantic := "disabled"
	if cfg.EmbeddingEnabled() {
		semantic = "enabled (" + cfg.Embedding.Model + ")"
	}
	fmt.Fprintf(c.App.Writer, "configuration valid: strategy=%s store=%s embeddings=%s\n",
		cfg.Matching.Strategy, cfg.Store.Driver, semantic)
	return nil
}

func versionCommand(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, version.FullInfo())
	return nil
}

func twoArgs(c *cli.Context) (string, string, error) {
	if c.NArg() != 2 {
		return "", "", fmt.Errorf("%s needs exactly two arguments, got %d", c.Command.Name, c.NArg())
	}
	return c.Args().Get(0), c.Args().Get(1), nil
}

func thresholdFlag(c *cli.Context, def int) int {
	if c.IsSet("threshold") {
		return c.Int("threshold")
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
