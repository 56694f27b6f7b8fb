package ingest

import (
	"context"
	"strings"

	"github.com/csplab/linkage/internal/batch"
	"github.com/csplab/linkage/internal/config"
	"github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/reference"
)

// Optional corps columns used by CorpsFilter and carried to the output
const (
	CorpsColumnShortLabel = "short_label"
	CorpsColumnCategory   = "category"
	CorpsColumnMinistry   = "ministry"
	CorpsColumnFPType     = "fp_type"
	CorpsColumnPopulation = "population"
	CorpsColumnDiploma    = "diploma"
)

// Corps is a civil service body together with the texts citing it
type Corps struct {
	ID         string                  `json:"id"`
	Label      string                  `json:"label"`
	ShortLabel string                  `json:"short_label,omitempty"`
	Category   Category                `json:"category,omitempty"`
	Ministry   string                  `json:"ministry,omitempty"`
	FPType     string                  `json:"fp_type,omitempty"`
	Population string                  `json:"population,omitempty"`
	Diploma    int                     `json:"diploma,omitempty"`
	Texts      []reference.RawCitation `json:"texts"`
}

// CorpsFromRecords groups citation rows by corps. Each row names the corps,
// its long label and one cited text; rows without an entity are skipped.
// Corps are returned in ID order.
func CorpsFromRecords(records []batch.Record, cols config.Reference) ([]Corps, int) {
	byID := make(map[string]*Corps)
	skipped := 0
	for _, rec := range records {
		id := strings.TrimSpace(rec[cols.EntityColumn])
		if id == "" {
			skipped++
			continue
		}
		c, ok := byID[id]
		if !ok {
			c = &Corps{ID: id}
			byID[id] = c
		}
		fillCorps(c, rec, cols)

		if ref := strings.TrimSpace(rec[cols.IDColumn]); ref != "" {
			c.Texts = append(c.Texts, reference.RawCitation{
				ReferenceID: ref,
				Nature:      reference.ParseNature(rec[cols.NatureColumn]),
				Description: rec[cols.DescriptionColumn],
			})
		}
	}

	out := make([]Corps, 0, len(byID))
	for _, id := range reference.SortedEntities(byID) {
		out = append(out, *byID[id])
	}
	return out, skipped
}

// fillCorps sets the descriptive fields the first row carrying them provides
func fillCorps(c *Corps, rec batch.Record, cols config.Reference) {
	setOnce(&c.Label, rec[cols.LabelColumn])
	setOnce(&c.ShortLabel, rec[CorpsColumnShortLabel])
	setOnce(&c.Ministry, rec[CorpsColumnMinistry])
	setOnce(&c.FPType, rec[CorpsColumnFPType])
	setOnce(&c.Population, rec[CorpsColumnPopulation])
	if c.Category == "" {
		if cat, ok := CorpsCategory(rec[CorpsColumnCategory]); ok {
			c.Category = cat
		}
	}
	if c.Diploma == 0 {
		if level, err := DiplomaLevel(rec[CorpsColumnDiploma]); err == nil {
			c.Diploma = level
		} else {
			debug.Log("INGEST", "corps %s: %v\n", c.ID, err)
		}
	}
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// CorpsFilter keeps the corps in scope. Empty fields do not filter.
type CorpsFilter struct {
	FPType           string
	ExcludedMinistry string
	Population       string
}

// DefaultCorpsFilter keeps state civil servants outside the armed forces ministry
var DefaultCorpsFilter = CorpsFilter{FPType: "FPE", ExcludedMinistry: "MINARM", Population: "Fonctionnaire"}

// Apply returns the corps passing the filter. Corps lacking the filtered
// attribute are kept, so citation-only inputs pass through unchanged.
func (f CorpsFilter) Apply(corps []Corps) []Corps {
	out := make([]Corps, 0, len(corps))
	for _, c := range corps {
		if f.FPType != "" && c.FPType != "" && c.FPType != f.FPType {
			continue
		}
		if f.ExcludedMinistry != "" && c.Ministry == f.ExcludedMinistry {
			continue
		}
		if f.Population != "" && c.Population != "" && c.Population != f.Population {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Reasons a corps is left unlinked
const (
	ReasonNoReference = "no_reference"
	ReasonNoLabel     = "no_label"
	ReasonMismatch    = "label_mismatch"
	ReasonUnverified  = "unverified"
)

// LinkResult is the canonical text chosen for one corps and the verdict of
// the label cross-check
type LinkResult struct {
	CorpsID   string               `json:"corps_id"`
	Label     string               `json:"label"`
	Reference *reference.Candidate `json:"reference,omitempty"`
	Outcome   matcher.Outcome      `json:"outcome"`
	Score     float64              `json:"score"`
	Reason    string               `json:"reason,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// Linked reports whether the selected text was confirmed by the label
func (r LinkResult) Linked() bool {
	return r.Reference != nil && r.Outcome == matcher.Match
}

// CorpsLinker selects the defining text of each corps and checks that the
// text description names the corps
type CorpsLinker struct {
	selector *reference.Selector
	matcher  *matcher.SemanticMatcher
	strategy matcher.Strategy
}

// NewCorpsLinker creates a linker. m may be nil when strategy does not need embeddings.
func NewCorpsLinker(selector *reference.Selector, m *matcher.SemanticMatcher, strategy matcher.Strategy) *CorpsLinker {
	if m == nil {
		m = matcher.New(nil)
	}
	return &CorpsLinker{selector: selector, matcher: m, strategy: strategy}
}

// Link computes corpus frequencies over the whole batch, selects a
// reference per corps and cross-checks it. Results follow the input order.
func (l *CorpsLinker) Link(ctx context.Context, corps []Corps) []LinkResult {
	citations := make(map[string][]reference.RawCitation, len(corps))
	for _, c := range corps {
		citations[c.ID] = append(citations[c.ID], c.Texts...)
	}
	selected := l.selector.SelectAll(citations)

	results := make([]LinkResult, 0, len(corps))
	for _, c := range corps {
		if ctx.Err() != nil {
			results = append(results, LinkResult{CorpsID: c.ID, Label: c.Label, Reason: ReasonUnverified, Error: ctx.Err().Error()})
			continue
		}
		results = append(results, l.linkOne(ctx, c, selected))
	}

	linked := 0
	for _, r := range results {
		if r.Linked() {
			linked++
		}
	}
	debug.Log("INGEST", "linked %d of %d corps with strategy %s\n", linked, len(corps), l.strategy)
	return results
}

func (l *CorpsLinker) linkOne(ctx context.Context, c Corps, selected map[string]reference.Candidate) LinkResult {
	res := LinkResult{CorpsID: c.ID, Label: c.Label, Outcome: matcher.NoMatch}

	ref, ok := selected[c.ID]
	if !ok {
		res.Reason = ReasonNoReference
		return res
	}
	res.Reference = &ref

	if c.Label == "" {
		res.Reason = ReasonNoLabel
		return res
	}

	verdict := l.matcher.EvaluateStrategy(ctx, l.strategy, c.Label, ref.Description)
	res.Outcome = verdict.Outcome
	res.Score = verdict.Score
	switch verdict.Outcome {
	case matcher.NoMatch:
		res.Reason = ReasonMismatch
	case matcher.Indeterminate:
		res.Reason = ReasonUnverified
		if verdict.Err != nil {
			res.Error = verdict.Err.Error()
		}
	}
	return res
}
