package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csplab/linkage/internal/batch"
	"github.com/csplab/linkage/internal/config"
	"github.com/csplab/linkage/internal/embedding"
	"github.com/csplab/linkage/internal/matcher"
	"github.com/csplab/linkage/internal/reference"
)

func citation(corps, label, ref, nature, desc string) batch.Record {
	return batch.Record{
		"corps":        corps,
		"label":        label,
		"reference_id": ref,
		"nature":       nature,
		"description":  desc,
	}
}

func linkFixture() []batch.Record {
	const statute = "Loi portant dispositions statutaires relatives à la fonction publique de l'Etat"
	return []batch.Record{
		citation("C1", "attachés d'administration de l'Etat", "2011-1317", "Texte d'origine",
			"Décret portant statut particulier du corps des attachés d'administration de l'Etat"),
		citation("C1", "", "84-16", "Loi", statute),
		citation("C2", "ingénieurs des mines", "2009-63", "Texte modificatif",
			"Décret modifiant le statut particulier du corps des professeurs certifiés"),
		citation("C2", "", "84-16", "Loi", statute),
		citation("C3", "adjoints techniques", "84-16", "Loi", statute),
		citation("", "orphan", "2000-1", "Loi", "ignored"),
	}
}

func TestCorpsFromRecords(t *testing.T) {
	corps, skipped := CorpsFromRecords(linkFixture(), config.Default().Reference)

	assert.Equal(t, 1, skipped)
	require.Len(t, corps, 3)
	assert.Equal(t, "C1", corps[0].ID)
	assert.Equal(t, "attachés d'administration de l'Etat", corps[0].Label)
	require.Len(t, corps[0].Texts, 2)
	assert.Equal(t, reference.Origin, corps[0].Texts[0].Nature)
	assert.Equal(t, reference.Other, corps[0].Texts[1].Nature)
	assert.Equal(t, reference.Amending, corps[1].Texts[0].Nature)
}

func TestCorpsFromRecords_Attributes(t *testing.T) {
	rec := citation("C9", "inspecteurs", "2010-1", "Texte d'origine", "")
	rec[CorpsColumnCategory] = "A+"
	rec[CorpsColumnDiploma] = "Niveau 7 - Master"
	rec[CorpsColumnMinistry] = "MEF"
	rec[CorpsColumnFPType] = "FPE"
	rec[CorpsColumnPopulation] = "Fonctionnaire"
	rec[CorpsColumnShortLabel] = "INSP"

	corps, _ := CorpsFromRecords([]batch.Record{rec}, config.Default().Reference)
	require.Len(t, corps, 1)
	c := corps[0]
	assert.Equal(t, CategoryAPlus, c.Category)
	assert.Equal(t, 7, c.Diploma)
	assert.Equal(t, "MEF", c.Ministry)
	assert.Equal(t, "INSP", c.ShortLabel)
}

func TestCorpsFilter(t *testing.T) {
	corps := []Corps{
		{ID: "1", FPType: "FPE", Ministry: "MEF", Population: "Fonctionnaire"},
		{ID: "2", FPType: "FPT", Ministry: "MI", Population: "Fonctionnaire"},
		{ID: "3", FPType: "FPE", Ministry: "MINARM", Population: "Fonctionnaire"},
		{ID: "4", FPType: "FPE", Ministry: "MEN", Population: "Contractuel"},
		{ID: "5"},
	}

	kept := DefaultCorpsFilter.Apply(corps)
	ids := make([]string, 0, len(kept))
	for _, c := range kept {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"1", "5"}, ids)

	assert.Len(t, CorpsFilter{}.Apply(corps), 5)
}

func TestCorpsLinker_Contains(t *testing.T) {
	corps, _ := CorpsFromRecords(linkFixture(), config.Default().Reference)
	linker := NewCorpsLinker(reference.NewSelector(2), nil, matcher.Contains(0.9))

	results := linker.Link(context.Background(), corps)
	require.Len(t, results, 3)

	c1 := results[0]
	require.NotNil(t, c1.Reference)
	assert.Equal(t, "2011-1317", c1.Reference.ReferenceID)
	assert.Equal(t, matcher.Match, c1.Outcome)
	assert.InDelta(t, 1.0, c1.Score, 1e-9)
	assert.True(t, c1.Linked())

	c2 := results[1]
	require.NotNil(t, c2.Reference)
	assert.Equal(t, "2009-63", c2.Reference.ReferenceID)
	assert.Equal(t, matcher.NoMatch, c2.Outcome)
	assert.Equal(t, ReasonMismatch, c2.Reason)
	assert.False(t, c2.Linked())

	c3 := results[2]
	assert.Nil(t, c3.Reference, "the only text is cited by every corps")
	assert.Equal(t, ReasonNoReference, c3.Reason)
}

func TestCorpsLinker_Semantic(t *testing.T) {
	vectors := map[string]embedding.Vector{
		"attaches":   {1, 0},
		"ingenieurs": {0, 1},
	}
	provider := embedding.ProviderFunc(func(ctx context.Context, text string) (embedding.Vector, error) {
		if v, ok := vectors[text]; ok {
			return v, nil
		}
		return nil, errors.New("unknown text")
	})
	m := matcher.New(embedding.NewCache(provider, 10))

	corps := []Corps{
		{ID: "A", Label: "attaches", Texts: []reference.RawCitation{
			{ReferenceID: "2011-1", Nature: reference.Origin, Description: "Decret portant statut particulier du corps des attaches"},
		}},
		{ID: "B", Label: "ingenieurs", Texts: []reference.RawCitation{
			{ReferenceID: "2011-2", Nature: reference.Origin, Description: "Decret portant statut particulier du corps des attaches"},
		}},
		{ID: "C", Label: "secretaires", Texts: []reference.RawCitation{
			{ReferenceID: "2011-3", Nature: reference.Origin, Description: "inconnu"},
		}},
		{ID: "D", Texts: []reference.RawCitation{
			{ReferenceID: "2011-4", Nature: reference.Origin, Description: "inconnu"},
		}},
	}

	linker := NewCorpsLinker(reference.NewSelector(0), m, matcher.Semantic(0.8, config.DefaultAnchorWord))
	results := linker.Link(context.Background(), corps)
	require.Len(t, results, 4)

	assert.Equal(t, matcher.Match, results[0].Outcome)
	assert.Equal(t, matcher.NoMatch, results[1].Outcome)
	assert.Equal(t, matcher.Indeterminate, results[2].Outcome)
	assert.Equal(t, ReasonUnverified, results[2].Reason)
	assert.NotEmpty(t, results[2].Error)
	assert.Equal(t, ReasonNoLabel, results[3].Reason)
}

func TestCorpsLinker_NoEmbeddings(t *testing.T) {
	corps := []Corps{{ID: "A", Label: "attaches", Texts: []reference.RawCitation{
		{ReferenceID: "2011-1", Nature: reference.Origin, Description: "attaches"},
	}}}

	results := NewCorpsLinker(reference.NewSelector(0), nil, matcher.Semantic(0.8, "")).Link(context.Background(), corps)
	require.Len(t, results, 1)
	assert.Equal(t, matcher.Indeterminate, results[0].Outcome)
	assert.Contains(t, results[0].Error, matcher.ErrNoEmbeddings.Error())
}

func TestCorpsLinker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corps := []Corps{{ID: "A", Label: "x"}}
	results := NewCorpsLinker(reference.NewSelector(0), nil, matcher.Edit(0.6)).Link(ctx, corps)
	require.Len(t, results, 1)
	assert.Equal(t, matcher.Indeterminate, results[0].Outcome)
	assert.Equal(t, ReasonUnverified, results[0].Reason)
}
