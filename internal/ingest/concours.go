package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/csplab/linkage/internal/batch"
	"github.com/csplab/linkage/internal/config"
	"github.com/csplab/linkage/internal/debug"
	"github.com/csplab/linkage/internal/dedup"
)

// Columns of the concours export besides the dedup and filter columns
const (
	ColumnCategory      = "Catégorie"
	ColumnMinistry      = "Ministère"
	ColumnGrade         = "Grade"
	ColumnOpenPositions = "Nb postes total"
	ColumnFirstExamDate = "Date de première épreuve"
)

// ExamDateLayout is the day-first layout of ColumnFirstExamDate
const ExamDateLayout = "02/01/2006"

// AccessModalityColumns are the flag columns turned into access modalities
var AccessModalityColumns = []string{
	"Externe",
	"Interne",
	"Troisieme Concours",
	"Unique",
	"Examen professionnel",
	"Sans concours externe",
	"Pacte",
	"Sélection professionnelle",
	"Concours spécial",
	"Concours réservé",
	"Sans concours interne réservé",
	"Examen professionnalisé réservé",
	"Interne exceptionnel",
	"Apprenti BOETH",
	"Promotion BOETH",
	"Autres",
}

// Concours is one recruitment campaign after deduplication
type Concours struct {
	ID               string     `json:"concours_id"`
	Ministry         string     `json:"ministry"`
	Category         Category   `json:"category"`
	Corps            string     `json:"corps"`
	Grade            string     `json:"grade"`
	NORs             []string   `json:"nors"`
	OpenPositions    int        `json:"open_positions"`
	WrittenExamDate  *time.Time `json:"written_exam_date,omitempty"`
	AccessModalities []string   `json:"access_modalities"`
}

// Report counts what happened to the rows of one cleaning run
type Report struct {
	Input      int           `json:"input"`
	Filtered   int           `json:"filtered"`   // wrong status, year or ministry
	Incomplete int           `json:"incomplete"` // missing a required column
	Invalid    int           `json:"invalid"`    // unmappable category
	Output     int           `json:"output"`
	Dedup      dedup.Summary `json:"dedup"`
}

// ConcoursCleaner filters, deduplicates and maps concours rows
type ConcoursCleaner struct {
	columns      batch.Columns
	status       string
	statusColumn string
	minYear      int
	yearColumn   string
	excluded     string
}

// NewConcoursCleaner creates a cleaner from the dedup and ingest settings
func NewConcoursCleaner(cfg *config.Config) *ConcoursCleaner {
	return &ConcoursCleaner{
		columns: batch.Columns{
			Primary:   cfg.Dedup.PrimaryColumn,
			Secondary: cfg.Dedup.SecondaryColumn,
			Group:     cfg.Dedup.GroupColumn,
		},
		status:       cfg.Ingest.Status,
		statusColumn: cfg.Ingest.StatusColumn,
		minYear:      cfg.Ingest.MinYear,
		yearColumn:   cfg.Ingest.YearColumn,
		excluded:     strings.TrimSpace(cfg.Ingest.ExcludedMinistry),
	}
}

// Clean keeps the valid rows of the configured status whose reference year
// is above the minimum and whose ministry is not excluded, merges the rows of
// each concours and maps them.
// Output is ordered by concours ID.
func (c *ConcoursCleaner) Clean(records []batch.Record) ([]Concours, Report) {
	report := Report{Input: len(records)}

	kept := make([]batch.Record, 0, len(records))
	for _, rec := range records {
		if !c.required(rec) {
			report.Incomplete++
			continue
		}
		year, ok := parseNumber(rec[c.yearColumn])
		if !ok {
			report.Incomplete++
			continue
		}
		if rec[c.statusColumn] != c.status || int(year) <= c.minYear || c.isExcluded(rec) {
			report.Filtered++
			continue
		}
		kept = append(kept, rec)
	}
	debug.Log("INGEST", "concours: %d rows, %d after filtering\n", len(records), len(kept))

	rows, skipped := batch.RowsFromRecords(kept, c.columns)
	report.Incomplete += skipped

	entities, summary := dedup.DeduplicateWithSummary(rows)
	report.Dedup = summary

	out := make([]Concours, 0, len(entities))
	for _, e := range entities {
		con, err := toConcours(e)
		if err != nil {
			debug.Log("INGEST", "skipping concours %s: %v\n", e.Key, err)
			report.Invalid++
			continue
		}
		out = append(out, con)
	}
	report.Output = len(out)
	return out, report
}

func (c *ConcoursCleaner) required(rec batch.Record) bool {
	for _, col := range []string{c.columns.Primary, c.yearColumn, c.columns.Group, ColumnCategory} {
		if v := rec[col]; v == "" || v == "null" {
			return false
		}
	}
	return true
}

func (c *ConcoursCleaner) isExcluded(rec batch.Record) bool {
	return c.excluded != "" && strings.TrimSpace(rec[ColumnMinistry]) == c.excluded
}

func toConcours(e dedup.MergedEntity) (Concours, error) {
	fields := e.Row.Fields
	category, err := ParseCategory(fields[ColumnCategory])
	if err != nil {
		return Concours{}, err
	}

	con := Concours{
		ID:               e.Key,
		Ministry:         fields[ColumnMinistry],
		Category:         category,
		Corps:            e.Row.Group,
		Grade:            fields[ColumnGrade],
		NORs:             e.AllIdentifiers,
		AccessModalities: AccessModalities(fields),
	}
	if n, ok := parseNumber(fields[ColumnOpenPositions]); ok {
		con.OpenPositions = int(n)
	}
	if t, ok := parseExamDate(fields[ColumnFirstExamDate]); ok {
		con.WrittenExamDate = &t
	}
	return con, nil
}

// AccessModalities lists the modality columns set in fields, in column order
func AccessModalities(fields map[string]string) []string {
	mods := make([]string, 0, 2)
	for _, col := range AccessModalityColumns {
		switch strings.TrimSpace(fields[col]) {
		case "", "0", "null":
			continue
		}
		mods = append(mods, col)
	}
	return mods
}

// parseNumber accepts integers and the "2025.0" form of float-typed exports
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseExamDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(ExamDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
