package batch

import "github.com/csplab/linkage/internal/dedup"

// Columns names the record fields feeding a dedup.Row
type Columns struct {
	Primary   string
	Secondary string
	Group     string
}

// RowsFromRecords converts records to dedup rows. Records without a primary
// key cannot be traced and are skipped; the count is returned.
func RowsFromRecords(records []Record, cols Columns) ([]dedup.Row, int) {
	rows := make([]dedup.Row, 0, len(records))
	skipped := 0
	for _, rec := range records {
		pk := rec[cols.Primary]
		if pk == "" {
			skipped++
			continue
		}

		sec := rec[cols.Secondary]
		if sec == "null" {
			sec = ""
		}

		fields := make(map[string]string, len(rec))
		for k, v := range rec {
			fields[k] = v
		}
		rows = append(rows, dedup.Row{
			PrimaryKey:   pk,
			SecondaryKey: sec,
			Group:        rec[cols.Group],
			Fields:       fields,
		})
	}
	return rows, skipped
}
