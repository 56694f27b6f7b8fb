package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	linkerrors "github.com/csplab/linkage/internal/errors"
)

// ListSeparator joins array values when a JSON record is flattened
const ListSeparator = "|"

// Record is one input row keyed by column name
type Record map[string]string

// ReadRecords loads path as CSV/TSV (first row is the header) or as a JSON
// array of objects, chosen by extension.
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, linkerrors.NewInputError(path, 0, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(path, data)
	case ".tsv":
		return decodeCSV(path, data, '\t')
	case ".csv", ".txt":
		return decodeCSV(path, data, sniffDelimiter(data))
	default:
		return nil, linkerrors.NewInputError(path, 0, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
	}
}

// ReadAllRecords reads every path in order and concatenates the records
func ReadAllRecords(paths []string) ([]Record, error) {
	var all []Record
	for _, p := range paths {
		records, err := ReadRecords(p)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// sniffDelimiter picks ';' for French-locale exports whose header has more
// semicolons than commas.
func sniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

func decodeCSV(path string, data []byte, delim rune) ([]Record, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, linkerrors.NewInputError(path, 0, fmt.Errorf("read header: %w", err))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []Record
	for row := 1; ; row++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, linkerrors.NewInputError(path, row, err)
		}

		rec := make(Record, len(header))
		for i, name := range header {
			rec[name] = strings.TrimSpace(fields[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeJSON(path string, data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, linkerrors.NewInputError(path, 0, fmt.Errorf("decode json array: %w", err))
	}

	records := make([]Record, 0, len(raw))
	for _, obj := range raw {
		rec := make(Record, len(obj))
		for k, v := range obj {
			rec[k] = flatten(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

// flatten renders a JSON value as a cell: null is empty, scalar arrays are
// joined with ListSeparator, objects stay JSON.
func flatten(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ListSeparator)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// SplitList splits a multi-valued cell on '|' or ';', trimming and dropping empties
func SplitList(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool { return r == '|' || r == ';' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
