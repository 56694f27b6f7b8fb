package batch

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkerrors "github.com/csplab/linkage/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "2024/concours.csv", "x\n1\n")
	b := writeFile(t, dir, "2025/nested/concours.csv", "x\n1\n")
	writeFile(t, dir, "2025/notes.md", "ignored")

	files, err := ExpandInputs([]string{
		filepath.Join(dir, "**", "*.csv"),
		a, // listed twice
	})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}

func TestExpandInputsNoMatch(t *testing.T) {
	dir := t.TempDir()

	_, err := ExpandInputs([]string{filepath.Join(dir, "*.json"), filepath.Join(dir, "missing.csv")})
	require.Error(t, err)

	var multi *linkerrors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 2)
}

func TestReadRecordsCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "concours.csv",
		"\ufeffN° NOR,N° NOR de référence,Corps\n"+
			"MENH2435486A,,Professeurs certifiés\n"+
			"MENH2506115A, MENH2435486A ,Professeurs certifiés\n")

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "MENH2435486A", records[0]["N° NOR"], "BOM is stripped from the first header")
	assert.Equal(t, "", records[0]["N° NOR de référence"])
	assert.Equal(t, "MENH2435486A", records[1]["N° NOR de référence"], "cells are trimmed")
}

func TestReadRecordsSemicolonCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.csv", "a;b\n1,5;2\n")

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1,5", records[0]["a"])
	assert.Equal(t, "2", records[0]["b"])
}

func TestReadRecordsTSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.tsv", "a\tb\n1\t2\n")

	records, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"a": "1", "b": "2"}}, records)
}

func TestReadRecordsCSVBadRow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "a,b\n1,2\n3\n")

	_, err := ReadRecords(path)
	var ie *linkerrors.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, path, ie.Path)
	assert.Equal(t, 2, ie.Row)
}

func TestReadRecordsEmptyCSV(t *testing.T) {
	dir := t.TempDir()
	records, err := ReadRecords(writeFile(t, dir, "empty.csv", ""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRecordsJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "corps.json", `[
		{"identifiant": 123, "libelleLong": "Attachés d'administration", "law_ids": ["2011-1317", "84-16"],
		 "actif": true, "extra": {"k": "v"}, "vide": null}
	]`)

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "123", rec["identifiant"])
	assert.Equal(t, "2011-1317|84-16", rec["law_ids"])
	assert.Equal(t, "true", rec["actif"])
	assert.Equal(t, `{"k":"v"}`, rec["extra"])
	assert.Equal(t, "", rec["vide"])
}

func TestReadRecordsErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadRecords(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = ReadRecords(writeFile(t, dir, "data.xlsx", "x"))
	assert.Error(t, err)

	_, err = ReadRecords(writeFile(t, dir, "obj.json", `{"not": "an array"}`))
	assert.Error(t, err)
}

func TestReadAllRecords(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "k\n1\n")
	b := writeFile(t, dir, "b.json", `[{"k": "2"}]`)

	records, err := ReadAllRecords([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"k": "1"}, {"k": "2"}}, records)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a | b;c ;; "))
	assert.Empty(t, SplitList(""))
	assert.Empty(t, SplitList(" | "))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]string{"corps": "attachés & secrétaires"}))
	assert.Equal(t, "{\n  \"corps\": \"attachés & secrétaires\"\n}\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"key", "ids"}, [][]string{{"K1", "a|b"}, {"K2", "x,y"}}))
	assert.Equal(t, "key,ids\nK1,a|b\nK2,\"x,y\"\n", buf.String())
}

func TestRowsFromRecords(t *testing.T) {
	records := []Record{
		{"N° NOR": "MENH2435486A", "N° NOR de référence": "null", "Corps": "A"},
		{"N° NOR": "MENH2506115A", "N° NOR de référence": "MENH2435486A", "Corps": "A"},
		{"N° NOR": "", "Corps": "B"},
	}

	rows, skipped := RowsFromRecords(records, Columns{Primary: "N° NOR", Secondary: "N° NOR de référence", Group: "Corps"})
	require.Len(t, rows, 2)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "", rows[0].SecondaryKey, "literal null is treated as missing")
	assert.Equal(t, "MENH2435486A", rows[1].SecondaryKey)
	assert.Equal(t, "A", rows[1].Group)
	assert.Equal(t, "MENH2506115A", rows[1].Fields["N° NOR"])

	// rows do not alias the source records
	rows[0].Fields["Corps"] = "changed"
	assert.Equal(t, "A", records[0]["Corps"])
}
