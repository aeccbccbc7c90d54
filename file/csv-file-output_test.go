package file

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/relloyd/xlpipe/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{"id", "product_sku"}

var data = [][]string{
	{"1", "AB1v23"},
	{"2", "CD4v56"},
	{"3", "EF7v89"},
	{"4", "GH1v11"}}

func readAll(t *testing.T, fileName string) [][]string {
	f, err := os.Open(fileName)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVFileOutputSingleFile(t *testing.T) {
	log := logger.MustNewLogger("csv test", "error", false)
	dir := t.TempDir()
	out := NewCSVFileOutput(log, dir, "transaction", "csv")
	out.SetHeader(header)
	names := make([]string, 0)
	for _, row := range data {
		if n := out.MustWriteToCSV(row); n != "" {
			names = append(names, n)
		}
	}
	out.Cleanup()
	require.Equal(t, []string{filepath.Join(dir, "transaction.csv")}, names)
	rows := readAll(t, names[0])
	assert.Equal(t, append([][]string{header}, data...), rows)
	assert.Equal(t, 4, out.GetTotalRowCount())
}

func TestCSVFileOutputTruncatesExistingFile(t *testing.T) {
	log := logger.MustNewLogger("csv test", "error", false)
	dir := t.TempDir()
	name := filepath.Join(dir, "store.csv")
	require.NoError(t, os.WriteFile(name, []byte("old,header\nstale,row\nstale,row\n"), 0600))
	out := NewCSVFileOutput(log, dir, "store", "csv")
	assert.Equal(t, name, out.FileName())
	out.SetHeader(header)
	assert.Equal(t, name, out.MustWriteToCSV(data[0]))
	out.Cleanup()
	out.Cleanup()
	assert.Equal(t, [][]string{header, data[0]}, readAll(t, name))
}

func TestCSVFileOutputHeaderOnly(t *testing.T) {
	log := logger.MustNewLogger("csv test", "error", false)
	dir := t.TempDir()
	out := NewCSVFileOutput(log, dir, "device", "csv")
	out.SetHeader([]string{"id", "type", "store_id"})
	name := out.MustOpen()
	out.Cleanup()
	assert.Equal(t, [][]string{{"id", "type", "store_id"}}, readAll(t, name))
}

func TestOpenCSVFileInputReadsRows(t *testing.T) {
	log := logger.MustNewLogger("csv test", "error", false)
	out := NewCSVFileOutput(log, t.TempDir(), "store", "csv")
	out.SetHeader(header)
	name := out.MustWriteToCSV(data[0])
	out.Cleanup()

	in, err := OpenCSVFileInput(name)
	require.NoError(t, err)
	defer in.Close()
	assert.Equal(t, header, in.Header)
	row, err := in.Read()
	require.NoError(t, err)
	assert.Equal(t, data[0], row)
	_, err = in.Read()
	assert.Equal(t, io.EOF, err)
}

func TestOpenCSVFileInputEmpty(t *testing.T) {
	name := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(name, nil, 0600))
	_, err := OpenCSVFileInput(name)
	assert.Error(t, err)
}
