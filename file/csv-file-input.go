package file

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
)

// CSVFileInput reads a CSV file written by CSVFileOutput, header first.
type CSVFileInput struct {
	Header []string
	f      *os.File
	r      *csv.Reader
}

// OpenCSVFileInput opens fileName and reads its header line.
func OpenCSVFileInput(fileName string) (*CSVFileInput, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open CSV file %q", fileName)
	}
	c := &CSVFileInput{f: f}
	c.r = csv.NewReader(f)
	c.r.FieldsPerRecord = -1 // the caller decides what to do with ragged rows.
	c.r.LazyQuotes = true
	if c.Header, err = c.r.Read(); err != nil {
		_ = c.Close()
		if err == io.EOF {
			return nil, errors.Errorf("CSV file %q has no header", fileName)
		}
		return nil, errors.Wrapf(err, "unable to read header from CSV file %q", fileName)
	}
	return c, nil
}

// Read returns the next row or io.EOF.
func (c *CSVFileInput) Read() ([]string, error) {
	return c.r.Read()
}

func (c *CSVFileInput) Close() error {
	return c.f.Close()
}
