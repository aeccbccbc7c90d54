package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"

	"github.com/relloyd/xlpipe/logger"
)

// CSVFileOutput writes rows to a single OS file called <directory>/<prefix>.<extension>.
// An existing file of the same name is truncated.
type CSVFileOutput struct {
	csvWriter     *csv.Writer
	log           logger.Logger
	directory     string // set to empty string if you want to use OS temp space with system generated directory
	prefix        string
	extension     string
	headerRecord  []string
	currentName   string
	file          *os.File
	totalRowCount int
	needCleanup   bool
}

// NewCSVFileOutput creates a new CSV file struct. Supply a valid directory or empty string to use a new os.MkdirTemp().
// Nothing is created on disk until the first row is written or MustOpen is called.
func NewCSVFileOutput(log logger.Logger, outputDirectory string, fileNamePrefix string, fileNameExtension string) *CSVFileOutput {
	f := &CSVFileOutput{log: log, prefix: fileNamePrefix, extension: fileNameExtension}
	if outputDirectory == "" {
		var err error
		f.directory, err = os.MkdirTemp("", "csv-output-")
		if err != nil {
			log.Panic("Error creating temp directory for CSV files: ", err)
		}
	} else {
		f.directory = outputDirectory
	}
	f.currentName = path.Join(f.directory, fmt.Sprintf("%v.%v", f.prefix, f.extension))
	log.Debug("CSVFileOutput file=", f.currentName)
	return f
}

// SetHeader will store the supplied record for output as the first line of the file.
func (f *CSVFileOutput) SetHeader(record []string) {
	f.headerRecord = record
}

// FileName returns the path of the file whether or not it has been created yet.
func (f *CSVFileOutput) FileName() string {
	return f.currentName
}

// MustOpen creates the file and writes the header so a sheet without data rows still produces a file.
// Return the file name if it was created by this call.
func (f *CSVFileOutput) MustOpen() (fileName string) {
	if f.file == nil {
		f.createFile()
		fileName = f.currentName
	}
	return
}

// MustWriteToCSV writes record to the CSV file.
// Return fileName if the file is created by this call else empty string "".
func (f *CSVFileOutput) MustWriteToCSV(record []string) (fileName string) {
	fileName = f.MustOpen()
	if err := f.csvWriter.Write(record); err != nil {
		f.log.Panic("Unable to write to CSV file: ", err)
	}
	f.totalRowCount++
	return
}

// GetTotalRowCount returns the number of data rows written.
func (f *CSVFileOutput) GetTotalRowCount() int {
	return f.totalRowCount
}

// Cleanup can be deferred by the caller to flush the CSV Writer and close the OS file.
// It is safe to call more than once.
func (f *CSVFileOutput) Cleanup() {
	if !f.needCleanup {
		return
	}
	f.needCleanup = false
	f.csvWriter.Flush()
	if err := f.csvWriter.Error(); err != nil {
		f.log.Panic(err)
	}
	if err := f.file.Close(); err != nil {
		f.log.Panic("unable to close OS file: ", f.currentName, "; ", err)
	}
}

func (f *CSVFileOutput) createFile() {
	f.log.Info("Creating new CSV file '", f.currentName, "'")
	var err error
	f.file, err = os.Create(f.currentName)
	if err != nil {
		f.log.Panic("Unable to create OS file with name: ", f.currentName, "; ", err)
	}
	f.csvWriter = csv.NewWriter(f.file)
	f.needCleanup = true
	if f.headerRecord != nil {
		if err := f.csvWriter.Write(f.headerRecord); err != nil {
			f.log.Panic("Unable to write header to CSV file: ", err)
		}
	}
}
