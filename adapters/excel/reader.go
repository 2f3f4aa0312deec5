package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"learnerdash/adapters/coercer"
	"learnerdash/domain/markbook"
	"learnerdash/internal/errors"
)

// Supported upload extensions
const (
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

// DataReader turns an uploaded workbook into a markbook.RawTable
type DataReader struct {
	// Sheet selects a worksheet by name; empty means the first sheet
	Sheet string
}

// NewDataReader creates a reader for the first worksheet
func NewDataReader() *DataReader {
	return &DataReader{}
}

// IsSupported reports whether a filename has an extension the reader handles
func IsSupported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtXLSX, ExtCSV:
		return true
	}
	return false
}

// ReadFile reads a workbook from disk
func (r *DataReader) ReadFile(path string) (*markbook.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Unreadable(fmt.Errorf("read %s: %w", path, err))
	}
	return r.ReadBytes(data, path)
}

// ReadBytes reads an in-memory .xlsx or .csv document. The filename only
// selects the format.
func (r *DataReader) ReadBytes(data []byte, filename string) (*markbook.RawTable, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	log.Printf("[DataReader] Starting to read %s (%d bytes)", filepath.Base(filename), len(data))

	switch ext {
	case ExtCSV:
		return r.readCSV(data)
	case ExtXLSX, "":
		return r.readExcel(data)
	default:
		return nil, errors.Unreadable(fmt.Errorf("unsupported file type: %s", ext))
	}
}

func (r *DataReader) readExcel(data []byte) (*markbook.RawTable, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Unreadable(fmt.Errorf("open excel: %w", err))
	}
	defer func() { _ = f.Close() }()
	log.Printf("[DataReader] Excel file opened in %.2fms", msSince(startTime))

	sheet := r.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Unreadable(fmt.Errorf("no sheets found"))
		}
		sheet = sheets[0]
	}

	// Raw values keep marks unformatted and dates as serial day numbers
	readStart := time.Now()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Unreadable(fmt.Errorf("read sheet %s: %w", sheet, err))
	}
	log.Printf("[DataReader] Sheet %s read in %.2fms (%d rows)", sheet, msSince(readStart), len(rows))

	return classifyRows(rows), nil
}

func (r *DataReader) readCSV(data []byte) (*markbook.RawTable, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Unreadable(fmt.Errorf("read csv: %w", err))
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", msSince(readStart), len(rows))

	return classifyRows(rows), nil
}

func classifyRows(rows [][]string) *markbook.RawTable {
	table := &markbook.RawTable{Rows: make([][]markbook.Cell, len(rows))}
	for i, row := range rows {
		cells := make([]markbook.Cell, len(row))
		for j, v := range row {
			cells[j] = coercer.Classify(v)
		}
		table.Rows[i] = cells
	}
	return table
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Nanoseconds()) / 1e6
}
