// Package trainer fits the boosted-tree classifier offline from a labelled
// dataset of precomputed feature vectors.
package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"phishguard/features"
	"phishguard/model"
)

// ClassLabels maps the dataset's class column to labels. The published
// phishing dataset encodes phishing as -1 and legitimate as 1; 0 appears in
// some derived copies and is treated as phishing.
var ClassLabels = map[int]model.Label{
	-1: model.Phishing,
	0:  model.Phishing,
	1:  model.Legitimate,
}

// ErrEmptyDataset means the file held a header and nothing else.
var ErrEmptyDataset = errors.New("dataset has no rows")

// Row is one labelled example.
type Row struct {
	ID       string
	Features []float64
	Class    int
}

// Dataset is the parsed training file.
type Dataset struct {
	Source  string
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Classes returns the distinct class values present, ascending.
func (d *Dataset) Classes() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range d.Rows {
		if !seen[r.Class] {
			seen[r.Class] = true
			out = append(out, r.Class)
		}
	}
	slices.Sort(out)
	return out
}

// LoadDataset reads a .csv or .xlsx file laid out as
// [identifier, features.Width feature columns, class]. The first row is a
// header.
func LoadDataset(path string) (*Dataset, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return parseRecords(path, records)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func parseRecords(source string, records [][]string) (*Dataset, error) {
	const columns = features.Width + 2

	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", source)
	}
	header := records[0]
	if len(header) != columns {
		return nil, fmt.Errorf("%s: header has %d columns, want %d", source, len(header), columns)
	}

	ds := &Dataset{
		Source:  source,
		Columns: append([]string(nil), header[1:columns-1]...),
	}
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		if len(rec) != columns {
			return nil, fmt.Errorf("%s: row %d has %d columns, want %d", source, line, len(rec), columns)
		}

		row := Row{ID: rec[0], Features: make([]float64, features.Width)}
		for j := 0; j < features.Width; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %q: %w", source, line, header[j+1], err)
			}
			row.Features[j] = v
		}

		class, err := strconv.Atoi(strings.TrimSpace(rec[columns-1]))
		if err != nil {
			return nil, fmt.Errorf("%s: row %d class: %w", source, line, err)
		}
		if _, ok := ClassLabels[class]; !ok {
			return nil, fmt.Errorf("%s: row %d has unknown class %d", source, line, class)
		}
		row.Class = class

		ds.Rows = append(ds.Rows, row)
	}

	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyDataset)
	}
	return ds, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
