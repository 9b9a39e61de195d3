// Package dataset loads the historical transaction table.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/txjson"
)

// LoadError reports a dataset that is absent or malformed.
type LoadError struct {
	Path string
	Line int // 0 when the error is not tied to a line
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load dataset %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var numberLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Load reads a comma-separated file with a header row into records, one per row.
func Load(path string) ([]txjson.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	return load(path, f)
}

// LoadReader reads records from r. name is used in error messages.
func LoadReader(name string, r io.Reader) ([]txjson.Object, error) {
	return load(name, r)
}

func load(name string, r io.Reader) ([]txjson.Object, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Path: name, Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &LoadError{Path: name, Line: csvLine(err), Err: err}
	}
	if err := checkHeader(header); err != nil {
		return nil, &LoadError{Path: name, Line: 1, Err: err}
	}

	var records []txjson.Object
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: name, Line: csvLine(err), Err: err}
		}
		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, &LoadError{
				Path: name,
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(header), len(row)),
			}
		}
		records = append(records, toRecord(header, row))
	}

	return records, nil
}

// checkHeader names blank columns "Unnamed: <i>" (zero-based), which is what
// an exported index column looks like.
func checkHeader(header []string) error {
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	seen := make(map[string]bool, len(header))
	for i, col := range header {
		if col == "" {
			col = fmt.Sprintf("Unnamed: %d", i)
			header[i] = col
		}
		if seen[col] {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = true
	}
	return nil
}

// toRecord keeps header order. Empty and missing trailing cells are left out
// of the record.
func toRecord(header, row []string) txjson.Object {
	record := make(txjson.Object, 0, len(header))
	for i, cell := range row {
		if cell == "" {
			continue
		}
		record = append(record, txjson.Field{Key: header[i], Value: cellValue(cell)})
	}
	return record
}

func cellValue(cell string) any {
	if numberLiteral.MatchString(cell) {
		return json.Number(cell)
	}
	return cell
}

func csvLine(err error) int {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Line
	}
	return 0
}
