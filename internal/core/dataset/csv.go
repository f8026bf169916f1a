package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/prospectlens/prospectlens/internal/core"
)

// DefaultDelimiter matches spreadsheets exported with a French locale.
const DefaultDelimiter = ';'

// ErrSheetNotFound is returned when the sheet file does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// CSVStore keeps one delimited file per table under Dir.
type CSVStore struct {
	Dir       string
	Delimiter rune
}

// NewCSVStore returns a store rooted at dir.
func NewCSVStore(dir string, delimiter rune) *CSVStore {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	return &CSVStore{Dir: dir, Delimiter: delimiter}
}

// Path returns the file backing table.
func (s *CSVStore) Path(table string) string {
	table = strings.TrimSpace(table)
	if filepath.IsAbs(table) {
		return table
	}
	if filepath.Ext(table) == "" {
		table += ".csv"
	}
	return filepath.Join(s.Dir, table)
}

// ReadAll loads the whole table. Files that are not valid UTF-8 are decoded as Latin-1.
func (s *CSVStore) ReadAll(ctx context.Context, table string) (*core.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(table)
	data, err := os.ReadFile(path) // #nosec G304 -- sheet path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, path)
		}
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	return Decode(data, s.delimiter())
}

// WriteAll replaces the table file. Output is always UTF-8.
func (s *CSVStore) WriteAll(ctx context.Context, table string, ds *core.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ds == nil {
		return errors.New("dataset is required")
	}

	path := s.Path(table)
	dir := filepath.Dir(path)
	// #nosec G301 -- sheet directories are shared with spreadsheet tools
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create sheet directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp sheet: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck // no-op after rename

	if err := Encode(tmp, ds, s.delimiter()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp sheet: %w", err)
	}
	// #nosec G302 -- sheets are meant to be opened by spreadsheet tools
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod sheet: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace sheet: %w", err)
	}
	return nil
}

func (s *CSVStore) delimiter() rune {
	if s == nil || s.Delimiter == 0 {
		return DefaultDelimiter
	}
	return s.Delimiter
}

// Decode parses delimited bytes into a dataset.
func Decode(data []byte, delimiter rune) (*core.Dataset, error) {
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1 sheet: %w", err)
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &core.Dataset{}, nil
		}
		return nil, fmt.Errorf("read sheet header: %w", err)
	}

	ds := &core.Dataset{Columns: headerNames(header)}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet row %d: %w", len(ds.Rows)+2, err)
		}
		row := make(core.Record, len(ds.Columns))
		for i, column := range ds.Columns {
			if i < len(fields) {
				row[column] = fields[i]
			} else {
				row[column] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// Encode writes the dataset as delimited text in column order.
func Encode(w io.Writer, ds *core.Dataset, delimiter rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delimiter

	if err := writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("write sheet header: %w", err)
	}
	fields := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for i, column := range ds.Columns {
			fields[i] = row[column]
		}
		if err := writer.Write(fields); err != nil {
			return fmt.Errorf("write sheet row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return nil
}

// headerNames trims header cells and disambiguates blanks and duplicates. A
// generated suffix never reuses a name already taken by another header.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base, n := name, suffix[name]
			for used[name] {
				n++
				name = base + "." + strconv.Itoa(n)
			}
			suffix[base] = n
		}
		used[name] = true
		names[i] = name
	}
	return names
}
