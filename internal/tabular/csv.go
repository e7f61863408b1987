package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MissingFileError reports a required canonical file that is either
// absent or present but without data rows. The two cases are
// distinguished so callers can report them differently.
type MissingFileError struct {
	Path  string
	Empty bool
}

func (e *MissingFileError) Error() string {
	if e.Empty {
		return fmt.Sprintf("empty file: %s", e.Path)
	}
	return fmt.Sprintf("missing file: %s", e.Path)
}

// ReadCSV loads a delimited file into a Table. A file that does not
// exist, has no header, or has a header but zero data rows yields a
// MissingFileError.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, fmt.Errorf("ReadCSV: open %s: %w", path, err)
	}
	defer f.Close()

	return readCSV(f, path)
}

func readCSV(r io.Reader, path string) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &MissingFileError{Path: path, Empty: true}
	}
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: parse %s header: %w", path, err)
	}

	t := NewTable(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: parse %s row: %w", path, err)
		}
		if len(record) > len(t.columns) {
			record = record[:len(t.columns)]
		}
		if err := t.AppendRow(record); err != nil {
			return nil, fmt.Errorf("ReadCSV: %s: %w", path, err)
		}
	}

	if t.NumRows() == 0 {
		return nil, &MissingFileError{Path: path, Empty: true}
	}
	return t, nil
}

// ParseCSV loads a Table from in-memory file bytes. name is used in
// error messages only.
func ParseCSV(data []byte, name string) (*Table, error) {
	return readCSV(bytes.NewReader(data), name)
}

// WriteCSV writes the table as header plus data rows. Re-reading the
// output yields an identical table.
func WriteCSV(t *Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("WriteCSV: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteCSV: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.columns); err != nil {
		return fmt.Errorf("WriteCSV: header %s: %w", path, err)
	}
	for i := range t.rows {
		row := make([]string, len(t.columns))
		copy(row, t.rows[i])
		if err := w.Write(row); err != nil {
			return fmt.Errorf("WriteCSV: row %d of %s: %w", i, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("WriteCSV: flush %s: %w", path, err)
	}
	return nil
}
