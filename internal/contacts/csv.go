package contacts

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"whatsapp-console/internal/models"
)

// ErrInvalidCSV is returned when an import file does not match the expected layout.
var ErrInvalidCSV = errors.New("invalid contacts csv")

// Columns is the import and export layout.
var Columns = []string{"name", "phone", "email", "tags"}

const tagSeparator = ";"

// ValidateCSV checks the header and that every row has a name and a phone.
// It returns the number of data rows.
func ValidateCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("%w: empty file", ErrInvalidCSV)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if !isColumn(name) {
			return 0, fmt.Errorf("%w: unexpected column %q", ErrInvalidCSV, col)
		}
		if _, dup := index[name]; dup {
			return 0, fmt.Errorf("%w: duplicate column %q", ErrInvalidCSV, col)
		}
		index[name] = i
	}
	for _, required := range []string{"name", "phone"} {
		if _, ok := index[required]; !ok {
			return 0, fmt.Errorf("%w: missing column %q", ErrInvalidCSV, required)
		}
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if field(record, index["name"]) == "" || field(record, index["phone"]) == "" {
			return 0, fmt.Errorf("%w: line %d: name and phone are required", ErrInvalidCSV, line)
		}
		rows++
	}
	return rows, nil
}

// WriteCSV writes contacts in the import layout. Tags are joined with ";".
func WriteCSV(w io.Writer, contacts []models.Contact) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, c := range contacts {
		if err := cw.Write([]string{c.Name, c.Phone, c.Email, strings.Join(c.Tags, tagSeparator)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
