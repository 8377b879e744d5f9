package gradeimport

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-grading/core"
)

// ReadCSV reads a table whose first record is the header. Rows may have fewer cells than the header.
// Malformed input is reported as a *core.ValidationError.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, core.NewValidationError(errors.Wrap(err, "reading csv"))
	}
	if len(records) == 0 {
		return Table{}, core.NewValidationError(errors.New("empty csv: missing header"))
	}
	// spreadsheet exports may start with a UTF-8 BOM
	if h := records[0]; len(h) > 0 {
		h[0] = strings.TrimPrefix(h[0], "\ufeff")
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}
