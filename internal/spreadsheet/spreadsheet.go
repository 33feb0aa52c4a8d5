// Package spreadsheet extracts recipient phone numbers from uploaded
// workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// recipientPattern accepts digits only: country code and number, no
// punctuation.
var recipientPattern = regexp.MustCompile(`^[0-9]+$`)

// Recipients reads the first sheet of an XLSX workbook and returns the
// phone numbers found in its first column. Row 1 is a header and is
// skipped. Cells are trimmed and anything that is not purely digits is
// dropped. Order is preserved and duplicates are kept; an upload without
// a single valid number yields an empty slice, not an error.
func Recipients(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	// Raw cell values keep long numbers as digit strings instead of the
	// scientific notation the general cell format applies to them.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	return lo.FilterMap(rows[1:], func(row []string, _ int) (string, bool) {
		if len(row) == 0 {
			return "", false
		}
		cell := strings.TrimSpace(row[0])
		return cell, recipientPattern.MatchString(cell)
	}), nil
}
