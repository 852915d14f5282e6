package sheet

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

// Sheet holds the decoded rows of one worksheet. Cells are raw values, so
// dates arrive as serial numbers.
type Sheet struct {
	Name     string     `json:"name"`
	Rows     [][]string `json:"rows"`
	Date1904 bool       `json:"date_1904"`
}

func ReadWorkbook(r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()
	return readSheets(f)
}

func OpenWorkbook(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}
	defer f.Close()
	return readSheets(f)
}

func readSheets(f *excelize.File) ([]Sheet, error) {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	var out []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errors.Wrapf(err, "read sheet %q", name)
		}
		out = append(out, Sheet{Name: name, Rows: rows, Date1904: date1904})
	}
	return out, nil
}
