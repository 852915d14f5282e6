package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "RTR"))
	require.NoError(t, f.SetSheetRow("RTR", "A1", &[]any{"City extract"}))
	require.NoError(t, f.SetSheetRow("RTR", "A3", &[]any{"Work Order", "Address", "Permit Expiration Date"}))
	require.NoError(t, f.SetSheetRow("RTR", "A4", &[]any{"WO-1", "12 N Elm St", 45000}))

	_, err := f.NewSheet("Invoices")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Invoices", "A1", &[]any{"Invoice Number", "Amount"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadWorkbook(t *testing.T) {
	sheets, err := ReadWorkbook(buildWorkbook(t))
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	rtr := sheets[0]
	require.Equal(t, "RTR", rtr.Name)
	require.False(t, rtr.Date1904)
	require.Len(t, rtr.Rows, 4)
	require.Equal(t, []string{"City extract"}, rtr.Rows[0])
	require.Empty(t, rtr.Rows[1])
	require.Equal(t, []string{"WO-1", "12 N Elm St", "45000"}, rtr.Rows[3])

	require.Equal(t, "Invoices", sheets[1].Name)

	res, err := NewResolver(0, 0).Resolve(rtr.Rows, CustomSchema([]string{"WORK ORDER", "ADDRESS", "PERMIT EXPIRATION DATE"}, 2))
	require.NoError(t, err)
	require.Equal(t, 2, res.HeaderRow)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a zip")))
	require.Error(t, err)
}
