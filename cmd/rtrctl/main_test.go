package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rtr-ops/backend/internal/sheet"
)

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "RTR"))

	fields := sheet.TicketSchema(4).Fields
	header := make([]any, len(fields))
	data := make([]any, len(fields))
	for i, fd := range fields {
		header[i] = fd.Label
		switch fd.Name {
		case sheet.FieldWorkOrder:
			data[i] = "WO-1"
		case sheet.FieldAddress:
			data[i] = "123 N Main St"
		case sheet.FieldPermitNumber:
			data[i] = "P-1"
		}
	}
	require.NoError(t, f.SetSheetRow("RTR", "A2", &header))
	require.NoError(t, f.SetSheetRow("RTR", "A3", &data))

	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]any{"free text"}))

	path := filepath.Join(dir, "rtr.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func run(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	return &out, cmd.Execute()
}

func TestImportDryRun(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeWorkbook(t, dir)

	out, err := run(t, "import", path, "--dry-run", "--actor", "ops", "--as-of", "2026-03-10")
	require.NoError(t, err)

	var got struct {
		Command string `json:"command"`
		DryRun  bool   `json:"dry_run"`
		Result  struct {
			Status    string `json:"status"`
			Succeeded int    `json:"succeeded"`
			Sheets    []struct {
				Name string     `json:"name"`
				Kind sheet.Kind `json:"kind"`
			} `json:"sheets"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	require.Equal(t, "import", got.Command)
	require.True(t, got.DryRun)
	require.Equal(t, "COMPLETED", got.Result.Status)
	require.Equal(t, 1, got.Result.Succeeded)
	require.Len(t, got.Result.Sheets, 2)
	require.Equal(t, sheet.KindTicket, got.Result.Sheets[0].Kind)
	require.Equal(t, sheet.KindUnknown, got.Result.Sheets[1].Kind)
}

func TestImportRequiresDatabaseWithoutDryRun(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("DATABASE_URL", "")
	path := writeWorkbook(t, dir)

	_, err := run(t, "import", path)
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeWorkbook(t, dir)

	out, err := run(t, "resolve", path)
	require.NoError(t, err)

	var got struct {
		Result []struct {
			Sheet      string `json:"sheet"`
			Kind       string `json:"kind"`
			Resolution struct {
				HeaderRow int `json:"header_row"`
			} `json:"resolution"`
			Error string `json:"error"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	require.Len(t, got.Result, 2)
	require.Equal(t, "ticket", got.Result[0].Kind)
	require.Equal(t, 1, got.Result[0].Resolution.HeaderRow)
	require.NotEmpty(t, got.Result[1].Error)
}

func TestInvalidAsOf(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeWorkbook(t, dir)

	_, err := run(t, "import", path, "--dry-run", "--as-of", "March 10")
	require.Error(t, err)
}
