package sheet

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func labels(s Schema) []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Label
	}
	return out
}

func TestResolvePicksBestRowOutOfOrder(t *testing.T) {
	shuffled := []string{
		"Comments / Notes", "Reported Date", "Permit Expiration Date", "Permit Start Date",
		"Permit Number", "Quantity", "Contract Item", "Quadrant", "Dimensions", "To Street",
		"From Street", "Location", "Address", "Tiket Code", "Work Order #",
	}
	rows := [][]string{
		{"Report", "generated 2026-03-10"},
		{"Work Order", "Address"},
		{},
		shuffled,
		{"WO-1", "100 Main St"},
	}

	res, err := NewResolver(0, 0).Resolve(rows, TicketSchema(4))
	require.NoError(t, err)
	require.Equal(t, 3, res.HeaderRow)
	require.Equal(t, 15, res.Resolved)
	require.Empty(t, res.Missing)

	idx, ok := res.Columns.Index(FieldWorkOrder)
	require.True(t, ok)
	require.Equal(t, 14, idx)

	m, ok := res.Columns.Match(FieldTicketCode)
	require.True(t, ok)
	require.Equal(t, 13, m.Column)
	require.Equal(t, 1, m.Score)
	require.Equal(t, "Tiket Code", m.Header)

	require.Equal(t, "100 Main St", res.Columns.Cell([]string{"x", "x", "x", "x", "x", "x", "x", "x", "x", "x", "x", "x", "100 Main St "}, FieldAddress))
}

func TestResolveTiesFavourEarliestRow(t *testing.T) {
	header := labels(TicketSchema(4))
	res, err := NewResolver(0, 0).Resolve([][]string{header, header}, TicketSchema(4))
	require.NoError(t, err)
	require.Equal(t, 0, res.HeaderRow)
}

func TestResolveCoverageFloor(t *testing.T) {
	eight := []string{"WORK ORDER", "TICKET CODE", "ADDRESS", "LOCATION", "DIMENSIONS", "QUADRANT", "QUANTITY", "COMMENTS"}

	res, err := NewResolver(0, 0).Resolve([][]string{eight}, TicketSchema(4))
	require.ErrorIs(t, err, ErrUnresolved)
	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, 8, ue.Resolved)
	require.Equal(t, 15, ue.Required)
	require.Equal(t, 0, ue.BestRow)
	require.Len(t, ue.Missing, 7)
	require.Equal(t, 8, res.Columns.Len())

	n, ok := PartialCount(err)
	require.True(t, ok)
	require.Equal(t, 8, n)

	nine := append(eight, "PERMIT NUMBER")
	res, err = NewResolver(0, 0).Resolve([][]string{nine}, TicketSchema(4))
	require.NoError(t, err)
	require.InDelta(t, 0.6, res.Coverage(), 1e-9)
}

func TestResolveOnlyScansFirstRows(t *testing.T) {
	rows := make([][]string, 0, 21)
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{"note"})
	}
	rows = append(rows, labels(TicketSchema(4)))

	_, err := NewResolver(15, 0).Resolve(rows, TicketSchema(4))
	require.ErrorIs(t, err, ErrUnresolved)

	res, err := NewResolver(25, 0).Resolve(rows, TicketSchema(4))
	require.NoError(t, err)
	require.Equal(t, 20, res.HeaderRow)
}

func TestResolveEmptySheet(t *testing.T) {
	_, err := NewResolver(0, 0).Resolve([][]string{{}, {"", "  "}}, TicketSchema(4))
	var ue *UnresolvedError
	require.True(t, errors.As(err, &ue))
	require.True(t, ue.EmptyRows)
}

func TestResolveThreshold(t *testing.T) {
	rows := [][]string{{"WORK ORDR", "AMOUNTS"}}
	schema := CustomSchema([]string{"WORK ORDER", "AMOUNT DUE"}, 1)
	res, err := NewResolver(0, 0).Resolve(rows, schema)
	require.ErrorIs(t, err, ErrUnresolved)
	require.Equal(t, 1, res.Resolved)
	require.Equal(t, []string{"AMOUNT DUE"}, res.Missing)
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "WORK ORDER", Normalize("\ufeff work\u00a0  order "))
	require.Equal(t, "WORK", Normalize("\uff37\uff2f\uff32\uff2b"))
}

func TestClassify(t *testing.T) {
	r := NewResolver(0, 0)
	ticket, financial := TicketSchema(4), FinancialSchema(3)

	got := r.Classify([][]string{labels(ticket)}, ticket, financial)
	require.Equal(t, KindTicket, got.Kind)
	require.NoError(t, got.Err)

	got = r.Classify([][]string{{"title"}, labels(financial)}, ticket, financial)
	require.Equal(t, KindFinancial, got.Kind)
	require.Equal(t, 1, got.Resolution.HeaderRow)

	got = r.Classify([][]string{{"nothing", "here"}}, ticket, financial)
	require.Equal(t, KindUnknown, got.Kind)
	require.ErrorIs(t, got.Err, ErrUnresolved)

	got = r.Classify(nil, ticket, financial)
	require.Equal(t, KindUnknown, got.Kind)
	require.ErrorIs(t, got.Err, ErrUnresolved)
}

func TestColumnMapJSON(t *testing.T) {
	cm := NewColumnMap(Match{Field: "b", Column: 2}, Match{Field: "a", Column: 0})
	raw, err := json.Marshal(cm)
	require.NoError(t, err)
	require.JSONEq(t, `[{"field":"a","column":0,"score":0,"header":""},{"field":"b","column":2,"score":0,"header":""}]`, string(raw))

	require.Equal(t, "", cm.Cell([]string{"x"}, "b"))
	require.Equal(t, "", cm.Cell([]string{"x"}, "missing"))
}
