package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/models"
	"github.com/rtr-ops/backend/internal/sheet"
)

var (
	testAudit = models.Audit{CreatedBy: "importer", UpdatedBy: "importer"}
	testAsOf  = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
)

func day(offset int) time.Time {
	return time.Date(2026, 3, 10+offset, 0, 0, 0, 0, time.UTC)
}

// serial renders t as a 1900-system spreadsheet date serial.
func serial(t time.Time) string {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return strconv.Itoa(int(t.Sub(epoch).Hours() / 24))
}

func header() []string {
	fields := sheet.TicketSchema(4).Fields
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func ticketColumns() sheet.ColumnMap {
	fields := sheet.TicketSchema(4).Fields
	matches := make([]sheet.Match, len(fields))
	for i, f := range fields {
		matches[i] = sheet.Match{Field: f.Name, Column: i, Header: f.Label}
	}
	return sheet.NewColumnMap(matches...)
}

// row builds a ticket extract row in header order; set overrides defaults.
func row(set map[string]string) []string {
	values := map[string]string{
		sheet.FieldWorkOrder:  "WO-1",
		sheet.FieldTicketCode: "TK-1",
		sheet.FieldAddress:    "123 N Main St",
		sheet.FieldFromStreet: "100-120 Main St",
		sheet.FieldToStreet:   "200 Elm Ave",
		sheet.FieldDimensions: "10 x 4",
	}
	for k, v := range set {
		values[k] = v
	}
	fields := sheet.TicketSchema(4).Fields
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = values[f.Name]
	}
	return out
}

func batchOf(rows ...[]string) Batch {
	b := Batch{Sheet: "RTR", Columns: ticketColumns()}
	for i, r := range rows {
		b.Rows = append(b.Rows, ImportRow{Number: i + 2, Cells: r})
	}
	return b
}

func newTestImporter(store *db.MemStore, atomic bool) *Importer {
	return NewImporter(store, Options{Atomic: atomic}, zerolog.Nop())
}

func newTestLifecycle(store *db.MemStore) *Lifecycle {
	return &Lifecycle{Repo: store, Logger: zerolog.Nop()}
}

// seedTicket stores a ticket with its incident and wayfinding.
func seedTicket(t *testing.T, store *db.MemStore, location string, comment *string) int64 {
	t.Helper()
	ctx := context.Background()
	inc := models.Incident{Name: "WO", CreatedBy: "seed", UpdatedBy: "seed"}
	require.NoError(t, store.CreateIncident(ctx, &inc))
	way := models.Wayfinding{Location: location, CreatedBy: "seed", UpdatedBy: "seed"}
	require.NoError(t, store.CreateWayfinding(ctx, &way))
	ticket := models.Ticket{
		IncidentID:   inc.ID,
		WayfindingID: way.ID,
		Comment7d:    comment,
		Quantity:     decimal.NewFromInt(1),
		CreatedBy:    "seed",
		UpdatedBy:    "seed",
	}
	require.NoError(t, store.CreateTicket(ctx, &ticket))
	return ticket.ID
}

func comment7d(t *testing.T, store *db.MemStore, ticketID int64) *string {
	t.Helper()
	ticket, err := store.GetTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return ticket.Comment7d
}

func ptr[T any](v T) *T {
	return &v
}
