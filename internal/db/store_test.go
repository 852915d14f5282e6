package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rtr-ops/backend/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	return store
}

// rollback runs fn in a transaction that is always discarded.
func rollback(t *testing.T, store *Store, fn func(repo Repository)) {
	t.Helper()
	done := errors.New("rollback")
	err := store.WithTx(context.Background(), func(repo Repository) error {
		fn(repo)
		return done
	})
	require.ErrorIs(t, err, done)
}

func TestStoreTicketRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rollback(t, store, func(repo Repository) {
		inc := models.Incident{Name: "WO-1", CreatedBy: "test", UpdatedBy: "test"}
		require.NoError(t, repo.CreateIncident(ctx, &inc))
		length, width := 10, 4
		way := models.Wayfinding{Location: "curb", Length: &length, Width: &width, CreatedBy: "test", UpdatedBy: "test"}
		require.NoError(t, repo.CreateWayfinding(ctx, &way))

		amount := decimal.RequireFromString("80.50")
		ticket := models.Ticket{
			IncidentID:   inc.ID,
			WayfindingID: way.ID,
			TicketCode:   "TK-1",
			Quantity:     decimal.NewFromInt(2),
			AmountToPay:  &amount,
			CreatedBy:    "test",
			UpdatedBy:    "test",
		}
		require.NoError(t, repo.CreateTicket(ctx, &ticket))

		got, err := repo.GetTicket(ctx, ticket.ID)
		require.NoError(t, err)
		require.True(t, got.Quantity.Equal(decimal.NewFromInt(2)))
		require.True(t, got.AmountToPay.Equal(amount))

		note := "layout"
		require.NoError(t, repo.UpdateTicketComment7d(ctx, ticket.ID, &note, "test"))
		got, err = repo.GetTicket(ctx, ticket.ID)
		require.NoError(t, err)
		require.Equal(t, "layout", *got.Comment7d)

		require.NoError(t, repo.SoftDelete(ctx, EntityTicket, ticket.ID, "test"))
		_, err = repo.GetTicket(ctx, ticket.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreAddressMatchesNullComponents(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rollback(t, store, func(repo Repository) {
		street := "INTEGRATION TEST ST"
		addr := models.Address{Street: &street, CreatedBy: "test", UpdatedBy: "test"}
		require.NoError(t, repo.CreateAddress(ctx, &addr))

		found, err := repo.FindAddress(ctx, models.Address{Street: &street})
		require.NoError(t, err)
		require.Equal(t, addr.ID, found.ID)

		num := "1"
		_, err = repo.FindAddress(ctx, models.Address{Number: &num, Street: &street})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreNestedTxIsSavepoint(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rollback(t, store, func(repo Repository) {
		permit := models.Permit{PermitNumber: "IT-SAVEPOINT", Status: models.PermitPending, CreatedBy: "test", UpdatedBy: "test"}
		require.NoError(t, repo.CreatePermit(ctx, &permit))

		err := repo.WithTx(ctx, func(inner Repository) error {
			permit.Status = models.PermitExpired
			require.NoError(t, inner.UpdatePermit(ctx, &permit))
			return errors.New("discard")
		})
		require.Error(t, err)

		got, err := repo.FindPermitByNumber(ctx, "IT-SAVEPOINT")
		require.NoError(t, err)
		require.Equal(t, models.PermitPending, got.Status)
	})
}
