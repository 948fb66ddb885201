package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func cleanup(t *testing.T, store *Store, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		_, _ = store.db.ExecContext(ctx, "DELETE FROM bill_items WHERE bill_id = $1", id)
		_, _ = store.db.ExecContext(ctx, "DELETE FROM bills WHERE id = $1", id)
	}
}

func TestSaveLoad_Postgres(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	prefix := "it-" + uuid.NewString()[:8] + "-"
	first := models.Bill{
		ID:           prefix + "B1",
		CustomerName: "Alice",
		Items: []models.Item{
			{Name: "Soap", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
			{Name: "Pen", UnitPrice: decimal.RequireFromString("1.00"), Quantity: 5},
		},
		TotalAmount:     decimal.RequireFromString("10.00"),
		CreatedAt:       time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		CodeArtifactRef: "bill_B1_Alice.png",
	}
	second := first
	second.ID = prefix + "B2"
	t.Cleanup(func() { cleanup(t, store, first.ID, second.ID) })

	require.NoError(t, store.Save(ctx, []models.Bill{first}))
	// Saving the full set again must not duplicate the first bill.
	require.NoError(t, store.Save(ctx, []models.Bill{first, second}))

	bills, err := store.Load(ctx)
	require.NoError(t, err)

	var got []models.Bill
	for _, b := range bills {
		if b.ID == first.ID || b.ID == second.ID {
			got = append(got, b)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.True(t, got[0].TotalAmount.Equal(first.TotalAmount))
	assert.True(t, got[0].CreatedAt.Equal(first.CreatedAt))
	require.Len(t, got[0].Items, 2)
	assert.Equal(t, "Soap", got[0].Items[0].Name)
	assert.True(t, got[0].Items[0].UnitPrice.Equal(decimal.RequireFromString("2.5")))
}
