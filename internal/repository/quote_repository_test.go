package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-service/internal/models"
)

func TestQuoteTotalTracksItems(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	sc := memberScope(t, tenantID)

	quote, err := repo.Create(ctx, sc, &models.Quote{LeadID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 0.0, quote.TotalAmount)

	first, err := repo.AddItem(ctx, sc, quote.ID, &models.QuoteItem{
		Description: "Implantación",
		Quantity:    2,
		UnitPrice:   150,
	})
	require.NoError(t, err)
	assert.Equal(t, 300.0, first.Total)

	second, err := repo.AddItem(ctx, sc, quote.ID, &models.QuoteItem{
		Description: "Soporte mensual",
		Quantity:    3,
		UnitPrice:   99.50,
		// a client-supplied total is ignored, always quantity * unit price
		Total: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 298.5, second.Total)

	got, err := repo.GetByID(ctx, sc, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 598.5, got.TotalAmount)
	assert.Len(t, got.Items, 2)

	require.NoError(t, repo.RemoveItem(ctx, sc, quote.ID, first.ID))

	got, err = repo.GetByID(ctx, sc, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 298.5, got.TotalAmount)

	require.NoError(t, repo.RemoveItem(ctx, sc, quote.ID, second.ID))

	got, err = repo.GetByID(ctx, sc, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.TotalAmount, "removing the last item brings the total back to zero")
}

func TestQuoteRemoveItemMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	sc := memberScope(t, uuid.New())
	quote, err := repo.Create(ctx, sc, &models.Quote{LeadID: uuid.New()})
	require.NoError(t, err)

	err = repo.RemoveItem(ctx, sc, quote.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuoteUpdateCannotSetTotal(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	sc := memberScope(t, uuid.New())
	quote, err := repo.Create(ctx, sc, &models.Quote{LeadID: uuid.New()})
	require.NoError(t, err)

	_, err = repo.AddItem(ctx, sc, quote.ID, &models.QuoteItem{
		Description: "Licencia",
		Quantity:    1,
		UnitPrice:   500,
	})
	require.NoError(t, err)

	_, err = repo.Update(ctx, sc, quote.ID, map[string]interface{}{
		"status":       models.QuoteStatusSent,
		"total_amount": 9999.0,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, sc, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusSent, got.Status)
	assert.Equal(t, 500.0, got.TotalAmount, "total stays derived from the items")
}
