package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/bakery/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) *Ledger {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	l, err := NewLedger(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLedgerAppendAndRead(t *testing.T) {
	l := setupLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, &models.PaymentTransaction{
		OrderID: "order-1", Event: models.LedgerCreated, Status: "pending", Amount: 1200.5, Currency: "INR",
	}))
	require.NoError(t, l.Append(ctx, &models.PaymentTransaction{
		OrderID: "order-1", Event: models.LedgerVerified, Status: "paid", Amount: 1200.5, Currency: "INR", GatewayPaymentID: "pay_1",
	}))
	require.NoError(t, l.Append(ctx, &models.PaymentTransaction{OrderID: "order-2", Event: models.LedgerCreated}))

	txs, err := l.ForOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.LedgerCreated, txs[0].Event)
	assert.Equal(t, models.LedgerVerified, txs[1].Event)
	assert.Equal(t, 1200.5, txs[1].Amount)

	last, err := l.Last(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "pay_1", last.GatewayPaymentID)

	_, err = l.Last(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
