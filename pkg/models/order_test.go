package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderConfirmed, OrderBaking, true},
		{OrderBaking, OrderOutForDelivery, true},
		{OrderOutForDelivery, OrderDelivered, true},
		{OrderPending, OrderBaking, false},
		{OrderConfirmed, OrderPending, false},
		{OrderBaking, OrderCancelled, true},
		{OrderOutForDelivery, OrderCancelled, true},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderConfirmed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCustomerCancellable(t *testing.T) {
	assert.True(t, OrderPending.CustomerCancellable())
	assert.True(t, OrderConfirmed.CustomerCancellable())
	assert.False(t, OrderBaking.CustomerCancellable())
}

func TestParseEnums(t *testing.T) {
	st, err := ParseOrderStatus(" Baking ")
	require.NoError(t, err)
	assert.Equal(t, OrderBaking, st)
	_, err = ParseOrderStatus("lost")
	assert.ErrorIs(t, err, ErrInvalid)

	m, err := ParsePaymentMethod("COD")
	require.NoError(t, err)
	assert.Equal(t, PaymentCOD, m)
	_, err = ParsePaymentMethod("cheque")
	assert.Error(t, err)
}

func TestNewOrderNumber(t *testing.T) {
	n := NewOrderNumber(time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(n, "BK-20240131-"))
	assert.Len(t, n, len("BK-20240131-")+8)
	assert.NotEqual(t, n, NewOrderNumber(time.Now()))
}
