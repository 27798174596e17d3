package models

import (
	"testing"

	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeactivate(t *testing.T) {
	next, err := Active.Deactivate()
	require.NoError(t, err)
	assert.Equal(t, Deactivated, next)
	assert.False(t, next.IsActive())

	again, err := next.Deactivate()
	assert.ErrorIs(t, err, ErrAlreadyDeactivated)
	assert.Equal(t, Deactivated, again)
}

func TestOwnershipTable(t *testing.T) {
	order := &Order{ID: 1, UserID: 10}
	shop := &Shop{ID: 2, OwnerID: 20}

	tests := []struct {
		name   string
		target permissions.Ownable
		want   int64
		ok     bool
	}{
		{"user", &User{ID: 5}, 5, true},
		{"address", &Address{UserID: 6}, 6, true},
		{"shop", shop, 20, true},
		{"category", &Category{CreatedBy: 7}, 7, true},
		{"product via shop", &Product{Shop: shop}, 20, true},
		{"product without shop", &Product{ShopID: 2}, 0, false},
		{"wishlist", &Wishlist{UserID: 8}, 8, true},
		{"order", order, 10, true},
		{"order item via order", &OrderItem{Order: order}, 10, true},
		{"delivery via order", &Delivery{Order: order}, 10, true},
		{"delivery without order", &Delivery{OrderID: 1}, 0, false},
		{"invoice", &Invoice{UserID: 11}, 11, true},
		{"comment", &Comment{UserID: 12}, 12, true},
		{"rating", &Rating{UserID: 13}, 13, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := permissions.ResponsibleUser(tt.target)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShopAcceptsOrders(t *testing.T) {
	s := Shop{Status: ShopApproved, Lifecycle: Active}
	assert.True(t, s.AcceptsOrders())

	s.Status = ShopPending
	assert.False(t, s.AcceptsOrders())

	s = Shop{Status: ShopApproved, Lifecycle: Deactivated}
	assert.False(t, s.AcceptsOrders())
}

func TestPassword(t *testing.T) {
	var p Password
	require.NoError(t, p.Set("correct horse"))

	ok, err := p.Matches("correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Matches("battery staple")
	require.NoError(t, err)
	assert.False(t, ok)
}
