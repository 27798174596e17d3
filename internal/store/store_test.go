package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/bazaar-golang/internal/models"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), ErrNotFound},
		{"duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '3-9' for key 'uq_wishlists_user_product'"}, ErrDuplicate},
		{"missing reference", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapErr(tt.in), tt.want)
		})
	}

	assert.NoError(t, mapErr(nil))

	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	assert.Same(t, other, mapErr(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapErr(plain))
}

type fakeResult struct{ n int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 11, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, nil }

func TestExpectOne(t *testing.T) {
	assert.NoError(t, expectOne(fakeResult{n: 1}))
	assert.ErrorIs(t, expectOne(fakeResult{n: 0}), ErrNotFound)
}

func TestInsertID(t *testing.T) {
	var id int64
	assert.NoError(t, insertID(fakeResult{}, &id))
	assert.Equal(t, int64(11), id)
}

// execOnly answers ExecContext with a fixed row count. The query methods are
// left to the embedded nil interface; redeemCoupon never calls them.
type execOnly struct {
	queryer
	rows  int64
	calls int
}

func (q *execOnly) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q.calls++
	return fakeResult{n: q.rows}, nil
}

func TestRedeemCoupon(t *testing.T) {
	t.Run("won race leaves the loaded coupon untouched", func(t *testing.T) {
		q := &execOnly{rows: 1}
		c := &models.Coupon{ID: 9, MaxUsage: 1}

		require.NoError(t, redeemCoupon(context.Background(), q, c))
		assert.Equal(t, 1, q.calls)
		assert.Equal(t, 0, c.UsageCount)
	})

	t.Run("lost race", func(t *testing.T) {
		q := &execOnly{rows: 0}
		c := &models.Coupon{ID: 9, MaxUsage: 1, UsageCount: 1}

		assert.ErrorIs(t, redeemCoupon(context.Background(), q, c), ErrCouponExhausted)
		assert.Equal(t, 1, c.UsageCount)
	})
}

func TestCountRedemption(t *testing.T) {
	couponID := int64(9)
	newOrder := func() *models.Order {
		return &models.Order{CouponID: &couponID, Coupon: &models.Coupon{ID: couponID, MaxUsage: 5, UsageCount: 2}}
	}

	committed := newOrder()
	require.NoError(t, countRedemption(committed, nil))
	assert.Equal(t, 3, committed.Coupon.UsageCount)

	rolledBack := newOrder()
	assert.ErrorIs(t, countRedemption(rolledBack, ErrCouponExhausted), ErrCouponExhausted)
	assert.Equal(t, 2, rolledBack.Coupon.UsageCount)

	rolledBack = newOrder()
	assert.ErrorContains(t, countRedemption(rolledBack, errors.New("commit tx: driver: bad connection")), "commit tx")
	assert.Equal(t, 2, rolledBack.Coupon.UsageCount)

	plain := &models.Order{}
	assert.NoError(t, countRedemption(plain, nil))
}
