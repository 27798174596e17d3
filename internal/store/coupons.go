package store

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
)

const couponColumns = `id, code, discount_percent, valid_from, valid_to, active, max_usage, usage_count, min_order_amount, created_at`

func scanCoupon(row scanner) (models.Coupon, error) {
	var c models.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.ValidFrom, &c.ValidTo, &c.Active,
		&c.MaxUsage, &c.UsageCount, &c.MinOrderAmount, &c.CreatedAt)
	return c, err
}

func (s *MySQLStore) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	c.Active = true
	c.UsageCount = 0
	c.MinOrderAmount = c.MinOrderAmount.Round(2)
	c.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (code, discount_percent, valid_from, valid_to, active, max_usage, usage_count, min_order_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.DiscountPercent, c.ValidFrom.UTC(), c.ValidTo.UTC(), c.Active, c.MaxUsage, c.UsageCount,
		c.MinOrderAmount, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create coupon: %w", mapErr(err))
	}
	return insertID(res, &c.ID)
}

func (s *MySQLStore) GetCoupon(ctx context.Context, id int64) (*models.Coupon, error) {
	c, err := scanCoupon(s.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *MySQLStore) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := scanCoupon(s.db.QueryRowContext(ctx, "SELECT "+couponColumns+" FROM coupons WHERE code = ?", code))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *MySQLStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+couponColumns+" FROM coupons ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return collect(rows, scanCoupon)
}

// DeactivateCoupon switches the active flag off. Coupons keep their own flag
// rather than a lifecycle column because validity already depends on it.
func (s *MySQLStore) DeactivateCoupon(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE coupons SET active = 0 WHERE id = ? AND active = 1", id)
	if err != nil {
		return fmt.Errorf("deactivate coupon %d: %w", id, err)
	}
	return expectOne(res)
}

// redeemCoupon is the compare-and-increment on usage_count. It must run in
// the transaction that attaches the coupon to an order; c itself is left
// alone until that transaction commits (see countRedemption).
func redeemCoupon(ctx context.Context, q queryer, c *models.Coupon) error {
	res, err := q.ExecContext(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1
		WHERE id = ? AND active = 1 AND usage_count < max_usage`, c.ID)
	if err != nil {
		return fmt.Errorf("redeem coupon %d: %w", c.ID, err)
	}
	if err := expectOne(res); err != nil {
		return ErrCouponExhausted
	}
	return nil
}

// countRedemption mirrors a committed redemption onto the loaded coupon.
func countRedemption(o *models.Order, err error) error {
	if err == nil && o.CouponID != nil && o.Coupon != nil {
		o.Coupon.UsageCount++
	}
	return err
}
