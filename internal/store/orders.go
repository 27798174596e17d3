package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
)

const orderColumns = `id, user_id, shop_id, address_id, coupon_id, discount_amount, total_price, lifecycle, created_at, updated_at`

func scanOrder(row scanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.ShopID, &o.AddressID, &o.CouponID, &o.DiscountAmount, &o.TotalPrice,
		&o.Lifecycle, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const orderItemColumns = `id, order_id, product_id, count, unit_price, row_price, lifecycle, created_at`

func scanOrderItem(row scanner) (models.OrderItem, error) {
	var it models.OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Count, &it.UnitPrice, &it.RowPrice,
		&it.Lifecycle, &it.CreatedAt)
	return it, err
}

// CreateOrder inserts o with its items. When o carries a coupon the coupon
// is redeemed in the same transaction; ErrCouponExhausted means the usage
// cap was reached by a concurrent order.
func (s *MySQLStore) CreateOrder(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	o.Lifecycle = models.Active
	o.CreatedAt, o.UpdatedAt = now, now

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// 1. --- Redeem the coupon first so a lost race aborts everything ---
		if o.CouponID != nil && o.Coupon != nil {
			if err := redeemCoupon(ctx, tx, o.Coupon); err != nil {
				return err
			}
		}

		// 2. --- Insert the order ---
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (user_id, shop_id, address_id, coupon_id, discount_amount, total_price, lifecycle, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.UserID, o.ShopID, o.AddressID, o.CouponID, o.DiscountAmount, o.TotalPrice, o.Lifecycle, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create order: %w", mapErr(err))
		}
		if err := insertID(res, &o.ID); err != nil {
			return err
		}

		// 3. --- Snapshot the items ---
		return insertOrderItems(ctx, tx, o, now)
	})
	return countRedemption(o, err)
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, o *models.Order, now time.Time) error {
	query := `
		INSERT INTO order_items (order_id, product_id, count, unit_price, row_price, lifecycle, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i := range o.Items {
		it := &o.Items[i]
		if it.ID != 0 {
			continue
		}
		it.OrderID = o.ID
		it.CreatedAt = now
		if it.Lifecycle == "" {
			it.Lifecycle = models.Active
		}
		res, err := tx.ExecContext(ctx, query, it.OrderID, it.ProductID, it.Count, it.UnitPrice, it.RowPrice, it.Lifecycle, it.CreatedAt)
		if err != nil {
			return fmt.Errorf("save order item: %w", mapErr(err))
		}
		if err := insertID(res, &it.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetOrder loads an order with all its items and its coupon, if any.
func (s *MySQLStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+orderItemColumns+" FROM order_items WHERE order_id = ? ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("order %d items: %w", id, err)
	}
	if o.Items, err = collect(rows, scanOrderItem); err != nil {
		return nil, err
	}

	if o.CouponID != nil {
		c, err := s.GetCoupon(ctx, *o.CouponID)
		if err != nil {
			return nil, fmt.Errorf("order %d coupon: %w", id, err)
		}
		o.Coupon = c
	}
	return &o, nil
}

func (s *MySQLStore) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []any
	if f.UserID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, f.UserID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collect(rows, scanOrder)
}

// UpdateOrder saves the address and totals of an active order. With
// replaceItems every active item is deactivated and the unsaved items of o
// are inserted in its place.
func (s *MySQLStore) UpdateOrder(ctx context.Context, o *models.Order, replaceItems bool) error {
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET address_id = ?, discount_amount = ?, total_price = ?, updated_at = ?
			WHERE id = ? AND lifecycle = ?`,
			o.AddressID, o.DiscountAmount, o.TotalPrice, now, o.ID, models.Active)
		if err != nil {
			return fmt.Errorf("update order %d: %w", o.ID, mapErr(err))
		}
		if err := expectOne(res); err != nil {
			return err
		}
		o.UpdatedAt = now

		if !replaceItems {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE order_items SET lifecycle = ? WHERE order_id = ? AND lifecycle = ?",
			models.Deactivated, o.ID, models.Active); err != nil {
			return fmt.Errorf("retire order %d items: %w", o.ID, err)
		}
		return insertOrderItems(ctx, tx, o, now)
	})
}

// AttachCoupon redeems o.Coupon and stores it on the order together with
// the recomputed totals. ErrConflict means another coupon got there first.
func (s *MySQLStore) AttachCoupon(ctx context.Context, o *models.Order) error {
	if o.Coupon == nil || o.CouponID == nil {
		return fmt.Errorf("attach coupon to order %d: no coupon", o.ID)
	}
	now := time.Now().UTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := redeemCoupon(ctx, tx, o.Coupon); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET coupon_id = ?, discount_amount = ?, total_price = ?, updated_at = ?
			WHERE id = ? AND lifecycle = ? AND coupon_id IS NULL`,
			*o.CouponID, o.DiscountAmount, o.TotalPrice, now, o.ID, models.Active)
		if err != nil {
			return fmt.Errorf("attach coupon to order %d: %w", o.ID, err)
		}
		if err := expectOne(res); err != nil {
			return ErrConflict
		}
		return nil
	})
	if err == nil {
		o.UpdatedAt = now
	}
	return countRedemption(o, err)
}

func (s *MySQLStore) DeactivateOrder(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "orders", id)
}

//
// --- Order items ---
//

func (s *MySQLStore) GetOrderItem(ctx context.Context, id int64) (*models.OrderItem, error) {
	it, err := scanOrderItem(s.db.QueryRowContext(ctx, "SELECT "+orderItemColumns+" FROM order_items WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

func (s *MySQLStore) ListOrderItems(ctx context.Context) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+orderItemColumns+" FROM order_items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return collect(rows, scanOrderItem)
}

// SaveOrderItem writes an active item's count, row price and lifecycle
// together with the recomputed totals of its order.
func (s *MySQLStore) SaveOrderItem(ctx context.Context, it *models.OrderItem, o *models.Order) error {
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE order_items SET count = ?, row_price = ?, lifecycle = ?
			WHERE id = ? AND order_id = ? AND lifecycle = ?`,
			it.Count, it.RowPrice, it.Lifecycle, it.ID, o.ID, models.Active)
		if err != nil {
			return fmt.Errorf("save order item %d: %w", it.ID, err)
		}
		if err := expectOne(res); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE orders SET discount_amount = ?, total_price = ?, updated_at = ?
			WHERE id = ? AND lifecycle = ?`,
			o.DiscountAmount, o.TotalPrice, now, o.ID, models.Active)
		if err != nil {
			return fmt.Errorf("reprice order %d: %w", o.ID, err)
		}
		return expectOne(res)
	})
}

//
// --- Deliveries ---
//

const deliveryColumns = `id, order_id, method, lifecycle, created_at`

func scanDelivery(row scanner) (models.Delivery, error) {
	var d models.Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.Method, &d.Lifecycle, &d.CreatedAt)
	return d, err
}

func (s *MySQLStore) CreateDelivery(ctx context.Context, d *models.Delivery) error {
	d.Lifecycle = models.Active
	d.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO deliveries (order_id, method, lifecycle, created_at) VALUES (?, ?, ?, ?)",
		d.OrderID, d.Method, d.Lifecycle, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create delivery: %w", mapErr(err))
	}
	return insertID(res, &d.ID)
}

func (s *MySQLStore) GetDelivery(ctx context.Context, id int64) (*models.Delivery, error) {
	d, err := scanDelivery(s.db.QueryRowContext(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (s *MySQLStore) ListDeliveries(ctx context.Context) ([]models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+deliveryColumns+" FROM deliveries WHERE lifecycle = ? ORDER BY id", models.Active)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return collect(rows, scanDelivery)
}

func (s *MySQLStore) DeactivateDelivery(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "deliveries", id)
}
