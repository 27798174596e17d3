package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
)

const invoiceColumns = `id, invoice_number, order_id, user_id, issue_date, due_date, total_amount, payment_status, created_at`

func scanInvoice(row scanner) (models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.UserID, &inv.IssueDate, &inv.DueDate,
		&inv.TotalAmount, &inv.PaymentStatus, &inv.CreatedAt)
	return inv, err
}

// CreateInvoice inserts inv and its items. An order can only be invoiced
// once; a second attempt fails with ErrDuplicate.
func (s *MySQLStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	if inv.IssueDate.IsZero() {
		inv.IssueDate = now
	}
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = models.PaymentPending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (invoice_number, order_id, user_id, issue_date, due_date, total_amount, payment_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.InvoiceNumber, inv.OrderID, inv.UserID, inv.IssueDate, inv.DueDate.UTC(), inv.TotalAmount,
			inv.PaymentStatus, inv.CreatedAt)
		if err != nil {
			return fmt.Errorf("create invoice: %w", mapErr(err))
		}
		if err := insertID(res, &inv.ID); err != nil {
			return err
		}

		for i := range inv.Items {
			it := &inv.Items[i]
			it.InvoiceID = inv.ID
			res, err := tx.ExecContext(ctx, `
				INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, row_total)
				VALUES (?, ?, ?, ?, ?)`,
				it.InvoiceID, it.ProductID, it.Quantity, it.UnitPrice, it.RowTotal)
			if err != nil {
				return fmt.Errorf("create invoice item: %w", mapErr(err))
			}
			if err := insertID(res, &it.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MySQLStore) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, product_id, quantity, unit_price, row_total
		FROM invoice_items WHERE invoice_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("invoice %d items: %w", id, err)
	}
	inv.Items, err = collect(rows, func(r scanner) (models.InvoiceItem, error) {
		var it models.InvoiceItem
		err := r.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.RowTotal)
		return it, err
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *MySQLStore) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices"
	var args []any
	if f.UserID != 0 {
		query += " WHERE user_id = ?"
		args = append(args, f.UserID)
	}
	query += " ORDER BY issue_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return collect(rows, scanInvoice)
}

func (s *MySQLStore) UpdateInvoiceStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx, "UPDATE invoices SET payment_status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", id, err)
	}
	return expectOne(res)
}

// MarkOverdueInvoices flips every PENDING invoice whose due date has passed
// to OVERDUE and reports how many changed.
func (s *MySQLStore) MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invoices SET payment_status = ? WHERE payment_status = ? AND due_date < ?",
		models.PaymentOverdue, models.PaymentPending, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	return res.RowsAffected()
}
