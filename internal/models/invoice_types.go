package models

import (
	"time"

	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue:
		return true
	}
	return false
}

// Invoice is the model for the 'invoices' table. One per order.
type Invoice struct {
	ID            int64           `json:"id" db:"id"`
	InvoiceNumber string          `json:"invoiceNumber" db:"invoice_number"`
	OrderID       int64           `json:"orderId" db:"order_id"`
	UserID        int64           `json:"userId" db:"user_id"`
	IssueDate     time.Time       `json:"issueDate" db:"issue_date"`
	DueDate       time.Time       `json:"dueDate" db:"due_date"`
	TotalAmount   decimal.Decimal `json:"totalAmount" db:"total_amount"`
	PaymentStatus PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`

	Items []InvoiceItem `json:"items" db:"-"`
}

func (i *Invoice) Ownership() permissions.Ownership { return permissions.OwnedBy(i.UserID) }

// InvoiceItem is the model for the 'invoice_items' table
type InvoiceItem struct {
	ID        int64           `json:"id" db:"id"`
	InvoiceID int64           `json:"invoiceId" db:"invoice_id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	RowTotal  decimal.Decimal `json:"rowTotal" db:"row_total"`
}
