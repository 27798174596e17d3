// Package store persists the marketplace entities in MySQL with raw SQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicate        = errors.New("duplicate resource")
	ErrConflict         = errors.New("resource changed concurrently")
	ErrInvalidReference = errors.New("referenced resource does not exist")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
)

const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

type ProductFilter struct {
	ShopID          int64
	CategoryID      int64
	IncludeInactive bool
}

type OrderFilter struct {
	UserID int64 // 0 means every user
}

type InvoiceFilter struct {
	UserID int64 // 0 means every user
}

type CommentFilter struct {
	ProductID int64
}

// Store is everything the HTTP layer needs from persistence.
// Deactivate* fail with ErrNotFound when the row is missing or already
// deactivated.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	SetUserRole(ctx context.Context, userID int64, role permissions.Role, isStaff bool) error
	DeactivateUser(ctx context.Context, id int64) error

	ListCountries(ctx context.Context) ([]models.Country, error)
	ListCities(ctx context.Context) ([]models.City, error)

	CreateAddress(ctx context.Context, a *models.Address) error
	GetAddress(ctx context.Context, id int64) (*models.Address, error)
	ListAddresses(ctx context.Context) ([]models.Address, error)
	UpdateAddress(ctx context.Context, a *models.Address) error
	DeactivateAddress(ctx context.Context, id int64) error

	CreateShop(ctx context.Context, s *models.Shop) error
	GetShop(ctx context.Context, id int64) (*models.Shop, error)
	ListShops(ctx context.Context) ([]models.Shop, error)
	UpdateShop(ctx context.Context, s *models.Shop) error
	TransitionShopStatus(ctx context.Context, id int64, from, to models.ShopStatus) error
	DeactivateShop(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, c *models.Category) error
	DeactivateCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeactivateProduct(ctx context.Context, id int64) error

	CreateWishlist(ctx context.Context, w *models.Wishlist) error
	GetWishlist(ctx context.Context, id int64) (*models.Wishlist, error)
	ListWishlist(ctx context.Context, userID int64) ([]models.Wishlist, error)
	DeactivateWishlist(ctx context.Context, id int64) error

	CreateCoupon(ctx context.Context, c *models.Coupon) error
	GetCoupon(ctx context.Context, id int64) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	DeactivateCoupon(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order, replaceItems bool) error
	AttachCoupon(ctx context.Context, o *models.Order) error
	DeactivateOrder(ctx context.Context, id int64) error

	GetOrderItem(ctx context.Context, id int64) (*models.OrderItem, error)
	ListOrderItems(ctx context.Context) ([]models.OrderItem, error)
	SaveOrderItem(ctx context.Context, it *models.OrderItem, o *models.Order) error

	CreateDelivery(ctx context.Context, d *models.Delivery) error
	GetDelivery(ctx context.Context, id int64) (*models.Delivery, error)
	ListDeliveries(ctx context.Context) ([]models.Delivery, error)
	DeactivateDelivery(ctx context.Context, id int64) error

	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status models.PaymentStatus) error
	MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error)

	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, f CommentFilter) ([]models.Comment, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeactivateComment(ctx context.Context, id int64) error

	CreateRating(ctx context.Context, r *models.Rating) error
	GetRating(ctx context.Context, id int64) (*models.Rating, error)
}

// MySQLStore implements Store on a *sql.DB.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

var _ Store = (*MySQLStore)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapErr turns driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, myErr.Message)
		case mysqlNoReferenced:
			return fmt.Errorf("%w: %s", ErrInvalidReference, myErr.Message)
		}
	}
	return err
}

func (s *MySQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // Safety net

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// deactivate performs the only lifecycle transition on table.
// table is always a constant from this package.
func deactivate(ctx context.Context, q queryer, table string, id int64) error {
	query := fmt.Sprintf("UPDATE %s SET lifecycle = ? WHERE id = ? AND lifecycle = ?", table)
	res, err := q.ExecContext(ctx, query, models.Deactivated, id, models.Active)
	if err != nil {
		return fmt.Errorf("deactivate %s %d: %w", table, id, err)
	}
	return expectOne(res)
}

// expectOne maps "no row changed" to ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertID(res sql.Result, dst *int64) error {
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	*dst = id
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return out, nil
}
