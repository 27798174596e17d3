package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/samber/lo"
)

//
// --- Shops ---
//

const shopColumns = `id, owner_id, name, status, address_id, lifecycle, created_at, updated_at`

func scanShop(row scanner) (models.Shop, error) {
	var sh models.Shop
	err := row.Scan(&sh.ID, &sh.OwnerID, &sh.Name, &sh.Status, &sh.AddressID, &sh.Lifecycle, &sh.CreatedAt, &sh.UpdatedAt)
	return sh, err
}

func (s *MySQLStore) CreateShop(ctx context.Context, sh *models.Shop) error {
	now := time.Now().UTC()
	sh.Status = models.ShopPending
	sh.Lifecycle = models.Active
	sh.CreatedAt, sh.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shops (owner_id, name, status, address_id, lifecycle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sh.OwnerID, sh.Name, sh.Status, sh.AddressID, sh.Lifecycle, sh.CreatedAt, sh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create shop: %w", mapErr(err))
	}
	return insertID(res, &sh.ID)
}

func (s *MySQLStore) GetShop(ctx context.Context, id int64) (*models.Shop, error) {
	sh, err := scanShop(s.db.QueryRowContext(ctx, "SELECT "+shopColumns+" FROM shops WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &sh, nil
}

func (s *MySQLStore) ListShops(ctx context.Context) ([]models.Shop, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+shopColumns+" FROM shops WHERE lifecycle = ? ORDER BY id", models.Active)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return collect(rows, scanShop)
}

func (s *MySQLStore) UpdateShop(ctx context.Context, sh *models.Shop) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE shops SET name = ?, address_id = ? WHERE id = ? AND lifecycle = ?",
		sh.Name, sh.AddressID, sh.ID, models.Active)
	if err != nil {
		return fmt.Errorf("update shop %d: %w", sh.ID, mapErr(err))
	}
	return expectOne(res)
}

// TransitionShopStatus moves an active shop from one review status to
// another. ErrConflict means the shop exists but is not in from.
func (s *MySQLStore) TransitionShopStatus(ctx context.Context, id int64, from, to models.ShopStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE shops SET status = ? WHERE id = ? AND status = ? AND lifecycle = ?",
		to, id, from, models.Active)
	if err != nil {
		return fmt.Errorf("shop %d status: %w", id, err)
	}
	if err := expectOne(res); err != nil {
		if _, getErr := s.GetShop(ctx, id); getErr != nil {
			return getErr
		}
		return ErrConflict
	}
	return nil
}

func (s *MySQLStore) DeactivateShop(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "shops", id)
}

//
// --- Categories ---
//

const categoryColumns = `id, name, slug, parent_id, created_by, lifecycle, created_at, updated_at`

func scanCategory(row scanner) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.CreatedBy, &c.Lifecycle, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *MySQLStore) CreateCategory(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	c.Lifecycle = models.Active
	c.CreatedAt, c.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, slug, parent_id, created_by, lifecycle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Slug, c.ParentID, c.CreatedBy, c.Lifecycle, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create category: %w", mapErr(err))
	}
	return insertID(res, &c.ID)
}

func (s *MySQLStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *MySQLStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE lifecycle = ? ORDER BY name", models.Active)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return collect(rows, scanCategory)
}

func (s *MySQLStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, slug = ?, parent_id = ? WHERE id = ? AND lifecycle = ?",
		c.Name, c.Slug, c.ParentID, c.ID, models.Active)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, mapErr(err))
	}
	return expectOne(res)
}

func (s *MySQLStore) DeactivateCategory(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "categories", id)
}

//
// --- Products ---
//

const productColumns = `p.id, p.shop_id, p.category_id, p.name, p.description, p.price, p.image_url, p.lifecycle, p.created_at, p.updated_at`

func scanProduct(row scanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.ShopID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.Lifecycle, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *MySQLStore) CreateProduct(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.Lifecycle = models.Active
	p.Price = p.Price.Round(2)
	p.CreatedAt, p.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (shop_id, category_id, name, description, price, image_url, lifecycle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ShopID, p.CategoryID, p.Name, p.Description, p.Price, p.ImageURL, p.Lifecycle, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", mapErr(err))
	}
	return insertID(res, &p.ID)
}

// GetProduct loads a product together with its shop, which carries the
// product's owner.
func (s *MySQLStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `
		SELECT ` + productColumns + `,
			s.id, s.owner_id, s.name, s.status, s.address_id, s.lifecycle, s.created_at, s.updated_at
		FROM products p
		JOIN shops s ON s.id = p.shop_id
		WHERE p.id = ?`

	var p models.Product
	var sh models.Shop
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.ShopID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.Lifecycle, &p.CreatedAt, &p.UpdatedAt,
		&sh.ID, &sh.OwnerID, &sh.Name, &sh.Status, &sh.AddressID, &sh.Lifecycle, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	p.Shop = &sh
	return &p, nil
}

// GetProductsByIDs returns the products that exist, keyed by ID. Missing
// IDs are simply absent from the map.
func (s *MySQLStore) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	ids = lo.Uniq(ids)
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := "SELECT " + productColumns + " FROM products p WHERE p.id IN (" + placeholders + ")"
	rows, err := s.db.QueryContext(ctx, query, lo.ToAnySlice(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	products, err := collect(rows, scanProduct)
	if err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (s *MySQLStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeInactive {
		where = append(where, "p.lifecycle = ?")
		args = append(args, models.Active)
	}
	if f.ShopID != 0 {
		where = append(where, "p.shop_id = ?")
		args = append(args, f.ShopID)
	}
	if f.CategoryID != 0 {
		where = append(where, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}

	query := "SELECT " + productColumns + " FROM products p"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collect(rows, scanProduct)
}

func (s *MySQLStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	p.Price = p.Price.Round(2)
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET category_id = ?, name = ?, description = ?, price = ?, image_url = ?
		WHERE id = ? AND lifecycle = ?`,
		p.CategoryID, p.Name, p.Description, p.Price, p.ImageURL, p.ID, models.Active)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, mapErr(err))
	}
	return expectOne(res)
}

func (s *MySQLStore) DeactivateProduct(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "products", id)
}

//
// --- Wishlist ---
//

const wishlistColumns = `id, user_id, product_id, lifecycle, created_at`

func scanWishlist(row scanner) (models.Wishlist, error) {
	var w models.Wishlist
	err := row.Scan(&w.ID, &w.UserID, &w.ProductID, &w.Lifecycle, &w.CreatedAt)
	return w, err
}

// CreateWishlist fails with ErrDuplicate when the user already listed the
// product.
func (s *MySQLStore) CreateWishlist(ctx context.Context, w *models.Wishlist) error {
	w.Lifecycle = models.Active
	w.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO wishlists (user_id, product_id, lifecycle, created_at) VALUES (?, ?, ?, ?)",
		w.UserID, w.ProductID, w.Lifecycle, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("create wishlist: %w", mapErr(err))
	}
	return insertID(res, &w.ID)
}

func (s *MySQLStore) GetWishlist(ctx context.Context, id int64) (*models.Wishlist, error) {
	w, err := scanWishlist(s.db.QueryRowContext(ctx, "SELECT "+wishlistColumns+" FROM wishlists WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

func (s *MySQLStore) ListWishlist(ctx context.Context, userID int64) ([]models.Wishlist, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+wishlistColumns+" FROM wishlists WHERE user_id = ? AND lifecycle = ? ORDER BY id",
		userID, models.Active)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return collect(rows, scanWishlist)
}

func (s *MySQLStore) DeactivateWishlist(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "wishlists", id)
}
