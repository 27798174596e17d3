package store

import (
	"context"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
)

const userColumns = `id, username, email, phone, role, is_staff, is_superuser, lifecycle, password_hash, created_at, updated_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Role, &u.IsStaff, &u.IsSuperuser,
		&u.Lifecycle, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *MySQLStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.Role == "" {
		u.Role = permissions.RoleUser
	}
	u.Lifecycle = models.Active
	u.CreatedAt, u.UpdatedAt = now, now

	query := `
		INSERT INTO users (username, email, phone, role, is_staff, is_superuser, lifecycle, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, u.Username, u.Email, u.Phone, u.Role, u.IsStaff, u.IsSuperuser,
		u.Lifecycle, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", mapErr(err))
	}
	return insertID(res, &u.ID)
}

func (s *MySQLStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// GetUserByLogin finds a user by username or email.
func (s *MySQLStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR email = ? LIMIT 1", login, login)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *MySQLStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collect(rows, scanUser)
}

func (s *MySQLStore) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET username = ?, email = ?, phone = ? WHERE id = ? AND lifecycle = ?",
		u.Username, u.Email, u.Phone, u.ID, models.Active)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, mapErr(err))
	}
	return expectOne(res)
}

func (s *MySQLStore) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ? AND lifecycle = ?", hash, userID, models.Active)
	if err != nil {
		return fmt.Errorf("update password %d: %w", userID, err)
	}
	return expectOne(res)
}

func (s *MySQLStore) SetUserRole(ctx context.Context, userID int64, role permissions.Role, isStaff bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET role = ?, is_staff = ? WHERE id = ? AND lifecycle = ?", role, isStaff, userID, models.Active)
	if err != nil {
		return fmt.Errorf("set role %d: %w", userID, err)
	}
	return expectOne(res)
}

func (s *MySQLStore) DeactivateUser(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "users", id)
}

//
// --- Countries & Cities ---
//

func (s *MySQLStore) ListCountries(ctx context.Context) ([]models.Country, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM countries ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return collect(rows, func(r scanner) (models.Country, error) {
		var c models.Country
		err := r.Scan(&c.ID, &c.Name)
		return c, err
	})
}

func (s *MySQLStore) ListCities(ctx context.Context) ([]models.City, error) {
	query := `
		SELECT ci.id, ci.name, co.id, co.name
		FROM cities ci
		JOIN countries co ON co.id = ci.country_id
		ORDER BY co.name, ci.name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return collect(rows, func(r scanner) (models.City, error) {
		var c models.City
		err := r.Scan(&c.ID, &c.Name, &c.Country.ID, &c.Country.Name)
		return c, err
	})
}

//
// --- Addresses ---
//

const addressColumns = `id, user_id, city_id, street, zip_code, lifecycle, created_at, updated_at`

func scanAddress(row scanner) (models.Address, error) {
	var a models.Address
	err := row.Scan(&a.ID, &a.UserID, &a.CityID, &a.Street, &a.ZipCode, &a.Lifecycle, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *MySQLStore) CreateAddress(ctx context.Context, a *models.Address) error {
	now := time.Now().UTC()
	a.Lifecycle = models.Active
	a.CreatedAt, a.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (user_id, city_id, street, zip_code, lifecycle, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.CityID, a.Street, a.ZipCode, a.Lifecycle, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", mapErr(err))
	}
	return insertID(res, &a.ID)
}

func (s *MySQLStore) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	a, err := scanAddress(s.db.QueryRowContext(ctx, "SELECT "+addressColumns+" FROM addresses WHERE id = ?", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *MySQLStore) ListAddresses(ctx context.Context) ([]models.Address, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+addressColumns+" FROM addresses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return collect(rows, scanAddress)
}

func (s *MySQLStore) UpdateAddress(ctx context.Context, a *models.Address) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE addresses SET city_id = ?, street = ?, zip_code = ? WHERE id = ? AND lifecycle = ?",
		a.CityID, a.Street, a.ZipCode, a.ID, models.Active)
	if err != nil {
		return fmt.Errorf("update address %d: %w", a.ID, mapErr(err))
	}
	return expectOne(res)
}

func (s *MySQLStore) DeactivateAddress(ctx context.Context, id int64) error {
	return deactivate(ctx, s.db, "addresses", id)
}
