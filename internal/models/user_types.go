package models

import (
	"errors"
	"time"

	"github.com/01moynul/bazaar-golang/internal/permissions"
	"golang.org/x/crypto/bcrypt"
)

// User is the model for the 'users' table
type User struct {
	ID           int64            `json:"id" db:"id"`
	Username     string           `json:"username" db:"username"`
	Email        string           `json:"email" db:"email"`
	Phone        string           `json:"phone" db:"phone"`
	Role         permissions.Role `json:"role" db:"role"`
	IsStaff      bool             `json:"isStaff" db:"is_staff"`
	IsSuperuser  bool             `json:"isSuperuser" db:"is_superuser"`
	Lifecycle    Lifecycle        `json:"lifecycle" db:"lifecycle"`
	PasswordHash string           `json:"-" db:"password_hash"`
	CreatedAt    time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time        `json:"updatedAt" db:"updated_at"`
}

// A user is responsible for itself.
func (u *User) Ownership() permissions.Ownership { return permissions.OwnedBy(u.ID) }

// Identity is the caller view of u used by permission checks.
func (u *User) Identity() permissions.Identity {
	return permissions.Identity{
		UserID:      u.ID,
		Role:        u.Role,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.Lifecycle.IsActive(),
	}
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Country is the model for the 'countries' table
type Country struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// City is the model for the 'cities' table
type City struct {
	ID      int64   `json:"id" db:"id"`
	Name    string  `json:"name" db:"name"`
	Country Country `json:"country"`
}

// Address is the model for the 'addresses' table
type Address struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	CityID    int64     `json:"cityId" db:"city_id"`
	Street    string    `json:"street" db:"street"`
	ZipCode   string    `json:"zipCode" db:"zip_code"`
	Lifecycle Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (a *Address) Ownership() permissions.Ownership { return permissions.OwnedBy(a.UserID) }
