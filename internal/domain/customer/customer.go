package customer

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("customer: not found")
	ErrConflict = errors.New("customer: email already registered")
)

type Customer struct {
	ID             string
	FullName       string
	Email          string
	PhoneNumber    string
	DocumentNumber string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func New(id, fullName, email, phone, document string) *Customer {
	now := time.Now().UTC()
	return &Customer{
		ID:             id,
		FullName:       fullName,
		Email:          NormalizeEmail(email),
		PhoneNumber:    phone,
		DocumentNumber: document,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizeEmail is the form under which uniqueness is enforced.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Customer) Clone() *Customer {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

type Repository interface {
	// FindOrCreate returns the customer stored under c.Email, inserting c when none exists.
	// The returned flag reports whether c was inserted.
	FindOrCreate(ctx context.Context, c *Customer) (*Customer, bool, error)
	Get(ctx context.Context, id string) (*Customer, error)
}
