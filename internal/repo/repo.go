package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

var (
	ErrNoOpenOrder       = errors.New("no open order")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNoDefaultAddress  = errors.New("no default address")
	ErrAddressRequired   = errors.New("order has no address")
	ErrInvalidTransition = errors.New("invalid order transition")
	ErrOrderChanged      = errors.New("order changed after the charge was computed")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) AutoMigrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(models.All()...)
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsUniqueViolation recognises duplicate-key errors from postgres (pgx or
// lib/pq), sqlite and gorm's translated form.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
