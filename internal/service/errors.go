package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/repo"
	"gorm.io/gorm"
)

var (
	ErrValidation  = errors.New("validation")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	// ErrUnhandled covers failures where the customer was not charged.
	ErrUnhandled = errors.New("unhandled")
	// ErrNotRecorded means the gateway captured money the order does not show.
	ErrNotRecorded = errors.New("charge not recorded")
)

// Error carries a customer-facing message and unwraps to one of the sentinels.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// FieldErrors maps a request field to what is wrong with it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error { return ErrValidation }

// fromRepo translates persistence errors into the service taxonomy.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(ErrNotFound, "%s does not exist", what)
	case errors.Is(err, repo.ErrNoOpenOrder):
		return newError(ErrNotFound, "you do not have an active order")
	case errors.Is(err, repo.ErrNoDefaultAddress):
		return newError(ErrNotFound, "no default address available")
	case errors.Is(err, repo.ErrEmptyCart):
		return newError(ErrValidation, "your cart is empty")
	case errors.Is(err, repo.ErrAddressRequired):
		return newError(ErrValidation, "a shipping address is required")
	case errors.Is(err, repo.ErrInvalidTransition):
		return newError(ErrConflict, "the order is not in a state that allows this")
	case errors.Is(err, repo.ErrOrderChanged):
		return newError(ErrConflict, "your cart changed during checkout, please review it")
	case errors.Is(err, lock.ErrTimeout):
		return newError(ErrConflict, "another request for your cart is in progress")
	}
	return err
}
