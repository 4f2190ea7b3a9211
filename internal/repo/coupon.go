package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CouponByCode matches codes case-insensitively.
func (r *GormRepo) CouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.DB.WithContext(ctx).Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
