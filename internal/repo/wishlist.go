package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) AddToWishlist(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	entry := models.WishlistEntry{UserID: userID, ItemID: itemID}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}}, DoNothing: true}).
		Omit(clause.Associations).
		Create(&entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) RemoveFromWishlist(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.WishlistEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistEntry, error) {
	var entries []models.WishlistEntry
	err := r.DB.WithContext(ctx).Preload("Item").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
