package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) ItemBySlug(ctx context.Context, slug string) (*models.Item, error) {
	var item models.Item
	if err := r.DB.WithContext(ctx).Preload("Category").Where("slug = ?", slug).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) ListItems(ctx context.Context, categorySlug string, offset, limit int) (int64, []models.Item, error) {
	q := r.DB.WithContext(ctx).Model(&models.Item{})
	if categorySlug != "" {
		q = q.Joins("JOIN categories ON categories.id = items.category_id").
			Where("categories.slug = ? AND categories.active = ?", categorySlug, true)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Item
	if err := q.Preload("Category").Order("items.created_at DESC, items.slug ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// EachItemBatch walks the catalog in slug order, size items at a time.
func (r *GormRepo) EachItemBatch(ctx context.Context, size int, fn func([]models.Item) error) error {
	var batch []models.Item
	res := r.DB.WithContext(ctx).Preload("Category").Order("slug ASC").FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	return res.Error
}

func (r *GormRepo) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).Where("slug = ? AND active = ?", slug, true).First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := r.DB.WithContext(ctx).Where("active = ?", true).Order("title ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *GormRepo) RatingSummary(ctx context.Context, itemID uuid.UUID) (avg float64, count int64, err error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err = r.DB.WithContext(ctx).Model(&models.Rating{}).
		Select("AVG(stars) AS avg, COUNT(*) AS count").
		Where("item_id = ?", itemID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg != nil {
		avg = *row.Avg
	}
	return avg, row.Count, nil
}

// UpsertRating keeps one rating per user and item.
func (r *GormRepo) UpsertRating(ctx context.Context, rating *models.Rating) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stars"}),
	}).Create(rating).Error
}

func (r *GormRepo) CreateItem(ctx context.Context, item *models.Item) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

// SearchItems is a substring match on title and description, used when no
// search cluster is configured.
func (r *GormRepo) SearchItems(ctx context.Context, query string, offset, limit int) (int64, []models.Item, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	q := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Item
	if err := q.Preload("Category").Order("title ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
