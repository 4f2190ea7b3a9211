package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const reindexBatch = 200

// ItemIndex is the search cluster surface the catalog uses.
type ItemIndex interface {
	Search(ctx context.Context, query string, from, size int) (int64, []search.Document, error)
	IndexDocument(ctx context.Context, doc search.Document) error
	BulkIndex(ctx context.Context, docs []search.Document) (int, error)
}

type CatalogService struct {
	Repo *repo.GormRepo
	// Index is optional; without it search falls back to the database.
	Index  ItemIndex
	Events events.Publisher
}

type ItemDetail struct {
	Item        *models.Item
	RatingAvg   float64
	RatingCount int64
}

type ReindexResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

func (s *CatalogService) ListItems(ctx context.Context, categorySlug string, offset, limit int) (int64, []models.Item, error) {
	if categorySlug != "" {
		if _, err := s.Repo.CategoryBySlug(ctx, categorySlug); err != nil {
			return 0, nil, fromRepo(err, "category")
		}
	}
	return s.Repo.ListItems(ctx, categorySlug, offset, limit)
}

func (s *CatalogService) GetItem(ctx context.Context, slug string) (*ItemDetail, error) {
	item, err := s.Repo.ItemBySlug(ctx, slug)
	if err != nil {
		return nil, fromRepo(err, "item")
	}
	avg, count, err := s.Repo.RatingSummary(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: item, RatingAvg: avg, RatingCount: count}, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (int64, []search.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, FieldErrors{"q": "is required"}
	}
	if s.Index != nil {
		total, docs, err := s.Index.Search(ctx, query, offset, limit)
		if err != nil {
			if errors.Is(err, search.ErrUnavailable) {
				return 0, nil, &Error{Kind: ErrUnavailable, Msg: "search is temporarily unavailable"}
			}
			return 0, nil, err
		}
		return total, docs, nil
	}

	total, items, err := s.Repo.SearchItems(ctx, query, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	docs := make([]search.Document, len(items))
	for i, it := range items {
		docs[i] = search.DocumentFromItem(it)
	}
	return total, docs, nil
}

func (s *CatalogService) RateItem(ctx context.Context, userID uuid.UUID, slug string, req RatingRequest) (*ItemDetail, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	item, err := s.Repo.ItemBySlug(ctx, slug)
	if err != nil {
		return nil, fromRepo(err, "item")
	}
	if err := s.Repo.UpsertRating(ctx, &models.Rating{UserID: userID, ItemID: item.ID, Stars: req.Stars}); err != nil {
		return nil, err
	}
	avg, count, err := s.Repo.RatingSummary(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: item, RatingAvg: avg, RatingCount: count}, nil
}

func (s *CatalogService) CreateItem(ctx context.Context, req CreateItemRequest) (*models.Item, error) {
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if err := Validate(req); err != nil {
		return nil, err
	}
	fe := FieldErrors{}
	if !req.Price.IsPositive() {
		fe["price"] = "must be positive"
	}
	if req.DiscountPrice != nil && (!req.DiscountPrice.IsPositive() || !req.DiscountPrice.LessThan(req.Price)) {
		fe["discount_price"] = "must be positive and below price"
	}
	if len(fe) > 0 {
		return nil, fe
	}

	item := &models.Item{
		Title:       req.Title,
		Slug:        req.Slug,
		Price:       req.Price.Round(2),
		Label:       models.Label(req.Label),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.DiscountPrice != nil {
		item.DiscountPrice = decimal.NewNullDecimal(req.DiscountPrice.Round(2))
	}
	if req.CategorySlug != "" {
		cat, err := s.Repo.CategoryBySlug(ctx, req.CategorySlug)
		if err != nil {
			return nil, fromRepo(err, "category")
		}
		item.CategoryID = &cat.ID
		item.Category = cat
	}

	if err := s.Repo.CreateItem(ctx, item); err != nil {
		if repo.IsUniqueViolation(err) {
			return nil, FieldErrors{"slug": "is already taken"}
		}
		return nil, err
	}

	if s.Index != nil {
		if err := s.Index.IndexDocument(ctx, search.DocumentFromItem(*item)); err != nil {
			logging.FromContext(ctx).Warn("item_index_failed", "slug", item.Slug, "error", err)
		}
	}
	events.Emit(ctx, s.Events, events.TopicCatalog, item.ID.String(), events.ItemEvent{
		Type:   "item_created",
		ItemID: item.ID.String(),
		Slug:   item.Slug,
		Title:  item.Title,
		Price:  item.EffectivePrice(),
	})
	return item, nil
}

// Reindex loads the whole catalog into the search index in batches.
func (s *CatalogService) Reindex(ctx context.Context) (ReindexResult, error) {
	if s.Index == nil {
		return ReindexResult{}, &Error{Kind: ErrUnavailable, Msg: "search is not configured"}
	}
	var res ReindexResult
	err := s.Repo.EachItemBatch(ctx, reindexBatch, func(items []models.Item) error {
		docs := make([]search.Document, len(items))
		for i, it := range items {
			docs[i] = search.DocumentFromItem(it)
		}
		failed, err := s.Index.BulkIndex(ctx, docs)
		if err != nil {
			return err
		}
		res.Indexed += len(docs) - failed
		res.Failed += failed
		return nil
	})
	if err != nil {
		if errors.Is(err, search.ErrUnavailable) {
			return res, &Error{Kind: ErrUnavailable, Msg: "search is temporarily unavailable"}
		}
		return res, err
	}
	logging.FromContext(ctx).Info("reindex_completed", "indexed", res.Indexed, "failed", res.Failed)
	return res, nil
}
