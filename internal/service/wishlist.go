package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/google/uuid"
)

type WishlistService struct {
	Repo *repo.GormRepo
}

// Add reports whether the item was newly added.
func (s *WishlistService) Add(ctx context.Context, userID uuid.UUID, slug string) (bool, error) {
	item, err := s.Repo.ItemBySlug(ctx, slug)
	if err != nil {
		return false, fromRepo(err, "item")
	}
	return s.Repo.AddToWishlist(ctx, userID, item.ID)
}

func (s *WishlistService) Remove(ctx context.Context, userID uuid.UUID, slug string) (bool, error) {
	item, err := s.Repo.ItemBySlug(ctx, slug)
	if err != nil {
		return false, fromRepo(err, "item")
	}
	return s.Repo.RemoveFromWishlist(ctx, userID, item.ID)
}

func (s *WishlistService) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistEntry, error) {
	return s.Repo.ListWishlist(ctx, userID)
}
