package repo

import (
	"context"
	"testing"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), db.Config())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := &GormRepo{DB: gdb}
	require.NoError(t, r.AutoMigrate(context.Background()))
	return r
}

func seedItem(t *testing.T, r *GormRepo, slug, price, discount string) *models.Item {
	t.Helper()
	it := &models.Item{Title: slug, Slug: slug, Price: decimal.RequireFromString(price)}
	if discount != "" {
		it.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString(discount))
	}
	require.NoError(t, r.CreateItem(context.Background(), it))
	return it
}

func fixedCode(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func readyToPay(t *testing.T, r *GormRepo, user uuid.UUID, item *models.Item) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, _, err := r.AddItem(ctx, user, item.ID)
	require.NoError(t, err)
	_, err = r.AttachAddress(ctx, user, &models.Address{StreetAddress: "1 Main", Country: "US", PaymentOption: models.PaymentStripe}, false)
	require.NoError(t, err)
	order, err := r.BeginPayment(ctx, user)
	require.NoError(t, err)
	return order
}
