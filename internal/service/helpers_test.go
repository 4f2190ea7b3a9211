package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), db.Config())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := &repo.GormRepo{DB: gdb}
	require.NoError(t, r.AutoMigrate(context.Background()))
	return r
}

func seedItem(t *testing.T, r *repo.GormRepo, slug, price, discount string) *models.Item {
	t.Helper()
	it := &models.Item{Title: slug, Slug: slug, Price: decimal.RequireFromString(price), Description: slug + " description"}
	if discount != "" {
		it.DiscountPrice = decimal.NewNullDecimal(decimal.RequireFromString(discount))
	}
	require.NoError(t, r.CreateItem(context.Background(), it))
	return it
}

func seedCoupon(t *testing.T, r *repo.GormRepo, code, amount string) *models.Coupon {
	t.Helper()
	c := &models.Coupon{Code: code, Amount: decimal.RequireFromString(amount)}
	require.NoError(t, r.DB.Create(c).Error)
	return c
}

type fakeGateway struct {
	mu       sync.Mutex
	provider models.PaymentOption
	err      error
	chargeID string
	calls    []payment.ChargeRequest
}

func (g *fakeGateway) Provider() models.PaymentOption { return g.provider }

func (g *fakeGateway) Charge(_ context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return payment.ChargeResult{}, g.err
	}
	id := g.chargeID
	if id == "" {
		id = "ch_test"
	}
	return payment.ChargeResult{ChargeID: id, Status: "succeeded"}, nil
}

type published struct {
	topic, key string
	event      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

func (p *fakePublisher) byTopic(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	repo     *repo.GormRepo
	events   *fakePublisher
	stripe   *fakeGateway
	cart     *CartService
	checkout *CheckoutService
	refunds  *RefundService
	orders   *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := newTestRepo(t)
	pub := &fakePublisher{}
	locks := lock.NewLocal()
	st := &fakeGateway{provider: models.PaymentStripe}
	return &fixture{
		repo:   r,
		events: pub,
		stripe: st,
		cart:   &CartService{Repo: r, Locks: locks, Events: pub},
		checkout: &CheckoutService{
			Repo:     r,
			Locks:    locks,
			Gateways: payment.NewRegistry(st),
			Events:   pub,
			Currency: "usd",
		},
		refunds: &RefundService{Repo: r, Events: pub},
		orders:  &OrderService{Repo: r, Events: pub},
	}
}

func stripeAddress() AddressRequest {
	return AddressRequest{StreetAddress: "1 Main St", Country: "us", Zip: "10001", PaymentOption: "stripe"}
}

// toPayment walks a cart holding slug through the address and payment steps.
func (f *fixture) toPayment(t *testing.T, user uuid.UUID, slug string) *models.Order {
	t.Helper()
	ctx := context.Background()
	_, err := f.cart.AddItem(ctx, user, slug)
	require.NoError(t, err)
	_, err = f.checkout.StartCheckout(ctx, user)
	require.NoError(t, err)
	_, err = f.checkout.AttachAddress(ctx, user, stripeAddress())
	require.NoError(t, err)
	order, err := f.checkout.BeginPayment(ctx, user)
	require.NoError(t, err)
	return order
}
