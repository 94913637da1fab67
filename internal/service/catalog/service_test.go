package catalog

import (
	"context"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

type CatalogSuite struct {
	suite.Suite

	ctx  context.Context
	svc  *Service
	hook *logtest.Hook
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) SetupTest() {
	s.ctx = context.Background()
	logger, hook := logtest.NewNullLogger()
	s.hook = hook

	products := memory.NewProductRepository(domain.Product{
		ID:            "cookie",
		Name:          "Cookie Tradicional",
		Category:      "cookies",
		StockQuantity: 10,
		CostPrice:     250,
		SalePrice:     590,
		Active:        true,
	})
	s.svc = NewService(products, memory.NewPromotionRepository(), logger.WithField("component", "catalog-test"))
}

func (s *CatalogSuite) warnings() int {
	n := 0
	for _, e := range s.hook.AllEntries() {
		if e.Level == log.WarnLevel {
			n++
		}
	}
	return n
}

func (s *CatalogSuite) TestCreateProduct() {
	p, err := s.svc.CreateProduct(s.ctx, NewProduct{
		Name:          "  Brownie ",
		Category:      "doces",
		StockQuantity: 4,
		CostPrice:     300,
		SalePrice:     650,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(p.ID)
	s.Require().Equal("Brownie", p.Name)
	s.Require().True(p.Active)

	stored, err := s.svc.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Equal(4, stored.StockQuantity)
	s.Require().Zero(s.warnings())
}

func (s *CatalogSuite) TestCreateProductValidation() {
	_, err := s.svc.CreateProduct(s.ctx, NewProduct{Name: " "})
	s.Require().ErrorIs(err, domain.ErrInvalidArgument)

	_, err = s.svc.CreateProduct(s.ctx, NewProduct{Name: "x", StockQuantity: -1})
	s.Require().ErrorIs(err, domain.ErrInvalidArgument)

	_, err = s.svc.CreateProduct(s.ctx, NewProduct{Name: "x", SalePrice: -1})
	s.Require().ErrorIs(err, domain.ErrInvalidArgument)
}

func (s *CatalogSuite) TestCreateProductBelowCostWarns() {
	_, err := s.svc.CreateProduct(s.ctx, NewProduct{Name: "Promo", CostPrice: 500, SalePrice: 400})
	s.Require().NoError(err)
	s.Require().Equal(1, s.warnings())
}

func (s *CatalogSuite) TestAdjustStock() {
	p, err := s.svc.AdjustStock(s.ctx, "cookie", 25)
	s.Require().NoError(err)
	s.Require().Equal(25, p.StockQuantity)

	_, err = s.svc.AdjustStock(s.ctx, "cookie", -1)
	s.Require().ErrorIs(err, domain.ErrInvalidArgument)

	stored, err := s.svc.GetProduct(s.ctx, "cookie")
	s.Require().NoError(err)
	s.Require().Equal(25, stored.StockQuantity)

	_, err = s.svc.AdjustStock(s.ctx, "missing", 1)
	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func (s *CatalogSuite) TestSetSalePrice() {
	p, err := s.svc.SetSalePrice(s.ctx, "cookie", 650)
	s.Require().NoError(err)
	s.Require().Equal(domain.Money(650), p.SalePrice)
	s.Require().Zero(s.warnings())

	_, err = s.svc.SetSalePrice(s.ctx, "cookie", 200)
	s.Require().NoError(err)
	s.Require().Equal(1, s.warnings())

	_, err = s.svc.SetSalePrice(s.ctx, "cookie", -5)
	s.Require().ErrorIs(err, domain.ErrInvalidArgument)
}

func (s *CatalogSuite) TestDeactivate() {
	p, err := s.svc.Deactivate(s.ctx, "cookie")
	s.Require().NoError(err)
	s.Require().False(p.Active)

	active, err := s.svc.ListProducts(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Empty(active)

	all, err := s.svc.ListProducts(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Len(all, 1)

	again, err := s.svc.Deactivate(s.ctx, "cookie")
	s.Require().NoError(err)
	s.Require().False(again.Active)
}

func (s *CatalogSuite) TestPromotions() {
	promo, err := s.svc.SavePromotion(s.ctx, domain.Promotion{
		Name:             "3 por R$ 15,00",
		Active:           true,
		Kind:             domain.PromotionFixedPriceBundle,
		TargetCategory:   "cookies",
		MinimumItems:     3,
		FixedBundlePrice: 1500,
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(promo.ID)

	active, err := s.svc.ListActivePromotions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)

	_, err = s.svc.SetPromotionActive(s.ctx, promo.ID, false)
	s.Require().NoError(err)
	active, err = s.svc.ListActivePromotions(s.ctx)
	s.Require().NoError(err)
	s.Require().Empty(active)

	_, err = s.svc.SetPromotionActive(s.ctx, "missing", true)
	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func TestSavePromotionRejectsIncompleteRule(t *testing.T) {
	svc := NewService(memory.NewProductRepository(), memory.NewPromotionRepository(), nil)

	_, err := svc.SavePromotion(context.Background(), domain.Promotion{Kind: domain.PromotionFixedPriceBundle, MinimumItems: 2})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.SavePromotion(context.Background(), domain.Promotion{Kind: "mystery"})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// racingProducts списывает остаток сразу после первого чтения товара,
// как это сделала бы параллельная продажа.
type racingProducts struct {
	domain.ProductRepository
	once sync.Once
	qty  int
}

func (r *racingProducts) FindByID(ctx context.Context, id string) (domain.Product, error) {
	p, err := r.ProductRepository.FindByID(ctx, id)
	if err != nil {
		return p, err
	}
	r.once.Do(func() {
		err = r.ProductRepository.DecrementStock(ctx, id, r.qty)
	})
	return p, err
}

func TestCatalogUpdatesKeepConcurrentStockDecrement(t *testing.T) {
	seed := domain.Product{ID: "cookie", Name: "Cookie", StockQuantity: 10, CostPrice: 250, SalePrice: 590, Active: true}

	cases := []struct {
		name   string
		update func(*Service) (domain.Product, error)
		check  func(*testing.T, domain.Product)
	}{
		{
			name: "sale price",
			update: func(svc *Service) (domain.Product, error) {
				return svc.SetSalePrice(context.Background(), "cookie", 600)
			},
			check: func(t *testing.T, p domain.Product) {
				require.Equal(t, domain.Money(600), p.SalePrice)
				require.Equal(t, 7, p.StockQuantity)
			},
		},
		{
			name:   "deactivate",
			update: func(svc *Service) (domain.Product, error) { return svc.Deactivate(context.Background(), "cookie") },
			check: func(t *testing.T, p domain.Product) {
				require.False(t, p.Active)
				require.Equal(t, 7, p.StockQuantity)
			},
		},
		{
			name:   "absolute stock wins over earlier decrement",
			update: func(svc *Service) (domain.Product, error) { return svc.AdjustStock(context.Background(), "cookie", 20) },
			check: func(t *testing.T, p domain.Product) {
				require.Equal(t, 20, p.StockQuantity)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.NewProductRepository(seed)
			logger, hook := logtest.NewNullLogger()
			svc := NewService(&racingProducts{ProductRepository: repo, qty: 3}, memory.NewPromotionRepository(), logger.WithField("component", "catalog-test"))

			got, err := tc.update(svc)
			require.NoError(t, err)
			tc.check(t, got)

			stored, err := repo.FindByID(context.Background(), "cookie")
			require.NoError(t, err)
			tc.check(t, stored)
			require.Equal(t, stored.Version, got.Version)

			retried := false
			for _, e := range hook.AllEntries() {
				retried = retried || e.Message == "product version conflict, retrying"
			}
			require.True(t, retried, "expected the stale write to be retried")
		})
	}
}
