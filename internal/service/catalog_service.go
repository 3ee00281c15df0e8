package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/akarpov/go-shop/internal/cache"
	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/repository"
	"golang.org/x/sync/singleflight"
)

// CatalogService fronts the relational catalog with a read-through product
// cache. Writes invalidate; reads go through singleflight so a cold key is
// fetched once no matter how many requests race for it.
type CatalogService struct {
	repo  repository.RepoInterface
	cache cache.ProductCache
	sfg   singleflight.Group
}

func NewCatalogService(repo repository.RepoInterface, cache cache.ProductCache) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: cache,
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {

		product, err := s.cache.Get(ctx, id)
		if err == nil {
			return product, nil // product is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		product, errGet := s.repo.GetProduct(ctx, id)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), product)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return product, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.GetAllProducts(ctx)
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string) ([]*domain.Product, error) {
	return s.repo.SearchProducts(ctx, query)
}

func (s *CatalogService) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	return s.repo.CreateProduct(ctx, p)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return nil, err
	}

	invalidateCache(s, updated.ID)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	invalidateCache(s, id)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.repo.GetAllCategories(ctx)
}

// GetCategoryWithProducts returns the category and its products in name order.
func (s *CatalogService) GetCategoryWithProducts(ctx context.Context, id int64) (*domain.Category, []*domain.Product, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.repo.GetProductsByCategory(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return category, products, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	return s.repo.CreateCategory(ctx, c)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	return s.repo.UpdateCategory(ctx, c)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return s.repo.DeleteCategory(ctx, id)
}

func invalidateCache(s *CatalogService, productID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, productID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}
