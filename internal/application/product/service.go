package product

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/himalfrost/store-api/internal/domain"
	"github.com/himalfrost/store-api/internal/pkg/id"
)

type Service interface {
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, productID string, in domain.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error
	UploadImage(ctx context.Context, productID, filename, contentType string, r io.Reader) (*domain.Product, error)
}

type productStore interface {
	Create(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Update(ctx context.Context, productID string, updates map[string]interface{}) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type ServiceDeps struct {
	ProductRepo productStore
	Images      objectStore
}

type service struct {
	repo   productStore
	images objectStore
	now    func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.ProductRepo, images: deps.Images, now: time.Now}
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func (s *service) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	if f.Category != "" && !domain.IsCategory(f.Category) {
		return nil, fmt.Errorf("unknown category %q: %w", f.Category, domain.ErrBadRequest)
	}
	return s.repo.List(ctx, f)
}

func (s *service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

func (s *service) Create(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	now := s.now().UTC()
	p := &domain.Product{
		ProductID:   id.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Rating:      in.Rating,
		ReviewCount: in.ReviewCount,
		Stock:       in.Stock,
		InStock:     in.Stock > 0,
		Featured:    in.Featured,
		Unit:        in.Unit,
		Weight:      in.Weight,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, productID string, in domain.ProductUpdate) (*domain.Product, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Rating != nil {
		updates["rating"] = *in.Rating
	}
	if in.ReviewCount != nil {
		updates["review_count"] = *in.ReviewCount
	}
	if in.Stock != nil {
		updates["stock"] = *in.Stock
		if in.InStock == nil {
			updates["in_stock"] = *in.Stock > 0
		}
	}
	if in.InStock != nil {
		updates["in_stock"] = *in.InStock
	}
	if in.Featured != nil {
		updates["featured"] = *in.Featured
	}
	if in.Unit != nil {
		updates["unit"] = *in.Unit
	}
	if in.Weight != nil {
		updates["weight"] = *in.Weight
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, productID)
	}
	return s.repo.Update(ctx, productID, updates)
}

func (s *service) Delete(ctx context.Context, productID string) error {
	return s.repo.Delete(ctx, productID)
}

// UploadImage stores the image under a fresh key so cached copies of the old
// image are never served for the new one.
func (s *service) UploadImage(ctx context.Context, productID, filename, contentType string, r io.Reader) (*domain.Product, error) {
	if s.images == nil {
		return nil, fmt.Errorf("image storage is not configured: %w", domain.ErrBadRequest)
	}
	ext := strings.ToLower(path.Ext(filename))
	if !imageExts[ext] {
		return nil, fmt.Errorf("unsupported image type %q: %w", ext, domain.ErrBadRequest)
	}
	current, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("products/%s/%s%s", productID, strings.ToLower(id.New()), ext)
	url, err := s.images.Upload(ctx, key, r, contentType)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, productID, map[string]interface{}{"image_url": url, "image_key": key})
	if err != nil {
		return nil, err
	}
	if current.ImageKey != "" {
		if err := s.images.Delete(ctx, current.ImageKey); err != nil {
			slog.Warn("delete replaced product image", "product_id", productID, "key", current.ImageKey, "err", err)
		}
	}
	return p, nil
}
