package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/slug"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/validator"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

const (
	defaultReindexPerPage = 100
	productServiceName    = "product-service"
)

// ProductSource fetches JSON documents from the product service.
// *httpclient.BreakerClient satisfies it.
type ProductSource interface {
	GetJSON(ctx context.Context, url, service string, out any) error
}

// IndexProductInput holds the parameters for indexing a product. A missing
// ID is generated.
type IndexProductInput struct {
	ID              string         `json:"id"`
	Title           string         `json:"title" validate:"required,max=500"`
	Description     string         `json:"description" validate:"max=5000"`
	Price           float64        `json:"price" validate:"gte=0"`
	MRP             float64        `json:"mrp" validate:"gte=0"`
	Currency        string         `json:"currency" validate:"omitempty,oneof=Rupee INR USD"`
	Rating          float64        `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount     int            `json:"reviewCount" validate:"gte=0"`
	Stock           int            `json:"stock" validate:"gte=0"`
	SalesCount      int            `json:"salesCount" validate:"gte=0"`
	ReturnRate      float64        `json:"returnRate" validate:"gte=0,lte=100"`
	ComplaintsCount int            `json:"complaintsCount" validate:"gte=0"`
	Category        string         `json:"category" validate:"omitempty,oneof=mobile-phones laptops headphones phone-accessories tablets smartwatches cameras gaming audio other"`
	Brand           *string        `json:"brand"`
	Metadata        map[string]any `json:"metadata"`
	Source          string         `json:"source" validate:"omitempty,oneof=flipkart amazon manual synthetic"`
	SourceURL       string         `json:"sourceUrl" validate:"omitempty,url"`
	Images          []string       `json:"images"`
	CreatedAt       *time.Time     `json:"createdAt"`
}

// toProduct applies catalog defaults.
func (in *IndexProductInput) toProduct(now time.Time) domain.Product {
	p := domain.Product{
		ID:              in.ID,
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		Price:           in.Price,
		MRP:             in.MRP,
		Currency:        in.Currency,
		Rating:          in.Rating,
		ReviewCount:     in.ReviewCount,
		Stock:           in.Stock,
		SalesCount:      in.SalesCount,
		ReturnRate:      in.ReturnRate,
		ComplaintsCount: in.ComplaintsCount,
		Category:        in.Category,
		Metadata:        in.Metadata,
		Source:          in.Source,
		SourceURL:       strings.TrimSpace(in.SourceURL),
		Images:          in.Images,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if in.Brand != nil {
		if b := strings.TrimSpace(*in.Brand); b != "" {
			p.Brand = &b
		}
	}
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		p.CreatedAt = in.CreatedAt.UTC()
	}
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	if p.Category == "" {
		p.Category = domain.DefaultCategory
	}
	if p.Source == "" {
		p.Source = domain.DefaultSource
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}

// normalize trims the title and slugs the category ahead of validation, so
// "Mobile Phones" is stored as "mobile-phones".
func (in *IndexProductInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = slug.Generate(in.Category)
}

// IndexProduct validates input and indexes it. Cached results are dropped
// so the change is visible to the next search.
func (s *SearchService) IndexProduct(ctx context.Context, input *IndexProductInput) (*domain.Product, error) {
	input.normalize()
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	product := input.toProduct(time.Now().UTC())
	if err := s.engine.Index(ctx, &product); err != nil {
		return nil, fmt.Errorf("index product: %w", err)
	}
	s.invalidateResults(ctx)

	s.logger.InfoContext(ctx, "product indexed",
		slog.String("product_id", product.ID),
		slog.String("title", product.Title),
	)
	return &product, nil
}

// BulkIndex validates every input and indexes them together. A single
// invalid item rejects the whole batch.
func (s *SearchService) BulkIndex(ctx context.Context, inputs []IndexProductInput) (int, error) {
	now := time.Now().UTC()
	products := make([]domain.Product, 0, len(inputs))
	for i := range inputs {
		inputs[i].normalize()
		if err := validator.Validate(&inputs[i]); err != nil {
			return 0, fmt.Errorf("product %d: %w", i, err)
		}
		products = append(products, inputs[i].toProduct(now))
	}
	if len(products) == 0 {
		return 0, nil
	}

	if err := s.engine.BulkIndex(ctx, products); err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	s.invalidateResults(ctx)

	s.logger.InfoContext(ctx, "bulk index completed", slog.Int("count", len(products)))
	return len(products), nil
}

// DeleteProduct removes a product from the search index.
func (s *SearchService) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.InvalidInput("product id is required")
	}

	if err := s.engine.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateResults(ctx)

	s.logger.InfoContext(ctx, "product deleted from index", slog.String("product_id", id))
	return nil
}

// GetProduct returns one indexed product.
func (s *SearchService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// productPage is one page of the product service listing.
type productPage struct {
	Data       []IndexProductInput `json:"data"`
	TotalCount int                 `json:"total_count"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
}

// Reindex pulls every product from the product service page by page and
// indexes each page. Products that fail validation are skipped and logged.
// It returns the number of products indexed.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.products == nil || s.productBaseURL == "" {
		return 0, apperrors.Unavailable(productServiceName, errors.New("product service URL is not configured"))
	}

	indexed := 0
	for page := 1; ; page++ {
		var resp productPage
		if err := s.products.GetJSON(ctx, s.pageURL(page), productServiceName, &resp); err != nil {
			return indexed, fmt.Errorf("reindex: fetch page %d: %w", page, err)
		}

		now := time.Now().UTC()
		products := make([]domain.Product, 0, len(resp.Data))
		for i := range resp.Data {
			in := &resp.Data[i]
			in.normalize()
			if err := validator.Validate(in); err != nil {
				s.logger.WarnContext(ctx, "reindex: skipping invalid product",
					slog.String("product_id", in.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			products = append(products, in.toProduct(now))
		}
		if len(products) > 0 {
			if err := s.engine.BulkIndex(ctx, products); err != nil {
				return indexed, fmt.Errorf("reindex: index page %d: %w", page, err)
			}
			indexed += len(products)
		}

		if len(resp.Data) == 0 || page >= resp.TotalPages {
			break
		}
	}
	s.invalidateResults(ctx)

	s.logger.InfoContext(ctx, "reindex completed", slog.Int("indexed", indexed))
	return indexed, nil
}

func (s *SearchService) pageURL(page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(s.reindexPerPage))
	return strings.TrimRight(s.productBaseURL, "/") + "/api/v1/products?" + q.Encode()
}

// invalidateResults drops every cached result after an index change while
// keeping the hit counters.
func (s *SearchService) invalidateResults(ctx context.Context) {
	if _, err := s.cache.Invalidate(ctx, ""); err != nil {
		s.logger.WarnContext(ctx, "result cache invalidation failed", slog.String("error", err.Error()))
	}
}
