package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func newTestProduct(title, description string, price float64) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Price:       price,
		MRP:         price * 1.2,
		Currency:    "INR",
		Rating:      4.2,
		Stock:       25,
		Category:    "headphones",
		Brand:       strPtr("Acme"),
		Metadata:    map[string]any{"color": "black"},
		Source:      "manual",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ids(candidates []domain.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Product.ID)
	}
	return out
}

func TestEngine_FindByText_Match(t *testing.T) {
	ctx := context.Background()
	eng := New()

	p := newTestProduct("Wireless Bluetooth Headphones", "High quality noise canceling headphones", 9999)
	require.NoError(t, eng.Index(ctx, &p))

	got, err := eng.Find(ctx, &domain.Filter{Text: "bluetooth"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].Product.ID)
	assert.Equal(t, float64(titleWeight), got[0].TextScore)
}

func TestEngine_FindByText_NoMatch(t *testing.T) {
	ctx := context.Background()
	eng := New()

	p := newTestProduct("Wireless Bluetooth Headphones", "High quality headphones", 9999)
	require.NoError(t, eng.Index(ctx, &p))

	got, err := eng.Find(ctx, &domain.Filter{Text: "keyboard"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_FindByText_AnyTermMatchesAndWeightsFields(t *testing.T) {
	ctx := context.Background()
	eng := New()

	inTitle := newTestProduct("Bluetooth Speaker", "Portable", 2999)
	inBrand := newTestProduct("Speaker", "Portable", 2999)
	inBrand.Brand = strPtr("Bluetooth Labs")
	inDesc := newTestProduct("Speaker", "Has bluetooth", 2999)
	require.NoError(t, eng.BulkIndex(ctx, []domain.Product{inDesc, inBrand, inTitle}))

	got, err := eng.Find(ctx, &domain.Filter{Text: "bluetooth tablet"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	scores := map[string]float64{}
	for _, c := range got {
		scores[c.Product.ID] = c.TextScore
	}
	assert.Equal(t, 5.0, scores[inTitle.ID])
	assert.Equal(t, 2.5, scores[inBrand.ID])
	assert.Equal(t, 0.5, scores[inDesc.ID])
}

func TestEngine_Find_NoTextReturnsAllWithZeroScore(t *testing.T) {
	ctx := context.Background()
	eng := New()

	a := newTestProduct("A", "", 100)
	b := newTestProduct("B", "", 200)
	require.NoError(t, eng.Index(ctx, &a))
	require.NoError(t, eng.Index(ctx, &b))

	got, err := eng.Find(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(got))
	assert.Zero(t, got[0].TextScore)
}

func TestEngine_Find_KeepsInsertionOrderAcrossUpdates(t *testing.T) {
	ctx := context.Background()
	eng := New()

	a := newTestProduct("A", "", 100)
	b := newTestProduct("B", "", 200)
	require.NoError(t, eng.BulkIndex(ctx, []domain.Product{a, b}))

	a.Price = 150
	require.NoError(t, eng.Index(ctx, &a))

	got, err := eng.Find(ctx, &domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(got))
	assert.Equal(t, 150.0, got[0].Product.Price)
	assert.Equal(t, 2, eng.Len())
}

func TestEngine_Find_Filters(t *testing.T) {
	ctx := context.Background()
	eng := New()

	cheap := newTestProduct("Cheap", "", 500)
	cheap.Rating = 3.1
	pricey := newTestProduct("Pricey", "", 50000)
	pricey.Category = "laptops"
	pricey.Brand = strPtr("Apple")
	empty := newTestProduct("Empty", "", 1500)
	empty.Stock = 0
	noBrand := newTestProduct("NoBrand", "", 1000)
	noBrand.Brand = nil
	require.NoError(t, eng.BulkIndex(ctx, []domain.Product{cheap, pricey, empty, noBrand}))

	tests := []struct {
		name   string
		filter domain.Filter
		want   []string
	}{
		{"category case-insensitive", domain.Filter{Category: strPtr("LAPTOPS")}, []string{pricey.ID}},
		{"brand substring", domain.Filter{Brand: strPtr("app")}, []string{pricey.ID}},
		{"price band", domain.Filter{MinPrice: floatPtr(600), MaxPrice: floatPtr(2000)}, []string{empty.ID, noBrand.ID}},
		{"min rating", domain.Filter{MinRating: floatPtr(4)}, []string{pricey.ID, empty.ID, noBrand.ID}},
		{"in stock", domain.Filter{InStock: true}, []string{cheap.ID, pricey.ID, noBrand.ID}},
		{"empty category ignored", domain.Filter{Category: strPtr("")}, []string{cheap.ID, pricey.ID, empty.ID, noBrand.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := eng.Find(ctx, &tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestEngine_DeleteAndGet(t *testing.T) {
	ctx := context.Background()
	eng := New()

	p := newTestProduct("Phone", "", 100)
	require.NoError(t, eng.Index(ctx, &p))

	got, err := eng.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)

	require.NoError(t, eng.Delete(ctx, p.ID))
	require.NoError(t, eng.Delete(ctx, "missing"))

	_, err = eng.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, eng.Len())
}

func TestEngine_Aggregate(t *testing.T) {
	ctx := context.Background()
	eng := New()

	var products []domain.Product
	for i, tc := range []struct {
		category string
		brand    *string
		price    float64
		rating   float64
		stock    int
	}{
		{"phones", strPtr("Apple"), 1000, 4.8, 5},
		{"phones", strPtr("Samsung"), 3000, 4.1, 10},
		{"laptops", strPtr("Apple"), 5000, 3.2, 0},
		{"phones", nil, 2000, 2.0, 1},
	} {
		p := newTestProduct("Item", "", tc.price)
		p.ID = string(rune('a' + i))
		p.Category = tc.category
		p.Brand = tc.brand
		p.Rating = tc.rating
		p.Stock = tc.stock
		products = append(products, p)
	}
	require.NoError(t, eng.BulkIndex(ctx, products))

	byCategory, err := eng.Aggregate(ctx, nil, domain.GroupByCategory)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	phones := byCategory[0]
	assert.Equal(t, "phones", phones.Key)
	assert.Equal(t, 3, phones.Count)
	assert.Equal(t, 1000.0, phones.MinPrice)
	assert.Equal(t, 3000.0, phones.MaxPrice)
	assert.InDelta(t, 2000, phones.AvgPrice, 1e-9)
	assert.InDelta(t, 3.6333, phones.AvgRating, 1e-4)
	assert.Equal(t, 16, phones.TotalStock)
	assert.Equal(t, "laptops", byCategory[1].Key)

	byBrand, err := eng.Aggregate(ctx, nil, domain.GroupByBrand)
	require.NoError(t, err)
	require.Len(t, byBrand, 2)
	assert.Equal(t, "Apple", byBrand[0].Key)
	assert.Equal(t, 2, byBrand[0].Count)
	assert.Equal(t, "Samsung", byBrand[1].Key)

	buckets, err := eng.Aggregate(ctx, nil, domain.GroupByRatingBucket)
	require.NoError(t, err)
	got := map[string]int{}
	for _, g := range buckets {
		got[g.Key] = g.Count
	}
	assert.Equal(t, map[string]int{"4.5+": 1, "4.0+": 1, "3.0+": 1, "Below 3.0": 1}, got)

	overall, err := eng.Aggregate(ctx, &domain.Filter{InStock: true}, domain.GroupByNone)
	require.NoError(t, err)
	require.Len(t, overall, 1)
	assert.Equal(t, 3, overall[0].Count)
	assert.Equal(t, 1000.0, overall[0].MinPrice)
	assert.Equal(t, 3000.0, overall[0].MaxPrice)
}

func TestEngine_Aggregate_Empty(t *testing.T) {
	got, err := New().Aggregate(context.Background(), nil, domain.GroupByNone)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEngine_Ping(t *testing.T) {
	assert.NoError(t, New().Ping(context.Background()))
}
