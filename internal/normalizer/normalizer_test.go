package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/lexicon"
)

func ptr(v float64) *float64 { return &v }

func TestNormalize_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		assert.Equal(t, domain.ParsedQuery{}, Normalize(raw))
	}
}

func TestNormalize_SastaIPhone(t *testing.T) {
	got := Normalize("sasta iPhone")

	assert.Equal(t, "sasta iPhone", got.OriginalQuery)
	assert.Equal(t, "iphone", got.ProcessedQuery)
	require.Len(t, got.Corrections, 1)
	assert.Equal(t, domain.Correction{
		From: "sasta",
		To:   "cheap budget affordable",
		Kind: domain.CorrectionHinglish,
	}, got.Corrections[0])
	assert.Equal(t, domain.OrderAsc, got.ExtractedSort.SortOrder)
	assert.Equal(t, domain.SortPrice, got.ExtractedSort.SortBy)
	assert.True(t, got.ExtractedFilters.IsZero())
}

func TestNormalize_BestLaptopUnder50000(t *testing.T) {
	got := Normalize("best laptop under 50000")

	assert.Equal(t, "laptop under 50000", got.ProcessedQuery)
	assert.Equal(t, domain.ExtractedSort{SortBy: domain.SortRating, SortOrder: domain.OrderDesc}, got.ExtractedSort)
	assert.Equal(t, ptr(50000), got.ExtractedFilters.MaxPrice)
	assert.Nil(t, got.ExtractedFilters.MinPrice)
	assert.Empty(t, got.Corrections)
}

func TestNormalize_Phases(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		processed string
		filters   domain.ExtractedFilters
		sort      domain.ExtractedSort
		corrected []domain.Correction
	}{
		{
			name:      "spelling and storage and hindi color",
			raw:       "Kala IFONE 128gb",
			processed: "black iphone 128gb",
			filters:   domain.ExtractedFilters{Color: "black", Storage: "128GB"},
			corrected: []domain.Correction{
				{From: "kala", To: "black", Kind: domain.CorrectionHinglish},
				{From: "ifone", To: "iphone", Kind: domain.CorrectionSpelling},
			},
		},
		{
			name:      "filler words are stripped",
			raw:       "phone wala",
			processed: "phone",
			corrected: []domain.Correction{{From: "wala", To: "", Kind: domain.CorrectionHinglish}},
		},
		{
			name:      "k suffix with upper bound",
			raw:       "mobile under 15k",
			processed: "phone under 15k",
			filters:   domain.ExtractedFilters{MaxPrice: ptr(15000)},
			corrected: []domain.Correction{{From: "mobile", To: "phone", Kind: domain.CorrectionSpelling}},
		},
		{
			name:      "currency price becomes a band",
			raw:       "headphone 2k rs",
			processed: "headphone 2k rs",
			filters:   domain.ExtractedFilters{MinPrice: ptr(1600), MaxPrice: ptr(2400)},
		},
		{
			name:      "rupee sign price",
			raw:       "watch ₹15000",
			processed: "watch smartwatch ₹15000",
			filters:   domain.ExtractedFilters{MinPrice: ptr(12000), MaxPrice: ptr(18000)},
			corrected: []domain.Correction{{From: "watch", To: "watch smartwatch", Kind: domain.CorrectionSpelling}},
		},
		{
			name:      "bare number without currency is not a price",
			raw:       "galaxy 20k",
			processed: "galaxy 20k",
		},
		{
			name:      "last storage wins",
			raw:       "laptop 16gb 1tb",
			processed: "laptop 16gb 1tb",
			filters:   domain.ExtractedFilters{Storage: "1TB"},
		},
		{
			name:      "stock intent",
			raw:       "available laptop",
			processed: "laptop",
			sort:      domain.ExtractedSort{InStock: boolPtr(true)},
		},
		{
			name:      "later intent overwrites sort",
			raw:       "cheap popular phone",
			processed: "phone",
			sort:      domain.ExtractedSort{SortBy: domain.SortSalesCount, SortOrder: domain.OrderDesc},
		},
		{
			name:      "color follows vocabulary order",
			raw:       "red black case",
			processed: "red black case",
			filters:   domain.ExtractedFilters{Color: "red"},
		},
		{
			name:      "token punctuation is stripped before lookup",
			raw:       "samsang, galxy!",
			processed: "samsung galaxy",
			corrected: []domain.Correction{
				{From: "samsang", To: "samsung", Kind: domain.CorrectionSpelling},
				{From: "galxy", To: "galaxy", Kind: domain.CorrectionSpelling},
			},
		},
		{
			name:      "plus is kept in tokens",
			raw:       "1+ nord",
			processed: "oneplus nord",
			corrected: []domain.Correction{{From: "1+", To: "oneplus", Kind: domain.CorrectionSpelling}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			assert.Equal(t, tc.processed, got.ProcessedQuery)
			assert.Equal(t, tc.filters, got.ExtractedFilters)
			assert.Equal(t, tc.sort, got.ExtractedSort)
			assert.Equal(t, tc.corrected, got.Corrections)
		})
	}
}

func boolPtr(v bool) *bool { return &v }

func TestNormalize_HinglishRecordedOncePerTerm(t *testing.T) {
	got := Normalize("accha phone accha camera")

	require.Len(t, got.Corrections, 1)
	assert.Equal(t, "accha", got.Corrections[0].From)
	assert.Equal(t, "good quality phone good quality camera", got.ProcessedQuery)
}

func TestNormalize_Deterministic(t *testing.T) {
	for _, q := range []string{"sasta iPhone", "naya samsang 256gb neela under 30k", "best laptop under 50000"} {
		assert.Equal(t, Normalize(q), Normalize(q), q)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	queries := []string{
		"sasta iPhone",
		"best laptop under 50000",
		"kala ifone 128gb",
		"naya samsang phone",
		"mehenga lenova labtop",
	}
	for _, q := range queries {
		first := Normalize(q)
		second := Normalize(first.ProcessedQuery)
		assert.Empty(t, second.Corrections, q)
		assert.Equal(t, first.ProcessedQuery, second.ProcessedQuery, q)
	}
}

func TestNew_CustomLexicon(t *testing.T) {
	lex, err := lexicon.Parse([]byte(`
hinglish:
  - {from: bhai, to: ""}
spelling:
  - {from: fone, to: phone}
  - {from: fone, to: telephone}
intents:
  - {keyword: cheapest, sortBy: price, sortOrder: asc}
colors: [teal]
`))
	require.NoError(t, err)

	got := New(lex).Normalize("bhai cheapest teal fone")

	assert.Equal(t, "teal phone", got.ProcessedQuery)
	assert.Equal(t, "teal", got.ExtractedFilters.Color)
	assert.Equal(t, domain.SortPrice, got.ExtractedSort.SortBy)
	require.Len(t, got.Corrections, 2)
	assert.Equal(t, "phone", got.Corrections[1].To)
}
