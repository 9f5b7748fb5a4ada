package http

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/httputil"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/pagination"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/slug"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/validator"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/service"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// SearchParams are the query parameters of GET /api/v1/search/product after
// type conversion.
type SearchParams struct {
	Query         string   `query:"query" validate:"max=500"`
	Page          int      `query:"page" validate:"gte=1"`
	Limit         int      `query:"limit" validate:"gte=1"`
	Category      *string  `query:"category"`
	Brand         *string  `query:"brand"`
	MinPrice      *float64 `query:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice      *float64 `query:"maxPrice" validate:"omitempty,gte=0"`
	MinRating     *float64 `query:"minRating" validate:"omitempty,gte=0,lte=5"`
	InStock       *bool    `query:"inStock"`
	SortBy        string   `query:"sortBy" validate:"omitempty,oneof=price rating salesCount createdAt"`
	SortOrder     string   `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	UseRanking    bool     `query:"useRanking"`
	IncludeFacets bool     `query:"includeFacets"`
}

// searchResponse is the search envelope. Products, pagination, facets and
// meta sit side by side at the top level.
type searchResponse struct {
	Success    bool                 `json:"success"`
	Data       []domain.ProductView `json:"data"`
	Pagination pagination.Meta      `json:"pagination"`
	Facets     *domain.Facets       `json:"facets"`
	Meta       domain.Meta          `json:"meta"`
}

// parseSearchParams converts raw query values. Malformed numbers and booleans
// are rejected rather than dropped.
func parseSearchParams(values url.Values) (*SearchParams, error) {
	p := &SearchParams{
		Query:         strings.TrimSpace(values.Get("query")),
		Page:          pagination.DefaultPage,
		Limit:         pagination.DefaultLimit,
		SortBy:        strings.TrimSpace(values.Get("sortBy")),
		SortOrder:     strings.ToLower(strings.TrimSpace(values.Get("sortOrder"))),
		UseRanking:    true,
		IncludeFacets: true,
	}

	var err error
	if p.Page, err = intParam(values, "page", p.Page); err != nil {
		return nil, err
	}
	if p.Limit, err = intParam(values, "limit", p.Limit); err != nil {
		return nil, err
	}
	if c := slug.Generate(values.Get("category")); c != "" {
		p.Category = &c
	}
	p.Brand = stringParam(values, "brand")
	if p.MinPrice, err = floatParam(values, "minPrice"); err != nil {
		return nil, err
	}
	if p.MaxPrice, err = floatParam(values, "maxPrice"); err != nil {
		return nil, err
	}
	if p.MinRating, err = floatParam(values, "minRating"); err != nil {
		return nil, err
	}
	if p.InStock, err = boolParam(values, "inStock"); err != nil {
		return nil, err
	}
	if v, err := boolParam(values, "useRanking"); err != nil {
		return nil, err
	} else if v != nil {
		p.UseRanking = *v
	}
	if v, err := boolParam(values, "includeFacets"); err != nil {
		return nil, err
	} else if v != nil {
		p.IncludeFacets = *v
	}

	if err := validator.Validate(p); err != nil {
		return nil, err
	}
	if p.MinPrice != nil && p.MaxPrice != nil && *p.MinPrice > *p.MaxPrice {
		return nil, apperrors.InvalidInput("minPrice must not exceed maxPrice")
	}
	return p, nil
}

func (p *SearchParams) toRequest() domain.SearchRequest {
	return domain.SearchRequest{
		Query:         p.Query,
		Page:          p.Page,
		Limit:         p.Limit,
		Category:      p.Category,
		Brand:         p.Brand,
		MinPrice:      p.MinPrice,
		MaxPrice:      p.MaxPrice,
		MinRating:     p.MinRating,
		InStock:       p.InStock,
		SortBy:        p.SortBy,
		SortOrder:     p.SortOrder,
		UseRanking:    p.UseRanking,
		IncludeFacets: p.IncludeFacets,
	}
}

func stringParam(values url.Values, name string) *string {
	v := strings.TrimSpace(values.Get(name))
	if v == "" {
		return nil
	}
	return &v
}

func intParam(values url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(values.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.InvalidInputf("%s must be a whole number", name)
	}
	return n, nil
}

func floatParam(values url.Values, name string) (*float64, error) {
	v := strings.TrimSpace(values.Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperrors.InvalidInputf("%s must be a valid number", name)
	}
	return &f, nil
}

func boolParam(values url.Values, name string) (*bool, error) {
	v := strings.TrimSpace(values.Get(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperrors.InvalidInputf("%s must be true or false", name)
	}
	return &b, nil
}

// writeParamError renders validation failures with per-field messages and
// everything else through the error envelope.
func (h *SearchHandler) writeParamError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// --- Handlers ---

// Search handles GET /api/v1/search/product
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		h.writeParamError(w, r, err)
		return
	}

	req := params.toRequest()
	result, err := h.service.Search(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, searchResponse{
		Success:    true,
		Data:       result.Products,
		Pagination: result.Pagination,
		Facets:     result.Facets,
		Meta:       result.Meta,
	})
}

// Parse handles GET /api/v1/search/parse
func (h *SearchHandler) Parse(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	httputil.WriteData(w, http.StatusOK, h.service.Parse(query))
}

// Stats handles GET /api/v1/search/stats
func (h *SearchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// CacheStats handles GET /api/v1/search/cache/stats
func (h *SearchHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CacheStats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}

// ClearCache handles DELETE /api/v1/search/cache. With a pattern parameter
// only matching entries are removed.
func (h *SearchHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		if err := h.service.ClearCache(r.Context()); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, "cache cleared")
		return
	}

	removed, err := h.service.InvalidateCache(r.Context(), pattern)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"pattern": pattern, "removed": removed})
}
