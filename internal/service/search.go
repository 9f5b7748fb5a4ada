package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/pagination"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/tracing"

	"github.com/Sumit-Saurabh98/indexsearch/internal/cache"
	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/engine"
	"github.com/Sumit-Saurabh98/indexsearch/internal/lexicon"
	"github.com/Sumit-Saurabh98/indexsearch/internal/normalizer"
	"github.com/Sumit-Saurabh98/indexsearch/internal/ranking"
)

const tracerName = "github.com/Sumit-Saurabh98/indexsearch/internal/service"

// DefaultSlowThreshold is the latency above which a search is logged.
const DefaultSlowThreshold = time.Second

// SearchService implements the business logic for search operations.
type SearchService struct {
	engine     engine.SearchEngine
	cache      cache.Cache
	normalizer *normalizer.Normalizer
	ranker     *ranking.Engine
	logger     *slog.Logger

	maxLimit      int
	slowThreshold time.Duration

	products       ProductSource
	productBaseURL string
	reindexPerPage int
}

// Option configures a SearchService.
type Option func(*SearchService)

// WithMaxLimit caps the page size.
func WithMaxLimit(n int) Option {
	return func(s *SearchService) { s.maxLimit = n }
}

// WithSlowThreshold sets the latency above which a search is logged at warn.
func WithSlowThreshold(d time.Duration) Option {
	return func(s *SearchService) { s.slowThreshold = d }
}

// WithNormalizer replaces the query normalizer built from the embedded lexicon.
func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(s *SearchService) { s.normalizer = n }
}

// WithRanking replaces the default ranking engine.
func WithRanking(r *ranking.Engine) Option {
	return func(s *SearchService) { s.ranker = r }
}

// WithProductSource enables Reindex against the product service at baseURL.
func WithProductSource(src ProductSource, baseURL string) Option {
	return func(s *SearchService) {
		s.products = src
		s.productBaseURL = baseURL
	}
}

// NewSearchService creates a new search service.
func NewSearchService(eng engine.SearchEngine, resultCache cache.Cache, logger *slog.Logger, opts ...Option) *SearchService {
	s := &SearchService{
		engine:         eng,
		cache:          resultCache,
		logger:         logger,
		maxLimit:       pagination.MaxLimit,
		slowThreshold:  DefaultSlowThreshold,
		reindexPerPage: defaultReindexPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.normalizer == nil {
		s.normalizer = normalizer.New(lexicon.Default())
	}
	if s.ranker == nil {
		s.ranker = ranking.New()
	}
	return s
}

// Parse runs only the query normalizer.
func (s *SearchService) Parse(query string) domain.ParsedQuery {
	return s.normalizer.Normalize(query)
}

// Search executes the full pipeline for req: normalize, fetch candidates,
// rank or sort, paginate, and aggregate facets. Identical requests within
// the cache TTL are answered from the result cache.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (_ *domain.SearchResult, err error) {
	start := time.Now()
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "SearchService.Search",
		trace.WithAttributes(attribute.String("search.query", req.Query)),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if err := validateSort(req.SortBy, req.SortOrder); err != nil {
		return nil, err
	}

	r := *req
	page := pagination.New(r.Page, r.Limit, s.maxLimit)
	r.Page, r.Limit = page.Page, page.Limit
	key := cache.Key(&r)

	if result, ok := s.lookup(ctx, key); ok {
		result.Meta.Cached = true
		result.Meta.ResponseTimeMs = time.Since(start).Milliseconds()
		span.SetAttributes(attribute.Bool("search.cached", true))
		searchDuration.WithLabelValues("true").Observe(time.Since(start).Seconds())
		return result, nil
	}

	result, err := s.execute(ctx, &r, page)
	if err != nil {
		searchRequestsTotal.WithLabelValues(mode(r.UseRanking), "error").Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	result.Meta.ResponseTimeMs = elapsed.Milliseconds()
	if r.IncludeFacets && result.Facets == nil {
		s.logger.DebugContext(ctx, "skipping cache for result without facets", slog.String("query", r.Query))
	} else {
		s.store(ctx, key, result)
	}

	searchRequestsTotal.WithLabelValues(mode(result.Meta.RankingApplied), "ok").Inc()
	searchDuration.WithLabelValues("false").Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Bool("search.cached", false),
		attribute.Bool("search.ranked", result.Meta.RankingApplied),
		attribute.Int("search.total", result.Pagination.Total),
	)

	if s.slowThreshold > 0 && elapsed > s.slowThreshold {
		s.logger.WarnContext(ctx, "slow search",
			slog.String("query", req.Query),
			slog.Duration("duration", elapsed),
			slog.Int("total", result.Pagination.Total),
		)
	}
	return result, nil
}

func (s *SearchService) execute(ctx context.Context, req *domain.SearchRequest, page pagination.Params) (*domain.SearchResult, error) {
	parsed := s.normalizer.Normalize(req.Query)
	filter := mergeFilter(req, &parsed)
	sortBy, sortOrder, ranked := resolveSort(req, &parsed)

	candidates, err := s.engine.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search: fetch candidates: %w", err)
	}
	searchCandidates.Observe(float64(len(candidates)))

	var views []domain.ProductView
	if ranked {
		list := pagination.Slice(s.ranker.Rank(candidates, nil), page)
		views = make([]domain.ProductView, 0, len(list))
		for _, rp := range list {
			views = append(views, domain.NewRankedView(rp))
		}
	} else {
		sortCandidates(candidates, sortBy, sortOrder)
		list := pagination.Slice(candidates, page)
		views = make([]domain.ProductView, 0, len(list))
		for _, c := range list {
			views = append(views, domain.NewProductView(c.Product))
		}
	}

	result := &domain.SearchResult{
		Products:   views,
		Pagination: page.Meta(len(candidates)),
		Meta: domain.Meta{
			OriginalQuery:  parsed.OriginalQuery,
			ProcessedQuery: parsed.ProcessedQuery,
			Corrections:    parsed.Corrections,
			RankingApplied: ranked,
		},
	}
	if !parsed.ExtractedFilters.IsZero() {
		ef := parsed.ExtractedFilters
		result.Meta.ExtractedFilters = &ef
	}
	if !ranked {
		result.Meta.AppliedSort = &domain.AppliedSort{SortBy: sortBy, SortOrder: sortOrder}
	}
	if req.IncludeFacets {
		result.Facets = s.facets(ctx, filter)
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", req.Query),
		slog.String("processed_query", parsed.ProcessedQuery),
		slog.Int("total", len(candidates)),
		slog.Bool("ranked", ranked),
	)
	return result, nil
}

// lookup returns a cached result. Cache errors and undecodable entries are
// misses.
func (s *SearchService) lookup(ctx context.Context, key string) (*domain.SearchResult, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		searchCacheLookups.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "result cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		searchCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		searchCacheLookups.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "result cache entry is corrupt", slog.String("error", err.Error()))
		return nil, false
	}
	searchCacheLookups.WithLabelValues("hit").Inc()
	return &result, true
}

func (s *SearchService) store(ctx context.Context, key string, result *domain.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.WarnContext(ctx, "encode search result for cache", slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.WarnContext(ctx, "result cache write failed", slog.String("error", err.Error()))
	}
}

// mergeFilter builds the engine filter. Explicit request filters win;
// extracted price bounds only fill unset ones; an extracted in-stock
// directive always forces the stock filter on.
func mergeFilter(req *domain.SearchRequest, parsed *domain.ParsedQuery) *domain.Filter {
	f := &domain.Filter{
		Text:      parsed.ProcessedQuery,
		Category:  req.Category,
		Brand:     req.Brand,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		MinRating: req.MinRating,
	}
	if f.MinPrice == nil {
		f.MinPrice = parsed.ExtractedFilters.MinPrice
	}
	if f.MaxPrice == nil {
		f.MaxPrice = parsed.ExtractedFilters.MaxPrice
	}
	if req.InStock != nil {
		f.InStock = *req.InStock
	}
	if in := parsed.ExtractedSort.InStock; in != nil && *in {
		f.InStock = true
	}
	return f
}

// resolveSort picks the field sort, or reports ranked=true when neither the
// request nor the query names a sort field and ranking is enabled.
func resolveSort(req *domain.SearchRequest, parsed *domain.ParsedQuery) (sortBy, sortOrder string, ranked bool) {
	sortBy, sortOrder = req.SortBy, req.SortOrder
	switch {
	case sortBy != "":
	case parsed.ExtractedSort.SortBy != "":
		sortBy = parsed.ExtractedSort.SortBy
		if sortOrder == "" {
			sortOrder = parsed.ExtractedSort.SortOrder
		}
	case req.UseRanking:
		return "", "", true
	default:
		sortBy = domain.SortRating
	}
	if sortOrder == "" {
		sortOrder = domain.OrderDesc
	}
	return sortBy, sortOrder, false
}

func validateSort(sortBy, sortOrder string) error {
	if sortBy != "" && !domain.IsValidSortField(sortBy) {
		return apperrors.InvalidInputf("sortBy must be one of: %v", domain.ValidSortFields())
	}
	if sortOrder != "" && !domain.IsValidSortOrder(sortOrder) {
		return apperrors.InvalidInput("sortOrder must be one of: asc, desc")
	}
	return nil
}

// sortCandidates orders candidates by field. Ties are broken by sales count
// descending, then by fetch order.
func sortCandidates(candidates []domain.Candidate, field, order string) {
	desc := order == domain.OrderDesc
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i].Product, &candidates[j].Product
		if c := compareField(a, b, field); c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}
		return a.SalesCount > b.SalesCount
	})
}

func compareField(a, b *domain.Product, field string) int {
	switch field {
	case domain.SortPrice:
		return cmp.Compare(a.Price, b.Price)
	case domain.SortRating:
		return cmp.Compare(a.Rating, b.Rating)
	case domain.SortSalesCount:
		return cmp.Compare(a.SalesCount, b.SalesCount)
	case domain.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return 0
	}
}

func mode(ranked bool) string {
	if ranked {
		return "ranked"
	}
	return "sorted"
}
