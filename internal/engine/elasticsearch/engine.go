package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/engine"
)

// Engine is an Elasticsearch-backed implementation of the SearchEngine interface.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	pageSize  int
	logger    *slog.Logger
}

// esFindResponse is the structure used to decode candidate fetches.
type esFindResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  *float64       `json:"_score"`
			Source domain.Product `json:"_source"`
			Sort   []interface{}  `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// esStats holds the metric sub-aggregations of one group.
type esStats struct {
	DocCount int `json:"doc_count"`
	Price    struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
		Avg *float64 `json:"avg"`
	} `json:"price"`
	Rating struct {
		Value *float64 `json:"value"`
	} `json:"rating"`
	Stock struct {
		Value *float64 `json:"value"`
	} `json:"stock"`
}

// esAggregateResponse is the structure used to decode aggregations.
type esAggregateResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
	} `json:"hits"`
	Aggregations struct {
		esStats
		Groups struct {
			Buckets []struct {
				Key string `json:"key"`
				esStats
			} `json:"buckets"`
		} `json:"groups"`
	} `json:"aggregations"`
}

// esGetResponse is the structure used to decode document lookups.
type esGetResponse struct {
	Found  bool           `json:"found"`
	Source domain.Product `json:"_source"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a new Elasticsearch engine connected to the given URL.
// It ensures the products index exists, creating it if necessary.
// If indexName is empty, DefaultIndexName is used.
func New(ctx context.Context, esURL string, indexName string, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}
	return NewWithClient(ctx, client, indexName, logger)
}

// NewWithClient creates an engine around an existing client.
func NewWithClient(ctx context.Context, client *elasticsearch.Client, indexName string, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		pageSize:  findPageSize,
		logger:    logger,
	}

	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the products index exists and creates it if not.
func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// responseError decodes an Elasticsearch error body into an error for op.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

// Index adds or updates a single product in the Elasticsearch index.
func (e *Engine) Index(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(product.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch index", res)
	}

	e.logger.DebugContext(ctx, "indexed product", slog.String("id", product.ID), slog.String("title", product.Title))
	return nil
}

// Delete removes a product from the Elasticsearch index by its ID.
// It does not return an error if the document does not exist (404 is ignored).
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete", res)
	}

	e.logger.DebugContext(ctx, "deleted product", slog.String("id", id))
	return nil
}

// Get fetches a product document by ID.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Product, error) {
	res, err := e.client.Get(e.indexName, id, e.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFound("product", id)
	}
	if res.IsError() {
		return nil, responseError("elasticsearch get", res)
	}

	var doc esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if !doc.Found {
		return nil, apperrors.NotFound("product", id)
	}
	return &doc.Source, nil
}

// search runs body against the index and decodes the response into out.
func (e *Engine) search(ctx context.Context, op string, body map[string]interface{}, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal query: %w", op, err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError(op, res)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// Find returns every document matching filter with its relevance score. The
// match set is read in pages with search_after so it is not bounded by the
// result window.
func (e *Engine) Find(ctx context.Context, filter *domain.Filter) ([]domain.Candidate, error) {
	if filter == nil {
		filter = &domain.Filter{}
	}

	var (
		candidates []domain.Candidate
		after      []interface{}
		pages      int
	)
	for {
		var esResp esFindResponse
		if err := e.search(ctx, "elasticsearch find", buildFindQuery(filter, e.pageSize, after), &esResp); err != nil {
			return nil, err
		}
		pages++

		hits := esResp.Hits.Hits
		if candidates == nil {
			candidates = make([]domain.Candidate, 0, max(esResp.Hits.Total.Value, len(hits)))
		}
		for _, hit := range hits {
			c := domain.Candidate{Product: hit.Source}
			if filter.Text != "" && hit.Score != nil {
				c.TextScore = *hit.Score
			}
			candidates = append(candidates, c)
		}

		if len(hits) < e.pageSize || len(candidates) >= esResp.Hits.Total.Value {
			break
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("elasticsearch find: page %d returned hits without sort values", pages)
		}
	}

	if pages > 1 {
		e.logger.DebugContext(ctx, "candidate fetch paged",
			slog.Int("pages", pages),
			slog.Int("candidates", len(candidates)),
		)
	}
	return candidates, nil
}

// Aggregate groups matching documents with terms, range or global metrics.
func (e *Engine) Aggregate(ctx context.Context, filter *domain.Filter, by domain.GroupBy) ([]domain.Group, error) {
	if filter == nil {
		filter = &domain.Filter{}
	}

	var esResp esAggregateResponse
	if err := e.search(ctx, "elasticsearch aggregate", buildAggregateQuery(filter, by), &esResp); err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(esResp.Aggregations.Groups.Buckets))
	switch by {
	case domain.GroupByCategory, domain.GroupByBrand, domain.GroupByRatingBucket:
		for _, b := range esResp.Aggregations.Groups.Buckets {
			if b.DocCount == 0 {
				continue
			}
			groups = append(groups, toGroup(b.Key, b.DocCount, b.esStats))
		}
	default:
		if total := esResp.Hits.Total.Value; total > 0 {
			groups = append(groups, toGroup("", total, esResp.Aggregations.esStats))
		}
	}

	engine.SortGroups(groups)
	return groups, nil
}

func toGroup(key string, count int, s esStats) domain.Group {
	return domain.Group{
		Key:        key,
		Count:      count,
		MinPrice:   value(s.Price.Min),
		MaxPrice:   value(s.Price.Max),
		AvgPrice:   value(s.Price.Avg),
		AvgRating:  value(s.Rating.Value),
		TotalStock: int(value(s.Stock.Value)),
	}
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// DeleteIndex removes the entire Elasticsearch index.
// It is intended for testing and administrative operations only.
// A 404 response is treated as success (index already absent).
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

// BulkIndex adds or updates multiple products in the Elasticsearch index
// using the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for i := range products {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": e.indexName,
				"_id":    products[i].ID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(products[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.InfoContext(ctx, "bulk indexed products", slog.Int("count", len(products)))
	return nil
}
