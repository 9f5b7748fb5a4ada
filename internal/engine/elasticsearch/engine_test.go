package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

// fakeES is a minimal stand-in for an Elasticsearch node that records
// requests and answers from a route table keyed by "METHOD /path".
type fakeES struct {
	mu       sync.Mutex
	routes   map[string]fakeResponse
	requests []recorded
}

type fakeResponse struct {
	status int
	body   string
}

type recorded struct {
	method, path, body string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{r.Method, r.URL.Path, string(body)})
	resp, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"not_found","reason":"no route"},"status":404}`))
		return
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeES) last(t *testing.T, method, path string) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].method == method && f.requests[i].path == path {
			var out map[string]any
			require.NoError(t, json.Unmarshal([]byte(f.requests[i].body), &out))
			return out
		}
	}
	t.Fatalf("no %s %s request recorded", method, path)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFakeEngine(t *testing.T, routes map[string]fakeResponse) (*Engine, *fakeES) {
	t.Helper()
	fake := &fakeES{routes: map[string]fakeResponse{
		"HEAD /products": {status: http.StatusOK},
	}}
	for k, v := range routes {
		fake.routes[k] = v
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	eng, err := NewWithClient(context.Background(), client, "products", testLogger())
	require.NoError(t, err)
	return eng, fake
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestNew_CreatesMissingIndex(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"HEAD /products": {status: http.StatusNotFound},
		"PUT /products":  {status: http.StatusOK, body: `{"acknowledged":true}`},
	})
	require.NotNil(t, eng)

	mapping := fake.last(t, http.MethodPut, "/products")
	props := mapping["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, props, "title")
	assert.Contains(t, props, "salesCount")
}

func TestNew_IndexCreationFailure(t *testing.T) {
	fake := &fakeES{routes: map[string]fakeResponse{
		"HEAD /products": {status: http.StatusNotFound},
		"PUT /products":  {status: http.StatusBadRequest, body: `{"error":{"type":"illegal_argument_exception","reason":"bad mapping"},"status":400}`},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	_, err = NewWithClient(context.Background(), client, "products", testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad mapping")
}

func TestFind_BuildsQueryAndDecodesScores(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusOK, body: `{
			"hits": {"total": {"value": 2}, "hits": [
				{"_score": 12.5, "_source": {"id": "a", "title": "iPhone 15", "price": 70000, "brand": "Apple"}},
				{"_score": 3.1, "_source": {"id": "b", "title": "iPhone case", "price": 500, "brand": null}}
			]}
		}`},
	})

	got, err := eng.Find(context.Background(), &domain.Filter{
		Text:      "iphone",
		Category:  strPtr("mobile-phones"),
		Brand:     strPtr("app*"),
		MinPrice:  floatPtr(100),
		MaxPrice:  floatPtr(80000),
		MinRating: floatPtr(4),
		InStock:   true,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Product.ID)
	assert.Equal(t, 12.5, got[0].TextScore)
	assert.Equal(t, "Apple", got[0].Product.BrandName())
	assert.Nil(t, got[1].Product.Brand)

	body := fake.last(t, http.MethodPost, "/products/_search")
	assert.EqualValues(t, findPageSize, body["size"])
	assert.NotContains(t, body, "search_after")
	boolQ := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQ["must"].([]any)[0].(map[string]any)
	assert.Equal(t, "iphone", must["multi_match"].(map[string]any)["query"])

	filters, err := json.Marshal(boolQ["filter"])
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"term": {"category": "mobile-phones"}},
		{"wildcard": {"brand.keyword": {"value": "*app\\**", "case_insensitive": true}}},
		{"range": {"price": {"gte": 100, "lte": 80000}}},
		{"range": {"rating": {"gte": 4}}},
		{"range": {"stock": {"gt": 0}}}
	]`, string(filters))
}

func TestFind_WithoutTextUsesMatchAllAndZeroScores(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusOK, body: `{
			"hits": {"total": {"value": 1}, "hits": [{"_score": 1.0, "_source": {"id": "a"}}]}
		}`},
	})

	got, err := eng.Find(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].TextScore)

	body := fake.last(t, http.MethodPost, "/products/_search")
	boolQ := body["query"].(map[string]any)["bool"].(map[string]any)
	assert.Contains(t, boolQ["must"].([]any)[0], "match_all")
	assert.NotContains(t, boolQ, "filter")
}

func TestFind_PagesWithSearchAfter(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	pages := []string{
		`{"hits": {"total": {"value": 5}, "hits": [
			{"_score": 9, "_source": {"id": "a"}, "sort": [9, "a"]},
			{"_score": 8, "_source": {"id": "b"}, "sort": [8, "b"]}
		]}}`,
		`{"hits": {"total": {"value": 5}, "hits": [
			{"_score": 7, "_source": {"id": "c"}, "sort": [7, "c"]},
			{"_score": 7, "_source": {"id": "d"}, "sort": [7, "d"]}
		]}}`,
		`{"hits": {"total": {"value": 5}, "hits": [
			{"_score": 1, "_source": {"id": "e"}, "sort": [1, "e"]}
		]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodHead {
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		n := len(bodies)
		mu.Unlock()
		_, _ = w.Write([]byte(pages[n-1]))
	}))
	defer srv.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	eng, err := NewWithClient(context.Background(), client, "products", testLogger())
	require.NoError(t, err)
	eng.pageSize = 2

	got, err := eng.Find(context.Background(), &domain.Filter{Text: "phone"})
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, id, got[i].Product.ID)
	}
	assert.Equal(t, 7.0, got[3].TextScore)

	require.Len(t, bodies, 3)
	assert.NotContains(t, bodies[0], "search_after")
	assert.Equal(t, []any{8.0, "b"}, bodies[1]["search_after"])
	assert.Equal(t, []any{7.0, "d"}, bodies[2]["search_after"])
	assert.EqualValues(t, 2, bodies[2]["size"])
}

func TestFind_Error(t *testing.T) {
	eng, _ := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusInternalServerError, body: `{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":500}`},
	})

	_, err := eng.Find(context.Background(), &domain.Filter{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all shards failed")
}

func TestAggregate_Terms(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusOK, body: `{
			"hits": {"total": {"value": 5}},
			"aggregations": {"groups": {"buckets": [
				{"key": "laptops", "doc_count": 2, "price": {"min": 100, "max": 300, "avg": 200}, "rating": {"value": 4.5}, "stock": {"value": 7}},
				{"key": "phones", "doc_count": 3, "price": {"min": 10, "max": 30, "avg": 20}, "rating": {"value": 4.0}, "stock": {"value": 12}}
			]}}
		}`},
	})

	got, err := eng.Aggregate(context.Background(), &domain.Filter{InStock: true}, domain.GroupByCategory)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Group{Key: "phones", Count: 3, MinPrice: 10, MaxPrice: 30, AvgPrice: 20, AvgRating: 4, TotalStock: 12}, got[0])
	assert.Equal(t, "laptops", got[1].Key)

	body := fake.last(t, http.MethodPost, "/products/_search")
	assert.EqualValues(t, 0, body["size"])
	groups := body["aggs"].(map[string]any)["groups"].(map[string]any)
	assert.Equal(t, "category", groups["terms"].(map[string]any)["field"])
}

func TestAggregate_RatingBucketsSkipEmpty(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusOK, body: `{
			"hits": {"total": {"value": 3}},
			"aggregations": {"groups": {"buckets": [
				{"key": "4.5+", "from": 4.5, "doc_count": 2, "price": {}, "rating": {}, "stock": {}},
				{"key": "4.0+", "from": 4.0, "to": 4.5, "doc_count": 0, "price": {}, "rating": {}, "stock": {}},
				{"key": "Below 3.0", "to": 3.0, "doc_count": 1, "price": {}, "rating": {}, "stock": {}}
			]}}
		}`},
	})

	got, err := eng.Aggregate(context.Background(), nil, domain.GroupByRatingBucket)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4.5+", got[0].Key)
	assert.Equal(t, "Below 3.0", got[1].Key)

	body := fake.last(t, http.MethodPost, "/products/_search")
	groups := body["aggs"].(map[string]any)["groups"].(map[string]any)
	ranges := groups["range"].(map[string]any)["ranges"].([]any)
	assert.Len(t, ranges, 5)
}

func TestAggregate_Overall(t *testing.T) {
	eng, _ := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusOK, body: `{
			"hits": {"total": {"value": 4}},
			"aggregations": {"price": {"min": 5, "max": 50, "avg": 20}, "rating": {"value": 3.5}, "stock": {"value": 40}}
		}`},
	})

	got, err := eng.Aggregate(context.Background(), nil, domain.GroupByNone)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Group{Count: 4, MinPrice: 5, MaxPrice: 50, AvgPrice: 20, AvgRating: 3.5, TotalStock: 40}, got[0])
}

func TestAggregate_OverallEmpty(t *testing.T) {
	eng, _ := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_search": {status: http.StatusOK, body: `{
			"hits": {"total": {"value": 0}},
			"aggregations": {"price": {"min": null, "max": null, "avg": null}, "rating": {"value": null}, "stock": {"value": 0}}
		}`},
	})

	got, err := eng.Aggregate(context.Background(), nil, domain.GroupByNone)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGet(t *testing.T) {
	eng, _ := newFakeEngine(t, map[string]fakeResponse{
		"GET /products/_doc/a": {status: http.StatusOK, body: `{"found": true, "_source": {"id": "a", "title": "Pixel 8"}}`},
	})

	p, err := eng.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8", p.Title)

	_, err = eng.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDelete_IgnoresMissing(t *testing.T) {
	eng, _ := newFakeEngine(t, nil)
	assert.NoError(t, eng.Delete(context.Background(), "missing"))
}

func TestIndex(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"PUT /products/_doc/a": {status: http.StatusCreated, body: `{"result":"created"}`},
	})

	require.NoError(t, eng.Index(context.Background(), &domain.Product{ID: "a", Title: "Galaxy S24"}))
	doc := fake.last(t, http.MethodPut, "/products/_doc/a")
	assert.Equal(t, "Galaxy S24", doc["title"])
}

func TestBulkIndex_PartialErrors(t *testing.T) {
	eng, fake := newFakeEngine(t, map[string]fakeResponse{
		"POST /products/_bulk": {status: http.StatusOK, body: `{"errors": true, "items": [
			{"index": {"_id": "a", "status": 201}},
			{"index": {"_id": "b", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "bad price"}}}
		]}`},
	})

	err := eng.BulkIndex(context.Background(), []domain.Product{{ID: "a"}, {ID: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=b")
	assert.Contains(t, err.Error(), "bad price")

	fake.mu.Lock()
	defer fake.mu.Unlock()
	var bulk string
	for _, r := range fake.requests {
		if r.path == "/products/_bulk" {
			bulk = r.body
		}
	}
	assert.Equal(t, 4, strings.Count(bulk, "\n"))
}

func TestBulkIndex_Empty(t *testing.T) {
	eng, _ := newFakeEngine(t, nil)
	assert.NoError(t, eng.BulkIndex(context.Background(), nil))
}

func TestPing(t *testing.T) {
	eng, _ := newFakeEngine(t, map[string]fakeResponse{
		"HEAD /": {status: http.StatusOK},
	})
	assert.NoError(t, eng.Ping(context.Background()))
}
