package elasticsearch

import (
	"strings"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

// findPageSize is the number of hits fetched per search_after page. It stays
// within the default index.max_result_window.
const findPageSize = 5000

// maxGroups bounds the number of buckets in a terms aggregation.
const maxGroups = 500

// buildFindQuery constructs one page of the candidate fetch. Pages after the
// first continue from the sort values of the previous page's last hit; the
// id tiebreaker keeps the order total.
func buildFindQuery(filter *domain.Filter, size int, after []interface{}) map[string]interface{} {
	var sortClause []interface{}
	if filter.Text != "" {
		sortClause = []interface{}{
			map[string]interface{}{"_score": "desc"},
			map[string]interface{}{"id": "asc"},
		}
	} else {
		sortClause = []interface{}{
			map[string]interface{}{"createdAt": "asc"},
			map[string]interface{}{"id": "asc"},
		}
	}

	q := map[string]interface{}{
		"query":            buildBoolQuery(filter),
		"size":             size,
		"track_total_hits": true,
		"sort":             sortClause,
	}
	if len(after) > 0 {
		q["search_after"] = after
	}
	return q
}

// buildBoolQuery combines the optional text clause with the filters. The
// text clause matches any query term, weighting title over brand over
// description.
func buildBoolQuery(filter *domain.Filter) map[string]interface{} {
	var mustClause interface{}
	if filter.Text != "" {
		mustClause = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    filter.Text,
				"fields":   []string{"title^10", "brand^5", "description"},
				"type":     "most_fields",
				"operator": "or",
			},
		}
	} else {
		mustClause = map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	boolQuery := map[string]interface{}{
		"must": []interface{}{mustClause},
	}
	if filters := buildFilters(filter); len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	return map[string]interface{}{"bool": boolQuery}
}

// buildFilters constructs the non-scoring filter clauses.
func buildFilters(filter *domain.Filter) []interface{} {
	var filters []interface{}

	if filter.Category != nil && *filter.Category != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				"category": *filter.Category,
			},
		})
	}

	if filter.Brand != nil && *filter.Brand != "" {
		filters = append(filters, map[string]interface{}{
			"wildcard": map[string]interface{}{
				"brand.keyword": map[string]interface{}{
					"value":            "*" + escapeWildcard(*filter.Brand) + "*",
					"case_insensitive": true,
				},
			},
		})
	}

	if filter.MinPrice != nil || filter.MaxPrice != nil {
		rangeFilter := map[string]interface{}{}
		if filter.MinPrice != nil {
			rangeFilter["gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			rangeFilter["lte"] = *filter.MaxPrice
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"price": rangeFilter,
			},
		})
	}

	if filter.MinRating != nil {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"rating": map[string]interface{}{"gte": *filter.MinRating},
			},
		})
	}

	if filter.InStock {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				"stock": map[string]interface{}{"gt": 0},
			},
		})
	}

	return filters
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}

// statsAggs are the per-group metrics every aggregation collects.
func statsAggs() map[string]interface{} {
	return map[string]interface{}{
		"price":  map[string]interface{}{"stats": map[string]interface{}{"field": "price"}},
		"rating": map[string]interface{}{"avg": map[string]interface{}{"field": "rating"}},
		"stock":  map[string]interface{}{"sum": map[string]interface{}{"field": "stock"}},
	}
}

// buildAggregateQuery constructs a size-0 search with the grouping for by.
func buildAggregateQuery(filter *domain.Filter, by domain.GroupBy) map[string]interface{} {
	q := map[string]interface{}{
		"query":            buildBoolQuery(filter),
		"size":             0,
		"track_total_hits": true,
	}

	var groups map[string]interface{}
	switch by {
	case domain.GroupByCategory:
		groups = map[string]interface{}{
			"terms": map[string]interface{}{"field": "category", "size": maxGroups},
		}
	case domain.GroupByBrand:
		groups = map[string]interface{}{
			"terms": map[string]interface{}{"field": "brand.keyword", "size": maxGroups},
		}
	case domain.GroupByRatingBucket:
		groups = map[string]interface{}{
			"range": map[string]interface{}{
				"field": "rating",
				"ranges": []interface{}{
					map[string]interface{}{"key": domain.Rating45Plus, "from": 4.5},
					map[string]interface{}{"key": domain.Rating40Plus, "from": 4.0, "to": 4.5},
					map[string]interface{}{"key": domain.Rating35Plus, "from": 3.5, "to": 4.0},
					map[string]interface{}{"key": domain.Rating30Plus, "from": 3.0, "to": 3.5},
					map[string]interface{}{"key": domain.RatingBelow30, "to": 3.0},
				},
			},
		}
	default:
		q["aggs"] = statsAggs()
		return q
	}

	groups["aggs"] = statsAggs()
	q["aggs"] = map[string]interface{}{"groups": groups}
	return q
}
