package postgres

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
)

const (
	table = "products"

	// textScoreScale lifts ts_rank_cd output (roughly 0..1 per term) into
	// the same order of magnitude as the other backends.
	textScoreScale = 10

	// bulkChunkSize bounds the number of rows in one INSERT statement.
	bulkChunkSize = 500
)

var dialect = goqu.Dialect("postgres")

// productColumns is the scan order used by scanProduct.
var productColumns = []any{
	"id", "title", "description", "price", "mrp", "currency", "rating",
	"review_count", "stock", "sales_count", "return_rate", "complaints_count",
	"category", "brand", "metadata", "source", "source_url", "images",
	"created_at", "updated_at",
}

// tsQuery returns the websearch_to_tsquery input matching any of the terms
// in text, or "" when text has no searchable terms.
func tsQuery(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 0x7f)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "or" || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return strings.Join(terms, " or ")
}

func buildFindQuery(filter *domain.Filter) (string, []any, error) {
	ds := dialect.From(table).Prepared(true)

	q := tsQuery(filter.Text)
	scoreExpr := goqu.L("0::double precision")
	if q != "" {
		scoreExpr = goqu.L("ts_rank_cd(search_vector, websearch_to_tsquery('simple', ?)) * ?", q, textScoreScale)
	}
	ds = ds.Select(append(append([]any{}, productColumns...), scoreExpr.As("text_score"))...)

	conds := buildConditions(filter)
	if q != "" {
		conds = append(conds, goqu.L("search_vector @@ websearch_to_tsquery('simple', ?)", q))
		ds = ds.Order(goqu.I("text_score").Desc(), goqu.C("seq").Asc())
	} else {
		ds = ds.Order(goqu.C("seq").Asc())
	}
	if len(conds) > 0 {
		ds = ds.Where(conds...)
	}
	return ds.ToSQL()
}

// buildConditions translates the structured part of a filter. Text matching
// is added by the caller.
func buildConditions(f *domain.Filter) []exp.Expression {
	var conds []exp.Expression
	if f.Category != nil && *f.Category != "" {
		conds = append(conds, goqu.Func("LOWER", goqu.C("category")).Eq(strings.ToLower(*f.Category)))
	}
	if f.Brand != nil && *f.Brand != "" {
		conds = append(conds, goqu.C("brand").ILike("%"+escapeLike(*f.Brand)+"%"))
	}
	if f.MinPrice != nil {
		conds = append(conds, goqu.C("price").Gte(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, goqu.C("price").Lte(*f.MaxPrice))
	}
	if f.MinRating != nil {
		conds = append(conds, goqu.C("rating").Gte(*f.MinRating))
	}
	if f.InStock {
		conds = append(conds, goqu.C("stock").Gt(0))
	}
	return conds
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func buildAggregateQuery(filter *domain.Filter, by domain.GroupBy) (string, []any, error) {
	var key any
	conds := buildConditions(filter)
	if q := tsQuery(filter.Text); q != "" {
		conds = append(conds, goqu.L("search_vector @@ websearch_to_tsquery('simple', ?)", q))
	}

	switch by {
	case domain.GroupByCategory:
		key = goqu.C("category").As("key")
	case domain.GroupByBrand:
		key = goqu.C("brand").As("key")
		conds = append(conds, goqu.C("brand").IsNotNull(), goqu.C("brand").Neq(""))
	case domain.GroupByRatingBucket:
		key = goqu.Case().
			When(goqu.C("rating").Gte(4.5), domain.Rating45Plus).
			When(goqu.C("rating").Gte(4.0), domain.Rating40Plus).
			When(goqu.C("rating").Gte(3.5), domain.Rating35Plus).
			When(goqu.C("rating").Gte(3.0), domain.Rating30Plus).
			Else(domain.RatingBelow30).
			As("key")
	default:
		key = goqu.L("''").As("key")
	}

	ds := dialect.From(table).Prepared(true).Select(
		key,
		goqu.COUNT(goqu.Star()).As("count"),
		goqu.COALESCE(goqu.MIN("price"), 0).As("min_price"),
		goqu.COALESCE(goqu.MAX("price"), 0).As("max_price"),
		goqu.COALESCE(goqu.AVG("price"), 0).As("avg_price"),
		goqu.COALESCE(goqu.AVG("rating"), 0).As("avg_rating"),
		goqu.COALESCE(goqu.SUM("stock"), 0).As("total_stock"),
	)
	if len(conds) > 0 {
		ds = ds.Where(conds...)
	}
	if by != domain.GroupByNone {
		ds = ds.GroupBy(goqu.I("key"))
	}
	return ds.ToSQL()
}

func buildUpsertQuery(products []domain.Product) (string, []any, error) {
	rows := make([]any, 0, len(products))
	for i := range products {
		r, err := toRecord(&products[i])
		if err != nil {
			return "", nil, err
		}
		rows = append(rows, r)
	}

	update := goqu.Record{}
	for _, col := range productColumns {
		name := col.(string)
		if name == "id" || name == "created_at" {
			continue
		}
		update[name] = goqu.L("EXCLUDED." + name)
	}

	return dialect.Insert(table).Prepared(true).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("id", update)).
		ToSQL()
}

func buildGetQuery(id string) (string, []any, error) {
	return dialect.From(table).Prepared(true).
		Select(productColumns...).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
}

func buildDeleteQuery(id string) (string, []any, error) {
	return dialect.Delete(table).Prepared(true).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
}
