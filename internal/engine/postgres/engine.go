// Package postgres implements the search engine on PostgreSQL full-text
// search. Relevance is ts_rank_cd over a weighted tsvector of title, brand
// and description.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"

	"github.com/Sumit-Saurabh98/indexsearch/pkg/database"
	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/engine"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB is the pool surface the engine needs. *pgxpool.Pool and pgxmock pools
// satisfy it.
type DB interface {
	database.DB
	Ping(ctx context.Context) error
}

// Engine is a PostgreSQL-backed implementation of engine.SearchEngine.
type Engine struct {
	db     DB
	tracer database.QueryTracer
	logger *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// New creates an engine on db. Queries slower than slowQuery are logged.
func New(db DB, logger *slog.Logger, slowQuery time.Duration) *Engine {
	return &Engine{
		db:     db,
		tracer: database.QueryTracer{SlowThreshold: slowQuery, Logger: logger},
		logger: logger,
	}
}

// Migrate applies the engine's schema migrations.
func Migrate(ctx context.Context, db database.DB, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	return database.RunMigrations(ctx, db, sub, logger)
}

// Index upserts a single product.
func (e *Engine) Index(ctx context.Context, product *domain.Product) error {
	query, args, err := buildUpsertQuery([]domain.Product{*product})
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	ctx, end := e.tracer.Trace(ctx, "IndexProduct", query)
	_, err = e.db.Exec(ctx, query, args...)
	end(err)
	if err != nil {
		return fmt.Errorf("index product %s: %w", product.ID, err)
	}
	return nil
}

// BulkIndex upserts products in chunks inside one transaction. When the
// same ID appears more than once the last occurrence wins.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	products = dedupeLast(products)
	if len(products) == 0 {
		return nil
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bulk index: begin: %w", err)
	}

	for start := 0; start < len(products); start += bulkChunkSize {
		stop := min(start+bulkChunkSize, len(products))
		query, args, err := buildUpsertQuery(products[start:stop])
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("bulk index: build upsert: %w", err)
		}

		qctx, end := e.tracer.Trace(ctx, "BulkIndexProducts", query)
		_, err = tx.Exec(qctx, query, args...)
		end(err)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("bulk index: upsert rows %d-%d: %w", start, stop, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("bulk index: commit: %w", err)
	}
	e.logger.DebugContext(ctx, "bulk indexed products", slog.Int("count", len(products)))
	return nil
}

// Delete removes a product. Deleting an unknown ID is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	query, args, err := buildDeleteQuery(id)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	ctx, end := e.tracer.Trace(ctx, "DeleteProduct", query)
	_, err = e.db.Exec(ctx, query, args...)
	end(err)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// Get returns one product or apperrors.NotFound.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Product, error) {
	query, args, err := buildGetQuery(id)
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	ctx, end := e.tracer.Trace(ctx, "GetProduct", query)
	p, err := scanProduct(e.db.QueryRow(ctx, query, args...))
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Find returns every product matching filter. With a text query the rows
// are ordered by relevance, otherwise by first insertion.
func (e *Engine) Find(ctx context.Context, filter *domain.Filter) (_ []domain.Candidate, err error) {
	if filter == nil {
		filter = &domain.Filter{}
	}
	query, args, err := buildFindQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build find: %w", err)
	}

	ctx, end := e.tracer.Trace(ctx, "FindProducts", query)
	defer func() { end(err) }()

	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0)
	for rows.Next() {
		var c domain.Candidate
		p, err := scanProduct(rows, &c.TextScore)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		c.Product = *p
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return candidates, nil
}

// Aggregate groups the matching products with SQL GROUP BY.
func (e *Engine) Aggregate(ctx context.Context, filter *domain.Filter, by domain.GroupBy) (_ []domain.Group, err error) {
	if filter == nil {
		filter = &domain.Filter{}
	}
	query, args, err := buildAggregateQuery(filter, by)
	if err != nil {
		return nil, fmt.Errorf("build aggregate: %w", err)
	}

	ctx, end := e.tracer.Trace(ctx, "AggregateProducts", query)
	defer func() { end(err) }()

	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate products by %s: %w", by, err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		var (
			g            domain.Group
			count, stock int64
		)
		if err := rows.Scan(&g.Key, &count, &g.MinPrice, &g.MaxPrice, &g.AvgPrice, &g.AvgRating, &stock); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if count == 0 {
			continue
		}
		g.Count = int(count)
		g.TotalStock = int(stock)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	engine.SortGroups(groups)
	return groups, nil
}

// Ping checks database connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// scanProduct reads productColumns followed by any extra destinations.
func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var (
		p        domain.Product
		metadata []byte
		images   []byte
	)
	dest := []any{
		&p.ID, &p.Title, &p.Description, &p.Price, &p.MRP, &p.Currency, &p.Rating,
		&p.ReviewCount, &p.Stock, &p.SalesCount, &p.ReturnRate, &p.ComplaintsCount,
		&p.Category, &p.Brand, &metadata, &p.Source, &p.SourceURL, &images,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}
	return &p, nil
}

func toRecord(p *domain.Product) (goqu.Record, error) {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata for %s: %w", p.ID, err)
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("marshal images for %s: %w", p.ID, err)
	}

	var brand any
	if p.Brand != nil {
		brand = *p.Brand
	}

	now := time.Now().UTC()
	createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	return goqu.Record{
		"id":               p.ID,
		"title":            p.Title,
		"description":      p.Description,
		"price":            p.Price,
		"mrp":              p.MRP,
		"currency":         p.Currency,
		"rating":           p.Rating,
		"review_count":     p.ReviewCount,
		"stock":            p.Stock,
		"sales_count":      p.SalesCount,
		"return_rate":      p.ReturnRate,
		"complaints_count": p.ComplaintsCount,
		"category":         p.Category,
		"brand":            brand,
		"metadata":         string(metadataJSON),
		"source":           p.Source,
		"source_url":       p.SourceURL,
		"images":           string(imagesJSON),
		"created_at":       createdAt,
		"updated_at":       updatedAt,
	}, nil
}

// dedupeLast keeps the last occurrence of each ID at the position of its
// first occurrence.
func dedupeLast(products []domain.Product) []domain.Product {
	pos := make(map[string]int, len(products))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if i, ok := pos[p.ID]; ok {
			out[i] = p
			continue
		}
		pos[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}
