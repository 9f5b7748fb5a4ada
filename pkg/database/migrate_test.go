package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"002_indexes.up.sql":    {Data: []byte("CREATE INDEX b ON products (brand);")},
	"001_products.up.sql":   {Data: []byte("CREATE TABLE products (id TEXT PRIMARY KEY);")},
	"001_products.down.sql": {Data: []byte("DROP TABLE products;")},
}

func expectTracking(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
}

func expectApplied(mock pgxmock.PgxPoolIface, name string, applied bool) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs(name).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(applied))
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	expectTracking(mock)
	expectApplied(mock, "001_products.up.sql", true)
	expectApplied(mock, "002_indexes.up.sql", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX b ON products (brand);")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")).
		WithArgs("002_indexes.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), mock, testMigrations, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_RollsBackFailedFile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectTracking(mock)
	expectApplied(mock, "001_products.up.sql", false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE products")).
		WillReturnError(errors.New(`relation "products" already exists`))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, testMigrations, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_products.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}
