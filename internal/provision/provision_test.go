package provision

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"pos-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSeeder(t *testing.T) (*Seeder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSeeder(store.New(sqlx.NewDb(db, "postgres")))
	s.hashCost = bcrypt.MinCost
	return s, mock
}

func expectSeed(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	for i := range demoUsers {
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (username) DO UPDATE")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i + 1))
	}
	productID := 0
	for i, c := range demoCatalog {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories")).
			WithArgs(c.Name, c.Description).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i + 1))
		for _, p := range c.Products {
			productID++
			mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO UPDATE")).
				WithArgs(p.Name, p.Description, sqlmock.AnyArg(), p.Stock, int64(i+1)).
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(productID))
		}
	}
	mock.ExpectCommit()
}

func TestSeedIsRepeatable(t *testing.T) {
	s, mock := newSeeder(t)

	expectSeed(mock)
	expectSeed(mock)

	require.NoError(t, s.Seed(context.Background()))
	require.NoError(t, s.Seed(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionMigratesBeforeSeeding(t *testing.T) {
	s, mock := newSeeder(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := s.Provision(context.Background())
	assert.ErrorContains(t, err, "migrate")
	assert.NoError(t, mock.ExpectationsWereMet(), "seed must not run after a failed migration")
}

func TestSeedFailureRollsBack(t *testing.T) {
	s, mock := newSeeder(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (username) DO UPDATE")).
		WillReturnError(errors.New("relation \"users\" does not exist"))
	mock.ExpectRollback()

	err := s.Seed(context.Background())
	assert.ErrorContains(t, err, "seed user admin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemoCatalogShape(t *testing.T) {
	names := map[string]bool{}
	for _, c := range demoCatalog {
		assert.Len(t, c.Products, 3, c.Name)
		for _, p := range c.Products {
			assert.False(t, names[p.Name], "duplicate product %s", p.Name)
			names[p.Name] = true
		}
	}
	assert.Len(t, names, 9)
}
