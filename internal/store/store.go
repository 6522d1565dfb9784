package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned by conditional decrements that matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories run
// unchanged inside or outside a transaction.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type Store struct {
	db *sqlx.DB
}

// PoolOptions sizes the connection pool.
type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
}

// NewStore connects to postgres and verifies the pool with a ping.
func NewStore(databaseURL string, opts PoolOptions) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that a pooled connection can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{q: s.db} }
func (s *Store) Orders() *OrderRepo    { return &OrderRepo{q: s.db} }
func (s *Store) Users() *UserRepo      { return &UserRepo{q: s.db} }

// Tx hands out repositories bound to one open transaction.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) Catalog() *CatalogRepo { return &CatalogRepo{q: t.tx} }
func (t *Tx) Orders() *OrderRepo    { return &OrderRepo{q: t.tx} }
func (t *Tx) Users() *UserRepo      { return &UserRepo{q: t.tx} }

// WithTx runs fn inside a single transaction on one pooled connection.
// fn returning an error, or panicking, rolls the transaction back; otherwise
// it is committed. The connection goes back to the pool on every path.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a postgres foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
