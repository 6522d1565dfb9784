package service

import (
	"context"
	"sync"
	"testing"

	"pos-service/internal/models"
	"pos-service/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(sqlx.NewDb(db, "postgres")), mock
}

type recordingPublisher struct {
	mu       sync.Mutex
	placed   []*models.OrderPlacedEvent
	reversed []*models.OrderReversedEvent
	err      error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderReversed(_ context.Context, e *models.OrderReversedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reversed = append(p.reversed, e)
	return p.err
}

// memoryKeys mimics the redis claim semantics in memory.
type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]int64 // 0 = in flight
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{keys: map[string]int64{}}
}

func (m *memoryKeys) ClaimOrderKey(_ context.Context, key string) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.keys[key]; ok {
		return false, id, nil
	}
	m.keys[key] = 0
	return true, 0, nil
}

func (m *memoryKeys) CompleteOrderKey(_ context.Context, key string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = orderID
	return nil
}

func (m *memoryKeys) ReleaseOrderKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}
