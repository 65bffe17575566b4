// Package fixture - хранилище в памяти с теми же интерфейсами, что и репозитории PostgreSQL.
// Используется при DATA_SOURCE=fixture и в тестах сервисов.
package fixture

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"field-equipment/internal/entities"
	"field-equipment/internal/repositories"
)

type state struct {
	equipment   map[uint64]entities.Equipment
	history     []entities.EquipmentHistoryEntry
	activity    map[uint64]string
	allocations []entities.EquipmentAllocation

	nextEquipmentID  uint64
	nextHistoryID    uint64
	nextAllocationID uint64
}

func newState() state {
	return state{
		equipment:        make(map[uint64]entities.Equipment),
		activity:         make(map[uint64]string),
		nextEquipmentID:  1,
		nextHistoryID:    1,
		nextAllocationID: 1,
	}
}

func (s state) clone() state {
	out := s
	out.equipment = make(map[uint64]entities.Equipment, len(s.equipment))
	for id, e := range s.equipment {
		out.equipment[id] = e
	}
	out.history = make([]entities.EquipmentHistoryEntry, len(s.history))
	for i, h := range s.history {
		out.history[i] = h.Clone()
	}
	out.activity = make(map[uint64]string, len(s.activity))
	for id, st := range s.activity {
		out.activity[id] = st
	}
	out.allocations = make([]entities.EquipmentAllocation, len(s.allocations))
	for i, a := range s.allocations {
		out.allocations[i] = cloneAllocation(a)
	}
	return out
}

// Store держит все данные в памяти. Транзакции сериализуются через txMu и
// откатываются восстановлением снимка, поэтому все записи сервисы делают
// внутри RunInTransaction.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	data  state
	cache *memoryCache
	now   func() time.Time
}

type Option func(*Store)

// WithClock подменяет время, которым проставляются created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{data: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newMemoryCache(s.now)
	return s
}

// Set собирает репозитории поверх хранилища.
func (s *Store) Set() *repositories.Set {
	return &repositories.Set{
		Equipment:  &equipmentRepository{store: s},
		History:    &historyRepository{store: s},
		Allocation: &allocationRepository{store: s},
		Cache:      s.cache,
		Tx:         &txManager{store: s},
	}
}

type txManager struct {
	store *Store
}

// RunInTransaction передает в fn nil вместо pgx.Tx: репозиторию транзакция не нужна.
func (m *txManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.RLock()
	snapshot := m.store.data.clone()
	m.store.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			m.store.restore(snapshot)
			panic(p)
		} else if err != nil {
			m.store.restore(snapshot)
		}
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	err = fn(nil)
	return err
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func cloneAllocation(a entities.EquipmentAllocation) entities.EquipmentAllocation {
	out := a
	if a.HistoryEntryID != nil {
		v := *a.HistoryEntryID
		out.HistoryEntryID = &v
	}
	if a.ReleasedAt != nil {
		v := *a.ReleasedAt
		out.ReleasedAt = &v
	}
	return out
}
