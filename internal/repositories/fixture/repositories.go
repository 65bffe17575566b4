package fixture

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"field-equipment/internal/entities"
	apperrors "field-equipment/pkg/errors"
)

type equipmentRepository struct {
	store *Store
}

func (r *equipmentRepository) GetAll(ctx context.Context) ([]entities.Equipment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	list := make([]entities.Equipment, 0, len(r.store.data.equipment))
	for _, e := range r.store.data.equipment {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *equipmentRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.data.equipment[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &e, nil
}

// FindByIDForUpdate: строку блокирует сам txMu.
func (r *equipmentRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *equipmentRepository) Create(ctx context.Context, tx pgx.Tx, e entities.Equipment) (uint64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.matriculeTaken(e.Matricule, 0) {
		return 0, fmt.Errorf("оборудование с матрикулом %q уже существует: %w", e.Matricule, apperrors.ErrConflict)
	}

	now := r.store.now()
	e.ID = r.store.data.nextEquipmentID
	e.CreatedAt = now
	e.UpdatedAt = now
	r.store.data.nextEquipmentID++
	r.store.data.equipment[e.ID] = e
	return e.ID, nil
}

func (r *equipmentRepository) Update(ctx context.Context, tx pgx.Tx, id uint64, e entities.Equipment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.data.equipment[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if r.matriculeTaken(e.Matricule, id) {
		return fmt.Errorf("оборудование с матрикулом %q уже существует: %w", e.Matricule, apperrors.ErrConflict)
	}

	current.Name = e.Name
	current.Reference = e.Reference
	current.Matricule = e.Matricule
	current.Height = e.Height
	current.Width = e.Width
	current.Length = e.Length
	current.Weight = e.Weight
	current.Volume = e.Volume
	current.Temperature = e.Temperature
	current.Pressure = e.Pressure
	current.UpdatedAt = r.store.now()
	r.store.data.equipment[id] = current
	return nil
}

func (r *equipmentRepository) UpdateStateInTx(ctx context.Context, tx pgx.Tx, id uint64, status, location string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.data.equipment[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	current.Status = status
	current.Location = location
	current.UpdatedAt = r.store.now()
	r.store.data.equipment[id] = current
	return nil
}

// matriculeTaken вызывается под r.store.mu.
func (r *equipmentRepository) matriculeTaken(matricule string, exceptID uint64) bool {
	for id, e := range r.store.data.equipment {
		if id != exceptID && e.Matricule == matricule {
			return true
		}
	}
	return false
}

type historyRepository struct {
	store *Store
}

func (r *historyRepository) CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.EquipmentHistoryEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.equipment[entry.EquipmentID]; !ok {
		return fmt.Errorf("оборудование %d: %w", entry.EquipmentID, apperrors.ErrNotFound)
	}

	entry.ID = r.store.data.nextHistoryID
	entry.CreatedAt = r.store.now()
	r.store.data.nextHistoryID++

	stored := entry.Clone()
	if stored.Status != nil {
		r.store.data.activity[stored.ID] = *stored.Status
		stored.Status = nil
	}
	r.store.data.history = append(r.store.data.history, stored)
	return nil
}

// withActivity вызывается под r.store.mu.
func (r *historyRepository) withActivity(e entities.EquipmentHistoryEntry) entities.EquipmentHistoryEntry {
	out := e.Clone()
	if st, ok := r.store.data.activity[e.ID]; ok {
		out.Status = &st
	}
	return out
}

func (r *historyRepository) FindByEquipmentID(ctx context.Context, equipmentID uint64, entryType string) ([]entities.EquipmentHistoryEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]entities.EquipmentHistoryEntry, 0)
	for _, e := range r.store.data.history {
		if e.EquipmentID != equipmentID {
			continue
		}
		if entryType != "" && e.Type != entryType {
			continue
		}
		entries = append(entries, r.withActivity(e))
	}
	return entries, nil
}

func (r *historyRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.EquipmentHistoryEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.data.history {
		if e.ID == id {
			out := r.withActivity(e)
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *historyRepository) FindLatestStatusChange(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentHistoryEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *entities.EquipmentHistoryEntry
	for i := range r.store.data.history {
		e := &r.store.data.history[i]
		if e.EquipmentID != equipmentID || !e.IsStatusChange {
			continue
		}
		// записи идут в порядке добавления, поэтому при равной дате побеждает более поздняя
		if latest == nil || !e.FromDate.Before(latest.FromDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	out := r.withActivity(*latest)
	return &out, nil
}

func (r *historyRepository) FindLatestLocated(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentHistoryEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *entities.EquipmentHistoryEntry
	for i := range r.store.data.history {
		e := &r.store.data.history[i]
		if e.EquipmentID != equipmentID || e.Location == nil || *e.Location == "" {
			continue
		}
		if latest == nil || !e.FromDate.Before(latest.FromDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	out := r.withActivity(*latest)
	return &out, nil
}

func (r *historyRepository) UpdateActivityStatusInTx(ctx context.Context, tx pgx.Tx, entryID uint64, status string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.activity[entryID]; !ok {
		return apperrors.ErrNotFound
	}
	r.store.data.activity[entryID] = status
	return nil
}

type allocationRepository struct {
	store *Store
}

func (r *allocationRepository) FindActive(ctx context.Context) ([]entities.EquipmentAllocation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	list := make([]entities.EquipmentAllocation, 0)
	for _, a := range r.store.data.allocations {
		if a.IsActive() {
			list = append(list, cloneAllocation(a))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EquipmentID < list[j].EquipmentID })
	return list, nil
}

func (r *allocationRepository) FindActiveByEquipment(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentAllocation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, a := range r.store.data.allocations {
		if a.EquipmentID == equipmentID && a.IsActive() {
			out := cloneAllocation(a)
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *allocationRepository) CreateInTx(ctx context.Context, tx pgx.Tx, a *entities.EquipmentAllocation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.data.allocations {
		if existing.EquipmentID == a.EquipmentID && existing.IsActive() {
			return fmt.Errorf("оборудование %d уже закреплено за проектом: %w", a.EquipmentID, apperrors.ErrConflict)
		}
	}

	a.ID = r.store.data.nextAllocationID
	r.store.data.nextAllocationID++
	r.store.data.allocations = append(r.store.data.allocations, cloneAllocation(*a))
	return nil
}

func (r *allocationRepository) ReleaseInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64, releasedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.data.allocations {
		a := &r.store.data.allocations[i]
		if a.EquipmentID == equipmentID && a.IsActive() {
			t := releasedAt
			a.ReleasedAt = &t
			return nil
		}
	}
	return apperrors.ErrNotFound
}
