package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-equipment/internal/entities"
	apperrors "field-equipment/pkg/errors"
)

const (
	allocationTable  = "equipment_allocations"
	allocationFields = "id, equipment_id, project_label, history_entry_id, allocated_at, released_at"
)

type AllocationRepositoryInterface interface {
	FindActive(ctx context.Context) ([]entities.EquipmentAllocation, error)
	FindActiveByEquipment(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentAllocation, error)
	// CreateInTx возвращает ErrConflict, если у единицы уже есть активное закрепление.
	CreateInTx(ctx context.Context, tx pgx.Tx, a *entities.EquipmentAllocation) error
	ReleaseInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64, releasedAt time.Time) error
}

type allocationRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAllocationRepository(storage *pgxpool.Pool, logger *zap.Logger) AllocationRepositoryInterface {
	return &allocationRepository{storage: storage, logger: logger}
}

func (r *allocationRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanAllocation(row pgx.Row) (*entities.EquipmentAllocation, error) {
	var a entities.EquipmentAllocation
	if err := row.Scan(&a.ID, &a.EquipmentID, &a.ProjectLabel, &a.HistoryEntryID, &a.AllocatedAt, &a.ReleasedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования equipment_allocations: %w", err)
	}
	return &a, nil
}

func (r *allocationRepository) FindActive(ctx context.Context) ([]entities.EquipmentAllocation, error) {
	query, args, err := psql.Select(allocationFields).
		From(allocationTable).
		Where(sq.Eq{"released_at": nil}).
		OrderBy("equipment_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindActive: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]entities.EquipmentAllocation, 0)
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *allocationRepository) FindActiveByEquipment(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentAllocation, error) {
	query, args, err := psql.Select(allocationFields).
		From(allocationTable).
		Where(sq.Eq{"equipment_id": equipmentID, "released_at": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindActiveByEquipment: %w", err)
	}
	return scanAllocation(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *allocationRepository) CreateInTx(ctx context.Context, tx pgx.Tx, a *entities.EquipmentAllocation) error {
	query, args, err := psql.Insert(allocationTable).
		Columns("equipment_id", "project_label", "history_entry_id", "allocated_at").
		Values(a.EquipmentID, a.ProjectLabel, a.HistoryEntryID, a.AllocatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса CreateInTx: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&a.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("оборудование %d уже закреплено за проектом: %w", a.EquipmentID, apperrors.ErrConflict)
		}
		return fmt.Errorf("ошибка создания equipment_allocations: %w", err)
	}
	return nil
}

func (r *allocationRepository) ReleaseInTx(ctx context.Context, tx pgx.Tx, equipmentID uint64, releasedAt time.Time) error {
	query, args, err := psql.Update(allocationTable).
		Set("released_at", releasedAt).
		Where(sq.Eq{"equipment_id": equipmentID, "released_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса ReleaseInTx: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка снятия закрепления: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
