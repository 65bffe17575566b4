package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-equipment/internal/entities"
	apperrors "field-equipment/pkg/errors"
)

const (
	equipmentTable  = "equipments"
	equipmentFields = "id, name, reference, matricule, height, width, length, weight, volume, temperature, pressure, location, status, initial_status, created_at, updated_at"
)

type EquipmentRepositoryInterface interface {
	GetAll(ctx context.Context) ([]entities.Equipment, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	// FindByIDForUpdate блокирует строку до конца транзакции.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	Create(ctx context.Context, tx pgx.Tx, e entities.Equipment) (uint64, error)
	// Update меняет только описательные поля; статус и местоположение не трогает.
	Update(ctx context.Context, tx pgx.Tx, id uint64, e entities.Equipment) error
	UpdateStateInTx(ctx context.Context, tx pgx.Tx, id uint64, status, location string) error
}

type equipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &equipmentRepository{storage: storage, logger: logger}
}

func (r *equipmentRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	err := row.Scan(
		&e.ID, &e.Name, &e.Reference, &e.Matricule,
		&e.Height, &e.Width, &e.Length, &e.Weight, &e.Volume,
		&e.Temperature, &e.Pressure, &e.Location, &e.Status, &e.InitialStatus,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования equipments: %w", err)
	}
	return &e, nil
}

func (r *equipmentRepository) GetAll(ctx context.Context) ([]entities.Equipment, error) {
	query, args, err := psql.Select(equipmentFields).From(equipmentTable).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса GetAll: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]entities.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (r *equipmentRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	query, args, err := psql.Select(equipmentFields).From(equipmentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByID: %w", err)
	}
	return scanEquipment(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *equipmentRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	query, args, err := psql.Select(equipmentFields).From(equipmentTable).
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByIDForUpdate: %w", err)
	}
	return scanEquipment(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *equipmentRepository) Create(ctx context.Context, tx pgx.Tx, e entities.Equipment) (uint64, error) {
	query, args, err := psql.Insert(equipmentTable).
		Columns("name", "reference", "matricule", "height", "width", "length", "weight", "volume",
			"temperature", "pressure", "location", "status", "initial_status", "created_at", "updated_at").
		Values(e.Name, e.Reference, e.Matricule, e.Height, e.Width, e.Length, e.Weight, e.Volume,
			e.Temperature, e.Pressure, e.Location, e.Status, e.InitialStatus, sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("ошибка сборки запроса Create: %w", err)
	}

	var newID uint64
	if err := r.getQuerier(tx).QueryRow(ctx, query, args...).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("оборудование с матрикулом %q уже существует: %w", e.Matricule, apperrors.ErrConflict)
		}
		return 0, fmt.Errorf("ошибка создания equipments: %w", err)
	}
	return newID, nil
}

func (r *equipmentRepository) Update(ctx context.Context, tx pgx.Tx, id uint64, e entities.Equipment) error {
	query, args, err := psql.Update(equipmentTable).
		Set("name", e.Name).
		Set("reference", e.Reference).
		Set("matricule", e.Matricule).
		Set("height", e.Height).
		Set("width", e.Width).
		Set("length", e.Length).
		Set("weight", e.Weight).
		Set("volume", e.Volume).
		Set("temperature", e.Temperature).
		Set("pressure", e.Pressure).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса Update: %w", err)
	}

	result, err := r.getQuerier(tx).Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("оборудование с матрикулом %q уже существует: %w", e.Matricule, apperrors.ErrConflict)
		}
		return fmt.Errorf("ошибка обновления equipments: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *equipmentRepository) UpdateStateInTx(ctx context.Context, tx pgx.Tx, id uint64, status, location string) error {
	query, args, err := psql.Update(equipmentTable).
		Set("status", status).
		Set("location", location).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса UpdateStateInTx: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса equipments: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
