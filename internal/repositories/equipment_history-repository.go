package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-equipment/internal/entities"
	apperrors "field-equipment/pkg/errors"
)

const (
	historyTable         = "equipment_history"
	activityStatusTable  = "equipment_activity_statuses"
	historyFieldsAliased = `h.id, h.equipment_id, h.tx_id, h.type, h.is_status_change, h.description,
		h.from_date, h.to_date, h.location, h.responsible_name, h.responsible_contact,
		h.from_status, h.to_status, h.reason, h.created_by, h.created_at, s.status`
)

type EquipmentHistoryRepositoryInterface interface {
	// CreateInTx добавляет запись и, если у нее есть статус активности, его строку.
	// ID и CreatedAt проставляются в переданную запись.
	CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.EquipmentHistoryEntry) error
	// FindByEquipmentID возвращает записи в порядке добавления. Пустой entryType - все типы.
	FindByEquipmentID(ctx context.Context, equipmentID uint64, entryType string) ([]entities.EquipmentHistoryEntry, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.EquipmentHistoryEntry, error)
	FindLatestStatusChange(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentHistoryEntry, error)
	// FindLatestLocated - самая свежая по from_date запись с непустым location.
	FindLatestLocated(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentHistoryEntry, error)
	UpdateActivityStatusInTx(ctx context.Context, tx pgx.Tx, entryID uint64, status string) error
}

type equipmentHistoryRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentHistoryRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentHistoryRepositoryInterface {
	return &equipmentHistoryRepository{storage: storage, logger: logger}
}

func (r *equipmentHistoryRepository) getQuerier(tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return r.storage
}

func historySelect() sq.SelectBuilder {
	return psql.Select(historyFieldsAliased).
		From(historyTable + " h").
		LeftJoin(activityStatusTable + " s ON s.history_entry_id = h.id")
}

func scanHistoryEntry(row pgx.Row) (*entities.EquipmentHistoryEntry, error) {
	var e entities.EquipmentHistoryEntry
	var responsibleName, responsibleContact *string

	err := row.Scan(
		&e.ID, &e.EquipmentID, &e.TxID, &e.Type, &e.IsStatusChange, &e.Description,
		&e.FromDate, &e.ToDate, &e.Location, &responsibleName, &responsibleContact,
		&e.FromStatus, &e.ToStatus, &e.Reason, &e.CreatedBy, &e.CreatedAt, &e.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования equipment_history: %w", err)
	}

	if responsibleName != nil {
		e.ResponsiblePerson = &entities.ResponsiblePerson{Name: *responsibleName}
		if responsibleContact != nil {
			e.ResponsiblePerson.Contact = *responsibleContact
		}
	}
	return &e, nil
}

func (r *equipmentHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.EquipmentHistoryEntry) error {
	var responsibleName, responsibleContact *string
	if entry.ResponsiblePerson != nil {
		responsibleName = &entry.ResponsiblePerson.Name
		if entry.ResponsiblePerson.Contact != "" {
			responsibleContact = &entry.ResponsiblePerson.Contact
		}
	}

	query, args, err := psql.Insert(historyTable).
		Columns("equipment_id", "tx_id", "type", "is_status_change", "description",
			"from_date", "to_date", "location", "responsible_name", "responsible_contact",
			"from_status", "to_status", "reason", "created_by").
		Values(entry.EquipmentID, entry.TxID, entry.Type, entry.IsStatusChange, entry.Description,
			entry.FromDate, entry.ToDate, entry.Location, responsibleName, responsibleContact,
			entry.FromStatus, entry.ToStatus, entry.Reason, entry.CreatedBy).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса CreateInTx: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("ошибка записи в equipment_history: %w", err)
	}

	if entry.Status == nil {
		return nil
	}

	query, args, err = psql.Insert(activityStatusTable).
		Columns("history_entry_id", "status", "updated_at").
		Values(entry.ID, *entry.Status, sq.Expr("NOW()")).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса статуса активности: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка записи статуса активности: %w", err)
	}
	return nil
}

func (r *equipmentHistoryRepository) FindByEquipmentID(ctx context.Context, equipmentID uint64, entryType string) ([]entities.EquipmentHistoryEntry, error) {
	builder := historySelect().Where(sq.Eq{"h.equipment_id": equipmentID})
	if entryType != "" {
		builder = builder.Where(sq.Eq{"h.type": entryType})
	}

	query, args, err := builder.OrderBy("h.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByEquipmentID: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]entities.EquipmentHistoryEntry, 0)
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *equipmentHistoryRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.EquipmentHistoryEntry, error) {
	query, args, err := historySelect().Where(sq.Eq{"h.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindByID: %w", err)
	}
	return scanHistoryEntry(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *equipmentHistoryRepository) FindLatestStatusChange(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentHistoryEntry, error) {
	query, args, err := historySelect().
		Where(sq.Eq{"h.equipment_id": equipmentID, "h.is_status_change": true}).
		OrderBy("h.from_date DESC", "h.created_at DESC", "h.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindLatestStatusChange: %w", err)
	}
	return scanHistoryEntry(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *equipmentHistoryRepository) FindLatestLocated(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.EquipmentHistoryEntry, error) {
	query, args, err := historySelect().
		Where(sq.Eq{"h.equipment_id": equipmentID}).
		Where(sq.And{sq.NotEq{"h.location": nil}, sq.NotEq{"h.location": ""}}).
		OrderBy("h.from_date DESC", "h.created_at DESC", "h.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса FindLatestLocated: %w", err)
	}
	return scanHistoryEntry(r.getQuerier(tx).QueryRow(ctx, query, args...))
}

func (r *equipmentHistoryRepository) UpdateActivityStatusInTx(ctx context.Context, tx pgx.Tx, entryID uint64, status string) error {
	query, args, err := psql.Update(activityStatusTable).
		Set("status", status).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"history_entry_id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки запроса UpdateActivityStatusInTx: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса активности: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
