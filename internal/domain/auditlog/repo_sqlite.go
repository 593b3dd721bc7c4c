package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

type repoSQLite struct{ db *sql.DB }

func NewRepoSQLite(sqlDB *sql.DB) Repository {
	return &repoSQLite{db: sqlDB}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *repoSQLite) scanRow(row scanner) (*audit.Entry, error) {
	var e audit.Entry
	var id, op, recordID, changed string
	var oldData, newData, meta sql.NullString
	if err := row.Scan(&id, &e.TableName, &op, &recordID, &e.UserID, &changed,
		&oldData, &newData, &meta); err != nil {
		return nil, err
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("audit log id: %w", err)
	}
	if e.RecordID, err = uuid.Parse(recordID); err != nil {
		return nil, fmt.Errorf("audit log %s record_id: %w", id, err)
	}
	if e.ChangedAt, err = db.ParseTime(changed); err != nil {
		return nil, err
	}
	e.Operation = audit.Operation(op)
	e.OldData, e.NewData, e.Meta = db.RawJSON(oldData), db.RawJSON(newData), db.RawJSON(meta)
	return &e, nil
}

func (r *repoSQLite) Append(ctx context.Context, e *audit.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, table_name, operation, record_id, user_id, changed_at,
			old_data, new_data, meta)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID.String(), e.TableName, string(e.Operation), e.RecordID.String(), e.UserID,
		db.FormatTime(e.ChangedAt), db.JSONText(e.OldData), db.JSONText(e.NewData), db.JSONText(e.Meta))
	if err != nil {
		return fmt.Errorf("insert audit_log: %w", err)
	}
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	e, err := r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+auditCols+` FROM audit_log WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("audit log %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return e, nil
}

func (r *repoSQLite) List(ctx context.Context, f Filter, limit, offset int) ([]*audit.Entry, int, error) {
	qb := db.NewSearchQuery(db.SQLite, "audit_log", auditCols)
	applyFilter(qb, f, func(id uuid.UUID) interface{} { return id.String() })

	var total int
	if err := r.db.QueryRowContext(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	var items []*audit.Entry
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
