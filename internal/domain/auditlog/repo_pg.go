package auditlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const auditCols = `id, table_name, operation, record_id, user_id, changed_at, old_data, new_data, meta`

func (r *repoPG) scanRow(row pgx.Row) (*audit.Entry, error) {
	var e audit.Entry
	var op string
	var oldData, newData, meta []byte
	if err := row.Scan(&e.ID, &e.TableName, &op, &e.RecordID, &e.UserID, &e.ChangedAt,
		&oldData, &newData, &meta); err != nil {
		return nil, err
	}
	e.Operation = audit.Operation(op)
	e.OldData, e.NewData, e.Meta = oldData, newData, meta
	return &e, nil
}

// Append writes through the pool rather than the request connection: the
// recorder runs after the handler's work and may outlive the request.
func (r *repoPG) Append(ctx context.Context, e *audit.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, table_name, operation, record_id, user_id, changed_at,
			old_data, new_data, meta)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.TableName, string(e.Operation), e.RecordID, e.UserID, e.ChangedAt,
		db.JSONBytes(e.OldData), db.JSONBytes(e.NewData), db.JSONBytes(e.Meta))
	if err != nil {
		return fmt.Errorf("insert audit_log: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*audit.Entry, error) {
	e, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+auditCols+` FROM audit_log WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("audit log %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return e, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*audit.Entry, int, error) {
	qb := db.NewSearchQuery(db.Postgres, "audit_log", auditCols)
	applyFilter(qb, f, func(id uuid.UUID) interface{} { return id })

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
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

func applyFilter(qb *db.SearchQuery, f Filter, uuidArg func(uuid.UUID) interface{}) {
	if f.TableName != "" {
		qb.Eq("table_name", f.TableName)
	}
	if f.Operation != "" {
		qb.Eq("operation", string(f.Operation))
	}
	if f.RecordID != nil {
		qb.Eq("record_id", uuidArg(*f.RecordID))
	}
	if f.UserID != "" {
		qb.Eq("user_id", f.UserID)
	}
	qb.OrderBy("changed_at DESC, id DESC")
}
