package concept

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const conceptCols = `id, codesystem_id, code, display, definition, properties, raw, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*Concept, error) {
	var c Concept
	var props, raw []byte
	err := row.Scan(&c.ID, &c.CodeSystemID, &c.Code, &c.Display, &c.Definition,
		&props, &raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.Properties, err = decodeProperties(props); err != nil {
		return nil, fmt.Errorf("concept %s properties: %w", c.ID, err)
	}
	c.Raw = raw
	return &c, nil
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Concept, error) {
	defer rows.Close()
	var items []*Concept
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, c *Concept) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	props, err := encodeProperties(c.Properties)
	if err != nil {
		return apperr.Validation("properties", "%v", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO concept (id, codesystem_id, code, display, definition, properties, raw)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		c.ID, c.CodeSystemID, c.Code, c.Display, c.Definition, props, db.JSONBytes(c.Raw),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert concept: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Concept, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+conceptCols+` FROM concept WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("concept %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return c, nil
}

func (r *repoPG) GetByCode(ctx context.Context, codeSystemID uuid.UUID, code string) (*Concept, error) {
	c, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+conceptCols+` FROM concept
		WHERE codesystem_id = $1 AND code = $2
		ORDER BY created_at, id LIMIT 1`, codeSystemID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("concept %s in codesystem %s", code, codeSystemID)
	}
	if err != nil {
		return nil, fmt.Errorf("get concept by code: %w", err)
	}
	return c, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Concept, int, error) {
	qb := db.NewSearchQuery(db.Postgres, "concept", conceptCols)
	if f.CodeSystemID != nil {
		qb.Eq("codesystem_id", *f.CodeSystemID)
	}
	qb.Contains(f.Search, "code", "display", "definition")
	qb.OrderBy("created_at, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count concepts: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list concepts: %w", err)
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListByCodeSystem(ctx context.Context, codeSystemID uuid.UUID) ([]*Concept, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+conceptCols+` FROM concept WHERE codesystem_id = $1 ORDER BY created_at, id`, codeSystemID)
	if err != nil {
		return nil, fmt.Errorf("list concepts by codesystem: %w", err)
	}
	return r.collect(rows)
}

func (r *repoPG) Update(ctx context.Context, c *Concept) error {
	props, err := encodeProperties(c.Properties)
	if err != nil {
		return apperr.Validation("properties", "%v", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE concept SET codesystem_id=$2, code=$3, display=$4, definition=$5,
			properties=$6, raw=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.CodeSystemID, c.Code, c.Display, c.Definition, props, db.JSONBytes(c.Raw),
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("concept %s", c.ID)
	}
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM concept WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete concept: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("concept %s", id)
	}
	return nil
}
