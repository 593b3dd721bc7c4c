package codesystem

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

const csCols = `id, external_id, url, version, name, title, status, publisher, content,
	meta, resource, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*CodeSystem, error) {
	var cs CodeSystem
	var meta, resource []byte
	err := row.Scan(&cs.ID, &cs.ExternalID, &cs.URL, &cs.Version, &cs.Name, &cs.Title,
		&cs.Status, &cs.Publisher, &cs.Content, &meta, &resource, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cs.Meta, cs.Resource = meta, resource
	return &cs, nil
}

func (r *repoPG) getOne(ctx context.Context, what string, where string, arg interface{}) (*CodeSystem, error) {
	cs, err := r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+csCols+` FROM codesystem WHERE `+where+` ORDER BY created_at, id LIMIT 1`, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("codesystem %s", what)
	}
	if err != nil {
		return nil, fmt.Errorf("get codesystem: %w", err)
	}
	return cs, nil
}

func (r *repoPG) Create(ctx context.Context, cs *CodeSystem) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO codesystem (id, external_id, url, version, name, title, status, publisher,
			content, meta, resource)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		cs.ID, cs.ExternalID, cs.URL, cs.Version, cs.Name, cs.Title, cs.Status, cs.Publisher,
		cs.Content, db.JSONBytes(cs.Meta), db.JSONBytes(cs.Resource),
	).Scan(&cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert codesystem: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*CodeSystem, error) {
	return r.getOne(ctx, id.String(), "id = $1", id)
}

func (r *repoPG) GetByURL(ctx context.Context, url string) (*CodeSystem, error) {
	return r.getOne(ctx, "url "+url, "url = $1", url)
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*CodeSystem, error) {
	return r.getOne(ctx, "name "+name, "name = $1", name)
}

func (r *repoPG) Update(ctx context.Context, cs *CodeSystem) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE codesystem SET external_id=$2, url=$3, version=$4, name=$5, title=$6, status=$7,
			publisher=$8, content=$9, meta=$10, resource=$11, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		cs.ID, cs.ExternalID, cs.URL, cs.Version, cs.Name, cs.Title, cs.Status,
		cs.Publisher, cs.Content, db.JSONBytes(cs.Meta), db.JSONBytes(cs.Resource),
	).Scan(&cs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("codesystem %s", cs.ID)
	}
	if err != nil {
		return fmt.Errorf("update codesystem: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM codesystem WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete codesystem: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("codesystem %s", id)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*CodeSystem, int, error) {
	qb := db.NewSearchQuery(db.Postgres, "codesystem", csCols)
	qb.Contains(f.Search, "name", "title", "url")
	qb.OrderBy("created_at, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count codesystems: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list codesystems: %w", err)
	}
	defer rows.Close()
	var items []*CodeSystem
	for rows.Next() {
		cs, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cs)
	}
	return items, total, rows.Err()
}
