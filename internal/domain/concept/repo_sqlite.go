package concept

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

type repoSQLite struct{ db *sql.DB }

func NewRepoSQLite(sqlDB *sql.DB) Repository {
	return &repoSQLite{db: sqlDB}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *repoSQLite) scanRow(row scanner) (*Concept, error) {
	var c Concept
	var id, csID, created, updated string
	var props, raw sql.NullString
	err := row.Scan(&id, &csID, &c.Code, &c.Display, &c.Definition, &props, &raw, &created, &updated)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("concept id: %w", err)
	}
	if c.CodeSystemID, err = uuid.Parse(csID); err != nil {
		return nil, fmt.Errorf("concept %s codesystem_id: %w", id, err)
	}
	if c.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = db.ParseTime(updated); err != nil {
		return nil, err
	}
	if c.Properties, err = decodeProperties(db.RawJSON(props)); err != nil {
		return nil, fmt.Errorf("concept %s properties: %w", id, err)
	}
	c.Raw = db.RawJSON(raw)
	return &c, nil
}

func (r *repoSQLite) collect(rows *sql.Rows) ([]*Concept, error) {
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

func (r *repoSQLite) Create(ctx context.Context, c *Concept) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	props, err := encodeProperties(c.Properties)
	if err != nil {
		return apperr.Validation("properties", "%v", err)
	}
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO concept (id, codesystem_id, code, display, definition, properties, raw,
			created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID.String(), c.CodeSystemID.String(), c.Code, c.Display, c.Definition,
		db.JSONText(props), db.JSONText(c.Raw), db.FormatTime(now), db.FormatTime(now))
	if err != nil {
		return fmt.Errorf("insert concept: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*Concept, error) {
	c, err := r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+conceptCols+` FROM concept WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("concept %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return c, nil
}

func (r *repoSQLite) GetByCode(ctx context.Context, codeSystemID uuid.UUID, code string) (*Concept, error) {
	c, err := r.scanRow(r.db.QueryRowContext(ctx, `
		SELECT `+conceptCols+` FROM concept
		WHERE codesystem_id = ? AND code = ?
		ORDER BY created_at, id LIMIT 1`, codeSystemID.String(), code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("concept %s in codesystem %s", code, codeSystemID)
	}
	if err != nil {
		return nil, fmt.Errorf("get concept by code: %w", err)
	}
	return c, nil
}

func (r *repoSQLite) List(ctx context.Context, f Filter, limit, offset int) ([]*Concept, int, error) {
	qb := db.NewSearchQuery(db.SQLite, "concept", conceptCols)
	if f.CodeSystemID != nil {
		qb.Eq("codesystem_id", f.CodeSystemID.String())
	}
	qb.Contains(f.Search, "code", "display", "definition")
	qb.OrderBy("created_at, id")

	var total int
	if err := r.db.QueryRowContext(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count concepts: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list concepts: %w", err)
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoSQLite) ListByCodeSystem(ctx context.Context, codeSystemID uuid.UUID) ([]*Concept, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conceptCols+` FROM concept WHERE codesystem_id = ? ORDER BY created_at, id`,
		codeSystemID.String())
	if err != nil {
		return nil, fmt.Errorf("list concepts by codesystem: %w", err)
	}
	return r.collect(rows)
}

func (r *repoSQLite) Update(ctx context.Context, c *Concept) error {
	props, err := encodeProperties(c.Properties)
	if err != nil {
		return apperr.Validation("properties", "%v", err)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE concept SET codesystem_id=?, code=?, display=?, definition=?, properties=?,
			raw=?, updated_at=?
		WHERE id = ?`,
		c.CodeSystemID.String(), c.Code, c.Display, c.Definition, db.JSONText(props),
		db.JSONText(c.Raw), db.FormatTime(now), c.ID.String())
	if err != nil {
		return fmt.Errorf("update concept: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("concept %s", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func (r *repoSQLite) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM concept WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete concept: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("concept %s", id)
	}
	return nil
}
