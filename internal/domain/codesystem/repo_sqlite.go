package codesystem

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

// NewRepoSQLite returns a Repository over a database opened with
// db.OpenSQLite.
func NewRepoSQLite(sqlDB *sql.DB) Repository {
	return &repoSQLite{db: sqlDB}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *repoSQLite) scanRow(row scanner) (*CodeSystem, error) {
	var cs CodeSystem
	var id, created, updated string
	var meta, resource sql.NullString
	err := row.Scan(&id, &cs.ExternalID, &cs.URL, &cs.Version, &cs.Name, &cs.Title,
		&cs.Status, &cs.Publisher, &cs.Content, &meta, &resource, &created, &updated)
	if err != nil {
		return nil, err
	}
	if cs.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("codesystem id: %w", err)
	}
	if cs.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	if cs.UpdatedAt, err = db.ParseTime(updated); err != nil {
		return nil, err
	}
	cs.Meta, cs.Resource = db.RawJSON(meta), db.RawJSON(resource)
	return &cs, nil
}

func (r *repoSQLite) getOne(ctx context.Context, what, where string, arg interface{}) (*CodeSystem, error) {
	cs, err := r.scanRow(r.db.QueryRowContext(ctx,
		`SELECT `+csCols+` FROM codesystem WHERE `+where+` ORDER BY created_at, id LIMIT 1`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("codesystem %s", what)
	}
	if err != nil {
		return nil, fmt.Errorf("get codesystem: %w", err)
	}
	return cs, nil
}

func (r *repoSQLite) Create(ctx context.Context, cs *CodeSystem) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO codesystem (id, external_id, url, version, name, title, status, publisher,
			content, meta, resource, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		cs.ID.String(), cs.ExternalID, cs.URL, cs.Version, cs.Name, cs.Title, cs.Status,
		cs.Publisher, cs.Content, db.JSONText(cs.Meta), db.JSONText(cs.Resource),
		db.FormatTime(now), db.FormatTime(now))
	if err != nil {
		return fmt.Errorf("insert codesystem: %w", err)
	}
	cs.CreatedAt, cs.UpdatedAt = now, now
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*CodeSystem, error) {
	return r.getOne(ctx, id.String(), "id = ?", id.String())
}

func (r *repoSQLite) GetByURL(ctx context.Context, url string) (*CodeSystem, error) {
	return r.getOne(ctx, "url "+url, "url = ?", url)
}

func (r *repoSQLite) GetByName(ctx context.Context, name string) (*CodeSystem, error) {
	return r.getOne(ctx, "name "+name, "name = ?", name)
}

func (r *repoSQLite) Update(ctx context.Context, cs *CodeSystem) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE codesystem SET external_id=?, url=?, version=?, name=?, title=?, status=?,
			publisher=?, content=?, meta=?, resource=?, updated_at=?
		WHERE id = ?`,
		cs.ExternalID, cs.URL, cs.Version, cs.Name, cs.Title, cs.Status, cs.Publisher,
		cs.Content, db.JSONText(cs.Meta), db.JSONText(cs.Resource), db.FormatTime(now),
		cs.ID.String())
	if err != nil {
		return fmt.Errorf("update codesystem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("codesystem %s", cs.ID)
	}
	cs.UpdatedAt = now
	return nil
}

func (r *repoSQLite) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM codesystem WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete codesystem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("codesystem %s", id)
	}
	return nil
}

func (r *repoSQLite) List(ctx context.Context, f Filter, limit, offset int) ([]*CodeSystem, int, error) {
	qb := db.NewSearchQuery(db.SQLite, "codesystem", csCols)
	qb.Contains(f.Search, "name", "title", "url")
	qb.OrderBy("created_at, id")

	var total int
	if err := r.db.QueryRowContext(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count codesystems: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
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
