package conceptmap

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *repoSQLite) scanRow(row scanner) (*ConceptMap, error) {
	var m ConceptMap
	var id, srcCS, tgtCS, src, tgt, created, updated string
	var meta sql.NullString
	err := row.Scan(&id, &srcCS, &tgtCS, &src, &tgt, &m.Equivalence, &meta, &created, &updated)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw string
		dst *uuid.UUID
	}{{id, &m.ID}, {srcCS, &m.SourceCodeSystemID}, {tgtCS, &m.TargetCodeSystemID}, {src, &m.SourceCode}, {tgt, &m.TargetCode}} {
		if *f.dst, err = uuid.Parse(f.raw); err != nil {
			return nil, fmt.Errorf("conceptmap %s: %w", id, err)
		}
	}
	if m.CreatedAt, err = db.ParseTime(created); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = db.ParseTime(updated); err != nil {
		return nil, err
	}
	m.Metadata = db.RawJSON(meta)
	return &m, nil
}

func (r *repoSQLite) collect(rows *sql.Rows) ([]*ConceptMap, error) {
	defer rows.Close()
	var items []*ConceptMap
	for rows.Next() {
		m, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoSQLite) Create(ctx context.Context, m *ConceptMap) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conceptmap (id, source_codesystem_id, target_codesystem_id, source_code,
			target_code, equivalence, metadata, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		m.ID.String(), m.SourceCodeSystemID.String(), m.TargetCodeSystemID.String(),
		m.SourceCode.String(), m.TargetCode.String(), m.Equivalence, db.JSONText(m.Metadata),
		db.FormatTime(now), db.FormatTime(now))
	if err != nil {
		return fmt.Errorf("insert conceptmap: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*ConceptMap, error) {
	m, err := r.scanRow(r.db.QueryRowContext(ctx, `SELECT `+cmCols+` FROM conceptmap WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("conceptmap %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get conceptmap: %w", err)
	}
	return m, nil
}

func (r *repoSQLite) List(ctx context.Context, f Filter, limit, offset int) ([]*ConceptMap, int, error) {
	qb := db.NewSearchQuery(db.SQLite, "conceptmap", cmCols)
	if f.SourceCodeSystemID != nil {
		qb.Eq("source_codesystem_id", f.SourceCodeSystemID.String())
	}
	if f.TargetCodeSystemID != nil {
		qb.Eq("target_codesystem_id", f.TargetCodeSystemID.String())
	}
	qb.Contains(f.Search, "equivalence")
	qb.OrderBy("created_at, id")

	var total int
	if err := r.db.QueryRowContext(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conceptmaps: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conceptmaps: %w", err)
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoSQLite) Update(ctx context.Context, m *ConceptMap) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE conceptmap SET source_codesystem_id=?, target_codesystem_id=?, source_code=?,
			target_code=?, equivalence=?, metadata=?, updated_at=?
		WHERE id = ?`,
		m.SourceCodeSystemID.String(), m.TargetCodeSystemID.String(), m.SourceCode.String(),
		m.TargetCode.String(), m.Equivalence, db.JSONText(m.Metadata), db.FormatTime(now),
		m.ID.String())
	if err != nil {
		return fmt.Errorf("update conceptmap: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("conceptmap %s", m.ID)
	}
	m.UpdatedAt = now
	return nil
}

func (r *repoSQLite) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conceptmap WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete conceptmap: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("conceptmap %s", id)
	}
	return nil
}

// FindByConceptIDs binds the id set as a single JSON array so the statement
// stays within SQLite's host parameter limit for any page size.
func (r *repoSQLite) FindByConceptIDs(ctx context.Context, ids []uuid.UUID) ([]*ConceptMap, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cmCols+` FROM conceptmap
		WHERE source_code IN (SELECT value FROM json_each(?1))
		   OR target_code IN (SELECT value FROM json_each(?1))
		ORDER BY created_at, id`, string(keys))
	if err != nil {
		return nil, fmt.Errorf("find conceptmaps by concept: %w", err)
	}
	return r.collect(rows)
}

func (r *repoSQLite) FindTranslation(ctx context.Context, sourceCS, targetCS, sourceCode uuid.UUID) (*ConceptMap, error) {
	m, err := r.scanRow(r.db.QueryRowContext(ctx, `
		SELECT `+cmCols+` FROM conceptmap
		WHERE source_codesystem_id = ? AND target_codesystem_id = ? AND source_code = ?
		ORDER BY created_at, id LIMIT 1`, sourceCS.String(), targetCS.String(), sourceCode.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("conceptmap for %s", sourceCode)
	}
	if err != nil {
		return nil, fmt.Errorf("find translation: %w", err)
	}
	return m, nil
}
