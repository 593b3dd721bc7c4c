package conceptmap

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

const cmCols = `id, source_codesystem_id, target_codesystem_id, source_code, target_code,
	equivalence, metadata, created_at, updated_at`

func (r *repoPG) scanRow(row pgx.Row) (*ConceptMap, error) {
	var m ConceptMap
	var meta []byte
	err := row.Scan(&m.ID, &m.SourceCodeSystemID, &m.TargetCodeSystemID, &m.SourceCode, &m.TargetCode,
		&m.Equivalence, &meta, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Metadata = meta
	return &m, nil
}

func (r *repoPG) collect(rows pgx.Rows) ([]*ConceptMap, error) {
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

func (r *repoPG) Create(ctx context.Context, m *ConceptMap) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO conceptmap (id, source_codesystem_id, target_codesystem_id, source_code,
			target_code, equivalence, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		m.ID, m.SourceCodeSystemID, m.TargetCodeSystemID, m.SourceCode, m.TargetCode,
		m.Equivalence, db.JSONBytes(m.Metadata),
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert conceptmap: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ConceptMap, error) {
	m, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `SELECT `+cmCols+` FROM conceptmap WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("conceptmap %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get conceptmap: %w", err)
	}
	return m, nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*ConceptMap, int, error) {
	qb := db.NewSearchQuery(db.Postgres, "conceptmap", cmCols)
	if f.SourceCodeSystemID != nil {
		qb.Eq("source_codesystem_id", *f.SourceCodeSystemID)
	}
	if f.TargetCodeSystemID != nil {
		qb.Eq("target_codesystem_id", *f.TargetCodeSystemID)
	}
	qb.Contains(f.Search, "equivalence")
	qb.OrderBy("created_at, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conceptmaps: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conceptmaps: %w", err)
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) Update(ctx context.Context, m *ConceptMap) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE conceptmap SET source_codesystem_id=$2, target_codesystem_id=$3, source_code=$4,
			target_code=$5, equivalence=$6, metadata=$7, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.SourceCodeSystemID, m.TargetCodeSystemID, m.SourceCode, m.TargetCode,
		m.Equivalence, db.JSONBytes(m.Metadata),
	).Scan(&m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("conceptmap %s", m.ID)
	}
	if err != nil {
		return fmt.Errorf("update conceptmap: %w", err)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM conceptmap WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conceptmap: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("conceptmap %s", id)
	}
	return nil
}

func (r *repoPG) FindByConceptIDs(ctx context.Context, ids []uuid.UUID) ([]*ConceptMap, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cmCols+` FROM conceptmap
		WHERE source_code = ANY($1::uuid[]) OR target_code = ANY($1::uuid[])
		ORDER BY created_at, id`, keys)
	if err != nil {
		return nil, fmt.Errorf("find conceptmaps by concept: %w", err)
	}
	return r.collect(rows)
}

func (r *repoPG) FindTranslation(ctx context.Context, sourceCS, targetCS, sourceCode uuid.UUID) (*ConceptMap, error) {
	m, err := r.scanRow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+cmCols+` FROM conceptmap
		WHERE source_codesystem_id = $1 AND target_codesystem_id = $2 AND source_code = $3
		ORDER BY created_at, id LIMIT 1`, sourceCS, targetCS, sourceCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("conceptmap for %s", sourceCode)
	}
	if err != nil {
		return nil, fmt.Errorf("find translation: %w", err)
	}
	return m, nil
}
