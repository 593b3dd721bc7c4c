package concept

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

func openTestDB(t *testing.T) (*sql.DB, uuid.UUID) {
	t.Helper()
	sqlDB, err := db.OpenSQLite(context.Background(), "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	csID := uuid.New()
	now := db.FormatTime(time.Now())
	_, err = sqlDB.Exec(`INSERT INTO codesystem (id, name, created_at, updated_at) VALUES (?, 'NAMASTE', ?, ?)`,
		csID.String(), now, now)
	require.NoError(t, err)
	return sqlDB, csID
}

func TestRepoSQLite_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	sqlDB, csID := openTestDB(t)
	repo := NewRepoSQLite(sqlDB)

	c := &Concept{
		CodeSystemID: csID,
		Code:         "SR11",
		Display:      strPtr("Vataja Jvara"),
		Properties:   []Property{{"code": "dosha", "value": "vata"}},
		Raw:          json.RawMessage(`{"row":7}`),
	}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "SR11", got.Code)
	assert.Equal(t, csID, got.CodeSystemID)
	require.Len(t, got.Properties, 1)
	assert.Equal(t, "vata", got.Properties[0]["value"])
	assert.JSONEq(t, `{"row":7}`, string(got.Raw))
	assert.Nil(t, got.Definition)

	byCode, err := repo.GetByCode(ctx, csID, "SR11")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byCode.ID)

	_, err = repo.GetByCode(ctx, csID, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestRepoSQLite_Create_UnknownCodeSystem(t *testing.T) {
	sqlDB, _ := openTestDB(t)
	err := NewRepoSQLite(sqlDB).Create(context.Background(), &Concept{CodeSystemID: uuid.New(), Code: "X"})
	require.Error(t, err)
	assert.True(t, db.IsForeignKeyViolation(err))
}

func TestRepoSQLite_ListFilters(t *testing.T) {
	ctx := context.Background()
	sqlDB, csID := openTestDB(t)
	repo := NewRepoSQLite(sqlDB)

	for _, code := range []string{"SR11", "SR12", "AAA-1"} {
		require.NoError(t, repo.Create(ctx, &Concept{CodeSystemID: csID, Code: code}))
	}
	require.NoError(t, repo.Create(ctx, &Concept{CodeSystemID: csID, Code: "Z9", Definition: strPtr("fever of sr origin")}))

	items, total, err := repo.List(ctx, Filter{CodeSystemID: &csID, Search: "sr1"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"SR11", "SR12"}, []string{items[0].Code, items[1].Code})

	_, total, err = repo.List(ctx, Filter{Search: "origin"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	other := uuid.New()
	items, total, err = repo.List(ctx, Filter{CodeSystemID: &other}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	all, err := repo.ListByCodeSystem(ctx, csID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRepoSQLite_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	sqlDB, csID := openTestDB(t)
	repo := NewRepoSQLite(sqlDB)

	c := &Concept{CodeSystemID: csID, Code: "A", Properties: []Property{{"code": "x"}}}
	require.NoError(t, repo.Create(ctx, c))

	c.Properties = nil
	c.Display = strPtr("Alpha")
	require.NoError(t, repo.Update(ctx, c))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Properties)
	assert.Equal(t, "Alpha", *got.Display)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.True(t, apperr.IsNotFound(repo.Delete(ctx, c.ID)))
}

func TestRepoSQLite_GetByID_CorruptProperties(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	id := uuid.New()
	now := db.FormatTime(time.Now())
	mock.ExpectQuery(`SELECT .+ FROM concept WHERE id = \?`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "codesystem_id", "code", "display", "definition", "properties", "raw", "created_at", "updated_at"}).
			AddRow(id.String(), uuid.NewString(), "A", nil, nil, `{"not":"a list"}`, nil, now, now))

	_, err = NewRepoSQLite(sqlDB).GetByID(context.Background(), id)
	require.Error(t, err)
	assert.False(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
