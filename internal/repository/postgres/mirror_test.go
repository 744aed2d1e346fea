package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intranet-lending/internal/domain"
	"intranet-lending/internal/repository/postgres"
)

func TestMirrorRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewMirrorRepository(db)
	syncedOn := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := &domain.MirrorItem{RemoteID: "17", Name: "Beamer", Pieces: 5, Price: 12.5, LastSyncedOn: syncedOn}

	mock.ExpectQuery("INSERT INTO inventory_mirror (.+) ON CONFLICT \\(remote_id\\) DO UPDATE").
		WithArgs("17", "Beamer", 5, 12.5, "", syncedOn).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(3, true))

	created, err := repo.Upsert(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int32(3), item.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorRepository_ArchiveMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewMirrorRepository(db)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE inventory_mirror SET archived = true").
		WithArgs(at, pq.Array([]string{"1", "2"})).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	archived, err := repo.ArchiveMissing(context.Background(), []string{"1", "2"}, at)
	require.NoError(t, err)
	assert.Equal(t, int64(4), archived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirrorRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewMirrorRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM inventory_mirror").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "remote_id", "name", "pieces", "price", "note", "archived", "last_synced_on", "archived_on"}).
			AddRow(1, "1", "Beamer", 2, 0.0, "", false, now, nil).
			AddRow(2, "9", "Alt", 0, 0.0, "", true, now, now))

	items, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].ArchivedOn)
	assert.NotNil(t, items[1].ArchivedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
