package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLiteStore(t *testing.T) *GormStore {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestGormStore_ContractSQLite(t *testing.T) {
	runStoreContract(t, setupSQLiteStore(t))
}

func TestGormStore_ReplaceConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewGormStore(db)

	post := newTestPost("p1")
	post.Version = 3

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE id = $1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := s.Replace(context.Background(), post)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, uint64(3), post.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReplaceMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewGormStore(db)

	post := newTestPost("gone")
	post.Version = 1

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	assert.ErrorIs(t, s.Replace(context.Background(), post), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReplaceAdvancesVersion(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewGormStore(db)

	post := newTestPost("p1")
	post.Version = 7

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Replace(context.Background(), post))
	assert.Equal(t, uint64(8), post.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewGormStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`)).
		WithArgs("nope", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "body"}))

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
