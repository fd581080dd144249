package repository

import (
	"context"
	"testing"

	"golang-stock-advisor/internal/batch/dto"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newWriterTestRepo(t *testing.T) (BatchWriterRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewBatchWriterRepository(gdb, "test"), mock
}

func statementsPayload(fetched bool) *dto.StockPayload {
	return &dto.StockPayload{
		Code:    "7203",
		Listing: dto.ListingInfo{Code: "7203", Name: "Toyota"},
		Statements: []dto.Record{
			{"DisclosedDate": "2025-03-31", "NetSales": 1000.0, "NetIncome": 100.0},
		},
		StatementsFetched: fetched,
	}
}

func TestPersistPayloadKeepsExistingStatementsFromFallback(t *testing.T) {
	repo, mock := newWriterTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "stocks"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "statements" WHERE code = \$1`).
		WithArgs("7203").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// No statements insert: the stored row stays intact.
	mock.ExpectCommit()

	maxPublished, err := repo.PersistPayload(context.Background(), 1, statementsPayload(false))
	require.NoError(t, err)
	assert.Nil(t, maxPublished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistPayloadOverwritesWithFreshlyFetchedStatements(t *testing.T) {
	repo, mock := newWriterTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "stocks"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "statements" .*ON CONFLICT .*DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.PersistPayload(context.Background(), 1, statementsPayload(true))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistPayloadWritesFallbackStatementsWhenNoneStored(t *testing.T) {
	repo, mock := newWriterTestRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "stocks"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "statements" WHERE code = \$1`).
		WithArgs("7203").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO "statements"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.PersistPayload(context.Background(), 1, statementsPayload(false))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
