package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/awgen/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestSettingsRepository_GetSetting(t *testing.T) {
	db, mock := newMockDB(t)
	store := New(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "settings" WHERE (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow("theme", "dark"))

	got, err := store.GetSetting(ctx, "theme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "dark", *got)

	mock.ExpectQuery(`SELECT \* FROM "settings" WHERE (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))

	got, err = store.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectQuery(`SELECT \* FROM "settings" WHERE (.+)`).
		WillReturnError(errors.New("query error"))

	_, err = store.GetSetting(ctx, "theme")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_SetSetting(t *testing.T) {
	db, mock := newMockDB(t)
	store := New(db)
	ctx := context.Background()
	value := "dark"

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "settings" (.+) VALUES (.+) ON CONFLICT (.+) DO UPDATE SET (.+)`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetSetting(ctx, "theme", &value))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "settings" (.+) VALUES (.+)`).
		WillReturnError(errors.New("create error"))
	mock.ExpectRollback()

	assert.Error(t, store.SetSetting(ctx, "theme", &value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_ClearSetting(t *testing.T) {
	db, mock := newMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "settings" WHERE (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SetSetting(context.Background(), "theme", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_EmptyKey(t *testing.T) {
	db, _ := newMockDB(t)
	store := New(db)

	_, err := store.GetSetting(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, store.SetSetting(context.Background(), "", nil), domain.ErrValidation)
}

func TestSettingsRepository_All(t *testing.T) {
	db, mock := newMockDB(t)
	store := New(db)

	mock.ExpectQuery(`SELECT \* FROM "settings"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("theme", "dark").
			AddRow("volume", "7"))

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark", "volume": "7"}, all)
	assert.NoError(t, mock.ExpectationsWereMet())
}
