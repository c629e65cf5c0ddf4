package infra

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/amirasaad/awgen/infra/repository/settings"
	"github.com/amirasaad/awgen/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestNewDBConnection_SettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project", "game.awgen")
	db, err := NewDBConnection(&config.DB{}, path)
	require.NoError(t, err)
	require.NoError(t, settings.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	store := settings.New(db)
	ctx := context.Background()

	v := "dark"
	require.NoError(t, store.SetSetting(ctx, "theme", &v))
	v = "light"
	require.NoError(t, store.SetSetting(ctx, "theme", &v))

	got, err := store.GetSetting(ctx, "theme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "light", *got)

	require.NoError(t, store.SetSetting(ctx, "theme", nil))
	got, err = store.GetSetting(ctx, "theme")
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewDBConnection_EmptyPath(t *testing.T) {
	_, err := NewDBConnection(nil, " ")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, logLevel(nil))
	assert.Equal(t, logger.Info, logLevel(&config.DB{LogLevel: "INFO"}))
	assert.Equal(t, logger.Warn, logLevel(&config.DB{LogLevel: "warn"}))
	assert.Equal(t, logger.Silent, logLevel(&config.DB{LogLevel: "bogus"}))
}
