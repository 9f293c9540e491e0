package database

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"atomvideo/internal/middleware"
	"atomvideo/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestAutoMigrate_CreatesAllTables(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"users", "videos", "video_tags", "video_likes", "tags", "comments", "subscriptions", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex(&models.VideoLike{}, "idx_video_like_pair"))
	assert.True(t, db.Migrator().HasIndex(&models.Subscription{}, "idx_subscription_pair"))
}

func TestConfigurePoolAndPing(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db))
	assert.NoError(t, Ping(context.Background(), db))
}

func TestEmbeddedMigrations_Ordered(t *testing.T) {
	migs, err := EmbeddedMigrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migs), 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "init", migs[0].Name)
	for i := 1; i < len(migs); i++ {
		assert.Less(t, migs[i-1].Version, migs[i].Version)
	}
	assert.Contains(t, migs[0].UpScript, "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, migs[0].DownScript, "DROP TABLE IF EXISTS users")
}

func TestLoadMigrations_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
	}{
		{"missing down script", fstest.MapFS{
			"m/000001_a.up.sql": {Data: []byte("SELECT 1")},
		}},
		{"bad version", fstest.MapFS{
			"m/abc_a.up.sql":   {Data: []byte("SELECT 1")},
			"m/abc_a.down.sql": {Data: []byte("SELECT 1")},
		}},
		{"no name", fstest.MapFS{
			"m/000001.up.sql": {Data: []byte("SELECT 1")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.files, "m")
			assert.Error(t, err)
		})
	}
}

func sqliteMigrations(t *testing.T) []Migration {
	t.Helper()
	migs, err := LoadMigrations(fstest.MapFS{
		"m/000001_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")},
		"m/000001_widgets.down.sql": {Data: []byte("DROP TABLE widgets")},
		"m/000002_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY)")},
		"m/000002_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets")},
	}, "m")
	require.NoError(t, err)
	return migs
}

func TestMigrator_UpStatusDown(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m := NewMigrator(db, sqliteMigrations(t))

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.True(t, db.Migrator().HasTable("gadgets"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second run is a no-op")

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Applied)
	assert.True(t, status[1].Applied)

	n, err = m.Down(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.True(t, db.Migrator().HasTable("widgets"))

	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)
}

func TestMigrator_RejectsUnknownAppliedVersion(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	require.NoError(t, db.Create(&MigrationLog{Version: 99, Name: "future"}).Error)

	_, err := NewMigrator(db, sqliteMigrations(t)).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000099")
}

func TestSlogLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(middleware.NewLogger(&buf, "production"))
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record-not-found is ignored")

	l.Trace(context.Background(), time.Now(), fc, errors.New("syntax error"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Empty(t, buf.String())
}
