package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "calc")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "artycalc")

	assert.Equal(t,
		"host=db.internal port=5433 user=calc password=secret dbname=artycalc sslmode=disable",
		PostgresDSN())
}

func TestConnectSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.db")
	m := NewManager(zerolog.Nop(), path)

	require.NoError(t, m.ConnectSQLite())
	t.Cleanup(func() { m.Close() })

	assert.True(t, m.Ready())
	assert.True(t, m.Fallback())
	assert.Equal(t, DriverSQLite, m.Driver)
	assert.FileExists(t, path)

	var mode string
	require.NoError(t, m.DB.Raw("PRAGMA journal_mode;").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)
}

func TestConnect_FallsBackToSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	// nothing listens on port 1, so the ping fails fast
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	m := NewManager(zerolog.Nop(), "")
	require.NoError(t, m.Connect())
	t.Cleanup(func() { m.Close() })

	assert.True(t, m.Fallback())
}

func TestClose(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.NoError(t, m.Close(), "closing an unopened manager is a no-op")

	require.NoError(t, m.ConnectSQLite())
	require.NoError(t, m.Close())
	assert.False(t, m.Ready())
	assert.NoError(t, m.Close())
}
