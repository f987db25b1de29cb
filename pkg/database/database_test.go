package database

import (
	"testing"
	"time"

	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseBusyTimeout:       time.Second,
		DatabaseConnectRetryCount: 1,
		DatabaseFilePath:          ":memory:",
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	db, err := New(testConfig())
	require.NoError(t, err)
	defer db.Close()

	var journalMode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	// In-memory databases report "memory"; file-backed ones report "wal".
	assert.Contains(t, []string{"memory", "wal"}, journalMode)
}

func TestNewDebug(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DatabaseDebug = true

	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	// Every query goes through the debug hook's AfterQuery.
	_, err = db.Exec("SELECT 1")
	require.NoError(t, err)
}
