package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"xparking/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "source.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.SyncSlots(context.Background(), []string{"A1"}))
	require.NoError(t, db.Close())

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, config.BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// The backup must be a readable database with the same slots.
	restored, err := NewDB(filepath.Join(backupDir, files[0].Name()), &logger)
	require.NoError(t, err)
	defer restored.Close()

	slots, err := restored.ListSlots(context.Background())
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestCleanupOldBackups(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	dir := t.TempDir()

	old := filepath.Join(dir, "backup_old.db")
	require.NoError(t, os.WriteFile(old, []byte("stale"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))

	fresh := filepath.Join(dir, "backup_fresh.db")
	require.NoError(t, os.WriteFile(fresh, []byte("fresh"), 0o644))

	svc := NewBackupService("", config.BackupConfig{RetentionDays: 7, StoragePath: dir}, &logger)
	svc.CleanupOldBackups()

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
