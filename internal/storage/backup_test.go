package storage

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestDatabase creates a migrated database file with one set row.
func newTestDatabase(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "collection.db")
	config := DefaultConfig(dbPath)
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Conn().Exec(`INSERT INTO sets (key, name) VALUES ('A1', 'Genetic Apex')`); err != nil {
		t.Fatalf("failed to insert row: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("failed to close database: %v", err)
	}
	return dbPath
}

func TestBackupManager_Backup(t *testing.T) {
	dbPath := newTestDatabase(t)
	bm := NewBackupManager(dbPath)

	backupPath, err := bm.Backup("")
	if err != nil {
		t.Fatalf("failed to back up: %v", err)
	}
	if filepath.Dir(backupPath) != bm.DefaultDir() {
		t.Errorf("expected backup in %s, got %s", bm.DefaultDir(), backupPath)
	}
	if err := bm.Verify(backupPath); err != nil {
		t.Errorf("backup failed verification: %v", err)
	}
}

func TestBackupManager_List(t *testing.T) {
	dbPath := newTestDatabase(t)
	bm := NewBackupManager(dbPath)

	// Empty before the first backup.
	backups, err := bm.List("")
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}

	if _, err := bm.Backup(""); err != nil {
		t.Fatalf("failed to back up: %v", err)
	}

	backups, err = bm.List("")
	if err != nil {
		t.Fatalf("failed to list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
	if backups[0].Size == 0 {
		t.Error("expected a non-empty backup file")
	}
	if len(backups[0].Checksum) != 64 {
		t.Errorf("expected a SHA-256 hex checksum, got %q", backups[0].Checksum)
	}
}

func TestBackupManager_Restore(t *testing.T) {
	dbPath := newTestDatabase(t)
	bm := NewBackupManager(dbPath)

	backupPath, err := bm.Backup("")
	if err != nil {
		t.Fatalf("failed to back up: %v", err)
	}

	// Damage the live database, then restore.
	if err := os.WriteFile(dbPath, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("failed to overwrite database: %v", err)
	}
	if err := bm.Restore(backupPath); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}

	db, err := Open(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("failed to open restored database: %v", err)
	}
	defer func() { _ = db.Close() }()

	var name string
	if err := db.Conn().QueryRow(`SELECT name FROM sets WHERE key = 'A1'`).Scan(&name); err != nil {
		t.Fatalf("failed to query restored database: %v", err)
	}
	if name != "Genetic Apex" {
		t.Errorf("expected restored row, got %q", name)
	}
}

func TestBackupManager_RestoreMissingFile(t *testing.T) {
	bm := NewBackupManager(newTestDatabase(t))
	if err := bm.Restore(filepath.Join(t.TempDir(), "absent.db")); err == nil {
		t.Error("expected an error for a missing backup file")
	}
}
