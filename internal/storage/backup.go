package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BackupManager creates and restores snapshots of the collection
// database.
type BackupManager struct {
	dbPath string
}

// NewBackupManager creates a backup manager for the database at dbPath.
func NewBackupManager(dbPath string) *BackupManager {
	return &BackupManager{dbPath: dbPath}
}

// BackupInfo describes one backup file.
type BackupInfo struct {
	Path     string
	Name     string
	Size     int64
	ModTime  time.Time
	Checksum string
}

// Backup snapshots the database into dir (defaulting to a "backups"
// directory next to the database) and returns the backup path. VACUUM
// INTO produces a consistent copy without taking an exclusive lock.
func (bm *BackupManager) Backup(dir string) (string, error) {
	if dir == "" {
		dir = bm.DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405"))
	backupPath := filepath.Join(dir, name)

	source, err := sql.Open("sqlite", bm.dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source database: %w", err)
	}
	defer func() { _ = source.Close() }()

	if _, err := source.Exec(fmt.Sprintf("VACUUM INTO %q", backupPath)); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}

	if err := bm.Verify(backupPath); err != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("backup verification failed: %w", err)
	}
	return backupPath, nil
}

// Restore replaces the current database with the given backup. The
// previous database file is kept next to it with an .old suffix. The
// caller must have closed all connections first.
func (bm *BackupManager) Restore(backupPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := bm.Verify(backupPath); err != nil {
		return fmt.Errorf("backup verification failed: %w", err)
	}

	tempPath := bm.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return err
	}

	if _, err := os.Stat(bm.dbPath); err == nil {
		oldPath := bm.dbPath + ".old." + time.Now().Format("20060102_150405")
		if err := os.Rename(bm.dbPath, oldPath); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to set aside current database: %w", err)
		}
	}

	if err := os.Rename(tempPath, bm.dbPath); err != nil {
		return fmt.Errorf("failed to move backup into place: %w", err)
	}
	return nil
}

// Verify checks that the file at path is a readable SQLite database.
func (bm *BackupManager) Verify(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup as database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query backup database: %w", err)
	}
	return nil
}

// List returns every backup file in dir with its SHA-256 checksum,
// defaulting to the standard backup directory.
func (bm *BackupManager) List(dir string) ([]BackupInfo, error) {
	if dir == "" {
		dir = bm.DefaultDir()
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		checksum, err := fileChecksum(path)
		if err != nil {
			checksum = "unknown"
		}
		backups = append(backups, BackupInfo{
			Path:     path,
			Name:     entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Checksum: checksum,
		})
	}
	return backups, nil
}

// DefaultDir returns the standard backup directory next to the
// database file.
func (bm *BackupManager) DefaultDir() string {
	return filepath.Join(filepath.Dir(bm.dbPath), "backups")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// fileChecksum returns the hex SHA-256 digest of the file at path.
func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
