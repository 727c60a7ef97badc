// Package baseline is the durable file_path -> FileRecord mapping: the
// trusted reference block-hash vectors the Integrity Engine verifies
// against and the Recovery Engine restores from.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the embedded relational Baseline Store: GORM over a single-file
// SQLite database, one writer lock serializing every mutation (spec.md §5
// "Baseline Store writes are transactional").
type Store struct {
	db   *gorm.DB
	path string
}

// Open creates or opens the baseline database at path, applying the
// directory (0700) and file (0600) permissions spec.md §4.1 requires, and
// runs AutoMigrate for every model.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("baseline: create storage dir: %w", err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return nil, fmt.Errorf("baseline: chmod storage dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("baseline: open database: %w", err)
	}

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("baseline: migrate schema: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		return nil, fmt.Errorf("baseline: chmod database file: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AddOrReplace upserts a file's metadata and atomically replaces its full
// block-hash vector in a single transaction. A concurrent unique-constraint
// violation on insert is retried once before failing.
func (s *Store) AddOrReplace(ctx context.Context, path string, fileSize, blockSize int64, hashes []string, backupPath string) error {
	record := FileRecord{
		FilePath:    path,
		FileSize:    fileSize,
		BlockSize:   blockSize,
		BlocksCount: len(hashes),
		IsTrusted:   true,
		BackupPath:  backupPath,
	}

	attempt := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing FileRecord
			err := tx.Where("file_path = ?", path).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				record.ID = existing.ID
				record.CreatedAt = existing.CreatedAt
				record.UpdatedAt = time.Now()
				if err := tx.Model(&FileRecord{}).Where("id = ?", existing.ID).Updates(map[string]any{
					"file_size":    record.FileSize,
					"block_size":   record.BlockSize,
					"blocks_count": record.BlocksCount,
					"is_trusted":   record.IsTrusted,
					"backup_path":  record.BackupPath,
					"updated_at":   record.UpdatedAt,
				}).Error; err != nil {
					return err
				}
				if err := tx.Where("file_id = ?", existing.ID).Delete(&BlockHash{}).Error; err != nil {
					return err
				}
			}

			if len(hashes) == 0 {
				return nil
			}
			rows := make([]BlockHash, len(hashes))
			for i, h := range hashes {
				rows[i] = BlockHash{FileID: record.ID, BlockIndex: i, HashValue: h}
			}
			return tx.Create(&rows).Error
		})
	}

	if err := attempt(); err != nil {
		if isUniqueConstraintError(err) {
			if err := attempt(); err != nil {
				return fmt.Errorf("baseline: add_or_replace failed after retry: %w", err)
			}
			return nil
		}
		return fmt.Errorf("baseline: add_or_replace: %w", err)
	}
	return nil
}

// Get returns a consistent snapshot of the record at path, including hashes
// in block-index order, or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (*FileRecord, error) {
	var record FileRecord
	err := s.db.WithContext(ctx).
		Preload("BlockHashes", func(db *gorm.DB) *gorm.DB {
			return db.Order("block_index ASC")
		}).
		Where("file_path = ?", path).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("baseline: get: %w", err)
	}
	return &record, nil
}

// Update replaces an existing record's hash vector, size, and backup
// pointer atomically, preserving created_at. Fails with ErrNotFound if the
// path has no record.
func (s *Store) Update(ctx context.Context, path string, newSize int64, newHashes []string, newBackup string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing FileRecord
		if err := tx.Where("file_path = ?", path).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]any{
			"file_size":    newSize,
			"blocks_count": len(newHashes),
			"updated_at":   time.Now(),
		}
		if newBackup != "" {
			updates["backup_path"] = newBackup
		}
		if err := tx.Model(&FileRecord{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("file_id = ?", existing.ID).Delete(&BlockHash{}).Error; err != nil {
			return err
		}
		if len(newHashes) == 0 {
			return nil
		}
		rows := make([]BlockHash, len(newHashes))
		for i, h := range newHashes {
			rows[i] = BlockHash{FileID: existing.ID, BlockIndex: i, HashValue: h}
		}
		return tx.Create(&rows).Error
	})
}

// Remove deletes the record at path, cascading to its block hashes.
// Returns false if no record existed.
func (s *Store) Remove(ctx context.Context, path string) (bool, error) {
	result := s.db.WithContext(ctx).Where("file_path = ?", path).Delete(&FileRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("baseline: remove: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Exists reports whether path has a baseline record.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FileRecord{}).Where("file_path = ?", path).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("baseline: exists: %w", err)
	}
	return count > 0, nil
}

// ListPaths returns every protected file path.
func (s *Store) ListPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Model(&FileRecord{}).Pluck("file_path", &paths).Error
	if err != nil {
		return nil, fmt.Errorf("baseline: list_paths: %w", err)
	}
	return paths, nil
}

// List returns every protected file's baseline record, excluding block
// hashes (use Get for a single file's full hash vector).
func (s *Store) List(ctx context.Context) ([]FileRecord, error) {
	var records []FileRecord
	err := s.db.WithContext(ctx).Order("file_path").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("baseline: list: %w", err)
	}
	return records, nil
}

// Count returns the number of protected files.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&FileRecord{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("baseline: count: %w", err)
	}
	return count, nil
}

// SetTrust flips a record's is_trusted flag.
func (s *Store) SetTrust(ctx context.Context, path string, trusted bool) error {
	result := s.db.WithContext(ctx).Model(&FileRecord{}).Where("file_path = ?", path).Update("is_trusted", trusted)
	if result.Error != nil {
		return fmt.Errorf("baseline: set_trust: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Statistics aggregates store-wide counters.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	var stats Stats
	var total, trusted int64
	var totalBytes int64
	var totalBlocks int64

	db := s.db.WithContext(ctx)
	if err := db.Model(&FileRecord{}).Count(&total).Error; err != nil {
		return stats, fmt.Errorf("baseline: statistics: %w", err)
	}
	if err := db.Model(&FileRecord{}).Where("is_trusted = ?", true).Count(&trusted).Error; err != nil {
		return stats, fmt.Errorf("baseline: statistics: %w", err)
	}
	if err := db.Model(&FileRecord{}).Select("COALESCE(SUM(file_size), 0)").Scan(&totalBytes).Error; err != nil {
		return stats, fmt.Errorf("baseline: statistics: %w", err)
	}
	if err := db.Model(&FileRecord{}).Select("COALESCE(SUM(blocks_count), 0)").Scan(&totalBlocks).Error; err != nil {
		return stats, fmt.Errorf("baseline: statistics: %w", err)
	}

	storeBytes := int64(0)
	if info, err := os.Stat(s.path); err == nil {
		storeBytes = info.Size()
	}

	stats.Total = int(total)
	stats.Trusted = int(trusted)
	stats.TotalBytes = totalBytes
	stats.TotalBlocks = int(totalBlocks)
	stats.StoreBytes = storeBytes
	return stats, nil
}

// VerifySelfIntegrity performs a structural consistency check: every
// record's blocks_count must equal its stored hash-vector length. Returns
// (true, "") when clean, or (false, message) describing the first violation.
func (s *Store) VerifySelfIntegrity(ctx context.Context) (bool, string) {
	var records []FileRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return false, fmt.Sprintf("failed to scan records: %v", err)
	}

	for _, r := range records {
		var count int64
		if err := s.db.WithContext(ctx).Model(&BlockHash{}).Where("file_id = ?", r.ID).Count(&count).Error; err != nil {
			return false, fmt.Sprintf("failed to count block hashes for %q: %v", r.FilePath, err)
		}
		if int(count) != r.BlocksCount {
			return false, fmt.Sprintf("record %q: blocks_count=%d but stored hashes=%d", r.FilePath, r.BlocksCount, count)
		}
	}
	return true, ""
}

// isUniqueConstraintError reports whether err is a SQLite unique
// constraint violation, signaling a concurrent insert race.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed")
}
