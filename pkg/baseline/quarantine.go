package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrQuarantineNotFound means no quarantine sidecar record exists for the
// given quarantine path.
var ErrQuarantineNotFound = errors.New("baseline: quarantine entry not found")

// RecordQuarantine persists the quarantine-ID -> original-path mapping so
// restore_from_quarantine doesn't require the caller to remember the
// original path (spec.md §4.4 leaves this bookkeeping unspecified).
func (s *Store) RecordQuarantine(ctx context.Context, originalPath, quarantinePath string) (string, error) {
	entry := QuarantineEntry{
		ID:             uuid.New().String(),
		OriginalPath:   originalPath,
		QuarantinePath: quarantinePath,
		CreatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", fmt.Errorf("baseline: record_quarantine: %w", err)
	}
	return entry.ID, nil
}

// GetQuarantineEntryByPath looks up the sidecar record for a quarantined
// file by its quarantine path.
func (s *Store) GetQuarantineEntryByPath(ctx context.Context, quarantinePath string) (*QuarantineEntry, error) {
	var entry QuarantineEntry
	err := s.db.WithContext(ctx).Where("quarantine_path = ?", quarantinePath).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuarantineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("baseline: get_quarantine_entry: %w", err)
	}
	return &entry, nil
}

// DeleteQuarantineEntry removes the sidecar record once a file has been
// restored out of quarantine.
func (s *Store) DeleteQuarantineEntry(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&QuarantineEntry{}).Error; err != nil {
		return fmt.Errorf("baseline: delete_quarantine_entry: %w", err)
	}
	return nil
}
