package baseline

import "time"

// FileRecord is the durable per-file baseline entry: one row per protected
// file plus its ordered block-hash vector.
type FileRecord struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	FilePath    string    `gorm:"uniqueIndex;not null;size:4096" json:"file_path"`
	FileSize    int64     `gorm:"not null" json:"file_size"`
	BlockSize   int64     `gorm:"not null" json:"block_size"`
	BlocksCount int       `gorm:"not null" json:"blocks_count"`
	IsTrusted   bool      `gorm:"not null;default:true" json:"is_trusted"`
	BackupPath  string    `gorm:"size:4096" json:"backup_path,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	BlockHashes []BlockHash `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for FileRecord.
func (FileRecord) TableName() string { return "files" }

// HashVector returns the block hashes in block-index order.
func (r FileRecord) HashVector() []string {
	vector := make([]string, len(r.BlockHashes))
	for _, bh := range r.BlockHashes {
		if bh.BlockIndex >= 0 && bh.BlockIndex < len(vector) {
			vector[bh.BlockIndex] = bh.HashValue
		}
	}
	return vector
}

// BlockHash is one (file, block_index) -> hex-encoded SHA-256 digest row.
type BlockHash struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	FileID     uint   `gorm:"not null;uniqueIndex:idx_file_block" json:"-"`
	BlockIndex int    `gorm:"not null;uniqueIndex:idx_file_block" json:"block_index"`
	HashValue  string `gorm:"not null;size:64" json:"hash_value"`
}

// TableName returns the table name for BlockHash.
func (BlockHash) TableName() string { return "block_hashes" }

// QuarantineEntry is the sidecar record mapping a quarantine ID back to the
// file's original path, so restore_from_quarantine doesn't require the
// caller to remember it (spec.md §4.4 leaves this bookkeeping unspecified).
type QuarantineEntry struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	OriginalPath   string    `gorm:"not null;size:4096" json:"original_path"`
	QuarantinePath string    `gorm:"not null;size:4096" json:"quarantine_path"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for QuarantineEntry.
func (QuarantineEntry) TableName() string { return "quarantine" }

// Stats is the aggregate snapshot returned by Store.Statistics().
type Stats struct {
	Total       int
	Trusted     int
	TotalBytes  int64
	TotalBlocks int
	StoreBytes  int64
}

// AllModels lists every model AutoMigrate must create tables for.
func AllModels() []any {
	return []any{&FileRecord{}, &BlockHash{}, &QuarantineEntry{}}
}
