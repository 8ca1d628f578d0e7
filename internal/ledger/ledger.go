// Package ledger keeps an explicit per-item processing record so re-runs
// skip items that already reached a terminal outcome, instead of relying
// on folder-listing semantics alone.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// ProcessedItem is one terminal outcome for one source item.
type ProcessedItem struct {
	ID          uint   `gorm:"primaryKey"`
	ItemID      string `gorm:"uniqueIndex;size:256"`
	Name        string
	Outcome     string // SUCCESS | FAILED
	ResultRef   string // new collection id on success, empty on failure
	ProcessedAt time.Time
}

type Ledger struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ProcessedItem{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Seen reports whether itemID already has a terminal outcome.
func (l *Ledger) Seen(ctx context.Context, itemID string) (string, bool, error) {
	var item ProcessedItem
	err := l.db.WithContext(ctx).Where("item_id = ?", itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger lookup %s: %w", itemID, err)
	}
	return item.Outcome, true, nil
}

// Record stores the terminal outcome for itemID. Recording the same item
// twice keeps the first entry.
func (l *Ledger) Record(ctx context.Context, itemID, name, outcome, resultRef string) error {
	item := ProcessedItem{
		ItemID:      itemID,
		Name:        name,
		Outcome:     outcome,
		ResultRef:   resultRef,
		ProcessedAt: time.Now(),
	}
	err := l.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		FirstOrCreate(&item).Error
	if err != nil {
		return fmt.Errorf("ledger record %s: %w", itemID, err)
	}
	return nil
}
