package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amyhong0/imweb-cancel-notification/internal/domain/watch"
	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/persistence/models"
)

// checkpointID is the fixed primary key of the single checkpoint row
const checkpointID = 1

// WatchRepository implements watch.Store on top of GORM/SQLite.
type WatchRepository struct {
	db *gorm.DB
}

// NewWatchRepository creates a new watch repository
func NewWatchRepository(database *Database) *WatchRepository {
	return &WatchRepository{db: database.DB}
}

// ListNotifiedOrderNos returns every order number that has already been
// notified.
func (r *WatchRepository) ListNotifiedOrderNos(ctx context.Context) ([]string, error) {
	var orderNos []string
	if err := r.db.WithContext(ctx).
		Model(&models.NotifiedOrder{}).
		Pluck("order_no", &orderNos).Error; err != nil {
		return nil, fmt.Errorf("failed to list notified orders: %w", err)
	}
	return orderNos, nil
}

// MarkNotified records the given order numbers as notified. Conflicting rows
// are left untouched, so a re-run over an already-notified order is a no-op
// rather than an error.
func (r *WatchRepository) MarkNotified(ctx context.Context, orderNos []string, at time.Time) error {
	if len(orderNos) == 0 {
		return nil
	}

	rows := make([]models.NotifiedOrder, 0, len(orderNos))
	for _, orderNo := range orderNos {
		rows = append(rows, models.NotifiedOrder{OrderNo: orderNo, NotifiedAt: at})
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to mark orders notified: %w", err)
	}
	return nil
}

// ClearNotified removes the entire notified history.
func (r *WatchRepository) ClearNotified(ctx context.Context) error {
	if err := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.NotifiedOrder{}).Error; err != nil {
		return fmt.Errorf("failed to clear notified history: %w", err)
	}
	return nil
}

// CountNotified returns the size of the notified set.
func (r *WatchRepository) CountNotified(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.NotifiedOrder{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count notified orders: %w", err)
	}
	return count, nil
}

// SetLastCheck overwrites the last-check timestamp.
func (r *WatchRepository) SetLastCheck(ctx context.Context, at time.Time) error {
	checkpoint := models.WatchCheckpoint{ID: checkpointID, LastCheckAt: at}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_check_at"}),
		}).
		Create(&checkpoint).Error; err != nil {
		return fmt.Errorf("failed to set last check: %w", err)
	}
	return nil
}

// LastCheck returns the last-check timestamp, or nil when no cycle has ever
// completed.
func (r *WatchRepository) LastCheck(ctx context.Context) (*time.Time, error) {
	var checkpoint models.WatchCheckpoint
	err := r.db.WithContext(ctx).First(&checkpoint, checkpointID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last check: %w", err)
	}
	return &checkpoint.LastCheckAt, nil
}

// Ensure WatchRepository implements the watch.Store interface
var _ watch.Store = (*WatchRepository)(nil)
