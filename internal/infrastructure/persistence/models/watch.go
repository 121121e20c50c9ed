package models

import "time"

// NotifiedOrder is the durable record of an order number that has already
// triggered a cancellation notification. The set grows monotonically and is
// only cleared by the explicit clear-history action.
type NotifiedOrder struct {
	OrderNo    string    `gorm:"primaryKey;size:64"`
	NotifiedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for NotifiedOrder
func (NotifiedOrder) TableName() string {
	return "notified_orders"
}

// WatchCheckpoint is the single-row record of the most recent completed poll
// attempt. Overwritten every cycle regardless of outcome; display only.
type WatchCheckpoint struct {
	ID          uint      `gorm:"primaryKey"`
	LastCheckAt time.Time `gorm:"not null"`
}

// TableName returns the table name for WatchCheckpoint
func (WatchCheckpoint) TableName() string {
	return "watch_checkpoints"
}
