package database

import (
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuditLog records an administrative action against an entity
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	EntityType  string    `gorm:"size:50;not null" json:"entity_type"`
	EntityID    uint      `gorm:"not null" json:"entity_id"`
	Description string    `gorm:"type:text" json:"description"`
	IP          string    `gorm:"size:50" json:"ip"`
	UserAgent   string    `gorm:"size:255" json:"user_agent"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// Audit actions
const (
	AuditCreate       = "create"
	AuditUpdate       = "update"
	AuditDelete       = "delete"
	AuditStatusChange = "status_change"
)

// RecordAudit writes an audit entry. Failures are logged and never block the caller.
func RecordAudit(db *gorm.DB, entry AuditLog) {
	if db == nil {
		return
	}
	if len(entry.UserAgent) > 255 {
		entry.UserAgent = entry.UserAgent[:255]
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Warn().Err(err).
			Str("action", entry.Action).
			Str("entity", entry.EntityType).
			Uint("entity_id", entry.EntityID).
			Msg("Failed to write audit log")
	}
}
