package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEventType classifies workspace audit entries
type AuditEventType string

const (
	AuditEventError     AuditEventType = "ERROR"
	AuditEventQuery     AuditEventType = "QUERY"
	AuditEventUpload    AuditEventType = "UPLOAD"
	AuditEventEmbedding AuditEventType = "EMBEDDING_CREATE"
	AuditEventAPICall   AuditEventType = "API_CALL"
)

// AuditLog records a workspace-local audit event
type AuditLog struct {
	ID        string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(36);index;not null"`
	EventType AuditEventType `json:"event_type" gorm:"type:varchar(50);not null"`
	Details   string         `json:"details,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
