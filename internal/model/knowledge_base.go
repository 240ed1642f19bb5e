package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KBStatus tracks a document through the ingestion pipeline
type KBStatus string

const (
	KBStatusUploaded  KBStatus = "UPLOADED"
	KBStatusIngesting KBStatus = "INGESTING"
	KBStatusCompleted KBStatus = "COMPLETED"
	KBStatusFailed    KBStatus = "FAILED"
	KBStatusDeleted   KBStatus = "DELETED"
)

// KnowledgeBase is one uploaded document in a workspace. Foreign keys are
// plain columns resolved inside the tenant schema; they never reference
// another schema's rows.
type KnowledgeBase struct {
	ID         string   `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     string   `json:"user_id" gorm:"type:varchar(36);index;not null"`
	CategoryID string   `json:"category_id" gorm:"type:varchar(36);index;not null"`
	FileName   string   `json:"file_name" gorm:"type:text;not null"`
	Mime       string   `json:"mime" gorm:"type:varchar(255)"`
	FileSize   int64    `json:"file_size"`
	StorageURL string   `json:"storage_url" gorm:"type:text"`
	Status     KBStatus `json:"status" gorm:"type:varchar(20);not null;default:'UPLOADED'"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Category Category `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (KnowledgeBase) TableName() string {
	return "knowledge_base"
}

func (k *KnowledgeBase) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
