package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VectorDocument is one embedded chunk of a knowledge-base document.
// The embedding is stored as a JSON array; similarity search itself is the
// retrieval collaborator's concern, not this service's.
type VectorDocument struct {
	ID         string `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     string `json:"user_id" gorm:"type:varchar(36);index;not null"`
	CategoryID string `json:"category_id" gorm:"type:varchar(36);index;not null"`
	FileID     string `json:"file_id" gorm:"type:varchar(36);index;not null"`

	ChunkIndex int    `json:"chunk_index" gorm:"not null"`
	ChunkText  string `json:"chunk_text" gorm:"type:text;not null"`
	Embedding  string `json:"-" gorm:"type:jsonb;not null"`
	Metadata   string `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     User          `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Category Category      `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	File     KnowledgeBase `json:"-" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
}

func (VectorDocument) TableName() string {
	return "vector_documents"
}

func (v *VectorDocument) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
